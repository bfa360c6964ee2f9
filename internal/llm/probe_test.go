package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semchunk/internal/llm"
	"github.com/dshills/semchunk/internal/llm/llmtest"
)

func TestProbe(t *testing.T) {
	ctx := context.Background()

	reply, err := llm.Probe(ctx, llmtest.Static(" OK\n"))
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	_, err = llm.Probe(ctx, nil)
	assert.ErrorIs(t, err, llm.ErrUnavailable)

	_, err = llm.Probe(ctx, llmtest.Static("   "))
	assert.ErrorIs(t, err, llm.ErrEmptyReply)

	boom := errors.New("boom")
	_, err = llm.Probe(ctx, llmtest.Failing(boom))
	assert.ErrorIs(t, err, boom)
}
