package chunker

import (
	"errors"
	"fmt"

	"github.com/dshills/semchunk/pkg/types"
)

var (
	// ErrEmptyInput is returned for blank text before any provider is called
	ErrEmptyInput = errors.New("input text is empty")
	// ErrNoStrategy means the configured mode has no usable boundary source
	ErrNoStrategy = errors.New("no chunking strategy available")
	// ErrPipelineFailed is wrapped by every *PipelineError
	ErrPipelineFailed = errors.New("chunking pipeline failed")
	// ErrInvalidConfig is returned by New for inconsistent sizes
	ErrInvalidConfig = errors.New("invalid chunker configuration")
)

// PipelineError reports a request that produced no valid chunk. It names
// enough of the input for the caller to tell an empty document from a broken
// pipeline.
type PipelineError struct {
	DocumentID    string
	StructureType types.StructureType
	TextLength    int
	Candidates    int
	State         State
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%v: document %q (%s, %d bytes): %d candidate chunks, none valid after %s",
		ErrPipelineFailed, e.DocumentID, e.StructureType, e.TextLength, e.Candidates, e.State)
}

func (e *PipelineError) Unwrap() error {
	return ErrPipelineFailed
}
