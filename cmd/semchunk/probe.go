package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/semchunk/internal/embedder"
	"github.com/dshills/semchunk/internal/llm"
)

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the configured embedding and LLM providers respond",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			defer func() { _ = a.chunker.Close() }()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			failed := 0
			if a.embedder == nil {
				fmt.Fprintf(out, "%s embeddings: disabled, pattern matching only\n", color.YellowString("-"))
			} else if dim, err := embedder.Probe(ctx, a.embedder); err != nil {
				failed++
				fmt.Fprintf(out, "%s embeddings (%s): %v\n", color.RedString("✗"), a.embedder.Provider(), err)
			} else {
				fmt.Fprintf(out, "%s embeddings (%s, %s): dimension %d\n",
					color.GreenString("✓"), a.embedder.Provider(), a.embedder.Model(), dim)
			}

			if a.llm == nil {
				fmt.Fprintf(out, "%s llm: disabled, heuristics only\n", color.YellowString("-"))
			} else if reply, err := llm.Probe(ctx, a.llm); err != nil {
				failed++
				fmt.Fprintf(out, "%s llm (%s): %v\n", color.RedString("✗"), a.llm.Name(), err)
			} else {
				fmt.Fprintf(out, "%s llm (%s): replied %q\n", color.GreenString("✓"), a.llm.Name(), reply)
			}

			if failed > 0 {
				return fmt.Errorf("%d provider(s) failed", failed)
			}
			return nil
		},
	}
}
