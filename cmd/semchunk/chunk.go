package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dshills/semchunk/internal/chunker"
	"github.com/dshills/semchunk/pkg/types"
)

func chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk FILE...",
		Short: "Chunk text files and print the results as JSON",
		Long: "Chunk one or more plain-text or markdown files. \"-\" reads standard input.\n" +
			"Each file's path is its document id unless --id is given for a single file.",
		Args: cobra.MinimumNArgs(1),
		RunE: runChunk,
	}
	f := cmd.Flags()
	f.Int("chunk-size", 0, "Maximum tokens per general chunk")
	f.Int("chunk-overlap", 0, "Tokens shared by consecutive general chunks")
	f.Bool("embedding-only", false, "Cut at embedding similarity drops only; never call the LLM")
	f.Int("concurrency", 0, "Documents chunked in parallel")
	f.String("structure", "", "Force a structure type (general, parent_child, qa)")
	f.String("id", "", "Document id, for a single input")
	f.StringP("output", "o", "", "Write JSON to this file instead of stdout")
	f.Bool("no-progress", false, "Disable the progress bar")
	return cmd
}

func runChunk(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	if id != "" && len(args) > 1 {
		return errors.New("--id needs exactly one input")
	}
	structure, _ := cmd.Flags().GetString("structure")

	reqs := make([]chunker.Request, len(args))
	for i, path := range args {
		text, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		docID := path
		if id != "" {
			docID = id
		}
		reqs[i] = chunker.Request{Text: text, DocumentID: docID, StructureType: types.StructureType(structure)}
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	defer func() { _ = a.chunker.Close() }()

	var progress func(done, total int)
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress && len(reqs) > 1 {
		bar := progressBar(len(reqs), "Chunking")
		progress = func(done, _ int) { _ = bar.Set(done) }
		defer func() { _ = bar.Finish() }()
	}

	results, chunkErr := a.chunker.ChunkMany(cmd.Context(), reqs, progress)

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := writeResults(out, results); err != nil {
		return err
	}
	return chunkErr
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// writeResults prints one result as an object and several as an array.
// Failed documents are omitted.
func writeResults(w io.Writer, results []*chunker.Result) error {
	ok := make([]*chunker.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			ok = append(ok, r)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		if len(ok) == 0 {
			return nil
		}
		return enc.Encode(ok[0])
	}
	return enc.Encode(ok)
}

func progressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
