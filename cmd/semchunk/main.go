package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/semchunk/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "semchunk",
		Short:         "Structure-aware semantic document chunker",
		Long:          "Splits documents into retrieval chunks using pattern matching, embeddings and an optional LLM.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags; unset flags leave environment and defaults in place
	pf := root.PersistentFlags()
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "Log in JSON format")
	pf.String("embedding-provider", "", "Embedding provider (auto, jina, openai, ollama, local, none)")
	pf.String("llm-provider", "", "LLM provider (auto, anthropic, openai, ollama, none)")
	pf.String("cache", "", "Structure cache backend (memory, sqlite, redis)")
	pf.String("cache-path", "", "SQLite database file for the structure cache")
	pf.String("redis-url", "", "Redis URL for the structure cache")

	root.AddCommand(
		serveCmd(),
		chunkCmd(),
		probeCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "semchunk\n")
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		},
	}
}
