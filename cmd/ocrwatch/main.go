// Package main provides the entry point for the ocrwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ocrwatch",
	Short: "Watch a directory for PDFs and extract their text via OCR",
	Long: `ocrwatch turns a directory into a document intake point: every PDF dropped
into the watched directory is picked up once it stops changing, sent to an OCR
backend, and written out as a plain-text artifact next to a JSON sidecar with
page and timing details.

Use 'watch' to run the long-lived watcher, or 'process' to extract a single
PDF and exit.`,
}

func main() {
	// Load .env file if present (ignore error if missing)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
