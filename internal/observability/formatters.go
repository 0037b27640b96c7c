// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andrei/ocrwatch/internal/artifact"
	"github.com/andrei/ocrwatch/internal/config"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxPreviewLines is the number of extracted text lines shown per document
	maxPreviewLines = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintWatchConfig outputs the effective settings the watcher starts with.
func (p *Printer) PrintWatchConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Input:     %s\n", cfg.InputDir))
	sb.WriteString(fmt.Sprintf("Output:    %s\n", cfg.OutputDir))
	sb.WriteString(fmt.Sprintf("Provider:  %s\n", cfg.Provider))
	if len(cfg.Languages) > 0 {
		sb.WriteString(fmt.Sprintf("Languages: %s\n", strings.Join(cfg.Languages, ", ")))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Workers:   %d\n", cfg.Workers))
	sb.WriteString(fmt.Sprintf("Quiet:     %.1fs (poll every %.1fs)\n", cfg.QuietSeconds, cfg.PollSeconds))
	sb.WriteString(fmt.Sprintf("Retries:   %d attempts\n", cfg.RetryAttempts))
	sb.WriteString(fmt.Sprintf("Collision: %s", cfg.Collision))

	p.printBox("WATCHING FOR DOCUMENTS", sb.String())
}

// PrintExtraction outputs a per-document summary after artifacts are written.
func (p *Printer) PrintExtraction(res *artifact.Result, written *artifact.Written) {
	if res == nil || res.Document == nil {
		return
	}
	doc := res.Document

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("File:       %s\n", filepath.Base(res.InputPath)))
	sb.WriteString(fmt.Sprintf("Job:        %s\n", res.JobID))
	sb.WriteString(fmt.Sprintf("Provider:   %s\n", doc.Provider))
	sb.WriteString(fmt.Sprintf("Pages:      %d\n", res.PageCount))
	if conf := doc.Confidence(); conf > 0 {
		sb.WriteString(fmt.Sprintf("Confidence: %.1f%%\n", conf*100))
	}
	if len(doc.Languages) > 0 {
		sb.WriteString(fmt.Sprintf("Languages:  %s\n", strings.Join(doc.Languages, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Duration:   %.1fs\n", res.Timing.ExtractionSeconds))

	preview, more := previewLines(doc.Text, maxPreviewLines)
	if len(preview) > 0 {
		sb.WriteString("\n")
		for _, line := range preview {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
		if more > 0 {
			sb.WriteString(fmt.Sprintf("  ... and %d more lines\n", more))
		}
	}

	if written != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Wrote %s\n", written.TextPath))
		sb.WriteString(fmt.Sprintf("Wrote %s", written.JSONPath))
	}

	p.printBox("EXTRACTION COMPLETE", strings.TrimSuffix(sb.String(), "\n"))
}

// previewLines returns up to max non-blank lines of text and how many were
// left out.
func previewLines(text string, max int) ([]string, int) {
	var lines []string
	total := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		if len(lines) < max {
			lines = append(lines, line)
		}
	}
	return lines, total - len(lines)
}
