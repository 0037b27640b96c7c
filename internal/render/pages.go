package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultDPI is the rasterization density for image-based backends.
	DefaultDPI = 200

	// RenderTimeout is the maximum time to wait for page rasterization
	RenderTimeout = 10 * time.Minute
)

// PageOptions adjusts rasterization.
type PageOptions struct {
	DPI     int           // Defaults to DefaultDPI
	Timeout time.Duration // Defaults to RenderTimeout
}

// ToolAvailable reports whether the pdftoppm binary can be found in PATH.
// Backends that need rasterization should call this at construction so a
// missing tool surfaces as a configuration error, not a per-file failure.
func ToolAvailable() error {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return fmt.Errorf("pdftoppm not found in PATH; install poppler-utils: %w", err)
	}
	return nil
}

// Pages rasterizes every page of the PDF at pdfPath into PNG files under
// outDir and returns their paths in page order.
func Pages(ctx context.Context, pdfPath string, outDir string, opts PageOptions) ([]string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, &RenderError{
			Message: "pdftoppm not found in PATH. Install poppler-utils",
			Cause:   err,
		}
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = RenderTimeout
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, &RenderError{
			Message: fmt.Sprintf("failed to create render directory: %s", outDir),
			Cause:   err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", strconv.Itoa(dpi), pdfPath, prefix)

	// Capture both stdout and stderr
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	logOutput := stdout.String() + stderr.String()

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &RenderError{
				Message: fmt.Sprintf("rasterization timed out after %s", timeout),
				Output:  logOutput,
				Cause:   runErr,
			}
		}
		return nil, &RenderError{
			Message: "pdftoppm failed",
			Output:  logOutput,
			Cause:   runErr,
		}
	}

	// pdftoppm pads page numbers to a fixed width, so lexical order is
	// page order.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, &RenderError{Message: "failed to list rendered pages", Cause: err}
	}
	if len(matches) == 0 {
		return nil, &RenderError{
			Message: "no pages rendered",
			Output:  logOutput,
		}
	}
	sort.Strings(matches)

	return matches, nil
}
