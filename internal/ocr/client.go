package ocr

import (
	"context"
	"fmt"
)

// Client is an abstraction over OCR backends
type Client interface {
	// Extract runs text detection over one PDF document
	Extract(ctx context.Context, req Request) (*Document, error)
	// Name returns the provider name for logging and artifacts
	Name() string
	// Close releases any resources held by the client
	Close() error
}

// Options carries provider construction settings resolved from configuration.
type Options struct {
	Provider        string   // vision, gemini, or tesseract; empty selects vision
	CredentialsFile string   // Google service account JSON (vision, gemini)
	APIKey          string   // Gemini API key; preferred over credentials for gemini
	Model           string   // Gemini model name override
	Languages       []string // Language hints passed to the backend
	DPI             int      // Rasterization density for tesseract
}

// New creates an extraction client based on configuration
func New(ctx context.Context, opts Options) (Client, error) {
	switch opts.Provider {
	case "", ProviderVision:
		return NewVisionClient(ctx, opts)
	case ProviderGemini:
		return NewGeminiClient(ctx, opts)
	case ProviderTesseract:
		return NewTesseractClient(opts)
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", opts.Provider)
	}
}
