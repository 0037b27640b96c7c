package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model override is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// transcribePrompt asks the model for a faithful transcription and nothing
// else. Gemini reads the PDF natively, so no rasterization step is needed.
const transcribePrompt = `Transcribe every piece of text in this PDF document in reading order.
Preserve the original wording, numbers, and line structure exactly.
Separate the text of consecutive pages with a single blank line.
Output only the transcribed text, with no commentary and no markdown formatting.`

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	default:
		return nil, fmt.Errorf("API key is required for the gemini provider")
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

// Extract transcribes the PDF in a single generation call. The result carries
// text only; Gemini does not report layout geometry or confidences.
func (c *GeminiClient) Extract(ctx context.Context, req Request) (*Document, error) {
	start := time.Now()

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0) // Deterministic transcription

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: req.PDF},
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return nil, classify(err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, &TransientError{Message: "unusable model response", Cause: err}
	}

	return &Document{
		Text:        strings.TrimSpace(text),
		Provider:    ProviderGemini,
		ProcessedAt: time.Now().UTC(),
		Duration:    time.Since(start),
	}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return ProviderGemini
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
