package ocr

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/andrei/ocrwatch/internal/render"
)

// TesseractClient implements Client with a local Tesseract install. Pages are
// rasterized with pdftoppm first since Tesseract reads images, not PDFs.
type TesseractClient struct {
	languages []string
	dpi       int
}

// NewTesseractClient creates a new Tesseract client. The rasterization tool
// is checked here so a missing install fails at startup, not per file.
func NewTesseractClient(opts Options) (*TesseractClient, error) {
	if err := render.ToolAvailable(); err != nil {
		return nil, err
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = render.DefaultDPI
	}

	return &TesseractClient{
		languages: opts.Languages,
		dpi:       dpi,
	}, nil
}

// Extract rasterizes the PDF and recognizes each page sequentially.
func (c *TesseractClient) Extract(ctx context.Context, req Request) (*Document, error) {
	start := time.Now()

	workDir, err := os.MkdirTemp("", "ocrwatch-render-*")
	if err != nil {
		return nil, &TransientError{Message: "failed to create render directory", Cause: err}
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(pdfPath, req.PDF, 0600); err != nil {
		return nil, &TransientError{Message: "failed to stage PDF for rendering", Cause: err}
	}

	images, err := render.Pages(ctx, pdfPath, workDir, render.PageOptions{DPI: c.dpi})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Rasterization failures are input-caused; retrying the same bytes
		// cannot help.
		return nil, &PermanentError{Message: "page rasterization failed", Cause: err}
	}

	langs := req.Languages
	if len(langs) == 0 {
		langs = c.languages
	}

	pages := make([]Page, 0, len(images))
	for i, img := range images {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		page, err := c.recognizePage(i+1, img, langs)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	return &Document{
		Text:        joinPageText(pages),
		Pages:       pages,
		Provider:    ProviderTesseract,
		Languages:   langs,
		ProcessedAt: time.Now().UTC(),
		Duration:    time.Since(start),
	}, nil
}

func (c *TesseractClient) recognizePage(number int, imgPath string, langs []string) (Page, error) {
	tc := gosseract.NewClient()
	defer tc.Close()

	if err := tc.SetImage(imgPath); err != nil {
		return Page{}, &PermanentError{Message: fmt.Sprintf("set image for page %d", number), Cause: err}
	}
	if len(langs) > 0 {
		if err := tc.SetLanguage(langs...); err != nil {
			return Page{}, &PermanentError{Message: "set languages", Cause: err}
		}
	}
	if err := tc.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(c.dpi)); err != nil {
		return Page{}, &PermanentError{Message: "set dpi", Cause: err}
	}

	text, err := tc.Text()
	if err != nil {
		return Page{}, &PermanentError{Message: fmt.Sprintf("recognize page %d", number), Cause: err}
	}

	page := Page{Number: number, Text: strings.TrimSpace(text)}

	// Word geometry is best-effort; a page without boxes still counts.
	boxes, err := tc.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return page, nil
	}

	words := make([]Word, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		sum += conf
		words = append(words, Word{
			Text:        b.Word,
			Confidence:  conf,
			BoundingBox: rectVertices(b.Box),
		})
	}
	avg := sum / float64(len(words))

	page.Confidence = avg
	page.Blocks = []Block{{
		Confidence: avg,
		Paragraphs: []Paragraph{{Confidence: avg, Words: words}},
	}}
	return page, nil
}

func rectVertices(r image.Rectangle) []Vertex {
	return []Vertex{
		{X: int32(r.Min.X), Y: int32(r.Min.Y)},
		{X: int32(r.Max.X), Y: int32(r.Min.Y)},
		{X: int32(r.Max.X), Y: int32(r.Max.Y)},
		{X: int32(r.Min.X), Y: int32(r.Max.Y)},
	}
}

// Name returns the provider name.
func (c *TesseractClient) Name() string {
	return ProviderTesseract
}

// Close is a no-op; recognition clients are created per call.
func (c *TesseractClient) Close() error {
	return nil
}
