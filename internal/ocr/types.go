// Package ocr extracts text from PDF documents through interchangeable
// backends (Google Cloud Vision, Gemini, local Tesseract).
package ocr

import (
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderVision    = "vision"
	ProviderGemini    = "gemini"
	ProviderTesseract = "tesseract"
)

// Request carries one PDF through an extraction backend.
type Request struct {
	PDF       []byte   // Raw document bytes
	Filename  string   // Original name, used in errors and logging only
	PageCount int      // Total pages when known from preflight; 0 lets the backend discover it
	Languages []string // Optional language hints for the backend
}

// Vertex is one corner of a bounding region, in image pixel coordinates.
type Vertex struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Word is a single recognized word with its detection confidence.
type Word struct {
	Text        string   `json:"text"`
	Confidence  float64  `json:"confidence"`
	BoundingBox []Vertex `json:"bounding_box,omitempty"`
}

// Paragraph groups consecutive words detected as one logical unit.
type Paragraph struct {
	Confidence  float64  `json:"confidence"`
	BoundingBox []Vertex `json:"bounding_box,omitempty"`
	Words       []Word   `json:"words,omitempty"`
}

// Block is a top-level layout region of a page.
type Block struct {
	BlockType   string      `json:"block_type,omitempty"`
	Confidence  float64     `json:"confidence"`
	BoundingBox []Vertex    `json:"bounding_box,omitempty"`
	Paragraphs  []Paragraph `json:"paragraphs,omitempty"`
}

// Page holds the recognized text of one document page. Geometry detail
// depends on the backend: Vision and Tesseract fill Blocks, Gemini returns
// plain text only.
type Page struct {
	Number     int     `json:"page_number"`
	Text       string  `json:"full_text"`
	Confidence float64 `json:"confidence,omitempty"`
	Width      int32   `json:"width,omitempty"`
	Height     int32   `json:"height,omitempty"`
	Blocks     []Block `json:"blocks,omitempty"`
}

// Document is the complete result of one extraction.
type Document struct {
	Text        string        `json:"text"`                // All page texts joined with blank lines
	Pages       []Page        `json:"pages,omitempty"`     // Per-page detail when the backend provides it
	Provider    string        `json:"provider"`            // Backend that produced the result
	Languages   []string      `json:"languages,omitempty"` // Detected language codes, if reported
	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"-"`
}

// PageCount returns the number of pages carrying per-page detail.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Confidence returns the mean page confidence, or 0 when no page reports one.
func (d *Document) Confidence() float64 {
	var sum float64
	var n int
	for _, p := range d.Pages {
		if p.Confidence > 0 {
			sum += p.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// joinPageText assembles the document text the same way regardless of
// backend: page texts trimmed and separated by one blank line.
func joinPageText(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, strings.TrimSpace(p.Text))
	}
	return strings.Join(parts, "\n\n")
}
