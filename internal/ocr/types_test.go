package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinPageText(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "First page.\n"},
		{Number: 2, Text: "  Second page.  "},
		{Number: 3, Text: ""},
	}

	joined := joinPageText(pages)
	assert.Equal(t, "First page.\n\nSecond page.\n\n", joined)
}

func TestJoinPageText_Empty(t *testing.T) {
	assert.Equal(t, "", joinPageText(nil))
}

func TestDocument_Confidence(t *testing.T) {
	doc := &Document{Pages: []Page{
		{Number: 1, Confidence: 0.9},
		{Number: 2, Confidence: 0.7},
		{Number: 3}, // no confidence reported
	}}

	assert.InDelta(t, 0.8, doc.Confidence(), 1e-9)
	assert.Equal(t, 3, doc.PageCount())
}

func TestDocument_Confidence_NoPages(t *testing.T) {
	doc := &Document{Text: "plain transcription"}
	assert.Equal(t, 0.0, doc.Confidence())
	assert.Equal(t, 0, doc.PageCount())
}
