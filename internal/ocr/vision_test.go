package ocr

import (
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annotationFixture() *visionpb.TextAnnotation {
	word := func(text string, conf float32) *visionpb.Word {
		symbols := make([]*visionpb.Symbol, 0, len(text))
		for _, r := range text {
			symbols = append(symbols, &visionpb.Symbol{Text: string(r)})
		}
		return &visionpb.Word{
			Symbols:    symbols,
			Confidence: conf,
			BoundingBox: &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
				{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 30}, {X: 10, Y: 30},
			}},
		}
	}

	return &visionpb.TextAnnotation{
		Text: "Invoice total",
		Pages: []*visionpb.Page{
			{
				Width:      600,
				Height:     800,
				Confidence: 0.93,
				Property: &visionpb.TextAnnotation_TextProperty{
					DetectedLanguages: []*visionpb.TextAnnotation_DetectedLanguage{
						{LanguageCode: "en"},
					},
				},
				Blocks: []*visionpb.Block{
					{
						BlockType:  visionpb.Block_TEXT,
						Confidence: 0.92,
						Paragraphs: []*visionpb.Paragraph{
							{
								Confidence: 0.91,
								Words: []*visionpb.Word{
									word("Invoice", 0.95),
									word("total", 0.89),
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestPageFromAnnotation(t *testing.T) {
	langs := make(map[string]bool)
	page := pageFromAnnotation(2, annotationFixture(), langs)

	assert.Equal(t, 2, page.Number)
	assert.Equal(t, "Invoice total", page.Text)
	assert.Equal(t, int32(600), page.Width)
	assert.Equal(t, int32(800), page.Height)
	assert.InDelta(t, 0.93, page.Confidence, 1e-6)
	assert.True(t, langs["en"])

	require.Len(t, page.Blocks, 1)
	block := page.Blocks[0]
	assert.Equal(t, "TEXT", block.BlockType)
	require.Len(t, block.Paragraphs, 1)

	words := block.Paragraphs[0].Words
	require.Len(t, words, 2)
	assert.Equal(t, "Invoice", words[0].Text)
	assert.Equal(t, "total", words[1].Text)
	assert.InDelta(t, 0.95, words[0].Confidence, 1e-6)
	require.Len(t, words[0].BoundingBox, 4)
	assert.Equal(t, Vertex{X: 10, Y: 10}, words[0].BoundingBox[0])
}

func TestPageFromAnnotation_NilAnnotation(t *testing.T) {
	page := pageFromAnnotation(4, nil, nil)

	assert.Equal(t, 4, page.Number)
	assert.Empty(t, page.Text)
	assert.Empty(t, page.Blocks)
}

func TestVertices_Nil(t *testing.T) {
	assert.Nil(t, vertices(nil))
}

func TestLanguageCodes_Sorted(t *testing.T) {
	langs := map[string]bool{"fr": true, "en": true, "de": true}
	assert.Equal(t, []string{"de", "en", "fr"}, languageCodes(langs))
	assert.Nil(t, languageCodes(nil))
}
