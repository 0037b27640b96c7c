package ocr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei/ocrwatch/internal/render"
)

func TestNewTesseractClient_DefaultDPI(t *testing.T) {
	if err := render.ToolAvailable(); err != nil {
		t.Skipf("pdftoppm not installed: %v", err)
	}

	client, err := NewTesseractClient(Options{Languages: []string{"eng"}})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, render.DefaultDPI, client.dpi)
	assert.Equal(t, ProviderTesseract, client.Name())
}

func TestNewTesseractClient_MissingTool(t *testing.T) {
	if err := render.ToolAvailable(); err == nil {
		t.Skip("pdftoppm is installed; cannot exercise the missing tool path")
	}

	_, err := NewTesseractClient(Options{})
	assert.Error(t, err)
}

func TestRectVertices_Clockwise(t *testing.T) {
	r := image.Rect(2, 3, 10, 20)
	v := rectVertices(r)

	require.Len(t, v, 4)
	assert.Equal(t, Vertex{X: 2, Y: 3}, v[0])
	assert.Equal(t, Vertex{X: 10, Y: 3}, v[1])
	assert.Equal(t, Vertex{X: 10, Y: 20}, v[2])
	assert.Equal(t, Vertex{X: 2, Y: 20}, v[3])
}
