package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, pages int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.pdf")
	require.NoError(t, os.WriteFile(path, pdfFixture(pages), 0644))
	return path
}

func TestPages_RendersEveryPage(t *testing.T) {
	if err := ToolAvailable(); err != nil {
		t.Skip("pdftoppm not installed")
	}

	pdfPath := writeFixture(t, 2)
	outDir := filepath.Join(t.TempDir(), "pages")

	paths, err := Pages(context.Background(), pdfPath, outDir, PageOptions{DPI: 50})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, p := range paths {
		assert.FileExists(t, p)
		assert.Equal(t, ".png", filepath.Ext(p))
	}
	// Lexical order is page order.
	assert.True(t, paths[0] < paths[1])
}

func TestPages_InvalidPDF(t *testing.T) {
	if err := ToolAvailable(); err != nil {
		t.Skip("pdftoppm not installed")
	}

	pdfPath := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("garbage"), 0644))

	paths, err := Pages(context.Background(), pdfPath, filepath.Join(t.TempDir(), "pages"), PageOptions{})
	require.Error(t, err)
	assert.Nil(t, paths)

	renderErr, ok := err.(*RenderError)
	require.True(t, ok, "error should be RenderError type")
	assert.NotEmpty(t, renderErr.Error())
}

func TestPages_Timeout(t *testing.T) {
	if err := ToolAvailable(); err != nil {
		t.Skip("pdftoppm not installed")
	}

	pdfPath := writeFixture(t, 1)

	paths, err := Pages(context.Background(), pdfPath, filepath.Join(t.TempDir(), "pages"), PageOptions{
		Timeout: time.Nanosecond,
	})
	require.Error(t, err)
	assert.Nil(t, paths)
	assert.Contains(t, err.Error(), "timed out")
}
