package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnknownProvider(t *testing.T) {
	client, err := New(context.Background(), Options{Provider: "textract"})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "unknown extraction provider")
}

func TestNew_GeminiWithoutKey(t *testing.T) {
	client, err := New(context.Background(), Options{Provider: ProviderGemini})
	require.Error(t, err)
	assert.Nil(t, client)
}
