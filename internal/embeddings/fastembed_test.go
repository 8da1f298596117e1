package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFastEmbed_UnsupportedModel(t *testing.T) {
	_, err := NewFastEmbed(Config{Model: "not-a-model"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported embedding model")
}

func TestModelDimensionsCoverMapping(t *testing.T) {
	for name, model := range modelMapping {
		_, ok := modelDimensions[model]
		assert.True(t, ok, "model %s has no dimension entry", name)
	}
}
