package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "recipe_metadata.jsonl", cfg.Data.MetadataFile)
	assert.Equal(t, 500, cfg.Search.CandidatePool)
	assert.Equal(t, 20, cfg.Search.DefaultTopK)
	assert.False(t, cfg.Search.IncludeSemanticOnly)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, "recipes", cfg.Vector.Collection)
	assert.Equal(t, 7, cfg.Pantry.DefaultExpiryDays)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("APP_SEARCH_CANDIDATE_POOL", "250")
	t.Setenv("APP_SEARCH_DEFAULT_TOP_K", "5")
	t.Setenv("VECTOR_COLLECTION", "recipes_v2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Search.CandidatePool)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
	assert.Equal(t, "recipes_v2", cfg.Vector.Collection)
}

func TestConfigPaths(t *testing.T) {
	cfg := &Config{Data: DataConfig{
		Dir:                 "data",
		MetadataFile:        "recipe_metadata.jsonl",
		IngredientIndexFile: "ingredient_index.json",
	}}

	assert.Equal(t, "data/recipe_metadata.jsonl", cfg.MetadataPath())
	assert.Equal(t, "data/ingredient_index.json", cfg.IngredientIndexPath())
}
