package index

import (
	"os"
	"path/filepath"
	"testing"

	"leftovr/internal/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	recipes := []*store.Recipe{
		{ID: 0, Title: "Pancakes", Ingredients: []string{"2 cups flour", "Eggs", "milk"}},
		{ID: 1, Title: "Omelette", Ingredients: []string{"eggs", "butter"}},
	}

	ix := Build(recipes)

	assert.ElementsMatch(t, []int{0, 1}, ix.Lookup("egg"))
	assert.Equal(t, []int{0}, ix.Lookup("flour"))
	assert.Equal(t, []int{1}, ix.Lookup("butter"))
	assert.Nil(t, ix.Lookup("sugar"))
}

func TestBuildDeduplicatesWithinRecipe(t *testing.T) {
	// 同一食譜重複列出的食材只登記一次，避免重複計分
	recipes := []*store.Recipe{
		{ID: 0, Ingredients: []string{"egg", "Eggs", "eggs"}},
	}

	ix := Build(recipes)
	assert.Equal(t, []int{0}, ix.Lookup("egg"))
}

func TestBuildSkipsEmptyKeys(t *testing.T) {
	recipes := []*store.Recipe{
		{ID: 0, Ingredients: []string{"", "   ", "flour"}},
	}

	ix := Build(recipes)
	assert.Equal(t, 1, ix.Len())
}

func TestSaveAndLoad(t *testing.T) {
	ix := New()
	ix.Add("flour", 0)
	ix.Add("flour", 3)
	ix.Add("egg", 1)

	path := filepath.Join(t.TempDir(), "ingredient_index.json")
	require.NoError(t, ix.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, []int{0, 3}, loaded.Lookup("flour"))
}

func TestLoadDeduplicatesIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingredient_index.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"flour":[0,0,3,3,0],"egg":[1]}`), 0644))

	ix, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, ix.Lookup("flour"))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingredient_index.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
