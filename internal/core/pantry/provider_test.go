package pantry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFoodID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Eggs", "egg"},
		{"2 cups Flour", "flour"},
		{"olive oil", "olive-oil"},
		{"Green Onions", "green-onion"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeFoodID(tc.in), "input: %q", tc.in)
	}
}

func TestNormalizeFoodIDStable(t *testing.T) {
	// 同一食材的不同寫法必須映射到同一個庫存 id
	variants := []string{"egg", "Egg", "EGGS", "eggs"}
	for _, v := range variants {
		assert.Equal(t, "egg", NormalizeFoodID(v))
	}
}
