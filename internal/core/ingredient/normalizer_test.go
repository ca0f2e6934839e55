package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"單位與數量剝除", "2 cups flour", "flour"},
		{"公制單位剝除", "1 kg chicken", "chicken"},
		{"分數數量剝除", "1/2 tsp salt", "salt"},
		{"大小寫歸一", "MILK", "milk"},
		{"簡單複數還原", "Eggs", "egg"},
		{"es 結尾複數還原", "tomatoes", "tomato"},
		{"標點去除", "sugar,", "sugar"},
		{"前後空白", "  butter  ", "butter"},
		{"多詞食材", "olive oil", "olive oil"},
		{"空字串", "", ""},
		{"純空白", "   ", ""},
		// 以 s 結尾的非複數單詞也會被削尾，此行為與既有索引綁定
		{"已知削尾行為", "hummus", "hummu"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"2 cups flour", "tomatoes", "Eggs", "olive oil", "hummus"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize 必須冪等: %q", in)
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"2 cups Flour", "", "Eggs", "   "})
	assert.Equal(t, []string{"flour", "egg"}, got)
}

func TestNormalizeSet(t *testing.T) {
	// 同一食材的不同寫法在集合中只留一個鍵
	set := NormalizeSet([]string{"Eggs", "egg", "2 cups flour", "Flour"})
	assert.Len(t, set, 2)
	assert.Contains(t, set, "egg")
	assert.Contains(t, set, "flour")
}
