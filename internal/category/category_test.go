package category

import (
	"testing"

	"github.com/m-sorano/ai-cafe/internal/models"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestKey(t *testing.T) {
	cases := map[string]string{
		"[初心者向け] AIはじめの一歩":     Beginner,
		"[活用事例] みんなのAI活用術":      UseCase,
		"[ツール・サービス] AIツールレビュー": Tools,
		"[悩み相談] AIなんでも相談室":      Consultation,
		"[専門家向け] AI技術深掘り":       Expert,
		"[雑談・交流] AIフリートーク":      Free,
		"[ 超初心者向けコース ] 入門":     Beginner,
		"[ニュース] 今日のAI":          "",
		"初心者向け 括弧なし":            "",
		"":                      "",
		"[] [活用事例] 二番目のラベル":     UseCase,
	}
	for name, want := range cases {
		assert.Equal(t, want, Key(name), name)
	}
}

func TestKeyFirstFragmentWins(t *testing.T) {
	// Both fragments are present; beginner comes first in the table.
	assert.Equal(t, Beginner, Key("[専門家向け・初心者向け] 混在"))
}

func TestLegacyKey(t *testing.T) {
	cases := map[string]string{
		"AI相談":       Consultation,
		"latte":      Beginner,
		"cappuccino": UseCase,
		"mocha":      Expert,
		"espresso":   Tools,
		"americano":  Free,
		"matcha":     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, LegacyKey(in), in)
	}
}

func TestLegacyLabel(t *testing.T) {
	assert.Equal(t, "[初心者向け] AIはじめの一歩", LegacyLabel("latte"))
	assert.Equal(t, "[ツール・サービス] AIツールレビュー", LegacyLabel("espresso"))
	assert.Equal(t, OtherLabel, LegacyLabel("unknown"))
}

func TestDefaultsResolveToEveryKey(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Defaults() {
		seen[Key(c.Name)] = true
	}
	for _, k := range []string{Beginner, UseCase, Tools, Consultation, Expert, Free} {
		assert.True(t, seen[k], k)
	}
}

func newTestResolver() *Resolver {
	return NewResolver([]*models.Category{
		{ID: "C1", Name: "[初心者向け] AIはじめの一歩"},
		{ID: "C2", Name: "[ツール・サービス] AIツールレビュー"},
		{ID: "C3", Name: "[お知らせ] 運営から"},
	})
}

func TestResolverMatches(t *testing.T) {
	r := newTestResolver()

	withCategory := &models.Post{Category: strPtr("C1")}
	legacyOnly := &models.Post{BlendType: strPtr("espresso")}
	both := &models.Post{Category: strPtr("C1"), BlendType: strPtr("espresso")}
	none := &models.Post{}

	assert.True(t, r.Matches(withCategory, Beginner))
	assert.False(t, r.Matches(withCategory, Tools))
	assert.True(t, r.Matches(legacyOnly, Tools))
	assert.False(t, r.Matches(legacyOnly, Beginner))
	// The legacy value is ignored when a category reference is present.
	assert.False(t, r.Matches(both, Tools))
	assert.False(t, r.Matches(none, Beginner))
	assert.True(t, r.Matches(none, All))
	assert.True(t, r.Matches(none, ""))
}

func TestResolverLabels(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, "[初心者向け] AIはじめの一歩", r.PostLabel(&models.Post{Category: strPtr("C1")}))
	assert.Equal(t, "[ツール・サービス] AIツールレビュー", r.PostLabel(&models.Post{BlendType: strPtr("espresso")}))
	assert.Equal(t, "[初心者向け] AIはじめの一歩", r.PostLabel(&models.Post{Category: strPtr("latte")}))
	assert.Equal(t, OtherLabel, r.PostLabel(&models.Post{Category: strPtr("missing")}))
	assert.Equal(t, OtherLabel, r.PostLabel(&models.Post{}))

	assert.Equal(t, "", r.KeyFor("C3"))
	assert.Equal(t, Tools, r.PostKey(&models.Post{BlendType: strPtr("espresso")}))
	id, ok := r.IDFor(Tools)
	assert.True(t, ok)
	assert.Equal(t, "C2", id)
	assert.True(t, r.Exists("C3"))
}
