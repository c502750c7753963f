package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/models"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name string
		in   credentials
		ok   bool
	}{
		{"valid", credentials{Email: "taro@example.com", Password: "secret1"}, true},
		{"empty email", credentials{Password: "secret1"}, false},
		{"empty password", credentials{Email: "taro@example.com"}, false},
		{"bad email", credentials{Email: "taro@", Password: "secret1"}, false},
		{"short password", credentials{Email: "taro@example.com", Password: "12345"}, false},
		{"max password", credentials{Email: "taro@example.com", Password: strings.Repeat("a", 72)}, true},
		{"long password", credentials{Email: "taro@example.com", Password: strings.Repeat("a", 73)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCredentials(tt.in)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, apperr.ErrValidation))
		})
	}
}

func TestValidWebsite(t *testing.T) {
	assert.True(t, validWebsite("https://example.com"))
	assert.True(t, validWebsite("http://example.com/me"))
	assert.False(t, validWebsite("example.com"))
	assert.False(t, validWebsite("ftp://example.com"))
	assert.False(t, validWebsite("https://"))
}

func TestRelatedCards(t *testing.T) {
	card := &models.KnowledgeCard{ID: "1", Tags: models.Tags{"AI"}}
	all := []*models.KnowledgeCard{
		card,
		{ID: "2", Tags: models.Tags{"AI", "豆知識"}},
		{ID: "3", Tags: models.Tags{"画像"}},
		{ID: "4", Tags: models.Tags{"AI"}},
		{ID: "5", Tags: models.Tags{"AI", "LLM"}},
		{ID: "6", Tags: models.Tags{"AI"}},
	}

	related := relatedCards(card, all)
	var ids []string
	for _, c := range related {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"2", "4", "5"}, ids)

	assert.Empty(t, relatedCards(card, []*models.KnowledgeCard{card}))
}

func TestMatchesSearch(t *testing.T) {
	name := "Hanako"
	p := &models.PostView{Post: models.Post{Content: "ChatGPTの使い方"}, Author: models.Author{AuthorName: &name}}

	assert.True(t, matchesSearch(p, ""))
	assert.True(t, matchesSearch(p, "chatgpt"))
	assert.True(t, matchesSearch(p, "hanako"))
	assert.False(t, matchesSearch(p, "midjourney"))

	p.AuthorName = nil
	assert.False(t, matchesSearch(p, "hanako"))
}

func TestNonNil(t *testing.T) {
	var s []*models.Reaction
	assert.NotNil(t, nonNil(s))
	assert.Len(t, nonNil([]int{1, 2}), 2)
}
