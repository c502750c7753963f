// Package knowledge turns posts into knowledge cards.
package knowledge

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/models"
)

const (
	titleRunes   = 30
	contentRunes = 300
	titleSuffix  = "...に関する豆知識"
)

var (
	fallbackTags = []string{"AI", "豆知識"}
	manualTags   = []string{"AI生成", "コーヒー"}
)

const promptTemplate = `
あなたはAIに関する投稿から重要な知識を抽出するAIアシスタントです。
以下の投稿内容から、AIに関する重要な知識や情報を抽出し、知識カードを作成してください。

投稿内容:
"""
%CONTENT%
"""

以下の形式でJSON形式で出力してください:
{
  "title": "抽出した知識のタイトル（50文字以内）",
  "content": "抽出した知識の内容（要約・整理して300文字以内）",
  "tags": ["関連するタグ1", "関連するタグ2", "関連するタグ3"]
}

注意:
- タイトルは簡潔で分かりやすく
- 内容は要点をまとめて
- タグは関連するキーワードを3〜5個
- 投稿内容にAIに関する知識がない場合は、一般的な知識として抽出
- 必ずJSON形式で出力すること
`

// Summarizer sends a prompt to a text model.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Store is the part of the repository the generator needs.
type Store interface {
	GetPostByID(ctx context.Context, postID string) (*models.Post, error)
	CreateKnowledgeCard(ctx context.Context, card *models.KnowledgeCard) error
}

// Card is the model output before it is stored.
type Card struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Generator creates knowledge cards from posts.
type Generator struct {
	store      Store
	summarizer Summarizer
	logger     *zap.Logger
}

// NewGenerator creates a generator. summarizer may be nil, in which case
// every card is built with Fallback.
func NewGenerator(store Store, summarizer Summarizer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{store: store, summarizer: summarizer, logger: logger}
}

// Prompt returns the instruction sent to the model for a post body.
func Prompt(content string) string {
	return strings.Replace(promptTemplate, "%CONTENT%", content, 1)
}

// Generate summarizes a post into a new card linked to it. Model and parse
// failures produce a fallback card; only store errors are returned.
func (g *Generator) Generate(ctx context.Context, postID string) (*models.KnowledgeCard, error) {
	log := g.logger.With(zap.String("post_id", postID))
	log.Debug("knowledge card pending")

	post, err := g.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	card, source := g.summarize(ctx, log, post.Content)
	log.Info("knowledge card generated", zap.String("source", source))

	row := &models.KnowledgeCard{
		Title:        card.Title,
		Content:      card.Content,
		Tags:         models.Tags(card.Tags),
		SourcePostID: &post.ID,
	}
	if err := g.store.CreateKnowledgeCard(ctx, row); err != nil {
		log.Error("failed to store knowledge card", zap.Error(err))
		return nil, err
	}

	log.Info("knowledge card persisted", zap.String("card_id", row.ID))
	return row, nil
}

func (g *Generator) summarize(ctx context.Context, log *zap.Logger, content string) (Card, string) {
	if g.summarizer == nil {
		log.Debug("no summarizer configured")
		return Fallback(content), "fallback"
	}

	log.Debug("knowledge card generating")
	text, err := g.summarizer.Summarize(ctx, Prompt(content))
	if err != nil {
		log.Warn("summarizer failed", zap.Error(err))
		return Fallback(content), "fallback"
	}

	card, err := ParseCard(text)
	if err != nil {
		log.Warn("could not parse model response", zap.Error(err))
		return Fallback(content), "fallback"
	}
	return card, "model"
}

// CreateInput is a manually supplied card. Empty fields get defaults derived
// from the source post.
type CreateInput struct {
	PostID  string   `json:"postId"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Create stores a card for an existing post without calling the model.
func (g *Generator) Create(ctx context.Context, in CreateInput) (*models.KnowledgeCard, error) {
	if strings.TrimSpace(in.PostID) == "" {
		return nil, apperr.Validation("投稿IDが必要です")
	}

	post, err := g.store.GetPostByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	row := &models.KnowledgeCard{
		Title:        in.Title,
		Content:      in.Content,
		Tags:         models.Tags(in.Tags),
		SourcePostID: &post.ID,
	}
	if row.Title == "" {
		row.Title = truncate(post.Content, titleRunes) + titleSuffix
	}
	if row.Content == "" {
		row.Content = post.Content
	}
	// An explicit empty list is kept; only a missing one gets the defaults.
	if in.Tags == nil {
		row.Tags = append(models.Tags{}, manualTags...)
	}

	if err := g.store.CreateKnowledgeCard(ctx, row); err != nil {
		return nil, err
	}
	g.logger.Info("knowledge card created manually",
		zap.String("post_id", post.ID), zap.String("card_id", row.ID))
	return row, nil
}

// ParseCard extracts the JSON object from a model response. The object spans
// from the first '{' to the last '}'.
func ParseCard(text string) (Card, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Card{}, apperr.Parse("APIからの応答をJSONとして解析できませんでした")
	}

	var card Card
	if err := json.Unmarshal([]byte(text[start:end+1]), &card); err != nil {
		return Card{}, apperr.Parse("APIからの応答をJSONとして解析できませんでした")
	}
	if card.Title == "" || card.Content == "" || card.Tags == nil {
		return Card{}, apperr.Parse("APIからの応答に必要なプロパティがありません")
	}
	return card, nil
}

// Fallback builds a card from the post text alone.
func Fallback(content string) Card {
	body := content
	if len([]rune(content)) > contentRunes {
		body = truncate(content, contentRunes) + "..."
	}
	return Card{
		Title:   truncate(content, titleRunes) + titleSuffix,
		Content: body,
		Tags:    append([]string{}, fallbackTags...),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
