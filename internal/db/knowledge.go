package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m-sorano/ai-cafe/internal/models"
)

const cardColumns = `id, title, content, tags, source_post_id, created_at, updated_at`

// CreateKnowledgeCard inserts a card and fills in its ID and timestamps.
// It does not check for existing cards of the same post.
func (r *Repository) CreateKnowledgeCard(ctx context.Context, card *models.KnowledgeCard) error {
	now := time.Now().UTC()
	card.ID = uuid.NewString()
	card.CreatedAt = now
	card.UpdatedAt = &now
	if card.Tags == nil {
		card.Tags = models.Tags{}
	}
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO knowledge_cards (id, title, content, tags, source_post_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`),
		card.ID, card.Title, card.Content, card.Tags, card.SourcePostID, card.CreatedAt, card.UpdatedAt)
	return storeErr(err, "")
}

// GetKnowledgeCard returns a card by ID.
func (r *Repository) GetKnowledgeCard(ctx context.Context, id string) (*models.KnowledgeCard, error) {
	card := &models.KnowledgeCard{}
	err := r.db.GetContext(ctx, card, r.q(`SELECT `+cardColumns+` FROM knowledge_cards WHERE id = ?`), id)
	if err != nil {
		return nil, storeErr(err, "知識カードが見つかりませんでした")
	}
	return card, nil
}

// ListKnowledgeCards returns all cards, newest first.
func (r *Repository) ListKnowledgeCards(ctx context.Context) ([]*models.KnowledgeCard, error) {
	var cards []*models.KnowledgeCard
	err := r.db.SelectContext(ctx, &cards, `SELECT `+cardColumns+` FROM knowledge_cards ORDER BY created_at DESC`)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return cards, nil
}

// ListKnowledgeCardsBySource returns the cards generated from a post.
func (r *Repository) ListKnowledgeCardsBySource(ctx context.Context, postID string) ([]*models.KnowledgeCard, error) {
	var cards []*models.KnowledgeCard
	err := r.db.SelectContext(ctx, &cards, r.q(`SELECT `+cardColumns+` FROM knowledge_cards WHERE source_post_id = ? ORDER BY created_at DESC`), postID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return cards, nil
}
