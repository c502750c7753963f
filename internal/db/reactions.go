package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m-sorano/ai-cafe/internal/models"
)

// ToggleReaction applies a reaction of the given type from a user to a post.
// The same type as the stored one removes it and returns nil; any other type
// replaces the stored one. Both paths run in one transaction keyed on
// (user_id, post_id), so concurrent toggles cannot leave two rows.
func (r *Repository) ToggleReaction(ctx context.Context, userID, postID, reactionType string) (*models.Reaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storeErr(err, "")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.q(`DELETE FROM reactions WHERE user_id = ? AND post_id = ? AND type = ?`),
		userID, postID, reactionType)
	if err != nil {
		return nil, storeErr(err, "")
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, storeErr(err, "")
	} else if n > 0 {
		return nil, storeErr(tx.Commit(), "")
	}

	_, err = tx.ExecContext(ctx, r.q(`INSERT INTO reactions (id, post_id, user_id, type, created_at) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, post_id) DO UPDATE SET type = excluded.type, created_at = excluded.created_at`),
		uuid.NewString(), postID, userID, reactionType, time.Now().UTC())
	if err != nil {
		return nil, storeErr(err, "")
	}

	reaction := &models.Reaction{}
	err = tx.GetContext(ctx, reaction, r.q(`SELECT id, post_id, user_id, type, created_at FROM reactions WHERE user_id = ? AND post_id = ?`),
		userID, postID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr(err, "")
	}
	return reaction, nil
}

// GetReaction returns the reaction of a user on a post.
func (r *Repository) GetReaction(ctx context.Context, userID, postID string) (*models.Reaction, error) {
	reaction := &models.Reaction{}
	err := r.db.GetContext(ctx, reaction, r.q(`SELECT id, post_id, user_id, type, created_at FROM reactions WHERE user_id = ? AND post_id = ?`),
		userID, postID)
	if err != nil {
		return nil, storeErr(err, "リアクションが見つかりませんでした")
	}
	return reaction, nil
}

// ListReactions returns the reactions on a post.
func (r *Repository) ListReactions(ctx context.Context, postID string) ([]*models.Reaction, error) {
	var reactions []*models.Reaction
	err := r.db.SelectContext(ctx, &reactions, r.q(`SELECT id, post_id, user_id, type, created_at FROM reactions
        WHERE post_id = ? ORDER BY created_at ASC`), postID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return reactions, nil
}

// CountReactions returns the number of reaction rows of a user on a post.
func (r *Repository) CountReactions(ctx context.Context, userID, postID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.q(`SELECT COUNT(*) FROM reactions WHERE user_id = ? AND post_id = ?`), userID, postID)
	if err != nil {
		return 0, storeErr(err, "")
	}
	return n, nil
}
