package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m-sorano/ai-cafe/internal/models"
)

const commentViewQuery = `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
        c.user_id AS author_id, pr.name AS author_name, pr.avatar_url AS author_avatar_url
    FROM comments c LEFT JOIN profiles pr ON pr.id = c.user_id`

// CreateComment creates a new comment and returns it joined with its author.
func (r *Repository) CreateComment(ctx context.Context, comment *models.Comment) (*models.CommentView, error) {
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO comments (id, post_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)`),
		comment.ID, comment.PostID, comment.UserID, comment.Content, comment.CreatedAt)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return r.GetComment(ctx, comment.ID)
}

// GetComment returns a comment by ID.
func (r *Repository) GetComment(ctx context.Context, commentID string) (*models.CommentView, error) {
	c := &models.CommentView{}
	err := r.db.GetContext(ctx, c, r.q(commentViewQuery+` WHERE c.id = ?`), commentID)
	if err != nil {
		return nil, storeErr(err, "コメントが見つかりませんでした")
	}
	return c, nil
}

// ListComments returns the comments of a post, oldest first.
func (r *Repository) ListComments(ctx context.Context, postID string) ([]*models.CommentView, error) {
	var comments []*models.CommentView
	err := r.db.SelectContext(ctx, &comments, r.q(commentViewQuery+` WHERE c.post_id = ? ORDER BY c.created_at ASC`), postID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return comments, nil
}

// DeleteComment deletes a comment by ID.
func (r *Repository) DeleteComment(ctx context.Context, commentID string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM comments WHERE id = ?`), commentID)
	if err != nil {
		return storeErr(err, "")
	}
	return expectRow(res, "コメントが見つかりませんでした")
}
