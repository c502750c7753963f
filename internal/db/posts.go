package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m-sorano/ai-cafe/internal/models"
)

const postNotFound = "投稿が見つかりませんでした"

// postViewQuery selects posts joined with their author profile and counts.
const postViewQuery = `SELECT p.id, p.user_id, p.content, p.category, p.blend_type, p.created_at, p.updated_at,
        p.user_id AS author_id, pr.name AS author_name, pr.avatar_url AS author_avatar_url,
        (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count,
        (SELECT COUNT(*) FROM reactions rc WHERE rc.post_id = p.id) AS reaction_count,
        (SELECT COUNT(*) FROM reactions rc WHERE rc.post_id = p.id AND rc.type = 'heart') AS heart_count,
        (SELECT COUNT(*) FROM reactions rc WHERE rc.post_id = p.id AND rc.type = 'bookmark') AS bookmark_count
    FROM posts p LEFT JOIN profiles pr ON pr.id = p.user_id`

// PostFilter narrows ListPosts. Empty fields do not filter.
type PostFilter struct {
	UserID string
}

// CreatePost creates a new post and fills in its ID and creation time.
func (r *Repository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO posts (id, user_id, content, category, blend_type, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`),
		post.ID, post.UserID, post.Content, post.Category, post.BlendType, post.CreatedAt)
	return storeErr(err, "")
}

// GetPostByID retrieves a bare post row.
func (r *Repository) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	post := &models.Post{}
	err := r.db.GetContext(ctx, post, r.q(`SELECT id, user_id, content, category, blend_type, created_at, updated_at
        FROM posts WHERE id = ?`), postID)
	if err != nil {
		return nil, storeErr(err, postNotFound)
	}
	return post, nil
}

// GetPost retrieves a post joined with its author and counts.
func (r *Repository) GetPost(ctx context.Context, postID string) (*models.PostView, error) {
	post := &models.PostView{}
	err := r.db.GetContext(ctx, post, r.q(postViewQuery+` WHERE p.id = ?`), postID)
	if err != nil {
		return nil, storeErr(err, postNotFound)
	}
	return post, nil
}

// ListPosts returns posts, newest first.
func (r *Repository) ListPosts(ctx context.Context, filter PostFilter) ([]*models.PostView, error) {
	query := postViewQuery
	var args []interface{}
	if filter.UserID != "" {
		query += ` WHERE p.user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY p.created_at DESC`

	var posts []*models.PostView
	if err := r.db.SelectContext(ctx, &posts, r.q(query), args...); err != nil {
		return nil, storeErr(err, "")
	}
	return posts, nil
}

// PostExists checks if a post with the specified ID exists.
func (r *Repository) PostExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.q(`SELECT EXISTS(SELECT 1 FROM posts WHERE id = ?)`), id)
	if err != nil {
		return false, storeErr(err, "")
	}
	return exists, nil
}

// UpdatePost replaces the content and category of a post. There is no
// version check; the last writer wins.
func (r *Repository) UpdatePost(ctx context.Context, postID, content string, categoryID *string) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE posts SET content = ?, category = ?, updated_at = ? WHERE id = ?`),
		content, categoryID, time.Now().UTC(), postID)
	if err != nil {
		return storeErr(err, "")
	}
	return expectRow(res, postNotFound)
}

// DeletePost deletes a post with its comments and reactions. Knowledge cards
// generated from it stay, with their source reference cleared.
func (r *Repository) DeletePost(ctx context.Context, postID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr(err, "")
	}
	defer tx.Rollback()

	// Order is important due to foreign keys
	if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM comments WHERE post_id = ?`), postID); err != nil {
		return storeErr(err, "")
	}
	if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM reactions WHERE post_id = ?`), postID); err != nil {
		return storeErr(err, "")
	}
	if _, err := tx.ExecContext(ctx, r.q(`UPDATE knowledge_cards SET source_post_id = NULL WHERE source_post_id = ?`), postID); err != nil {
		return storeErr(err, "")
	}
	res, err := tx.ExecContext(ctx, r.q(`DELETE FROM posts WHERE id = ?`), postID)
	if err != nil {
		return storeErr(err, "")
	}
	if err := expectRow(res, postNotFound); err != nil {
		return err
	}

	return storeErr(tx.Commit(), "")
}
