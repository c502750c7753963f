package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/m-sorano/ai-cafe/internal/models"
)

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := r.db.SelectContext(ctx, &categories, `SELECT id, name, description, icon_url FROM category ORDER BY name ASC`)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return categories, nil
}

// GetCategory returns a category by ID.
func (r *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.GetContext(ctx, c, r.q(`SELECT id, name, description, icon_url FROM category WHERE id = ?`), id)
	if err != nil {
		return nil, storeErr(err, "カテゴリーが見つかりませんでした")
	}
	return c, nil
}

// CountCategories returns the number of category rows.
func (r *Repository) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM category`); err != nil {
		return 0, storeErr(err, "")
	}
	return n, nil
}

// CreateCategory creates a new category.
func (r *Repository) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO category (id, name, description, icon_url) VALUES (?, ?, ?, ?)`),
		c.ID, c.Name, c.Description, c.IconURL)
	return storeErr(err, "")
}

// CategoryExists checks if a category with the specified ID exists.
func (r *Repository) CategoryExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.q(`SELECT EXISTS(SELECT 1 FROM category WHERE id = ?)`), id)
	if err != nil {
		return false, storeErr(err, "")
	}
	return exists, nil
}
