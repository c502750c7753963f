package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/category"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/models"
)

// CategoryHandler serves the category list.
type CategoryHandler struct {
	repo *db.Repository
	log  *zap.Logger
}

func NewCategoryHandler(repo *db.Repository, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{repo: repo, log: log}
}

type categoryView struct {
	*models.Category
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ListCategories returns every category with its filter key.
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		handleError(w, h.log, err, "failed to load categories")
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView{Category: c, Key: category.Key(c.Name), Label: category.Label(c.Name)})
	}
	writeJSON(w, http.StatusOK, views)
}

func loadResolver(ctx context.Context, repo *db.Repository) (*category.Resolver, error) {
	categories, err := repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return category.NewResolver(categories), nil
}
