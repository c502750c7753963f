package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/storage"
)

// AdminHandler exposes maintenance operations to admins.
type AdminHandler struct {
	repo  *db.Repository
	store storage.AvatarStore
	log   *zap.Logger
}

func NewAdminHandler(repo *db.Repository, store storage.AvatarStore, log *zap.Logger) *AdminHandler {
	return &AdminHandler{repo: repo, store: store, log: log}
}

// ExecuteSQL runs one raw statement.
func (h *AdminHandler) ExecuteSQL(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SQL string `json:"sql"`
	}
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid sql body")
		return
	}

	h.log.Info("executing admin sql", zap.String("user_id", middleware.UserID(r.Context())))
	result, err := h.repo.ExecuteSQL(r.Context(), in.SQL)
	if err != nil {
		handleError(w, h.log, err, "admin sql failed")
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]interface{}{"data": result}))
}

// SetupDB applies pending migrations and seeds the categories.
func (h *AdminHandler) SetupDB(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.RunMigrations(); err != nil {
		handleError(w, h.log, err, "migration failed")
		return
	}
	if _, err := h.repo.SeedCategories(r.Context()); err != nil {
		handleError(w, h.log, err, "seeding categories failed")
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]interface{}{"message": "Database setup completed successfully"}))
}

// FixPermissions creates missing profiles and the avatar bucket.
func (h *AdminHandler) FixPermissions(w http.ResponseWriter, r *http.Request) {
	created, err := h.repo.BackfillProfiles(r.Context())
	if err != nil {
		handleError(w, h.log, err, "profile backfill failed")
		return
	}
	if err := h.store.EnsureBucket(r.Context()); err != nil {
		handleError(w, h.log, err, "ensuring avatar bucket failed")
		return
	}
	h.log.Info("permissions fixed", zap.Int("profiles_created", created))
	writeJSON(w, http.StatusOK, success(map[string]interface{}{
		"message":          "Permissions fixed successfully",
		"profiles_created": created,
	}))
}
