package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/models"
)

type ReactionHandler struct {
	repo *db.Repository
	log  *zap.Logger
}

func NewReactionHandler(repo *db.Repository, log *zap.Logger) *ReactionHandler {
	return &ReactionHandler{repo: repo, log: log}
}

// React toggles the current user's reaction on a post. Sending the type the
// user already has removes it; another type replaces it.
func (h *ReactionHandler) React(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	var in struct {
		Type string `json:"type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid reaction body")
		return
	}
	if !models.ValidReactionType(in.Type) {
		handleError(w, h.log, apperr.Validation("リアクションの種類が正しくありません"), "invalid reaction")
		return
	}

	exists, err := h.repo.PostExists(r.Context(), postID)
	if err != nil {
		handleError(w, h.log, err, "failed to check post")
		return
	}
	if !exists {
		writeMessage(w, http.StatusNotFound, "投稿が見つかりませんでした")
		return
	}

	userID := middleware.UserID(r.Context())
	reaction, err := h.repo.ToggleReaction(r.Context(), userID, postID, in.Type)
	if err != nil {
		handleError(w, h.log, err, "failed to toggle reaction")
		return
	}

	h.log.Debug("reaction toggled",
		zap.String("post_id", postID), zap.String("user_id", userID), zap.Bool("active", reaction != nil))
	writeJSON(w, http.StatusOK, map[string]interface{}{"reaction": reaction})
}
