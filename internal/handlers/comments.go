package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/models"
)

const maxCommentRunes = 1000

type CommentHandler struct {
	repo *db.Repository
	log  *zap.Logger
}

func NewCommentHandler(repo *db.Repository, log *zap.Logger) *CommentHandler {
	return &CommentHandler{repo: repo, log: log}
}

// Comments lists the comments of a post, oldest first.
func (h *CommentHandler) Comments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	exists, err := h.repo.PostExists(r.Context(), postID)
	if err != nil {
		handleError(w, h.log, err, "failed to check post")
		return
	}
	if !exists {
		writeMessage(w, http.StatusNotFound, "投稿が見つかりませんでした")
		return
	}

	comments, err := h.repo.ListComments(r.Context(), postID)
	if err != nil {
		handleError(w, h.log, err, "failed to load comments")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(comments))
}

func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid comment body")
		return
	}
	content := strings.TrimSpace(in.Content)
	if n := utf8.RuneCountInString(content); n == 0 || n > maxCommentRunes {
		handleError(w, h.log, apperr.Validation("コメントは1文字以上1000文字以内で入力してください"), "invalid comment")
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

	comment, err := h.repo.CreateComment(r.Context(), &models.Comment{
		PostID:  postID,
		UserID:  middleware.UserID(r.Context()),
		Content: content,
	})
	if err != nil {
		handleError(w, h.log, err, "failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// DeleteComment removes a comment written by the current user.
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.repo.GetComment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, h.log, err, "failed to load comment")
		return
	}
	if comment.UserID != middleware.UserID(r.Context()) {
		handleError(w, h.log, apperr.New(apperr.ErrForbidden, "このコメントを削除する権限がありません"), "cannot delete comment")
		return
	}
	if err := h.repo.DeleteComment(r.Context(), comment.ID); err != nil {
		handleError(w, h.log, err, "failed to delete comment")
		return
	}
	writeJSON(w, http.StatusOK, success(nil))
}
