package handlers

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/models"
	"github.com/m-sorano/ai-cafe/internal/storage"
)

type ProfileHandler struct {
	repo  *db.Repository
	store storage.AvatarStore
	log   *zap.Logger
}

func NewProfileHandler(repo *db.Repository, store storage.AvatarStore, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{repo: repo, store: store, log: log}
}

// Profile returns the current user's profile. A user without a profile row
// gets a default one.
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	profile, err := h.repo.GetProfile(r.Context(), userID)
	if apperr.Is(err, apperr.ErrNotFound) {
		user, uerr := h.repo.GetUserByID(r.Context(), userID)
		if uerr != nil {
			handleError(w, h.log, uerr, "failed to load user")
			return
		}
		profile, err = db.DefaultProfile(user, ""), nil
	}
	if err != nil {
		handleError(w, h.log, err, "failed to load profile")
		return
	}

	if profile.AvatarURL == nil || *profile.AvatarURL == "" {
		avatar := db.DefaultAvatarURL
		profile.AvatarURL = &avatar
	}
	writeJSON(w, http.StatusOK, profile)
}

type profileInput struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
	Website   *string `json:"website"`
}

// UpdateProfile writes the editable profile fields.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in profileInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid profile body")
		return
	}
	if in.Website != nil && *in.Website != "" && !validWebsite(*in.Website) {
		handleError(w, h.log, apperr.Validation("ウェブサイトはhttp://またはhttps://で始まるURLを入力してください"), "invalid website")
		return
	}

	profile := &models.Profile{
		ID:        middleware.UserID(r.Context()),
		Name:      in.Name,
		AvatarURL: in.AvatarURL,
		Bio:       in.Bio,
		Website:   in.Website,
	}
	if err := h.repo.UpsertProfile(r.Context(), profile); err != nil {
		handleError(w, h.log, err, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, success(nil))
}

func validWebsite(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// UploadAvatar stores an image from the "avatar" form field and points the
// profile at it.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAvatarSize+1<<20)
	if err := r.ParseMultipartForm(storage.MaxAvatarSize); err != nil {
		handleError(w, h.log, apperr.Validation("ファイルサイズは2MB以下にしてください"), "avatar form too large")
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		handleError(w, h.log, apperr.Validation("画像ファイルを選択してください"), "missing avatar file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxAvatarSize+1))
	if err != nil {
		handleError(w, h.log, err, "failed to read avatar")
		return
	}
	contentType, err := storage.ValidateAvatar(data)
	if err != nil {
		handleError(w, h.log, err, "invalid avatar")
		return
	}

	path := storage.AvatarPath(userID, contentType)
	avatarURL, err := h.store.Upload(r.Context(), path, bytes.NewReader(data), contentType)
	if err != nil {
		handleError(w, h.log, err, "avatar upload failed")
		return
	}
	err = h.repo.UpdateAvatar(r.Context(), userID, avatarURL)
	if apperr.Is(err, apperr.ErrNotFound) {
		err = h.createProfileWithAvatar(r, userID, avatarURL)
	}
	if err != nil {
		handleError(w, h.log, err, "failed to save avatar url")
		return
	}

	h.log.Info("avatar updated", zap.String("user_id", userID), zap.String("path", path))
	writeJSON(w, http.StatusOK, success(map[string]interface{}{"avatar_url": avatarURL}))
}

func (h *ProfileHandler) createProfileWithAvatar(r *http.Request, userID, avatarURL string) error {
	user, err := h.repo.GetUserByID(r.Context(), userID)
	if err != nil {
		return err
	}
	profile := db.DefaultProfile(user, "")
	profile.AvatarURL = &avatarURL
	return h.repo.CreateProfile(r.Context(), profile)
}
