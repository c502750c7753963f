package handlers

import (
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/config"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/models"
)

const (
	maxLoginAttempts   = 5
	loginBlockDuration = 10 * time.Minute
	minPasswordBytes   = 6
	maxPasswordBytes   = 72
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthHandler handles registration and sessions.
type AuthHandler struct {
	repo *db.Repository
	log  *zap.Logger
	cfg  *config.Config

	mu            sync.Mutex
	loginAttempts map[string][]time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(repo *db.Repository, log *zap.Logger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{repo: repo, log: log, cfg: cfg, loginAttempts: make(map[string][]time.Time)}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a user and its profile.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid register body")
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if err := validateCredentials(in); err != nil {
		handleError(w, h.log, err, "invalid registration")
		return
	}

	taken, err := h.repo.IsEmailTaken(r.Context(), in.Email)
	if err != nil {
		handleError(w, h.log, err, "failed to check email")
		return
	}
	if taken {
		writeMessage(w, http.StatusConflict, "このメールアドレスは既に登録されています")
		return
	}

	user := &models.User{Email: in.Email, Role: models.RoleUser}
	if h.cfg.IsAdminEmail(in.Email) {
		user.Role = models.RoleAdmin
	}
	if err := h.repo.CreateUser(r.Context(), user, in.Password); err != nil {
		// A concurrent registration can win between the check above and the insert.
		if apperr.Is(err, apperr.ErrConflict) {
			writeMessage(w, http.StatusConflict, "このメールアドレスは既に登録されています")
			return
		}
		handleError(w, h.log, err, "failed to create user")
		return
	}
	if err := h.repo.CreateProfile(r.Context(), db.DefaultProfile(user, in.Name)); err != nil {
		// fix-permissions backfills missing profiles.
		h.log.Error("failed to create profile", zap.String("user_id", user.ID), zap.Error(err))
	}

	h.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role))
	writeJSON(w, http.StatusCreated, success(map[string]interface{}{"user": user}))
}

func validateCredentials(in credentials) error {
	if in.Email == "" || in.Password == "" {
		return apperr.Validation("メールアドレスとパスワードを入力してください")
	}
	if !emailRe.MatchString(in.Email) {
		return apperr.Validation("メールアドレスの形式が正しくありません")
	}
	if n := len(in.Password); n < minPasswordBytes || n > maxPasswordBytes {
		return apperr.Validation("パスワードは6文字以上72バイト以内で入力してください")
	}
	return nil
}

// Login checks the password and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, h.log, err, "invalid login body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if h.blocked(email) {
		writeMessage(w, http.StatusTooManyRequests, "ログイン試行回数が多すぎます。10分後に再度お試しください")
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), email)
	if err != nil || !db.CheckPassword(user, in.Password) {
		if err != nil && !apperr.Is(err, apperr.ErrNotFound) {
			handleError(w, h.log, err, "failed to load user")
			return
		}
		h.recordFailure(email)
		h.log.Debug("login failed", zap.String("email", email))
		writeMessage(w, http.StatusUnauthorized, "メールアドレスまたはパスワードが正しくありません")
		return
	}
	h.resetFailures(email)

	if user.Role != models.RoleAdmin && h.cfg.IsAdminEmail(user.Email) {
		if err := h.repo.SetUserRole(r.Context(), user.ID, models.RoleAdmin); err != nil {
			h.log.Warn("failed to promote admin", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			user.Role = models.RoleAdmin
		}
	}

	expiresAt := time.Now().Add(h.cfg.Session.Expiration)
	session := &models.Session{SessionID: uuid.NewString(), UserID: user.ID, Expires: expiresAt}
	if err := h.repo.CreateSession(r.Context(), session); err != nil {
		handleError(w, h.log, err, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.SessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cfg.Server.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Info("user logged in", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, success(map[string]interface{}{"user": user}))
}

// Logout ends the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		if err := h.repo.DeleteSession(r.Context(), cookie.Value); err != nil {
			h.log.Warn("failed to delete session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, success(nil))
}

// Session returns the current user.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	user, err := h.repo.GetUserByID(r.Context(), userID)
	if err != nil {
		handleError(w, h.log, err, "failed to load session user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": user.ID, "email": user.Email, "role": user.Role})
}

func (h *AuthHandler) blocked(email string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	var recent []time.Time
	for _, t := range h.loginAttempts[email] {
		if now.Sub(t) < loginBlockDuration {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		delete(h.loginAttempts, email)
	} else {
		h.loginAttempts[email] = recent
	}
	return len(recent) >= maxLoginAttempts
}

func (h *AuthHandler) recordFailure(email string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loginAttempts[email] = append(h.loginAttempts[email], time.Now())
}

func (h *AuthHandler) resetFailures(email string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.loginAttempts, email)
}
