package db

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/m-sorano/ai-cafe/internal/models"
)

// CreateUser creates a new user with password hashing.
func (r *Repository) CreateUser(ctx context.Context, user *models.User, plainPassword string) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = time.Now().UTC()

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)

	_, err = r.db.ExecContext(ctx, r.q(`INSERT INTO users (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`),
		user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	return storeErr(err, "")
}

// CheckPassword reports whether plainPassword matches the user's hash.
func CheckPassword(user *models.User, plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plainPassword)) == nil
}

// IsEmailTaken checks if an email is already registered.
func (r *Repository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.q(`SELECT COUNT(*) FROM users WHERE email = ?`), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, storeErr(err, "")
	}
	return count > 0, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, r.q(`SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, storeErr(err, "ユーザーが見つかりませんでした")
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, r.q(`SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?`), userID)
	if err != nil {
		return nil, storeErr(err, "ユーザーが見つかりませんでした")
	}
	return user, nil
}

// SetUserRole changes the role of a user.
func (r *Repository) SetUserRole(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE users SET role = ? WHERE id = ?`), role, userID)
	return storeErr(err, "")
}

// CreateSession creates a new session.
func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO sessions (session_id, user_id, expires) VALUES (?, ?, ?)`),
		session.SessionID, session.UserID, session.Expires.UTC())
	return storeErr(err, "")
}

// GetSession retrieves an unexpired session by ID.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session := &models.Session{}
	err := r.db.GetContext(ctx, session, r.q(`SELECT session_id, user_id, expires FROM sessions WHERE session_id = ? AND expires > ?`),
		sessionID, time.Now().UTC())
	if err != nil {
		return nil, storeErr(err, "セッションが無効です")
	}
	return session, nil
}

// DeleteSession deletes a session.
func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, r.q(`DELETE FROM sessions WHERE session_id = ?`), sessionID)
	return storeErr(err, "")
}

// CleanExpiredSessions deletes all expired sessions.
func (r *Repository) CleanExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, r.q(`DELETE FROM sessions WHERE expires < ?`), time.Now().UTC())
	return storeErr(err, "")
}
