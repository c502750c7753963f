package db

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/m-sorano/ai-cafe/internal/models"
)

// DefaultAvatarURL is shown for profiles without an avatar.
const DefaultAvatarURL = "/images/default-avatar.png"

const profileColumns = `id, email, name, avatar_url, bio, website, created_at, updated_at`

// CreateProfile inserts the profile created at first authentication.
func (r *Repository) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO profiles (id, email, name, avatar_url, bio, website, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Email, p.Name, p.AvatarURL, p.Bio, p.Website, p.CreatedAt)
	return storeErr(err, "")
}

// GetProfile returns the profile with the given id.
func (r *Repository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p := &models.Profile{}
	err := r.db.GetContext(ctx, p, r.q(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), id)
	if err != nil {
		return nil, storeErr(err, "プロフィールが見つかりませんでした")
	}
	return p, nil
}

// UpsertProfile writes the editable profile fields. A nil avatar keeps the
// stored one. Concurrent writers race; the last one wins.
func (r *Repository) UpsertProfile(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	p.UpdatedAt = &now
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO profiles (id, name, avatar_url, bio, website, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            name = excluded.name,
            avatar_url = COALESCE(excluded.avatar_url, profiles.avatar_url),
            bio = excluded.bio,
            website = excluded.website,
            updated_at = excluded.updated_at`),
		p.ID, p.Name, p.AvatarURL, p.Bio, p.Website, now, now)
	return storeErr(err, "")
}

// UpdateAvatar sets the avatar URL of a profile.
func (r *Repository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE profiles SET avatar_url = ?, updated_at = ? WHERE id = ?`),
		avatarURL, time.Now().UTC(), id)
	if err != nil {
		return storeErr(err, "")
	}
	return expectRow(res, "プロフィールが見つかりませんでした")
}

// ListUsersWithoutProfile returns users that never got a profile row.
func (r *Repository) ListUsersWithoutProfile(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.SelectContext(ctx, &users, `SELECT u.id, u.email, u.password_hash, u.role, u.created_at
        FROM users u LEFT JOIN profiles p ON p.id = u.id
        WHERE p.id IS NULL ORDER BY u.created_at`)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return users, nil
}

// DefaultProfile builds the profile created for a user at registration:
// the name is the local part of the email and the avatar a generated
// initials image.
func DefaultProfile(user *models.User, name string) *models.Profile {
	email := user.Email
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	avatar := "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
	return &models.Profile{
		ID:        user.ID,
		Email:     &email,
		Name:      &name,
		AvatarURL: &avatar,
	}
}

// BackfillProfiles creates default profiles for users that lack one and
// returns how many were created.
func (r *Repository) BackfillProfiles(ctx context.Context) (int, error) {
	users, err := r.ListUsersWithoutProfile(ctx)
	if err != nil {
		return 0, err
	}
	for i, u := range users {
		if err := r.CreateProfile(ctx, DefaultProfile(u, "")); err != nil {
			return i, err
		}
	}
	return len(users), nil
}
