package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Reaction types.
const (
	ReactionHeart    = "heart"
	ReactionBookmark = "bookmark"
)

// ValidReactionType reports whether t is one of the supported reaction types.
func ValidReactionType(t string) bool {
	return t == ReactionHeart || t == ReactionBookmark
}

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an authenticated identity.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Session represents a user session
type Session struct {
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	Expires   time.Time `db:"expires"`
}

// Profile is the public face of a user. Its id is the user id.
type Profile struct {
	ID        string     `db:"id" json:"id"`
	Email     *string    `db:"email" json:"email,omitempty"`
	Name      *string    `db:"name" json:"name"`
	AvatarURL *string    `db:"avatar_url" json:"avatar_url"`
	Bio       *string    `db:"bio" json:"bio"`
	Website   *string    `db:"website" json:"website"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Category groups posts. Name has the form "[label] rest".
type Category struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	IconURL     string `db:"icon_url" json:"icon_url"`
}

// Post is a row of the posts table.
type Post struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Content   string     `db:"content" json:"content"`
	Category  *string    `db:"category" json:"category"`
	BlendType *string    `db:"blend_type" json:"blend_type,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Author is the embedded profile summary shown next to posts and comments.
type Author struct {
	AuthorID        string  `db:"author_id" json:"id"`
	AuthorName      *string `db:"author_name" json:"name"`
	AuthorAvatarURL *string `db:"author_avatar_url" json:"avatar_url"`
}

// PostView is a post joined with its author and activity counts.
type PostView struct {
	Post
	Author        `json:"profiles"`
	CommentCount  int    `db:"comment_count" json:"comment_count"`
	ReactionCount int    `db:"reaction_count" json:"reaction_count"`
	HeartCount    int    `db:"heart_count" json:"heart_count"`
	BookmarkCount int    `db:"bookmark_count" json:"bookmark_count"`
	CategoryKey   string `db:"-" json:"category_key"`
	CategoryLabel string `db:"-" json:"category_label"`
}

// Comment is a row of the comments table.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CommentView is a comment joined with its author.
type CommentView struct {
	Comment
	Author `json:"profiles"`
}

// Reaction is a single-valued marker of one user on one post.
type Reaction struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// KnowledgeCard is a summary derived from a post.
type KnowledgeCard struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Content      string     `db:"content" json:"content"`
	Tags         Tags       `db:"tags" json:"tags"`
	SourcePostID *string    `db:"source_post_id" json:"source_post_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// KnowledgeCardView is a card with its source post, if it still exists.
type KnowledgeCardView struct {
	KnowledgeCard
	SourcePost *PostView        `json:"source_post"`
	Related    []*KnowledgeCard `json:"related,omitempty"`
}

// Tags is a list of strings stored as a JSON array.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("tags: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

// Contains reports whether every tag in other is present in t.
func (t Tags) Contains(other ...string) bool {
	set := make(map[string]struct{}, len(t))
	for _, tag := range t {
		set[tag] = struct{}{}
	}
	for _, tag := range other {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}
