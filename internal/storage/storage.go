// Package storage uploads avatar images to object storage.
package storage

import (
	"context"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/m-sorano/ai-cafe/internal/apperr"
	"github.com/m-sorano/ai-cafe/internal/config"
)

// MaxAvatarSize is the largest accepted avatar in bytes.
const MaxAvatarSize = 2 << 20

// Storage drivers.
const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// AvatarStore saves avatar files and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error)
	EnsureBucket(ctx context.Context) error
}

// New returns the store selected by the configuration.
func New(cfg *config.Config) (AvatarStore, error) {
	switch cfg.Storage.Driver {
	case DriverLocal, "":
		return NewLocalStore(filepath.Join(cfg.ProjectRoot, "static", "uploads", "avatars")), nil
	case DriverS3:
		s, err := NewS3Store(cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Endpoint, cfg.Storage.PublicURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ValidateAvatar checks the size and sniffed type of an uploaded image and
// returns its content type.
func ValidateAvatar(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("ファイルが空です")
	}
	if len(data) > MaxAvatarSize {
		return "", apperr.Validation("ファイルサイズは2MB以下にしてください")
	}
	contentType := http.DetectContentType(data)
	if _, ok := avatarExtensions[contentType]; !ok {
		return "", apperr.Validation("JPEG、PNG、GIF、WebP形式の画像を選択してください")
	}
	return contentType, nil
}

// avatarExtensions are the accepted sniffed types and the extension each is
// stored under.
var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarPath returns a fresh object path for a user's avatar:
// <userID>/<random>.<ext>. The extension comes from the sniffed content
// type, never from the uploaded file name.
func AvatarPath(userID, contentType string) string {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		ext = ".png"
	}
	return userID + "/" + uuid.NewString() + ext
}
