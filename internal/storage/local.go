package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/m-sorano/ai-cafe/internal/apperr"
)

// LocalURLPrefix is where the server exposes locally stored avatars.
const LocalURLPrefix = "/static/uploads/avatars/"

// LocalStore keeps avatars on disk.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Root returns the directory files are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// EnsureBucket creates the root directory.
func (s *LocalStore) EnsureBucket(ctx context.Context) error {
	return errors.Wrap(os.MkdirAll(s.root, 0o755), "create avatar directory")
}

// Upload writes body to path under the root directory.
func (s *LocalStore) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", apperr.Validation("不正なファイルパスです")
	}

	dst := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", apperr.Remote(err, "アップロードに失敗しました")
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", apperr.Remote(err, "アップロードに失敗しました")
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", apperr.Remote(err, "アップロードに失敗しました")
	}
	return LocalURLPrefix + filepath.ToSlash(clean), nil
}
