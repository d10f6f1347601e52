// Package uploads stores admin-uploaded images on local disk and serves
// them under a public URL prefix.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes files below Dir and names them by PublicPrefix.
type Store struct {
	Dir          string
	PublicPrefix string
	FieldName    string
}

// NewStore creates dir if needed. publicPrefix is the URL path the
// directory is served under, e.g. "/uploads/advertisements".
func NewStore(dir, publicPrefix, fieldName string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		Dir:          dir,
		PublicPrefix: strings.TrimRight(publicPrefix, "/"),
		FieldName:    fieldName,
	}, nil
}

// Save writes fh under a generated name and returns its public path.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s-%s%s", s.FieldName, uuid.NewString(), strings.ToLower(filepath.Ext(fh.Filename)))
	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}

	return s.PublicPrefix + "/" + name, nil
}

// Remove deletes the file behind a public path. Missing files and paths
// outside this store are not errors.
func (s *Store) Remove(publicPath string) error {
	path, ok := s.Resolve(publicPath)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Resolve maps a public path onto a file inside Dir.
func (s *Store) Resolve(publicPath string) (string, bool) {
	if !strings.HasPrefix(publicPath, s.PublicPrefix+"/") {
		return "", false
	}
	name := filepath.Base(strings.TrimPrefix(publicPath, s.PublicPrefix+"/"))
	if name == "." || name == "/" || name == ".." {
		return "", false
	}
	return filepath.Join(s.Dir, name), true
}

// Exists reports whether the file behind publicPath is on disk.
func (s *Store) Exists(publicPath string) bool {
	path, ok := s.Resolve(publicPath)
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
