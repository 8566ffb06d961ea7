// Package media is a small filesystem blob store for uploaded images.
package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	CarImages   = "car_images"
	ProfilePics = "profile_pics"
)

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root is the directory served under /media.
func (s *Store) Root() string { return s.root }

// Save writes an uploaded file into the given bucket under a fresh UUID name,
// keeping the original extension, and returns the stored filename.
func (s *Store) Save(bucket string, fh *multipart.FileHeader) (string, error) {
	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media dir: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return name, nil
}

// Remove deletes a stored file. A missing file is not an error; the row
// referencing it is already gone or being replaced.
func (s *Store) Remove(bucket, name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, bucket, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
