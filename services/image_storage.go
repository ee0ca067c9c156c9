package services

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

var (
	ErrImageTooLarge   = errors.New("image too large")
	ErrImageExtension  = errors.New("unsupported image type")
	allowedImageExts   = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true, ".svg": true}
	AllowedImageFormat = "jpg, jpeg, png, gif, webp, bmp, svg"
)

// ImageStorage persists uploaded restaurant images. Store returns the full
// stored path; callers keep only its basename.
type ImageStorage interface {
	Validate(fh *multipart.FileHeader) error
	Store(fh *multipart.FileHeader) (string, error)
	Delete(name string) error
}

type LocalImageStorage struct {
	Dir      string
	MaxBytes int64
}

func NewLocalImageStorage(dir string, maxKB int64) *LocalImageStorage {
	return &LocalImageStorage{Dir: dir, MaxBytes: maxKB * 1024}
}

func (s *LocalImageStorage) Validate(fh *multipart.FileHeader) error {
	if !allowedImageExts[strings.ToLower(filepath.Ext(fh.Filename))] {
		return ErrImageExtension
	}
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return ErrImageTooLarge
	}
	return nil
}

func (s *LocalImageStorage) Store(fh *multipart.FileHeader) (string, error) {
	if err := s.Validate(fh); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(s.Dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}
	return path, nil
}

// Delete removes a previously stored image by basename. Missing files are ignored.
func (s *LocalImageStorage) Delete(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
