package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/brunocserra/extincor-pdf-function/internal/config"
)

// BlobStore persists finished documents. Upload is last-write-wins: a
// redelivered job overwrites the same blob, which is acceptable.
type BlobStore interface {
	// Upload stores data under name and returns the blob's public location.
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// BlobName joins the configured prefix with the report identifier,
// collapsing the duplicate slashes a trailing-slash prefix leaves behind.
func BlobName(prefix, reportID string) string {
	name := prefix + reportID + ".pdf"
	for strings.Contains(name, "//") {
		name = strings.ReplaceAll(name, "//", "/")
	}
	return name
}

// SupabaseStorage uploads blobs to a Supabase storage bucket.
type SupabaseStorage struct {
	client *storage_go.Client
	bucket string
}

func NewSupabaseStorage(cfg config.BlobConfig) (*SupabaseStorage, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		return nil, errors.New("supabase storage credentials are not configured")
	}
	client := storage_go.NewClient(strings.TrimSuffix(cfg.SupabaseURL, "/")+"/storage/v1", cfg.SupabaseKey, nil)
	return &SupabaseStorage{client: client, bucket: cfg.Container}, nil
}

func (s *SupabaseStorage) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, name, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s: %w", name, err)
	}
	return s.client.GetPublicUrl(s.bucket, name).SignedURL, nil
}

// LocalStorage writes blobs under a local directory. Used for development
// and tests, where no bucket is reachable.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return "file://" + path, nil
}
