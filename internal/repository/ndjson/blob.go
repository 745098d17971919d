package ndjson

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RMahshie/corefit/internal/storage"
)

// ContentType is the media type of a newline-delimited JSON catalog
const ContentType = "application/x-ndjson"

// Blob is a whole-catalog byte source and sink
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	fmt.Stringer
}

// FileBlob is a catalog on the local filesystem
type FileBlob struct {
	Path string
}

func (b FileBlob) Read(context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return data, nil
}

// Write replaces the file atomically
func (b FileBlob) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}

func (b FileBlob) String() string { return b.Path }

// ObjectBlob is a catalog stored as a single S3 object
type ObjectBlob struct {
	Store storage.S3Service
	Key   string
}

func (b ObjectBlob) Read(ctx context.Context) ([]byte, error) {
	return b.Store.DownloadFile(ctx, b.Key)
}

func (b ObjectBlob) Write(ctx context.Context, data []byte) error {
	return b.Store.UploadFile(ctx, b.Key, data, ContentType)
}

func (b ObjectBlob) String() string { return "s3://" + b.Key }
