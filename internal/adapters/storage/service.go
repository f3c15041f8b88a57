// Package storage keeps copies of uploaded lead spreadsheets in S3-compatible
// object storage.
package storage

import (
	"context"
	"io"
	"time"

	"franchise_crm_backend/platform/config"

	"github.com/google/uuid"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ImportArchive stores the raw files behind batch imports.
type ImportArchive interface {
	// ArchiveImport uploads the file of one import run and returns its key.
	ArchiveImport(ctx context.Context, importID uuid.UUID, filename string, reader io.Reader, size int64) (string, error)

	// GenerateDownloadURL creates a presigned URL for an archived file.
	GenerateDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error)

	// DeleteObject removes an archived file.
	DeleteObject(ctx context.Context, fileKey string) error

	// EnsureBucketExists creates the archive bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error
}

// Config defines the configuration interface for storage.
type Config interface {
	config.StorageConfig
	GetMaxImportFileSize() int64
}
