package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
)

// FileType is the fixed set of content kinds a file can be registered as.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypePDF   FileType = "pdf"
	FileTypeCSV   FileType = "csv"
)

// ParseFileType validates s against the supported file types.
func ParseFileType(s string) (FileType, error) {
	switch t := FileType(s); t {
	case FileTypeImage, FileTypePDF, FileTypeCSV:
		return t, nil
	}
	return "", fmt.Errorf("%w: unsupported file type %q", common.ErrorInvalidArgument, s)
}

// File is the metadata record for an uploaded blob.
//
// ShouldDelete is the trash flag. A trashed file stays listable in the trash
// until the purge job removes both the record and its blob.
type File struct {
	ID           string
	Name         string
	OrgID        string
	UserID       string
	BlobID       string
	Type         FileType
	ShouldDelete bool
	CreatedAt    time.Time
}

// ListFilter narrows a file listing. Filters compose by logical AND.
type ListFilter struct {
	// Query keeps files whose name contains it, case-insensitively.
	Query string
	// FavoritesOnly keeps files the caller has favorited in the org.
	FavoritesOnly bool
	// DeletedOnly selects the trash partition instead of the active one.
	DeletedOnly bool
}

// UploadTarget is a one-time destination for a client upload.
type UploadTarget struct {
	BlobID    string
	URL       string
	ExpiresAt time.Time
}
