package media

import (
	"context"
	"time"
)

type Kind string

const (
	KindDocument Kind = "document"
	KindImage    Kind = "image"
)

// Asset is a stored document or image that can be sent over WhatsApp.
// MediaID caches the Cloud API media id once the file has been uploaded.
type Asset struct {
	ID            uint      `json:"id"`
	Kind          Kind      `json:"kind"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	FileData      []byte    `json:"-"`
	FileExtension string    `json:"file_extension"`
	MediaID       string    `json:"media_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type IMediaRepository interface {
	// Find returns the first asset whose normalized title or description
	// contains the normalized query, or NotFoundError.
	Find(ctx context.Context, kind Kind, query string) (Asset, error)
	ListTitles(ctx context.Context, kind Kind, limit int) ([]string, error)
	SaveMediaID(ctx context.Context, kind Kind, id uint, mediaID string) error
	Create(ctx context.Context, asset *Asset) error
}
