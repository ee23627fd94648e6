package models

import (
	"strings"
	"time"
)

// Photo is a single image belonging to a Post, with its own original and
// thumbnail asset pair. Width and height always describe the stored original
// after any format normalization (HEIC transcode included).
type Photo struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	PostID        uint       `gorm:"not null;index" json:"post_id"`
	Position      int        `gorm:"not null;default:0" json:"position"`
	OriginalPath  string     `gorm:"not null" json:"original_path"`
	ThumbnailPath *string    `json:"thumbnail_path"`
	Width         int        `gorm:"not null" json:"width"`
	Height        int        `gorm:"not null" json:"height"`
	TakenAt       *time.Time `json:"taken_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsSquare reports whether the stored original is perfectly square.
func (p *Photo) IsSquare() bool {
	return p.Width == p.Height && p.Width > 0
}

// OriginalURL is the public URL of the stored original asset.
func (p *Photo) OriginalURL() string {
	return "/storage/" + strings.TrimPrefix(p.OriginalPath, "/")
}

// ThumbnailURL is the public URL of the thumbnail, or empty until cropped.
func (p *Photo) ThumbnailURL() string {
	if p.ThumbnailPath == nil {
		return ""
	}
	return "/storage/" + strings.TrimPrefix(*p.ThumbnailPath, "/")
}
