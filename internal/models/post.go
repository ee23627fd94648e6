package models

import (
	"time"
)

// PostState tracks a post's progress through the upload flow. It is persisted
// explicitly rather than inferred from the nullable caption/thumbnail columns,
// so an explicitly empty caption submitted before cropping is never mistaken
// for "no caption submitted yet".
type PostState string

const (
	// PostStateIngested: original(s) stored, no thumbnail, no caption decision.
	PostStateIngested PostState = "ingested"
	// PostStateCaptioned: caption recorded, thumbnails still missing.
	PostStateCaptioned PostState = "captioned"
	// PostStateCropped: all thumbnails present, caption still undecided.
	PostStateCropped PostState = "cropped"
	// PostStateCompleted: both present; terminal. Only completed posts are
	// publicly visible.
	PostStateCompleted PostState = "completed"
)

// Post is a publishable unit containing one or more photos.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"user"`
	Caption     *string    `gorm:"type:text" json:"caption"`
	DisplayDate *time.Time `json:"display_date,omitempty"`
	State       PostState  `gorm:"type:varchar(16);not null;default:ingested;index" json:"state"`
	IsCompleted bool       `gorm:"not null;default:false;index" json:"is_completed"`
	Photos      []Photo    `gorm:"foreignKey:PostID" json:"photos,omitempty"`
	// PhotosCount is not persisted; computed at query time
	PhotosCount int       `gorm:"->" json:"photos_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayTimestamp is the timestamp the post sorts and displays by:
// the explicit display date when set, the creation time otherwise.
func (p *Post) DisplayTimestamp() time.Time {
	if p.DisplayDate != nil {
		return *p.DisplayDate
	}
	return p.CreatedAt
}

// CoverPhoto returns the photo at position 0, or nil when photos are not loaded.
func (p *Post) CoverPhoto() *Photo {
	for i := range p.Photos {
		if p.Photos[i].Position == 0 {
			return &p.Photos[i]
		}
	}
	return nil
}

// IsCollection reports whether the post holds more than one photo.
func (p *Post) IsCollection() bool {
	if p.PhotosCount > 0 {
		return p.PhotosCount > 1
	}
	return len(p.Photos) > 1
}

// RecordCaption applies a caption decision to the state machine. An empty
// caption is a valid decision and is stored as NULL. allCropped reports
// whether every photo of the post already has a thumbnail.
//
// Completed is terminal: captioning a completed post updates the text but
// never changes completion.
func (p *Post) RecordCaption(caption *string, allCropped bool) {
	if caption != nil && *caption == "" {
		caption = nil
	}
	p.Caption = caption

	switch p.State {
	case PostStateIngested:
		if allCropped {
			p.State = PostStateCompleted
		} else {
			p.State = PostStateCaptioned
		}
	case PostStateCropped:
		// a photo appended after the earlier crops can leave the post in
		// cropped state with an uncropped photo
		if allCropped {
			p.State = PostStateCompleted
		} else {
			p.State = PostStateCaptioned
		}
	case PostStateCaptioned, PostStateCompleted:
		// caption text updated; state unchanged
	}
	p.IsCompleted = p.State == PostStateCompleted
}

// RecordCrop applies a thumbnail-created event to the state machine.
// allCropped reports whether every photo of the post now has a thumbnail.
func (p *Post) RecordCrop(allCropped bool) {
	if !allCropped {
		return
	}
	switch p.State {
	case PostStateIngested:
		p.State = PostStateCropped
	case PostStateCaptioned:
		p.State = PostStateCompleted
	case PostStateCropped, PostStateCompleted:
		// re-crop; state unchanged
	}
	p.IsCompleted = p.State == PostStateCompleted
}
