package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestRecordCaptionThenCropConverges(t *testing.T) {
	post := &Post{State: PostStateIngested}

	post.RecordCaption(strPtr("summer"), false)
	assert.Equal(t, PostStateCaptioned, post.State)
	assert.False(t, post.IsCompleted)

	post.RecordCrop(true)
	assert.Equal(t, PostStateCompleted, post.State)
	assert.True(t, post.IsCompleted)
	assert.Equal(t, "summer", *post.Caption)
}

func TestRecordCropThenCaptionConverges(t *testing.T) {
	post := &Post{State: PostStateIngested}

	post.RecordCrop(true)
	assert.Equal(t, PostStateCropped, post.State)
	assert.False(t, post.IsCompleted)

	post.RecordCaption(strPtr("summer"), true)
	assert.Equal(t, PostStateCompleted, post.State)
	assert.True(t, post.IsCompleted)
}

func TestRecordCaptionSquareOriginalCompletesDirectly(t *testing.T) {
	// A square original is auto-cropped at ingest, so allCropped is already true.
	post := &Post{State: PostStateIngested}
	post.RecordCaption(strPtr(""), true)
	assert.Equal(t, PostStateCompleted, post.State)
	assert.True(t, post.IsCompleted)
	assert.Nil(t, post.Caption, "empty caption normalizes to NULL")
}

func TestEmptyCaptionBeforeCropStillCountsAsDecision(t *testing.T) {
	post := &Post{State: PostStateIngested}

	post.RecordCaption(strPtr(""), false)
	assert.Equal(t, PostStateCaptioned, post.State)
	assert.Nil(t, post.Caption)

	post.RecordCrop(true)
	assert.Equal(t, PostStateCompleted, post.State)
}

func TestRecordCropPartialSetDoesNotTransition(t *testing.T) {
	post := &Post{State: PostStateIngested}
	post.RecordCrop(false)
	assert.Equal(t, PostStateIngested, post.State)

	post.RecordCaption(strPtr("x"), false)
	post.RecordCrop(false)
	assert.Equal(t, PostStateCaptioned, post.State)
}

func TestRecordCaptionInCroppedStateRequiresAllCropped(t *testing.T) {
	// The crop transitioned the post, then another photo was appended and
	// has no thumbnail yet.
	post := &Post{State: PostStateCropped}

	post.RecordCaption(strPtr("beach day"), false)
	assert.Equal(t, PostStateCaptioned, post.State)
	assert.False(t, post.IsCompleted)

	post.RecordCrop(true)
	assert.Equal(t, PostStateCompleted, post.State)
	assert.True(t, post.IsCompleted)
}

func TestCompletedIsTerminal(t *testing.T) {
	post := &Post{State: PostStateCompleted, IsCompleted: true}

	post.RecordCaption(strPtr("edited later"), true)
	assert.Equal(t, PostStateCompleted, post.State)
	assert.True(t, post.IsCompleted)
	assert.Equal(t, "edited later", *post.Caption)

	post.RecordCrop(true)
	assert.Equal(t, PostStateCompleted, post.State)
	assert.True(t, post.IsCompleted)
}

func TestDisplayTimestampFallsBackToCreatedAt(t *testing.T) {
	post := &Post{}
	post.CreatedAt = post.CreatedAt.AddDate(2020, 0, 0)
	assert.Equal(t, post.CreatedAt, post.DisplayTimestamp())

	d := post.CreatedAt.AddDate(1, 0, 0)
	post.DisplayDate = &d
	assert.Equal(t, d, post.DisplayTimestamp())
}
