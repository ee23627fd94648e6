package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"heirloom/internal/cache"
	"heirloom/internal/models"
	"heirloom/internal/repository"
	"heirloom/internal/storage"
)

const (
	maxCaptionLen = 2000

	takenDateLayout = "2006-01-02"
	takenTimeLayout = "15:04"
)

// FeedConfig caps public feed pagination.
type FeedConfig struct {
	PerPage    int
	MaxPerPage int
	MaxPage    int
}

// PostService manages captioning, editing, deleting and listing posts.
type PostService struct {
	posts   repository.PostRepository
	photos  repository.PhotoRepository
	store   storage.Store
	feedCfg FeedConfig
	isAdmin func(ctx context.Context, userID uint) (bool, error)
}

// NewPostService creates a new post service.
func NewPostService(
	posts repository.PostRepository,
	photos repository.PhotoRepository,
	store storage.Store,
	feedCfg FeedConfig,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		posts:   posts,
		photos:  photos,
		store:   store,
		feedCfg: feedCfg,
		isAdmin: isAdmin,
	}
}

// CaptionInput is a caption decision for a post. An empty caption is a valid
// decision, not an omission.
type CaptionInput struct {
	UserID  uint
	PostID  uint
	Caption string
}

// UpdatePostInput edits a completed or in-progress post. TakenDate and
// TakenTime combine into the display date the feed sorts by.
type UpdatePostInput struct {
	UserID    uint
	PostID    uint
	Caption   string
	TakenDate string
	TakenTime string
}

// PostView is a post plus its feed neighbors for prev/next navigation.
type PostView struct {
	Post *models.Post
	Prev *models.Post
	Next *models.Post
}

// FeedItem is one entry of the public feed.
type FeedItem struct {
	ID           uint   `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Caption      string `json:"caption"`
	IsCollection bool   `json:"is_collection"`
}

// FeedPage is one page of the public feed.
type FeedPage struct {
	Items   []FeedItem `json:"items"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	HasMore bool       `json:"has_more"`
}

// Caption records the caption decision and advances the post's completion
// state. Captioning before cropping is as valid as the other way around.
func (s *PostService) Caption(ctx context.Context, in CaptionInput) (*models.Post, error) {
	if len(in.Caption) > maxCaptionLen {
		return nil, models.NewValidationError(fmt.Sprintf("Caption too long (max %d characters)", maxCaptionLen))
	}

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}
	if err := s.authorize(ctx, in.UserID, post.UserID); err != nil {
		return nil, err
	}

	uncropped, err := s.photos.UncroppedCount(ctx, post.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	caption := strings.TrimSpace(in.Caption)
	wasCompleted := post.IsCompleted
	post.RecordCaption(&caption, uncropped == 0)
	if err := s.posts.Save(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	if post.IsCompleted && !wasCompleted {
		// completion moves neighbor links on other posts too
		cache.InvalidateFeed(ctx)
		cache.InvalidatePostViews(ctx)
	}
	cache.InvalidatePost(ctx, post.ID)
	return post, nil
}

// Update edits the caption and display date of an existing post. Both date
// and time are required so a post never ends up dated at midnight by accident.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if len(in.Caption) > maxCaptionLen {
		return nil, models.NewValidationError(fmt.Sprintf("Caption too long (max %d characters)", maxCaptionLen))
	}
	if in.TakenDate == "" || in.TakenTime == "" {
		return nil, models.NewValidationError("taken_date and taken_time are required")
	}
	displayDate, err := time.ParseInLocation(
		takenDateLayout+" "+takenTimeLayout,
		in.TakenDate+" "+in.TakenTime,
		time.Local,
	)
	if err != nil {
		return nil, models.NewValidationError("taken_date must be YYYY-MM-DD and taken_time must be HH:MM")
	}

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}
	if err := s.authorize(ctx, in.UserID, post.UserID); err != nil {
		return nil, err
	}

	caption := strings.TrimSpace(in.Caption)
	if caption == "" {
		post.Caption = nil
	} else {
		post.Caption = &caption
	}
	post.DisplayDate = &displayDate

	if err := s.posts.Save(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	// the display date reorders the feed and every neighbor link
	cache.InvalidateFeed(ctx)
	cache.InvalidatePostViews(ctx)
	return post, nil
}

// Delete removes a post, its photo rows and their stored assets. Blob
// removal is best-effort; rows always go.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return models.NewNotFoundError("Post", postID)
	}
	if err := s.authorize(ctx, userID, post.UserID); err != nil {
		return err
	}

	for _, photo := range post.Photos {
		_ = s.store.Delete(photo.OriginalPath)
		if photo.ThumbnailPath != nil {
			_ = s.store.Delete(*photo.ThumbnailPath)
		}
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return models.NewInternalError(err)
	}

	cache.InvalidateFeed(ctx)
	cache.InvalidatePostViews(ctx)
	return nil
}

// errPostNotPublic marks an incomplete post inside the cache-aside fetch so
// the view is never cached and the owner gate runs instead.
var errPostNotPublic = errors.New("post is not publicly visible")

// Get returns a post with its photos, plus its prev/next neighbors when the
// post is publicly visible. Public views are served cache-aside; incomplete
// posts are visible to their owner and admins only and are never cached.
func (s *PostService) Get(ctx context.Context, userID, postID uint) (*PostView, error) {
	view, err := cache.Aside(ctx, cache.PostKey(postID), cache.PostTTL, func() (*PostView, error) {
		return s.fetchPublicView(ctx, postID)
	})
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, errPostNotPublic) {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err := s.authorize(ctx, userID, post.UserID); err != nil {
		return nil, err
	}
	return &PostView{Post: post}, nil
}

func (s *PostService) fetchPublicView(ctx context.Context, postID uint) (*PostView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if !post.IsCompleted {
		return nil, errPostNotPublic
	}
	prev, next, err := s.posts.Neighbors(ctx, post)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &PostView{Post: post, Prev: prev, Next: next}, nil
}

// Feed returns one page of completed posts in display order. The first page
// at the default size is served through the cache; it is the page everyone
// lands on.
func (s *PostService) Feed(ctx context.Context, page, perPage int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	if page > s.feedCfg.MaxPage {
		page = s.feedCfg.MaxPage
	}
	if perPage < 1 {
		perPage = s.feedCfg.PerPage
	}
	if perPage > s.feedCfg.MaxPerPage {
		perPage = s.feedCfg.MaxPerPage
	}

	fetch := func() (*FeedPage, error) {
		return s.fetchFeedPage(ctx, page, perPage)
	}

	if page == 1 && perPage == s.feedCfg.PerPage {
		return cache.Aside(ctx, cache.FeedKey(page, perPage), cache.FeedTTL, fetch)
	}
	return fetch()
}

func (s *PostService) fetchFeedPage(ctx context.Context, page, perPage int) (*FeedPage, error) {
	// one extra row tells us whether another page exists
	posts, err := s.posts.Feed(ctx, perPage+1, (page-1)*perPage)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hasMore := len(posts) > perPage
	if hasMore {
		posts = posts[:perPage]
	}

	items := make([]FeedItem, 0, len(posts))
	for _, post := range posts {
		item := FeedItem{
			ID:           post.ID,
			URL:          fmt.Sprintf("/api/posts/%d", post.ID),
			IsCollection: post.IsCollection(),
		}
		if post.Caption != nil {
			item.Caption = *post.Caption
		}
		if cover := post.CoverPhoto(); cover != nil {
			item.ThumbnailURL = cover.ThumbnailURL()
			if item.ThumbnailURL == "" {
				item.ThumbnailURL = cover.OriginalURL()
			}
		}
		items = append(items, item)
	}

	return &FeedPage{Items: items, Page: page, PerPage: perPage, HasMore: hasMore}, nil
}

func (s *PostService) authorize(ctx context.Context, userID, ownerID uint) error {
	if userID == ownerID {
		return nil
	}
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !admin {
		return models.NewForbiddenError("You do not have permission to modify this post")
	}
	return nil
}
