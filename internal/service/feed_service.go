package service

import (
	"context"
	"time"

	"artfeed/internal/models"
	"artfeed/internal/repository"
)

// displayTimeLayout matches the original presentation format,
// e.g. "Sep 01, 2026 · 07:45 PM".
const displayTimeLayout = "Jan 02, 2006 · 03:04 PM"

// FeedService assembles the ordered post feed for a viewer.
type FeedService struct {
	postRepo   repository.PostRepository
	displayLoc *time.Location
}

// NewFeedService returns a FeedService rendering display times at the given
// fixed UTC offset in minutes. The offset is configuration, never the host
// locale.
func NewFeedService(postRepo repository.PostRepository, displayOffsetMin int) *FeedService {
	return &FeedService{
		postRepo:   postRepo,
		displayLoc: time.FixedZone("display", displayOffsetMin*60),
	}
}

// ListPosts returns all posts in the requested order, annotated with the
// viewer's liked state and a formatted display time. An empty feed is an
// empty slice, not an error.
func (s *FeedService) ListPosts(ctx context.Context, sort repository.FeedSort, viewerID uint) ([]*models.Post, error) {
	posts, err := s.postRepo.List(ctx, sort)
	if err != nil {
		return nil, err
	}

	if err := s.annotateViewerState(ctx, posts, viewerID); err != nil {
		return nil, err
	}

	for _, p := range posts {
		p.DisplayTime = s.FormatDisplayTime(p.CreatedAt)
	}
	return posts, nil
}

// annotateViewerState sets Liked on each post via one batched lookup of the
// viewer's liked post ids, avoiding a per-post query.
func (s *FeedService) annotateViewerState(ctx context.Context, posts []*models.Post, viewerID uint) error {
	if viewerID == 0 || len(posts) == 0 {
		return nil
	}

	likedIDs, err := s.postRepo.GetLikedPostIDs(ctx, viewerID)
	if err != nil {
		return err
	}

	liked := make(map[uint]struct{}, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = struct{}{}
	}
	for _, p := range posts {
		_, p.Liked = liked[p.ID]
	}
	return nil
}

// FormatDisplayTime renders a stored UTC instant in the configured display zone.
func (s *FeedService) FormatDisplayTime(t time.Time) string {
	return t.In(s.displayLoc).Format(displayTimeLayout)
}
