package service

import (
	"context"
	"strings"

	"artfeed/internal/middleware"
	"artfeed/internal/models"
	"artfeed/internal/repository"
	"artfeed/internal/storage"
)

// PostService implements post creation, deletion and the like toggle.
type PostService struct {
	postRepo repository.PostRepository
	media    storage.MediaStore
}

// CreatePostInput carries the fields for a new post. The creation timestamp
// is always set server-side; client-supplied timestamps are never accepted.
type CreatePostInput struct {
	UserID   uint
	MediaRef string
	Caption  string
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, media storage.MediaStore) *PostService {
	return &PostService{postRepo: postRepo, media: media}
}

// CreatePost persists a post referencing an already-stored media object.
// The caption may be empty.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if strings.TrimSpace(in.MediaRef) == "" {
		return nil, models.NewValidationError("A stored media reference is required")
	}

	post := &models.Post{
		UserID:   in.UserID,
		MediaRef: in.MediaRef,
		Caption:  strings.TrimSpace(in.Caption),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// DeletePost removes the post row and its likes in one transaction, then
// requests removal of the backing media object. The media delete happens
// after the commit and is not rolled back on failure: the orphaned file is
// logged and counted, matching the documented limitation. Admin authority is
// enforced by the route guard before this runs.
func (s *PostService) DeletePost(ctx context.Context, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	if err := s.media.Delete(ctx, post.MediaRef); err != nil {
		middleware.MediaDeleteFailures.Inc()
		middleware.Logger.ErrorContext(ctx, "media delete failed after DB commit, object orphaned",
			"post_id", postID, "media_ref", post.MediaRef, "error", err)
	}
	return nil
}

// ToggleLike flips the viewer's like on the post and returns the post with
// its resulting liked state and live count. A concurrent duplicate insert is
// absorbed by the unique index, so a lost race still converges on one row.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}

	liked, err := s.postRepo.IsLiked(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if liked {
		err = s.postRepo.Unlike(ctx, userID, postID)
	} else {
		err = s.postRepo.Like(ctx, userID, postID)
	}
	if err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, postID, userID)
}
