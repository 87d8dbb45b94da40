package repository

import (
	"context"
	"errors"

	"artfeed/internal/models"

	"gorm.io/gorm"
)

// FeedSort is the closed set of feed orderings. Request input is mapped onto
// one of these variants and never interpolated into SQL.
type FeedSort int

const (
	// SortRecent orders by creation time, newest first.
	SortRecent FeedSort = iota
	// SortByLikes orders by aggregated like count, creation time as tie-break.
	SortByLikes
)

// ParseFeedSort maps a request parameter to a FeedSort.
// Unrecognized values collapse to SortRecent.
func ParseFeedSort(s string) FeedSort {
	if s == "likes" {
		return SortByLikes
	}
	return SortRecent
}

// PostRepository defines persistence operations for posts and likes.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, sort FeedSort) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	GetLikedPostIDs(ctx context.Context, userID uint) ([]uint, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// applyPostDetails adds subqueries computing the live like count and, when a
// viewer is known, whether that viewer liked each post. The count is always
// derived from the likes table, never cached.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count"

	if viewerID != 0 {
		return db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked",
			viewerID)
	}
	return db.Select(selectQuery)
}

// applySort appends the ORDER BY clause for the requested sort variant.
// like_count is a SELECT alias from applyPostDetails; both SQLite and
// PostgreSQL allow referencing it in ORDER BY at the same query level.
func (r *postRepository) applySort(db *gorm.DB, sort FeedSort) *gorm.DB {
	switch sort {
	case SortByLikes:
		return db.Order("like_count DESC, posts.created_at DESC")
	default:
		return db.Order("posts.created_at DESC")
	}
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Preload("User").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// List returns every post, owner preloaded, ordered by the sort variant.
// Viewer liked-state is annotated separately (one batched lookup per
// request) by the feed service.
func (r *postRepository) List(ctx context.Context, sort FeedSort) ([]*models.Post, error) {
	var posts []*models.Post
	base := r.applyPostDetails(r.db.WithContext(ctx), 0).
		Preload("User")
	if err := r.applySort(base, sort).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Delete removes the post and its dependent likes in one transaction.
// Likes go first to preserve referential integrity.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// GetLikedPostIDs returns every post id the user has liked in a single
// query, so feed annotation is one set-membership lookup per request.
func (r *postRepository) GetLikedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	var likedPostIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ?", userID).
		Pluck("post_id", &likedPostIDs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return likedPostIDs, nil
}

func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	// ON CONFLICT DO NOTHING makes a duplicate insert under a concurrent
	// toggle an idempotent no-op; the unique index is the backstop.
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (user_id, post_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID,
	).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
