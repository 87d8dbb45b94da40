// Package seed provides database seeding utilities for development.
package seed

import (
	"fmt"
	"math/rand"
	"strings"

	"artfeed/internal/middleware"
	"artfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Run populates the database with demo users, posts and likes.
// Every seeded user's password is "password123".
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 10
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 30
	}

	if opts.ShouldClean {
		if err := clean(db); err != nil {
			return err
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		username := strings.ToLower(gofakeit.Username())
		if len(username) > 24 {
			username = username[:24]
		}
		users = append(users, models.User{
			Username: fmt.Sprintf("%s%d", username, i),
			Password: string(hashed),
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	posts := make([]models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		owner := users[rand.Intn(len(users))]
		posts = append(posts, models.Post{
			UserID:   owner.ID,
			MediaRef: fmt.Sprintf("seed_%03d.png", i),
			Caption:  gofakeit.Sentence(rand.Intn(8) + 3),
		})
	}
	if err := db.Create(&posts).Error; err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}

	var likes []models.Like
	for _, p := range posts {
		for _, u := range users {
			if rand.Float64() < 0.3 {
				likes = append(likes, models.Like{UserID: u.ID, PostID: p.ID})
			}
		}
	}
	if len(likes) > 0 {
		if err := db.Create(&likes).Error; err != nil {
			return fmt.Errorf("seed likes: %w", err)
		}
	}

	middleware.Logger.Info("seeding complete",
		"users", len(users), "posts", len(posts), "likes", len(likes))
	return nil
}

func clean(db *gorm.DB) error {
	for _, model := range []any{&models.Like{}, &models.Post{}} {
		if err := db.Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("clean tables: %w", err)
		}
	}
	// Keep admin accounts so the bootstrap invariant holds.
	if err := db.Where("is_admin = ?", false).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clean users: %w", err)
	}
	return nil
}
