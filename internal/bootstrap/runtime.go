// Package bootstrap wires runtime dependencies: database, redis and the
// guaranteed admin account.
package bootstrap

import (
	"fmt"

	"artfeed/internal/cache"
	"artfeed/internal/config"
	"artfeed/internal/database"
	"artfeed/internal/middleware"
	"artfeed/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to the database, initializes Redis, and guarantees a
// bootstrap admin account exists.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureAdmin(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	return db, r, nil
}

// EnsureAdmin creates the default admin account when no admin exists.
// Runs in a transaction so concurrent startups cannot create two admins.
func EnsureAdmin(db *gorm.DB, username, password string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}

		admin := models.User{
			Username: username,
			Password: string(hashed),
			IsAdmin:  true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		middleware.Logger.Warn("bootstrap admin account created with the default credential; rotate it immediately",
			"username", username)
		return nil
	})
}
