// Package models defines the domain entities and shared error types.
package models

import "time"

// User represents a registered account. Password holds the bcrypt hash and
// is never serialized. Usernames are unique and matched case-sensitively.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"unique;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`

	Posts []Post `gorm:"foreignKey:UserID" json:"-"`
}
