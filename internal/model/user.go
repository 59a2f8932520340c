package model

import "time"

// User owns categories and tasks. Web users sign in with a username and
// password; Telegram users are keyed by TelegramID.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150;uniqueIndex"`
	Email        string
	PasswordHash string `json:"-"`
	TelegramID   *int64 `gorm:"uniqueIndex"`
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
