package model

import "time"

// Category groups a user's tasks (work, health, study, etc.).
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;uniqueIndex:idx_user_category_name"`
	Name      string `gorm:"size:100;uniqueIndex:idx_user_category_name"`
	CreatedAt time.Time
}

// CategoryStat is a category together with the number of tasks that
// currently reference it.
type CategoryStat struct {
	Category
	TaskCount int64
}
