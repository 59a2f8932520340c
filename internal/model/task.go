package model

import (
	"strings"
	"time"
)

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// MaxTitleLength is the maximum number of characters in a task title.
const MaxTitleLength = 200

// ParsePriority returns the priority named by s (case-insensitive).
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	default:
		return "", false
	}
}

// Rank orders priorities from most to least urgent: high=1, medium=2, low=3.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Task represents a single item in a user's list.
type Task struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	CategoryID  *uint     `gorm:"index"`
	Category    *Category `gorm:"constraint:OnDelete:SET NULL"`
	Title       string    `gorm:"size:200;not null"`
	Description string
	IsCompleted bool     `gorm:"default:false"`
	Priority    Priority `gorm:"size:10;default:medium"`
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

// IsOverdue reports whether an open task's due date has passed.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted && t.DueDate != nil && now.After(*t.DueDate)
}

// CategoryName returns the name of the loaded category, or "" when the task
// has none.
func (t Task) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}
