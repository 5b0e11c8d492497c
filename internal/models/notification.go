package models

import "time"

// Notification is a message to one user (UserID set) or a broadcast to all
// users (UserID nil).
type Notification struct {
	ID        int       `json:"id" db:"id"`
	UserID    *int      `json:"user_id,omitempty" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Type      string    `json:"type" db:"type"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Notification types.
const (
	NotificationTypeSystem  = "system"
	NotificationTypeBalance = "balance"
	NotificationTypeNumber  = "number"
)
