package models

import (
	"time"
)

// Project is a third-party verification flow (e.g. a login) that numbers are
// rented against. Price is charged per rental.
type Project struct {
	ID          int       `json:"id" db:"id"`
	ProjectID   string    `json:"project_id" db:"project_id"`
	ExclusiveID *string   `json:"exclusive_id,omitempty" db:"exclusive_id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	Description string    `json:"description,omitempty" db:"description"`
	Price       float64   `json:"price" db:"price"`
	SuccessRate float64   `json:"success_rate" db:"success_rate"`
	Available   bool      `json:"available" db:"available"`
	IsExclusive bool      `json:"is_exclusive" db:"is_exclusive"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// UserFavorite links a user to a project they bookmarked.
type UserFavorite struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	ProjectID int       `json:"project_id" db:"project_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserExclusiveProject records a user's membership in an exclusive project.
// Membership gates number acquisition for exclusive projects.
type UserExclusiveProject struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	ProjectID int       `json:"project_id" db:"project_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
