package models

import (
	"time"
)

// NumberRequest represents one rental of a phone number by a user for a
// project. A phone number string may appear in many requests over time;
// the request id identifies a single rental.
type NumberRequest struct {
	ID                int        `json:"id" db:"id"`
	RequestID         string     `json:"request_id" db:"request_id"`
	UserID            int        `json:"user_id" db:"user_id"`
	ProjectID         int        `json:"project_id" db:"project_id"`
	ProjectName       string     `json:"project_name,omitempty" db:"project_name"`
	Number            string     `json:"number" db:"number"`
	Status            string     `json:"status" db:"status"`
	SMSCode           string     `json:"sms_code,omitempty" db:"sms_code"`
	ProviderRequestID string     `json:"-" db:"provider_request_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	ReleasedAt        *time.Time `json:"released_at,omitempty" db:"released_at"`
}

// Number request statuses. Transitions are forward-only:
// available -> used -> released, with blacklisted reachable from
// available/used. released and blacklisted are terminal.
const (
	NumberStatusAvailable   = "available"
	NumberStatusUsed        = "used"
	NumberStatusReleased    = "released"
	NumberStatusBlacklisted = "blacklisted"
)

// ReleasableStatuses are the statuses from which a request may be released.
var ReleasableStatuses = []string{NumberStatusAvailable, NumberStatusUsed}

// BlacklistedNumber marks a phone number as unusable for future rentals.
type BlacklistedNumber struct {
	ID        int       `json:"id" db:"id"`
	Number    string    `json:"number" db:"number"`
	Reason    string    `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SMSMessage is a raw message received on a rented number.
type SMSMessage struct {
	ID              int       `json:"id" db:"id"`
	NumberRequestID int       `json:"number_request_id" db:"number_request_id"`
	Sender          string    `json:"sender" db:"sender"`
	Content         string    `json:"content" db:"content"`
	Code            string    `json:"code,omitempty" db:"-"`
	ReceivedAt      time.Time `json:"received_at" db:"received_at"`
}
