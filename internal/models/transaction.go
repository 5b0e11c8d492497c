package models

import (
	"time"
)

// Transaction is an append-only ledger row. Amount is signed: positive for
// topup/refund, negative for consume. Balance is the user's balance after the
// transaction was applied. Rows are never mutated after creation except
// pending topup orders, which convert to topup on payment confirmation.
type Transaction struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"user_id" db:"user_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Balance     float64   `json:"balance" db:"balance"`
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description,omitempty" db:"description"`
	ReferenceID string    `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction types.
const (
	TransactionTypeTopup   = "topup"
	TransactionTypeConsume = "consume"
	TransactionTypeRefund  = "refund"
	TransactionTypePending = "pending"
)
