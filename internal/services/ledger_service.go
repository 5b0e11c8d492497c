package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/models"
)

// ErrInsufficientBalance is returned when a debit would overdraw the user.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrAlreadyConfirmed is returned when a pending entry was converted by an
// earlier confirmation.
var ErrAlreadyConfirmed = errors.New("entry already confirmed")

// LedgerService owns every balance mutation. The user row is locked for the
// duration of the enclosing transaction so that concurrent debits cannot
// over-spend, and each mutation appends a transactions row carrying the
// resulting balance snapshot.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

// lockBalance reads the user's balance under FOR UPDATE.
func (s *LedgerService) lockBalance(tx *sql.Tx, userID int) (float64, error) {
	var balance float64
	err := tx.QueryRow(`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to lock user %d: %w", userID, err)
	}
	return balance, nil
}

func (s *LedgerService) appendEntry(tx *sql.Tx, userID int, amount, newBalance float64, entryType, description, reference string) error {
	_, err := tx.Exec(`
		INSERT INTO transactions (user_id, amount, balance, type, description, reference_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		userID, amount, newBalance, entryType, description, reference, time.Now())
	return err
}

func (s *LedgerService) updateBalance(tx *sql.Tx, userID int, newBalance float64) error {
	result, err := tx.Exec(`UPDATE users SET balance = $1, updated_at = $2 WHERE id = $3`,
		newBalance, time.Now(), userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

// DebitTx withdraws amount inside the caller's transaction and returns the
// new balance. ErrInsufficientBalance when the locked balance cannot cover
// the amount; in that case nothing has been written.
func (s *LedgerService) DebitTx(tx *sql.Tx, userID int, amount float64, description, reference string) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %v", amount)
	}

	balance, err := s.lockBalance(tx, userID)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return balance, ErrInsufficientBalance
	}

	newBalance := balance - amount
	if err := s.appendEntry(tx, userID, -amount, newBalance, models.TransactionTypeConsume, description, reference); err != nil {
		return 0, err
	}
	if err := s.updateBalance(tx, userID, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CreditTx deposits amount inside the caller's transaction and returns the
// new balance. entryType is topup or refund.
func (s *LedgerService) CreditTx(tx *sql.Tx, userID int, amount float64, entryType, description, reference string) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %v", amount)
	}

	balance, err := s.lockBalance(tx, userID)
	if err != nil {
		return 0, err
	}

	newBalance := balance + amount
	if err := s.appendEntry(tx, userID, amount, newBalance, entryType, description, reference); err != nil {
		return 0, err
	}
	if err := s.updateBalance(tx, userID, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ConfirmPendingTx converts a pending entry into a credited topup inside the
// caller's transaction: the user row is locked, the balance is raised by
// amount, and the converted entry is stamped with the post-credit snapshot.
// ErrAlreadyConfirmed when the entry is no longer pending; nothing is written
// in that case.
func (s *LedgerService) ConfirmPendingTx(tx *sql.Tx, txID, userID int, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("confirm amount must be positive, got %v", amount)
	}

	balance, err := s.lockBalance(tx, userID)
	if err != nil {
		return 0, err
	}
	newBalance := balance + amount

	result, err := tx.Exec(`
		UPDATE transactions SET type = $1, balance = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5 AND type = $6`,
		models.TransactionTypeTopup, newBalance, time.Now(), txID, userID, models.TransactionTypePending)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return balance, ErrAlreadyConfirmed
	}

	if err := s.updateBalance(tx, userID, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Debit runs DebitTx in its own transaction.
func (s *LedgerService) Debit(userID int, amount float64, description, reference string) (float64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	newBalance, err := s.DebitTx(tx, userID, amount, description, reference)
	if err != nil {
		return newBalance, err
	}
	return newBalance, tx.Commit()
}

// Credit runs CreditTx in its own transaction.
func (s *LedgerService) Credit(userID int, amount float64, entryType, description, reference string) (float64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	newBalance, err := s.CreditTx(tx, userID, amount, entryType, description, reference)
	if err != nil {
		return 0, err
	}
	return newBalance, tx.Commit()
}

// ListTransactions returns a user's ledger page, newest first, optionally
// filtered by type.
func (s *LedgerService) ListTransactions(userID, page, perPage int, typeFilter string) ([]models.Transaction, int, error) {
	where := `WHERE user_id = $1`
	args := []any{userID}
	if typeFilter != "" {
		where += ` AND type = $2`
		args = append(args, typeFilter)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, amount, balance, type, description, reference_id, created_at, updated_at
		FROM transactions %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d`, where, perPage, (page-1)*perPage)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Balance, &t.Type, &t.Description, &t.ReferenceID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, t)
	}
	return transactions, total, rows.Err()
}

// Transactions lists the caller's ledger entries.
// @Summary List transactions
// @Description Paginated transaction history, newest first
// @Tags account
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 10, max 100)"
// @Param type query string false "Filter by type (topup, consume, refund, pending)"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /account/transactions [get]
func (s *LedgerService) Transactions(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	page, perPage := p.Pagination()

	transactions, total, err := s.ListTransactions(identity.UserID, page, perPage, p.Get("type"))
	if err != nil {
		log.Printf("[LEDGER] Failed to list transactions for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"items":    transactions,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    PageCount(total, perPage),
	})
}
