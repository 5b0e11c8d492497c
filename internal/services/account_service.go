package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/models"
	"github.com/smsrent/backend/internal/provider"
)

var supportedPaymentMethods = map[string]bool{
	"alipay": true,
	"wechat": true,
	"card":   true,
}

// AccountService exposes the billing surface: balance, topups and payment
// orders. All balance mutations are delegated to the ledger.
type AccountService struct {
	db       *sql.DB
	ledger   *LedgerService
	qr       *QRService
	provider provider.Client
}

func NewAccountService(db *sql.DB, ledger *LedgerService, qr *QRService, providerClient provider.Client) *AccountService {
	return &AccountService{db: db, ledger: ledger, qr: qr, provider: providerClient}
}

// Balance returns the caller's credit balance.
// @Summary Get balance
// @Description Local ledger balance; the upstream platform balance is checked for drift
// @Tags account
// @Produce json
// @Success 200 {object} map[string]float64
// @Failure 401 {object} ErrorResponse
// @Router /account/balance [get]
func (s *AccountService) Balance(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var balance float64
	if err := s.db.QueryRow(`SELECT balance FROM users WHERE id = $1`, identity.UserID).Scan(&balance); err != nil {
		log.Printf("[ACCOUNT] Failed to read balance for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	// The local ledger is authoritative. The upstream figure is the
	// platform-wide account, logged only to spot drift.
	if identity.IsAdmin {
		if upstream, err := s.provider.CheckBalance(r.Context()); err != nil {
			log.Printf("[ACCOUNT] Provider balance check failed: %v", err)
		} else if math.Abs(upstream-balance) > 0.001 {
			log.Printf("[ACCOUNT] Provider balance %.2f differs from ledger %.2f", upstream, balance)
		}
	}

	SendJSON(w, http.StatusOK, map[string]float64{"balance": balance})
}

// Topup credits the account immediately.
// @Summary Top up balance
// @Tags account
// @Accept json
// @Produce json
// @Param amount query number true "Amount to credit"
// @Param payment_method query string false "alipay, wechat or card"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /account/topup [post]
func (s *AccountService) Topup(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	amount, method, ok := parsePayment(w, p)
	if !ok {
		return
	}

	reference := newOrderID()
	newBalance, err := s.ledger.Credit(identity.UserID, amount, models.TransactionTypeTopup,
		fmt.Sprintf("Topup via %s", method), reference)
	if err != nil {
		log.Printf("[ACCOUNT] Topup failed for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to top up", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"message":  "Topup successful",
		"amount":   amount,
		"balance":  newBalance,
		"order_id": reference,
	})
}

// CreateOrder opens a pending topup order and returns its payment QR.
// @Summary Create a topup order
// @Description The balance is credited once the gateway confirms via order-status
// @Tags account
// @Accept json
// @Produce json
// @Param amount query number true "Amount to credit"
// @Param payment_method query string false "alipay, wechat or card"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /account/create-order [post]
func (s *AccountService) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	amount, method, ok := parsePayment(w, p)
	if !ok {
		return
	}

	orderID := newOrderID()
	now := time.Now()
	if _, err := s.db.Exec(`
		INSERT INTO transactions (user_id, amount, balance, type, description, reference_id, created_at, updated_at)
		SELECT $1, $2, balance, $3, $4, $5, $6, $6 FROM users WHERE id = $1`,
		identity.UserID, amount, models.TransactionTypePending,
		fmt.Sprintf("Pending topup via %s", method), orderID, now); err != nil {
		log.Printf("[ACCOUNT] Failed to create order for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to create order", http.StatusInternalServerError, nil)
		return
	}

	payURL, qrImage, err := s.qr.GeneratePaymentQR(r.Context(), orderID, amount, method)
	if err != nil {
		log.Printf("[ACCOUNT] Failed to render QR for order %s: %v", orderID, err)
		SendErrorResponse(w, "Failed to create order", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"order_id":       orderID,
		"amount":         amount,
		"payment_method": method,
		"payment_url":    payURL,
		"qr_code":        qrImage,
		"status":         models.TransactionTypePending,
	})
}

// OrderStatus polls a topup order, converting it to a credit when the
// gateway has confirmed payment.
// @Summary Check a topup order
// @Tags account
// @Produce json
// @Param order_id path string true "Order id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /account/order-status/{order_id} [get]
func (s *AccountService) OrderStatus(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	orderID := chi.URLParam(r, "order_id")
	var txID int
	var amount float64
	var txType string
	err := s.db.QueryRow(`
		SELECT id, amount, type FROM transactions
		WHERE reference_id = $1 AND user_id = $2 AND type IN ($3, $4)`,
		orderID, identity.UserID, models.TransactionTypePending, models.TransactionTypeTopup).
		Scan(&txID, &amount, &txType)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[ACCOUNT] Order lookup failed for %s: %v", orderID, err)
		SendErrorResponse(w, "Failed to check order", http.StatusInternalServerError, nil)
		return
	}

	if txType == models.TransactionTypeTopup {
		SendJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": "paid", "amount": amount})
		return
	}

	if !s.gatewayConfirmed(r) {
		SendJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": models.TransactionTypePending, "amount": amount})
		return
	}

	// Confirmation: the ledger converts the pending entry and credits the
	// locked balance in one transaction so a double poll cannot double-credit.
	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to confirm order", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	newBalance, err := s.ledger.ConfirmPendingTx(tx, txID, identity.UserID, amount)
	if errors.Is(err, ErrAlreadyConfirmed) {
		SendJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": "paid", "amount": amount})
		return
	}
	if err != nil {
		log.Printf("[ACCOUNT] Failed to confirm order %s: %v", orderID, err)
		SendErrorResponse(w, "Failed to confirm order", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to confirm order", http.StatusInternalServerError, nil)
		return
	}

	s.qr.ClearPayment(r.Context(), orderID)
	log.Printf("[ACCOUNT] Order %s confirmed for user %d, +%.2f", orderID, identity.UserID, amount)

	SendJSON(w, http.StatusOK, map[string]any{
		"order_id": orderID,
		"status":   "paid",
		"amount":   amount,
		"balance":  newBalance,
	})
}

// gatewayConfirmed simulates the payment gateway callback. The order is
// considered paid when the client passes confirm=1, standing in for a signed
// gateway notification.
func (s *AccountService) gatewayConfirmed(r *http.Request) bool {
	return ParseParams(r).Get("confirm") == "1"
}

func parsePayment(w http.ResponseWriter, p *Params) (float64, string, bool) {
	amount := p.GetFloat("amount", 0)
	if amount <= 0 || amount > 100000 {
		SendErrorResponse(w, "amount must be between 0 and 100000", http.StatusBadRequest, nil)
		return 0, "", false
	}

	method := p.Get("payment_method")
	if method == "" {
		method = "alipay"
	}
	if !supportedPaymentMethods[method] {
		SendErrorResponse(w, "Unsupported payment method", http.StatusBadRequest, nil)
		return 0, "", false
	}
	return amount, method, true
}

func newOrderID() string {
	return fmt.Sprintf("order_%s_%d", uuid.New().String()[:8], time.Now().Unix())
}
