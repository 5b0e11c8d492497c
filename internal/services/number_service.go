package services

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/models"
	"github.com/smsrent/backend/internal/provider"
)

// NumberService drives the rental lifecycle: acquire a number against a
// project, poll for the SMS code, then release or blacklist. Billing goes
// through the ledger inside the same transaction that persists the rental,
// and the upstream provider is always called before anything is written.
type NumberService struct {
	db       *sql.DB
	ledger   *LedgerService
	provider provider.Client
}

func NewNumberService(db *sql.DB, ledger *LedgerService, providerClient provider.Client) *NumberService {
	return &NumberService{db: db, ledger: ledger, provider: providerClient}
}

func newRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func (s *NumberService) projectByCode(code string) (*models.Project, error) {
	var p models.Project
	err := s.db.QueryRow(`
		SELECT id, project_id, exclusive_id, name, code, description, price, success_rate, is_exclusive, available, created_at, updated_at
		FROM projects WHERE project_id = $1 OR code = $1`, code).
		Scan(&p.ID, &p.ProjectID, &p.ExclusiveID, &p.Name, &p.Code, &p.Description,
			&p.Price, &p.SuccessRate, &p.IsExclusive, &p.Available, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *NumberService) hasJoinedExclusive(userID, projectID int) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM user_exclusive_projects WHERE user_id = $1 AND project_id = $2)`,
		userID, projectID).Scan(&exists)
	return exists, err
}

func (s *NumberService) numberBlacklisted(number string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM blacklisted_numbers WHERE number = $1)`, number).Scan(&exists)
	return exists, err
}

func (s *NumberService) numberInUse(number string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM number_requests WHERE number = $1 AND status IN ($2, $3))`,
		number, models.NumberStatusAvailable, models.NumberStatusUsed).Scan(&exists)
	return exists, err
}

func (s *NumberService) currentBalance(userID int) (float64, error) {
	var balance float64
	err := s.db.QueryRow(`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	return balance, err
}

// ownedRequest loads a rental scoped to its owner. sql.ErrNoRows covers both
// unknown ids and other users' rentals.
func (s *NumberService) ownedRequest(userID int, requestID string) (*models.NumberRequest, error) {
	var nr models.NumberRequest
	err := s.db.QueryRow(`
		SELECT nr.id, nr.request_id, nr.user_id, nr.project_id, p.name, nr.number, nr.status, nr.sms_code, nr.provider_request_id, nr.created_at, nr.updated_at, nr.released_at
		FROM number_requests nr
		JOIN projects p ON p.id = nr.project_id
		WHERE nr.request_id = $1 AND nr.user_id = $2`, requestID, userID).
		Scan(&nr.ID, &nr.RequestID, &nr.UserID, &nr.ProjectID, &nr.ProjectName, &nr.Number,
			&nr.Status, &nr.SMSCode, &nr.ProviderRequestID, &nr.CreatedAt, &nr.UpdatedAt, &nr.ReleasedAt)
	if err != nil {
		return nil, err
	}
	return &nr, nil
}

// validateAcquisition runs every fail-fast check before the provider is
// contacted. Returns the project on success.
func (s *NumberService) validateAcquisition(w http.ResponseWriter, identity *middleware.Identity, projectCode string, totalPrice func(*models.Project) float64) (*models.Project, bool) {
	if projectCode == "" {
		SendErrorResponse(w, "project_code is required", http.StatusBadRequest, nil)
		return nil, false
	}

	project, err := s.projectByCode(projectCode)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Project not found", http.StatusNotFound, nil)
		return nil, false
	}
	if err != nil {
		log.Printf("[NUMBER] Failed to load project %s: %v", projectCode, err)
		SendErrorResponse(w, "Failed to load project", http.StatusInternalServerError, nil)
		return nil, false
	}
	if !project.Available {
		SendErrorResponse(w, "Project is not available", http.StatusBadRequest, nil)
		return nil, false
	}

	if project.IsExclusive {
		joined, err := s.hasJoinedExclusive(identity.UserID, project.ID)
		if err != nil {
			log.Printf("[NUMBER] Exclusive membership check failed for user %d: %v", identity.UserID, err)
			SendErrorResponse(w, "Failed to verify project access", http.StatusInternalServerError, nil)
			return nil, false
		}
		if !joined {
			SendErrorResponse(w, "You have not joined this exclusive project", http.StatusForbidden, nil)
			return nil, false
		}
	}

	balance, err := s.currentBalance(identity.UserID)
	if err != nil {
		log.Printf("[NUMBER] Balance check failed for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to check balance", http.StatusInternalServerError, nil)
		return nil, false
	}
	if balance < totalPrice(project) {
		SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, nil)
		return nil, false
	}

	return project, true
}

// persistAcquisitions debits the batch price as one ledger entry and inserts
// the rental rows, all in a single transaction. The reference id joins the
// new request ids so the ledger entry reconciles against the rentals.
func (s *NumberService) persistAcquisitions(userID int, project *models.Project, infos []*provider.NumberInfo) ([]models.NumberRequest, float64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	requests := make([]models.NumberRequest, 0, len(infos))
	requestIDs := make([]string, 0, len(infos))
	now := time.Now()
	for _, info := range infos {
		nr := models.NumberRequest{
			RequestID:         newRequestID(),
			UserID:            userID,
			ProjectID:         project.ID,
			ProjectName:       project.Name,
			Number:            info.Number,
			Status:            models.NumberStatusAvailable,
			ProviderRequestID: info.RequestID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		requests = append(requests, nr)
		requestIDs = append(requestIDs, nr.RequestID)
	}

	description := fmt.Sprintf("Rent number for %s", project.Name)
	if len(infos) > 1 {
		description = fmt.Sprintf("Rent %d numbers for %s", len(infos), project.Name)
	}
	newBalance, err := s.ledger.DebitTx(tx, userID, project.Price*float64(len(infos)), description, strings.Join(requestIDs, ","))
	if err != nil {
		return nil, 0, err
	}

	for i := range requests {
		err := tx.QueryRow(`
			INSERT INTO number_requests (request_id, user_id, project_id, number, status, sms_code, provider_request_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, '', $6, $7, $7)
			RETURNING id`,
			requests[i].RequestID, userID, project.ID, requests[i].Number,
			models.NumberStatusAvailable, requests[i].ProviderRequestID, now).
			Scan(&requests[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return requests, newBalance, nil
}

// releaseUpstream returns numbers to the provider after a failed batch.
// Best effort, failures are only logged.
func (s *NumberService) releaseUpstream(r *http.Request, infos []*provider.NumberInfo) {
	for _, info := range infos {
		if err := s.provider.ReleaseNumber(r.Context(), info.RequestID); err != nil {
			log.Printf("[NUMBER] Failed to return %s to provider: %v", info.Number, err)
		}
	}
}

func (s *NumberService) acquire(w http.ResponseWriter, r *http.Request, specific bool) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	projectCode := p.Get("project_code")
	number := p.Get("number")

	project, ok := s.validateAcquisition(w, identity, projectCode, func(pr *models.Project) float64 { return pr.Price })
	if !ok {
		return
	}

	var info *provider.NumberInfo
	var err error
	if specific {
		if number == "" {
			SendErrorResponse(w, "number is required", http.StatusBadRequest, nil)
			return
		}
		blacklisted, berr := s.numberBlacklisted(number)
		if berr != nil {
			log.Printf("[NUMBER] Blacklist check failed for %s: %v", number, berr)
			SendErrorResponse(w, "Failed to check number", http.StatusInternalServerError, nil)
			return
		}
		if blacklisted {
			SendErrorResponse(w, "Number is blacklisted", http.StatusBadRequest, nil)
			return
		}
		inUse, uerr := s.numberInUse(number)
		if uerr != nil {
			log.Printf("[NUMBER] In-use check failed for %s: %v", number, uerr)
			SendErrorResponse(w, "Failed to check number", http.StatusInternalServerError, nil)
			return
		}
		if inUse {
			SendErrorResponse(w, "Number is already in use", http.StatusBadRequest, nil)
			return
		}
		info, err = s.provider.GetSpecificNumber(r.Context(), project.Code, number)
	} else {
		info, err = s.provider.GetNumber(r.Context(), project.Code)
	}
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	requests, newBalance, err := s.persistAcquisitions(identity.UserID, project, []*provider.NumberInfo{info})
	if err != nil {
		s.releaseUpstream(r, []*provider.NumberInfo{info})
		if errors.Is(err, ErrInsufficientBalance) {
			SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, nil)
			return
		}
		log.Printf("[NUMBER] Failed to persist rental for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to rent number", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"phone_number": requests[0],
		"balance":      newBalance,
	})
}

// GetNumber rents a phone number for a project.
// @Summary Rent a number
// @Description Allocates a phone number for the given project and debits the project price
// @Tags numbers
// @Accept json
// @Produce json
// @Param project_code query string true "Project id or code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /numbers/get [post]
func (s *NumberService) GetNumber(w http.ResponseWriter, r *http.Request) {
	s.acquire(w, r, false)
}

// GetSpecificNumber rents a particular phone number for a project.
// @Summary Rent a specific number
// @Tags numbers
// @Accept json
// @Produce json
// @Param project_code query string true "Project id or code"
// @Param number query string true "Phone number to rent"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /numbers/get-specific [post]
func (s *NumberService) GetSpecificNumber(w http.ResponseWriter, r *http.Request) {
	s.acquire(w, r, true)
}

// BatchGetNumbers rents up to ten numbers in one call. All or nothing: if any
// allocation fails, the ones already obtained are returned upstream and
// nothing is charged.
// @Summary Rent numbers in batch
// @Tags numbers
// @Accept json
// @Produce json
// @Param project_code query string true "Project id or code"
// @Param count query int true "How many numbers (1-10)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /numbers/batch-get [post]
func (s *NumberService) BatchGetNumbers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	count := p.GetInt("count", 0)
	if count < 1 || count > 10 {
		SendErrorResponse(w, "count must be between 1 and 10", http.StatusBadRequest, nil)
		return
	}

	project, ok := s.validateAcquisition(w, identity, p.Get("project_code"), func(pr *models.Project) float64 {
		return pr.Price * float64(count)
	})
	if !ok {
		return
	}

	infos := make([]*provider.NumberInfo, 0, count)
	for i := 0; i < count; i++ {
		info, err := s.provider.GetNumber(r.Context(), project.Code)
		if err != nil {
			s.releaseUpstream(r, infos)
			SendErrorResponse(w, fmt.Sprintf("Failed at number %d of %d: %v", i+1, count, err), http.StatusBadRequest, nil)
			return
		}
		infos = append(infos, info)
	}

	requests, newBalance, err := s.persistAcquisitions(identity.UserID, project, infos)
	if err != nil {
		s.releaseUpstream(r, infos)
		if errors.Is(err, ErrInsufficientBalance) {
			SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, nil)
			return
		}
		log.Printf("[NUMBER] Failed to persist batch for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to rent numbers", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"phone_numbers": requests,
		"count":         len(requests),
		"balance":       newBalance,
	})
}

// GetSMSCode polls for the verification code of a rental.
// @Summary Fetch SMS code
// @Description Returns the stored code, or polls the provider. A pending code is a 200 with status waiting.
// @Tags numbers
// @Produce json
// @Param request_id path string true "Rental request id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /numbers/sms/{request_id} [get]
func (s *NumberService) GetSMSCode(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	requestID := chi.URLParam(r, "request_id")
	nr, err := s.ownedRequest(identity.UserID, requestID)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Request not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[NUMBER] Failed to load request %s: %v", requestID, err)
		SendErrorResponse(w, "Failed to load request", http.StatusInternalServerError, nil)
		return
	}

	if nr.SMSCode != "" {
		SendJSON(w, http.StatusOK, map[string]any{
			"request_id":   nr.RequestID,
			"phone_number": nr.Number,
			"code":         nr.SMSCode,
			"status":       nr.Status,
		})
		return
	}

	if nr.Status == models.NumberStatusReleased || nr.Status == models.NumberStatusBlacklisted {
		SendErrorResponse(w, fmt.Sprintf("Request is %s", nr.Status), http.StatusBadRequest, nil)
		return
	}

	code, err := s.provider.GetCode(r.Context(), nr.ProviderRequestID)
	if errors.Is(err, provider.ErrCodePending) {
		SendJSON(w, http.StatusOK, map[string]any{
			"request_id":   nr.RequestID,
			"phone_number": nr.Number,
			"status":       "waiting",
			"message":      "No SMS received yet",
		})
		return
	}
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if _, err := s.db.Exec(`UPDATE number_requests SET sms_code = $1, status = $2, updated_at = $3 WHERE id = $4`,
		code, models.NumberStatusUsed, time.Now(), nr.ID); err != nil {
		log.Printf("[NUMBER] Failed to store code for request %s: %v", requestID, err)
		SendErrorResponse(w, "Failed to store code", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"request_id":   nr.RequestID,
		"phone_number": nr.Number,
		"code":         code,
		"status":       models.NumberStatusUsed,
	})
}

// releaseOwned releases one rental for its owner. Returns the HTTP status
// and message so single and batch release share the same rules.
func (s *NumberService) releaseOwned(r *http.Request, userID int, requestID string) (int, string) {
	nr, err := s.ownedRequest(userID, requestID)
	if err == sql.ErrNoRows {
		return http.StatusNotFound, "Request not found"
	}
	if err != nil {
		log.Printf("[NUMBER] Failed to load request %s: %v", requestID, err)
		return http.StatusInternalServerError, "Failed to load request"
	}

	switch nr.Status {
	case models.NumberStatusReleased:
		return http.StatusOK, "Number already released"
	case models.NumberStatusBlacklisted:
		return http.StatusBadRequest, "Number is blacklisted"
	}

	// Local state is authoritative; an upstream failure does not block the
	// release since the rental was already paid for.
	if err := s.provider.ReleaseNumber(r.Context(), nr.ProviderRequestID); err != nil {
		log.Printf("[NUMBER] Provider release failed for %s: %v", requestID, err)
	}

	if _, err := s.db.Exec(`UPDATE number_requests SET status = $1, released_at = $2, updated_at = $2 WHERE id = $3`,
		models.NumberStatusReleased, time.Now(), nr.ID); err != nil {
		log.Printf("[NUMBER] Failed to release request %s: %v", requestID, err)
		return http.StatusInternalServerError, "Failed to release number"
	}
	return http.StatusOK, "Number released"
}

// ReleaseNumber returns a rented number.
// @Summary Release a number
// @Tags numbers
// @Produce json
// @Param request_id path string true "Rental request id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /numbers/release/{request_id} [post]
func (s *NumberService) ReleaseNumber(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	status, message := s.releaseOwned(r, identity.UserID, chi.URLParam(r, "request_id"))
	if status != http.StatusOK {
		SendErrorResponse(w, message, status, nil)
		return
	}
	SendJSON(w, http.StatusOK, map[string]string{"message": message})
}

// BatchReleaseNumbers releases several rentals, reporting per-id outcomes.
// One bad id never fails the whole call.
// @Summary Release numbers in batch
// @Tags numbers
// @Accept json
// @Produce json
// @Param request_ids query string true "Comma-separated rental request ids"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /numbers/batch-release [post]
func (s *NumberService) BatchReleaseNumbers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	raw := ParseParams(r).Get("request_ids")
	if raw == "" {
		SendErrorResponse(w, "request_ids is required", http.StatusBadRequest, nil)
		return
	}

	released, failed := 0, 0
	details := []map[string]any{}
	for _, requestID := range strings.Split(raw, ",") {
		requestID = strings.TrimSpace(requestID)
		if requestID == "" {
			continue
		}
		status, message := s.releaseOwned(r, identity.UserID, requestID)
		success := status == http.StatusOK
		if success {
			released++
		} else {
			failed++
		}
		details = append(details, map[string]any{
			"request_id": requestID,
			"success":    success,
			"message":    message,
		})
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"released": released,
		"failed":   failed,
		"details":  details,
	})
}

// BlacklistNumber marks a phone number unusable and cascades to every rental
// holding it. Idempotent on an already-blacklisted number.
// @Summary Blacklist a number
// @Tags numbers
// @Accept json
// @Produce json
// @Param number query string true "Phone number"
// @Param reason query string false "Reason"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /numbers/blacklist [post]
func (s *NumberService) BlacklistNumber(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	number := p.Get("number")
	reason := p.Get("reason")
	if number == "" {
		SendErrorResponse(w, "number is required", http.StatusBadRequest, nil)
		return
	}

	if !identity.IsAdmin {
		var owns bool
		err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM number_requests WHERE number = $1 AND user_id = $2)`,
			number, identity.UserID).Scan(&owns)
		if err != nil {
			log.Printf("[NUMBER] Ownership check failed for %s: %v", number, err)
			SendErrorResponse(w, "Failed to check number", http.StatusInternalServerError, nil)
			return
		}
		if !owns {
			SendErrorResponse(w, "You have never rented this number", http.StatusForbidden, nil)
			return
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to blacklist number", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO blacklisted_numbers (number, reason, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (number) DO NOTHING`, number, reason, time.Now()); err != nil {
		log.Printf("[NUMBER] Failed to insert blacklist entry for %s: %v", number, err)
		SendErrorResponse(w, "Failed to blacklist number", http.StatusInternalServerError, nil)
		return
	}

	// Cascade: every active rental of this number goes terminal.
	if _, err := tx.Exec(`
		UPDATE number_requests SET status = $1, updated_at = $2
		WHERE number = $3 AND status IN ($4, $5)`,
		models.NumberStatusBlacklisted, time.Now(), number,
		models.NumberStatusAvailable, models.NumberStatusUsed); err != nil {
		log.Printf("[NUMBER] Failed to cascade blacklist for %s: %v", number, err)
		SendErrorResponse(w, "Failed to blacklist number", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to blacklist number", http.StatusInternalServerError, nil)
		return
	}

	if err := s.provider.BlacklistNumber(r.Context(), number, reason); err != nil {
		log.Printf("[NUMBER] Provider blacklist failed for %s: %v", number, err)
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Number blacklisted"})
}

// MyNumbers lists the caller's rentals.
// @Summary List own rentals
// @Tags numbers
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 10)"
// @Param status query string false "Status filter"
// @Success 200 {object} map[string]interface{}
// @Router /numbers/my-numbers [get]
func (s *NumberService) MyNumbers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	page, perPage := p.Pagination()

	requests, total, err := s.listRequests(identity.UserID, p.Get("status"), "", "", page, perPage)
	if err != nil {
		log.Printf("[NUMBER] Failed to list rentals for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to list numbers", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"items":    requests,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    PageCount(total, perPage),
	})
}

func (s *NumberService) listRequests(userID int, status, startDate, endDate string, page, perPage int) ([]models.NumberRequest, int, error) {
	where := `WHERE nr.user_id = $1`
	args := []any{userID}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND nr.status = $%d`, len(args))
	}
	if startDate != "" {
		args = append(args, startDate)
		where += fmt.Sprintf(` AND nr.created_at >= $%d::date`, len(args))
	}
	if endDate != "" {
		args = append(args, endDate)
		where += fmt.Sprintf(` AND nr.created_at < $%d::date + INTERVAL '1 day'`, len(args))
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM number_requests nr `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT nr.id, nr.request_id, nr.user_id, nr.project_id, p.name, nr.number, nr.status, nr.sms_code, nr.provider_request_id, nr.created_at, nr.updated_at, nr.released_at
		FROM number_requests nr
		JOIN projects p ON p.id = nr.project_id
		%s
		ORDER BY nr.created_at DESC`, where)
	if perPage > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, perPage, (page-1)*perPage)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := []models.NumberRequest{}
	for rows.Next() {
		var nr models.NumberRequest
		if err := rows.Scan(&nr.ID, &nr.RequestID, &nr.UserID, &nr.ProjectID, &nr.ProjectName, &nr.Number,
			&nr.Status, &nr.SMSCode, &nr.ProviderRequestID, &nr.CreatedAt, &nr.UpdatedAt, &nr.ReleasedAt); err != nil {
			return nil, 0, err
		}
		requests = append(requests, nr)
	}
	return requests, total, rows.Err()
}

// ExportNumbers downloads the caller's rental history as CSV or JSON.
// @Summary Export rentals
// @Tags numbers
// @Produce json
// @Param format query string false "csv (default) or json"
// @Param status query string false "Status filter"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {string} string "CSV body or JSON array"
// @Router /numbers/export [get]
func (s *NumberService) ExportNumbers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	requests, _, err := s.listRequests(identity.UserID, p.Get("status"), p.Get("start_date"), p.Get("end_date"), 0, 0)
	if err != nil {
		log.Printf("[NUMBER] Export failed for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to export numbers", http.StatusInternalServerError, nil)
		return
	}

	if p.Get("format") == "json" {
		SendJSON(w, http.StatusOK, map[string]any{"items": requests, "total": len(requests)})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="numbers_%s.csv"`, time.Now().Format("20060102")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"request_id", "number", "project", "status", "sms_code", "created_at", "released_at"})
	for _, nr := range requests {
		releasedAt := ""
		if nr.ReleasedAt != nil {
			releasedAt = nr.ReleasedAt.Format(time.RFC3339)
		}
		_ = cw.Write([]string{
			nr.RequestID, nr.Number, nr.ProjectName, nr.Status, nr.SMSCode,
			nr.CreatedAt.Format(time.RFC3339), releasedAt,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("[NUMBER] CSV write failed for user %d: %v", identity.UserID, err)
	}
}

// InboundSMS receives messages pushed by the upstream platform. The rental is
// matched by the provider's request id; the extracted code is stored once.
// @Summary Receive an inbound SMS
// @Tags numbers
// @Accept json
// @Produce json
// @Param request_id query string true "Provider request id"
// @Param sender query string false "Sending number"
// @Param content query string true "Raw SMS text"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /numbers/inbound [post]
func (s *NumberService) InboundSMS(w http.ResponseWriter, r *http.Request) {
	p := ParseParams(r)
	providerRequestID := p.Get("request_id")
	content := p.Get("content")
	if providerRequestID == "" || content == "" {
		SendErrorResponse(w, "request_id and content are required", http.StatusBadRequest, nil)
		return
	}

	var id int
	var status, smsCode string
	err := s.db.QueryRow(`SELECT id, status, sms_code FROM number_requests WHERE provider_request_id = $1`,
		providerRequestID).Scan(&id, &status, &smsCode)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Request not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[NUMBER] Inbound lookup failed for %s: %v", providerRequestID, err)
		SendErrorResponse(w, "Failed to store message", http.StatusInternalServerError, nil)
		return
	}

	if _, err := s.db.Exec(`
		INSERT INTO sms_messages (number_request_id, sender, content, received_at)
		VALUES ($1, $2, $3, $4)`, id, p.Get("sender"), content, time.Now()); err != nil {
		log.Printf("[NUMBER] Failed to store inbound SMS for %s: %v", providerRequestID, err)
		SendErrorResponse(w, "Failed to store message", http.StatusInternalServerError, nil)
		return
	}

	code := ExtractVerificationCode(content)
	if code != "" && smsCode == "" && status == models.NumberStatusAvailable {
		if _, err := s.db.Exec(`UPDATE number_requests SET sms_code = $1, status = $2, updated_at = $3 WHERE id = $4`,
			code, models.NumberStatusUsed, time.Now(), id); err != nil {
			log.Printf("[NUMBER] Failed to store extracted code for %s: %v", providerRequestID, err)
		}
	}

	SendJSON(w, http.StatusOK, map[string]any{"message": "Message stored", "code": code})
}
