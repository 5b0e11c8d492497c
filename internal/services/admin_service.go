package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/smsrent/backend/internal/database"
	"github.com/smsrent/backend/internal/models"
	"github.com/smsrent/backend/internal/provider"
)

// AdminService is the operator surface: user management, project catalog
// maintenance, number oversight and announcements. Every route is behind the
// admin gate; balance changes still go through the ledger.
type AdminService struct {
	db            *sql.DB
	ledger        *LedgerService
	notifications *NotificationService
	provider      provider.Client
	validator     *validator.Validate
}

func NewAdminService(db *sql.DB, ledger *LedgerService, notifications *NotificationService, providerClient provider.Client) *AdminService {
	return &AdminService{
		db:            db,
		ledger:        ledger,
		notifications: notifications,
		provider:      providerClient,
		validator:     validator.New(),
	}
}

// ListUsers returns all accounts.
// @Summary List users
// @Tags admin
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 10)"
// @Success 200 {object} map[string]interface{}
// @Router /admin/users [get]
func (s *AdminService) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := ParseParams(r)
	page, perPage := p.Pagination()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		log.Printf("[ADMIN] Failed to count users: %v", err)
		SendErrorResponse(w, "Failed to list users", http.StatusInternalServerError, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, username, email, balance, is_admin, is_active, created_at, updated_at
		FROM users ORDER BY id LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("[ADMIN] Failed to list users: %v", err)
		SendErrorResponse(w, "Failed to list users", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Balance, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to list users", http.StatusInternalServerError, nil)
			return
		}
		users = append(users, u)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"items":    users,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    PageCount(total, perPage),
	})
}

// GetUser returns one account.
// @Summary Get a user
// @Tags admin
// @Produce json
// @Param id path int true "User id"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [get]
func (s *AdminService) GetUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	err := s.db.QueryRow(`
		SELECT id, username, email, balance, is_admin, is_active, created_at, updated_at
		FROM users WHERE id = $1`, chi.URLParam(r, "id")).
		Scan(&u.ID, &u.Username, &u.Email, &u.Balance, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[ADMIN] Failed to load user: %v", err)
		SendErrorResponse(w, "Failed to load user", http.StatusInternalServerError, nil)
		return
	}
	SendJSON(w, http.StatusOK, u)
}

// AdminUserCreate is the user creation payload.
type AdminUserCreate struct {
	Username string  `json:"username" validate:"required,min=3,max=20"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=20"`
	IsAdmin  bool    `json:"is_admin"`
	Balance  float64 `json:"balance" validate:"gte=0"`
}

// CreateUser adds an account. An initial balance is granted through the
// ledger so the transaction history stays complete.
// @Summary Create a user
// @Tags admin
// @Accept json
// @Produce json
// @Param request body AdminUserCreate true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users [post]
func (s *AdminService) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req AdminUserCreate
	if err := decodeBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[ADMIN] Password hashing failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    strings.ToLower(req.Email),
		IsAdmin:  req.IsAdmin,
		IsActive: true,
	}
	err = s.db.QueryRow(`
		INSERT INTO users (username, email, password_hash, balance, is_admin, is_active)
		VALUES ($1, $2, $3, 0, $4, TRUE)
		RETURNING id, balance, created_at, updated_at`,
		user.Username, user.Email, hashed, user.IsAdmin).
		Scan(&user.ID, &user.Balance, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		log.Printf("[ADMIN] User creation failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "Username or email already exists", http.StatusConflict, nil)
		return
	}

	if req.Balance > 0 {
		newBalance, err := s.ledger.Credit(user.ID, req.Balance, models.TransactionTypeTopup, "Initial balance", "admin")
		if err != nil {
			log.Printf("[ADMIN] Initial balance credit failed for user %d: %v", user.ID, err)
			SendErrorResponse(w, "Failed to credit initial balance", http.StatusInternalServerError, nil)
			return
		}
		user.Balance = newBalance
	}

	SendJSON(w, http.StatusCreated, user)
}

// AdminUserUpdate is the user update payload.
type AdminUserUpdate struct {
	Email         *string  `json:"email" validate:"omitempty,email"`
	Password      *string  `json:"password" validate:"omitempty,min=6"`
	IsActive      *bool    `json:"is_active"`
	IsAdmin       *bool    `json:"is_admin"`
	BalanceChange *float64 `json:"balance_change"` // signed; applied through the ledger
	Reason        string   `json:"reason"`
}

// UpdateUser edits an account. A balance_change is applied as a ledger
// credit or debit so the transaction history stays complete.
// @Summary Update a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User id"
// @Param request body AdminUserUpdate true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [put]
func (s *AdminService) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var userID int
	if err := s.db.QueryRow(`SELECT id FROM users WHERE id = $1`, chi.URLParam(r, "id")).Scan(&userID); err != nil {
		SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		return
	}

	var req AdminUserUpdate
	if err := decodeBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if req.Email != nil {
		if _, err := s.db.Exec(`UPDATE users SET email = $1, updated_at = $2 WHERE id = $3`,
			*req.Email, time.Now(), userID); err != nil {
			SendErrorResponse(w, "Email already in use", http.StatusConflict, nil)
			return
		}
	}
	if req.Password != nil {
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			SendErrorResponse(w, "Failed to update password", http.StatusInternalServerError, nil)
			return
		}
		if _, err := s.db.Exec(`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
			hashed, time.Now(), userID); err != nil {
			SendErrorResponse(w, "Failed to update password", http.StatusInternalServerError, nil)
			return
		}
	}
	if req.IsActive != nil {
		if _, err := s.db.Exec(`UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`,
			*req.IsActive, time.Now(), userID); err != nil {
			SendErrorResponse(w, "Failed to update user", http.StatusInternalServerError, nil)
			return
		}
	}
	if req.IsAdmin != nil {
		if _, err := s.db.Exec(`UPDATE users SET is_admin = $1, updated_at = $2 WHERE id = $3`,
			*req.IsAdmin, time.Now(), userID); err != nil {
			SendErrorResponse(w, "Failed to update user", http.StatusInternalServerError, nil)
			return
		}
	}

	response := map[string]any{"message": "User updated"}
	if req.BalanceChange != nil && *req.BalanceChange != 0 {
		reason := req.Reason
		if reason == "" {
			reason = "Balance adjustment"
		}
		var newBalance float64
		var err error
		if *req.BalanceChange > 0 {
			newBalance, err = s.ledger.Credit(userID, *req.BalanceChange, models.TransactionTypeRefund, reason, "admin")
		} else {
			newBalance, err = s.ledger.Debit(userID, -*req.BalanceChange, reason, "admin")
		}
		if errors.Is(err, ErrInsufficientBalance) {
			SendErrorResponse(w, "Insufficient balance for debit", http.StatusBadRequest, nil)
			return
		}
		if err != nil {
			log.Printf("[ADMIN] Balance adjustment failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to adjust balance", http.StatusInternalServerError, nil)
			return
		}
		response["balance"] = newBalance

		if _, err := s.notifications.Create(&userID, "Balance adjusted",
			fmt.Sprintf("Your balance was adjusted by %+.2f (%s)", *req.BalanceChange, reason),
			models.NotificationTypeBalance); err != nil {
			log.Printf("[ADMIN] Failed to notify user %d: %v", userID, err)
		}
	}

	SendJSON(w, http.StatusOK, response)
}

// AdminProjectRequest is the project create/update payload.
type AdminProjectRequest struct {
	Name        string  `json:"name" validate:"required,min=2"`
	Code        string  `json:"code" validate:"required,min=2"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	SuccessRate float64 `json:"success_rate" validate:"gte=0,lte=1"`
	Available   *bool   `json:"available"`
	IsExclusive bool    `json:"is_exclusive"`
}

// ListProjects returns the whole catalog, disabled entries included, so
// operators can find projects to re-enable.
// @Summary List all projects
// @Tags admin
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 10)"
// @Success 200 {object} map[string]interface{}
// @Router /admin/projects [get]
func (s *AdminService) ListProjects(w http.ResponseWriter, r *http.Request) {
	p := ParseParams(r)
	page, perPage := p.Pagination()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&total); err != nil {
		log.Printf("[ADMIN] Failed to count projects: %v", err)
		SendErrorResponse(w, "Failed to list projects", http.StatusInternalServerError, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT `+projectColumns+` FROM projects
		ORDER BY project_id
		LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("[ADMIN] Failed to list projects: %v", err)
		SendErrorResponse(w, "Failed to list projects", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			SendErrorResponse(w, "Failed to list projects", http.StatusInternalServerError, nil)
			return
		}
		projects = append(projects, project)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"items":    projects,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    PageCount(total, perPage),
	})
}

// CreateProject adds a catalog entry. Exclusive projects get an exclusive id
// derived from their generated 5-digit project id.
// @Summary Create a project
// @Tags admin
// @Accept json
// @Produce json
// @Param request body AdminProjectRequest true "Project"
// @Success 200 {object} models.Project
// @Failure 400 {object} ErrorResponse
// @Router /admin/projects [post]
func (s *AdminService) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req AdminProjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	projectID := database.GenerateProjectID(s.db)

	var exclusiveID *string
	if req.IsExclusive {
		eid := fmt.Sprintf("%s----%s", projectID, database.GenerateExclusiveSuffix())
		exclusiveID = &eid
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	project := models.Project{
		ProjectID:   projectID,
		ExclusiveID: exclusiveID,
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Price:       req.Price,
		SuccessRate: req.SuccessRate,
		Available:   available,
		IsExclusive: req.IsExclusive,
	}
	err := s.db.QueryRow(`
		INSERT INTO projects (project_id, exclusive_id, name, code, description, price, success_rate, available, is_exclusive)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		project.ProjectID, project.ExclusiveID, project.Name, project.Code, project.Description,
		project.Price, project.SuccessRate, project.Available, project.IsExclusive).
		Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		log.Printf("[ADMIN] Failed to create project %s: %v", req.Code, err)
		SendErrorResponse(w, "Project code already exists", http.StatusConflict, nil)
		return
	}

	SendJSON(w, http.StatusOK, project)
}

// UpdateProject edits a catalog entry.
// @Summary Update a project
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Project row id"
// @Param request body AdminProjectRequest true "Project"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /admin/projects/{id} [put]
func (s *AdminService) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req AdminProjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	result, err := s.db.Exec(`
		UPDATE projects SET name = $1, code = $2, description = $3, price = $4, success_rate = $5, available = $6, updated_at = $7
		WHERE id = $8`,
		req.Name, req.Code, req.Description, req.Price, req.SuccessRate, available, time.Now(), chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("[ADMIN] Failed to update project: %v", err)
		SendErrorResponse(w, "Failed to update project", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Project not found", http.StatusNotFound, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Project updated"})
}

// DeleteProject removes a project, or disables it when rentals reference it.
// @Summary Delete a project
// @Tags admin
// @Produce json
// @Param id path int true "Project row id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /admin/projects/{id} [delete]
func (s *AdminService) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	var referenced bool
	if err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM number_requests WHERE project_id = $1)`,
		projectID).Scan(&referenced); err != nil {
		log.Printf("[ADMIN] Failed to check project references: %v", err)
		SendErrorResponse(w, "Failed to delete project", http.StatusInternalServerError, nil)
		return
	}

	if referenced {
		result, err := s.db.Exec(`UPDATE projects SET available = FALSE, updated_at = $1 WHERE id = $2`,
			time.Now(), projectID)
		if err != nil {
			SendErrorResponse(w, "Failed to delete project", http.StatusInternalServerError, nil)
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			SendErrorResponse(w, "Project not found", http.StatusNotFound, nil)
			return
		}
		SendJSON(w, http.StatusOK, map[string]string{"message": "Project has rentals, disabled instead of deleted"})
		return
	}

	result, err := s.db.Exec(`DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		SendErrorResponse(w, "Failed to delete project", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Project not found", http.StatusNotFound, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}

// ListNumbers returns rentals across all users.
// @Summary List all rentals
// @Tags admin
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 10)"
// @Param status query string false "Status filter"
// @Param user_id query int false "User filter"
// @Success 200 {object} map[string]interface{}
// @Router /admin/numbers [get]
func (s *AdminService) ListNumbers(w http.ResponseWriter, r *http.Request) {
	p := ParseParams(r)
	page, perPage := p.Pagination()

	where := `WHERE 1=1`
	args := []any{}
	if status := p.Get("status"); status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND nr.status = $%d`, len(args))
	}
	if userID := p.GetInt("user_id", 0); userID > 0 {
		args = append(args, userID)
		where += fmt.Sprintf(` AND nr.user_id = $%d`, len(args))
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM number_requests nr `+where, args...).Scan(&total); err != nil {
		log.Printf("[ADMIN] Failed to count rentals: %v", err)
		SendErrorResponse(w, "Failed to list numbers", http.StatusInternalServerError, nil)
		return
	}

	query := fmt.Sprintf(`
		SELECT nr.id, nr.request_id, nr.user_id, nr.project_id, p.name, nr.number, nr.status, nr.sms_code, nr.provider_request_id, nr.created_at, nr.updated_at, nr.released_at
		FROM number_requests nr
		JOIN projects p ON p.id = nr.project_id
		%s
		ORDER BY nr.created_at DESC
		LIMIT %d OFFSET %d`, where, perPage, (page-1)*perPage)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Printf("[ADMIN] Failed to list rentals: %v", err)
		SendErrorResponse(w, "Failed to list numbers", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	requests := []models.NumberRequest{}
	for rows.Next() {
		var nr models.NumberRequest
		if err := rows.Scan(&nr.ID, &nr.RequestID, &nr.UserID, &nr.ProjectID, &nr.ProjectName, &nr.Number,
			&nr.Status, &nr.SMSCode, &nr.ProviderRequestID, &nr.CreatedAt, &nr.UpdatedAt, &nr.ReleasedAt); err != nil {
			SendErrorResponse(w, "Failed to list numbers", http.StatusInternalServerError, nil)
			return
		}
		requests = append(requests, nr)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"items":    requests,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    PageCount(total, perPage),
	})
}

// ForceRelease releases any rental regardless of owner.
// @Summary Force-release a rental
// @Tags admin
// @Produce json
// @Param request_id path string true "Rental request id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /admin/numbers/{request_id}/release [post]
func (s *AdminService) ForceRelease(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")

	var id int
	var status, providerRequestID string
	err := s.db.QueryRow(`SELECT id, status, provider_request_id FROM number_requests WHERE request_id = $1`,
		requestID).Scan(&id, &status, &providerRequestID)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Request not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		SendErrorResponse(w, "Failed to release number", http.StatusInternalServerError, nil)
		return
	}

	if status == models.NumberStatusReleased {
		SendJSON(w, http.StatusOK, map[string]string{"message": "Number already released"})
		return
	}

	if err := s.provider.ReleaseNumber(r.Context(), providerRequestID); err != nil {
		log.Printf("[ADMIN] Provider release failed for %s: %v", requestID, err)
	}

	if _, err := s.db.Exec(`UPDATE number_requests SET status = $1, released_at = $2, updated_at = $2 WHERE id = $3`,
		models.NumberStatusReleased, time.Now(), id); err != nil {
		SendErrorResponse(w, "Failed to release number", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Number released"})
}

// AdminNotificationRequest is the announcement payload.
type AdminNotificationRequest struct {
	UserID  *int   `json:"user_id"` // nil broadcasts to all users
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Type    string `json:"type"`
}

// CreateNotification posts a targeted or broadcast announcement.
// @Summary Create a notification
// @Tags admin
// @Accept json
// @Produce json
// @Param request body AdminNotificationRequest true "Notification"
// @Success 200 {object} models.Notification
// @Failure 400 {object} ErrorResponse
// @Router /admin/notifications [post]
func (s *AdminService) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req AdminNotificationRequest
	if err := decodeBody(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if req.Type == "" {
		req.Type = models.NotificationTypeSystem
	}

	notification, err := s.notifications.Create(req.UserID, req.Title, req.Content, req.Type)
	if err != nil {
		log.Printf("[ADMIN] Failed to create notification: %v", err)
		SendErrorResponse(w, "Failed to create notification", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, notification)
}

// DeleteNotification removes an announcement.
// @Summary Delete a notification
// @Tags admin
// @Produce json
// @Param id path int true "Notification id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /admin/notifications/{id} [delete]
func (s *AdminService) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	result, err := s.db.Exec(`DELETE FROM notifications WHERE id = $1`, chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Failed to delete notification", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Notification not found", http.StatusNotFound, nil)
		return
	}
	SendJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// PlatformStatistics returns platform-wide aggregates.
// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/statistics [get]
func (s *AdminService) PlatformStatistics(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}

	var totalUsers, activeUsers int
	if err := s.db.QueryRow(`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM users`).
		Scan(&totalUsers, &activeUsers); err != nil {
		log.Printf("[ADMIN] Failed to count users: %v", err)
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}
	stats["total_users"] = totalUsers
	stats["active_users"] = activeUsers

	var revenue float64
	if err := s.db.QueryRow(`
		SELECT COALESCE(SUM(-amount), 0) FROM transactions WHERE type = $1`,
		models.TransactionTypeConsume).Scan(&revenue); err != nil {
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}
	stats["revenue"] = revenue

	byStatus := map[string]int{}
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM number_requests GROUP BY status`)
	if err != nil {
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
			return
		}
		byStatus[status] = count
	}
	stats["numbers_by_status"] = byStatus

	top := []map[string]any{}
	topRows, err := s.db.Query(`
		SELECT p.name, COUNT(*) AS rentals
		FROM number_requests nr
		JOIN projects p ON p.id = nr.project_id
		GROUP BY p.name
		ORDER BY rentals DESC
		LIMIT 10`)
	if err != nil {
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}
	defer topRows.Close()
	for topRows.Next() {
		var name string
		var rentals int
		if err := topRows.Scan(&name, &rentals); err != nil {
			SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
			return
		}
		top = append(top, map[string]any{"name": name, "rentals": rentals})
	}
	stats["top_projects"] = top

	SendJSON(w, http.StatusOK, stats)
}
