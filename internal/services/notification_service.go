package services

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/models"
)

// NotificationService delivers platform announcements. A notification is
// either targeted (user_id set) or a broadcast (user_id null); broadcasts are
// visible to everyone.
type NotificationService struct {
	db *sql.DB
}

func NewNotificationService(db *sql.DB) *NotificationService {
	return &NotificationService{db: db}
}

// List returns the caller's notifications plus broadcasts.
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 10)"
// @Success 200 {object} map[string]interface{}
// @Router /notifications [get]
func (s *NotificationService) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	p := ParseParams(r)
	page, perPage := p.Pagination()

	var total, unread int
	if err := s.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications WHERE user_id = $1 OR user_id IS NULL`,
		identity.UserID).Scan(&total, &unread); err != nil {
		log.Printf("[NOTIFY] Failed to count notifications for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to list notifications", http.StatusInternalServerError, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, title, content, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1 OR user_id IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, identity.UserID, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("[NOTIFY] Failed to list notifications for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to list notifications", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			log.Printf("[NOTIFY] Scan failed: %v", err)
			SendErrorResponse(w, "Failed to list notifications", http.StatusInternalServerError, nil)
			return
		}
		notifications = append(notifications, n)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"items":    notifications,
		"total":    total,
		"unread":   unread,
		"page":     page,
		"per_page": perPage,
		"pages":    PageCount(total, perPage),
	})
}

// MarkRead marks one notification as read.
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Param id path int true "Notification id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /notifications/read/{id} [post]
func (s *NotificationService) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	result, err := s.db.Exec(`
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)`,
		chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		log.Printf("[NOTIFY] Failed to mark read for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to update notification", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Notification not found", http.StatusNotFound, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Notification marked read"})
}

// MarkAllRead marks every visible notification as read.
// @Summary Mark all notifications read
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /notifications/read-all [post]
func (s *NotificationService) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	result, err := s.db.Exec(`
		UPDATE notifications SET is_read = TRUE
		WHERE (user_id = $1 OR user_id IS NULL) AND NOT is_read`, identity.UserID)
	if err != nil {
		log.Printf("[NOTIFY] Failed to mark all read for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to update notifications", http.StatusInternalServerError, nil)
		return
	}

	updated, _ := result.RowsAffected()
	SendJSON(w, http.StatusOK, map[string]any{"message": "All notifications marked read", "updated": updated})
}

// Create inserts a targeted or broadcast notification. Admin only.
func (s *NotificationService) Create(userID *int, title, content, notificationType string) (*models.Notification, error) {
	n := models.Notification{
		UserID:  userID,
		Title:   title,
		Content: content,
		Type:    notificationType,
	}
	err := s.db.QueryRow(`
		INSERT INTO notifications (user_id, title, content, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id, created_at`,
		userID, title, content, notificationType, time.Now()).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
