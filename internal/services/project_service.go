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

// ProjectService serves the project catalog: browsing, search, favorites and
// exclusive project membership.
type ProjectService struct {
	db *sql.DB
}

func NewProjectService(db *sql.DB) *ProjectService {
	return &ProjectService{db: db}
}

const projectColumns = `id, project_id, exclusive_id, name, code, description, price, success_rate, is_exclusive, available, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.ProjectID, &p.ExclusiveID, &p.Name, &p.Code, &p.Description,
		&p.Price, &p.SuccessRate, &p.IsExclusive, &p.Available, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *ProjectService) queryProjects(query string, args ...any) ([]models.Project, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// List returns available projects.
// @Summary List projects
// @Tags projects
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 10)"
// @Success 200 {object} map[string]interface{}
// @Router /projects [get]
func (s *ProjectService) List(w http.ResponseWriter, r *http.Request) {
	p := ParseParams(r)
	page, perPage := p.Pagination()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM projects WHERE available = TRUE`).Scan(&total); err != nil {
		log.Printf("[PROJECT] Failed to count projects: %v", err)
		SendErrorResponse(w, "Failed to list projects", http.StatusInternalServerError, nil)
		return
	}

	projects, err := s.queryProjects(`
		SELECT `+projectColumns+` FROM projects
		WHERE available = TRUE
		ORDER BY project_id
		LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("[PROJECT] Failed to list projects: %v", err)
		SendErrorResponse(w, "Failed to list projects", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"items":    projects,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    PageCount(total, perPage),
	})
}

// Search finds projects by name or description.
// @Summary Search projects
// @Tags projects
// @Produce json
// @Param keyword query string true "Search keyword"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /projects/search [get]
func (s *ProjectService) Search(w http.ResponseWriter, r *http.Request) {
	keyword := ParseParams(r).Get("keyword")
	if keyword == "" {
		SendErrorResponse(w, "keyword is required", http.StatusBadRequest, nil)
		return
	}

	projects, err := s.queryProjects(`
		SELECT `+projectColumns+` FROM projects
		WHERE available = TRUE AND (name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY project_id`, keyword)
	if err != nil {
		log.Printf("[PROJECT] Search failed for %q: %v", keyword, err)
		SendErrorResponse(w, "Search failed", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{"items": projects, "total": len(projects)})
}

// Detail returns one project with the caller's usage counts.
// @Summary Project detail
// @Tags projects
// @Produce json
// @Param id path string true "Project id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /projects/{id} [get]
func (s *ProjectService) Detail(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	projectID := chi.URLParam(r, "id")
	project, err := scanProject(s.db.QueryRow(`
		SELECT `+projectColumns+` FROM projects WHERE project_id = $1 OR code = $1`, projectID))
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Project not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[PROJECT] Failed to load project %s: %v", projectID, err)
		SendErrorResponse(w, "Failed to load project", http.StatusInternalServerError, nil)
		return
	}

	var rented, succeeded int
	err = s.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE sms_code <> '')
		FROM number_requests WHERE user_id = $1 AND project_id = $2`,
		identity.UserID, project.ID).Scan(&rented, &succeeded)
	if err != nil {
		log.Printf("[PROJECT] Failed to load usage for project %s: %v", projectID, err)
		SendErrorResponse(w, "Failed to load project", http.StatusInternalServerError, nil)
		return
	}

	var favorite bool
	if err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM user_favorites WHERE user_id = $1 AND project_id = $2)`,
		identity.UserID, project.ID).Scan(&favorite); err != nil {
		log.Printf("[PROJECT] Favorite check failed for project %s: %v", projectID, err)
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"project":     project,
		"my_rented":   rented,
		"my_received": succeeded,
		"is_favorite": favorite,
	})
}

func (s *ProjectService) lookupProject(w http.ResponseWriter, key string) (*models.Project, bool) {
	project, err := scanProject(s.db.QueryRow(`
		SELECT `+projectColumns+` FROM projects
		WHERE project_id = $1 OR code = $1 OR exclusive_id = $1`, key))
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Project not found", http.StatusNotFound, nil)
		return nil, false
	}
	if err != nil {
		log.Printf("[PROJECT] Failed to load project %s: %v", key, err)
		SendErrorResponse(w, "Failed to load project", http.StatusInternalServerError, nil)
		return nil, false
	}
	return &project, true
}

// ToggleFavorite bookmarks a project, or removes the bookmark.
// @Summary Toggle a project favorite
// @Tags projects
// @Produce json
// @Param id path string true "Project id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /projects/favorite/{id} [post]
func (s *ProjectService) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	project, ok := s.lookupProject(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := s.db.Exec(`DELETE FROM user_favorites WHERE user_id = $1 AND project_id = $2`,
		identity.UserID, project.ID)
	if err != nil {
		log.Printf("[PROJECT] Favorite toggle failed for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to toggle favorite", http.StatusInternalServerError, nil)
		return
	}

	if deleted, _ := result.RowsAffected(); deleted > 0 {
		SendJSON(w, http.StatusOK, map[string]any{"message": "Favorite removed", "is_favorite": false})
		return
	}

	if _, err := s.db.Exec(`
		INSERT INTO user_favorites (user_id, project_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, project_id) DO NOTHING`,
		identity.UserID, project.ID, time.Now()); err != nil {
		log.Printf("[PROJECT] Favorite insert failed for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to toggle favorite", http.StatusInternalServerError, nil)
		return
	}
	SendJSON(w, http.StatusOK, map[string]any{"message": "Favorite added", "is_favorite": true})
}

// Favorites lists the caller's bookmarked projects.
// @Summary List favorites
// @Tags projects
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /projects/favorites [get]
func (s *ProjectService) Favorites(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	projects, err := s.queryProjects(`
		SELECT p.id, p.project_id, p.exclusive_id, p.name, p.code, p.description, p.price, p.success_rate, p.is_exclusive, p.available, p.created_at, p.updated_at
		FROM projects p
		JOIN user_favorites f ON f.project_id = p.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`, identity.UserID)
	if err != nil {
		log.Printf("[PROJECT] Failed to list favorites for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to list favorites", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{"items": projects, "total": len(projects)})
}

// JoinExclusive enrolls the caller in an exclusive project. The id may be the
// public project id or the project's exclusive id.
// @Summary Join an exclusive project
// @Tags projects
// @Produce json
// @Param id path string true "Project id or exclusive id"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /projects/exclusive/{id} [post]
func (s *ProjectService) JoinExclusive(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	project, ok := s.lookupProject(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !project.IsExclusive {
		SendErrorResponse(w, "Project is not exclusive", http.StatusBadRequest, nil)
		return
	}

	if _, err := s.db.Exec(`
		INSERT INTO user_exclusive_projects (user_id, project_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, project_id) DO NOTHING`,
		identity.UserID, project.ID, time.Now()); err != nil {
		log.Printf("[PROJECT] Exclusive join failed for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to join project", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Joined exclusive project"})
}

// CancelExclusive leaves an exclusive project.
// @Summary Leave an exclusive project
// @Tags projects
// @Produce json
// @Param id path string true "Project id or exclusive id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /projects/exclusive/{id}/cancel [post]
func (s *ProjectService) CancelExclusive(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	project, ok := s.lookupProject(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if _, err := s.db.Exec(`DELETE FROM user_exclusive_projects WHERE user_id = $1 AND project_id = $2`,
		identity.UserID, project.ID); err != nil {
		log.Printf("[PROJECT] Exclusive cancel failed for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to leave project", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Left exclusive project"})
}

// MyExclusive lists the exclusive projects the caller joined.
// @Summary List joined exclusive projects
// @Tags projects
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /projects/exclusive [get]
func (s *ProjectService) MyExclusive(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	projects, err := s.queryProjects(`
		SELECT p.id, p.project_id, p.exclusive_id, p.name, p.code, p.description, p.price, p.success_rate, p.is_exclusive, p.available, p.created_at, p.updated_at
		FROM projects p
		JOIN user_exclusive_projects e ON e.project_id = p.id
		WHERE e.user_id = $1
		ORDER BY e.created_at DESC`, identity.UserID)
	if err != nil {
		log.Printf("[PROJECT] Failed to list exclusive projects for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to list projects", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{"items": projects, "total": len(projects)})
}
