package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectService(t *testing.T) (*ProjectService, sqlmock.Sqlmock) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProjectService(db), dbMock
}

func catalogRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "exclusive_id", "name", "code", "description",
		"price", "success_rate", "is_exclusive", "available", "created_at", "updated_at",
	}).
		AddRow(1, "10001", nil, "WeChat Login", "wechat_login", "", 1.0, 0.98, false, true, time.Now(), time.Now()).
		AddRow(2, "10002", nil, "Alipay Login", "alipay_login", "", 1.2, 0.97, false, true, time.Now(), time.Now())
}

func TestProjectService_List(t *testing.T) {
	svc, dbMock := newProjectService(t)

	dbMock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects WHERE available = TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id`).
		WithArgs(10, 0).WillReturnRows(catalogRows())

	w := httptest.NewRecorder()
	svc.List(w, authedRequest(t, http.MethodGet, "/api/projects", testIdentity))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wechat_login")
	assert.Contains(t, w.Body.String(), `"total":2`)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestProjectService_Search(t *testing.T) {
	t.Run("matches by keyword", func(t *testing.T) {
		svc, dbMock := newProjectService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id`).
			WithArgs("WeChat").WillReturnRows(catalogRows())

		w := httptest.NewRecorder()
		svc.Search(w, authedRequest(t, http.MethodGet, "/api/projects/search?keyword=WeChat", testIdentity))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("missing keyword is rejected", func(t *testing.T) {
		svc, _ := newProjectService(t)

		w := httptest.NewRecorder()
		svc.Search(w, authedRequest(t, http.MethodGet, "/api/projects/search", testIdentity))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProjectService_ToggleFavorite(t *testing.T) {
	svc, dbMock := newProjectService(t)

	// First toggle inserts, second deletes.
	dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id`).
		WithArgs("10001").WillReturnRows(catalogRows())
	dbMock.ExpectExec(`DELETE FROM user_favorites`).
		WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	dbMock.ExpectExec(`INSERT INTO user_favorites`).
		WithArgs(7, 1, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))

	dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id`).
		WithArgs("10001").WillReturnRows(catalogRows())
	dbMock.ExpectExec(`DELETE FROM user_favorites`).
		WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 1))

	req := withURLParam(authedRequest(t, http.MethodPost, "/api/projects/favorite/10001", testIdentity), "id", "10001")
	w := httptest.NewRecorder()
	svc.ToggleFavorite(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_favorite":true`)

	req = withURLParam(authedRequest(t, http.MethodPost, "/api/projects/favorite/10001", testIdentity), "id", "10001")
	w = httptest.NewRecorder()
	svc.ToggleFavorite(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_favorite":false`)

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestProjectService_JoinExclusive(t *testing.T) {
	exclusiveID := "10003----kfjqwxyz"

	t.Run("joins by exclusive id", func(t *testing.T) {
		svc, dbMock := newProjectService(t)

		rows := sqlmock.NewRows([]string{
			"id", "project_id", "exclusive_id", "name", "code", "description",
			"price", "success_rate", "is_exclusive", "available", "created_at", "updated_at",
		}).AddRow(3, "10003", exclusiveID, "Douyin Login", "douyin_login", "", 1.5, 0.95, true, true, time.Now(), time.Now())

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id`).
			WithArgs(exclusiveID).WillReturnRows(rows)
		dbMock.ExpectExec(`INSERT INTO user_exclusive_projects`).
			WithArgs(7, 3, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))

		req := withURLParam(authedRequest(t, http.MethodPost, "/api/projects/exclusive/"+exclusiveID, testIdentity),
			"id", exclusiveID)
		w := httptest.NewRecorder()
		svc.JoinExclusive(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("refuses non-exclusive project", func(t *testing.T) {
		svc, dbMock := newProjectService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id`).
			WithArgs("10001").WillReturnRows(catalogRows())

		req := withURLParam(authedRequest(t, http.MethodPost, "/api/projects/exclusive/10001", testIdentity),
			"id", "10001")
		w := httptest.NewRecorder()
		svc.JoinExclusive(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown project is a 404", func(t *testing.T) {
		svc, dbMock := newProjectService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id`).
			WithArgs("nope").WillReturnRows(sqlmock.NewRows([]string{"id"}))

		req := withURLParam(authedRequest(t, http.MethodPost, "/api/projects/exclusive/nope", testIdentity),
			"id", "nope")
		w := httptest.NewRecorder()
		svc.JoinExclusive(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
