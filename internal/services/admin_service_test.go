package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAdminService(t *testing.T) (*AdminService, sqlmock.Sqlmock, *MockProvider) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	providerMock := new(MockProvider)
	ledger := NewLedgerService(db)
	return NewAdminService(db, ledger, NewNotificationService(db), providerMock), dbMock, providerMock
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAdminService_CreateUser(t *testing.T) {
	t.Run("initial balance goes through the ledger", func(t *testing.T) {
		svc, dbMock, _ := newAdminService(t)

		dbMock.ExpectQuery(`INSERT INTO users`).
			WithArgs("bob", "bob@example.com", sqlmock.AnyArg(), false).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "created_at", "updated_at"}).
				AddRow(12, 0.0, time.Now(), time.Now()))
		dbMock.ExpectBegin()
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(12).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(0.0))
		dbMock.ExpectExec(`INSERT INTO transactions`).
			WithArgs(12, 15.0, 15.0, "topup", "Initial balance", "admin", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec(`UPDATE users SET balance`).
			WithArgs(15.0, sqlmock.AnyArg(), 12).WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectCommit()

		body := `{"username": "bob", "email": "Bob@Example.com", "password": "password123", "balance": 15}`
		w := httptest.NewRecorder()
		svc.CreateUser(w, jsonRequest(http.MethodPost, "/api/admin/users", body))

		require.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			ID      int     `json:"id"`
			Balance float64 `json:"balance"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 12, resp.ID)
		assert.Equal(t, 15.0, resp.Balance)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("duplicate username is a 409", func(t *testing.T) {
		svc, dbMock, _ := newAdminService(t)

		dbMock.ExpectQuery(`INSERT INTO users`).
			WithArgs("bob", "bob@example.com", sqlmock.AnyArg(), false).
			WillReturnError(assert.AnError)

		body := `{"username": "bob", "email": "bob@example.com", "password": "password123"}`
		w := httptest.NewRecorder()
		svc.CreateUser(w, jsonRequest(http.MethodPost, "/api/admin/users", body))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects negative balance", func(t *testing.T) {
		svc, _, _ := newAdminService(t)

		body := `{"username": "bob", "email": "bob@example.com", "password": "password123", "balance": -5}`
		w := httptest.NewRecorder()
		svc.CreateUser(w, jsonRequest(http.MethodPost, "/api/admin/users", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminService_ListProjects(t *testing.T) {
	svc, dbMock, _ := newAdminService(t)

	dbMock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "project_id", "exclusive_id", "name", "code", "description",
			"price", "success_rate", "is_exclusive", "available", "created_at", "updated_at",
		}).
			AddRow(2, "10001", nil, "WeChat Login", "wechat_login", "", 1.0, 0.98, false, true, time.Now(), time.Now()).
			AddRow(3, "10002", nil, "Retired Login", "retired_login", "", 2.0, 0.5, false, false, time.Now(), time.Now()))

	w := httptest.NewRecorder()
	svc.ListProjects(w, httptest.NewRequest(http.MethodGet, "/api/admin/projects", nil))

	// Disabled projects stay visible to operators.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "retired_login")
	assert.Contains(t, w.Body.String(), `"total":2`)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestAdminService_UpdateUser(t *testing.T) {
	t.Run("balance credit goes through the ledger", func(t *testing.T) {
		svc, dbMock, _ := newAdminService(t)

		dbMock.ExpectQuery(`SELECT id FROM users WHERE id = \$1`).
			WithArgs("9").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		dbMock.ExpectBegin()
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(2.0))
		dbMock.ExpectExec(`INSERT INTO transactions`).
			WithArgs(9, 10.0, 12.0, "refund", "goodwill", "admin", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec(`UPDATE users SET balance`).
			WithArgs(12.0, sqlmock.AnyArg(), 9).WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectCommit()
		dbMock.ExpectQuery(`INSERT INTO notifications`).
			WithArgs(9, "Balance adjusted", sqlmock.AnyArg(), "balance", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

		req := withURLParam(jsonRequest(http.MethodPut, "/api/admin/users/9",
			`{"balance_change": 10, "reason": "goodwill"}`), "id", "9")
		w := httptest.NewRecorder()
		svc.UpdateUser(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"balance":12`)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("debit past zero is rejected", func(t *testing.T) {
		svc, dbMock, _ := newAdminService(t)

		dbMock.ExpectQuery(`SELECT id FROM users WHERE id = \$1`).
			WithArgs("9").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		dbMock.ExpectBegin()
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(2.0))
		dbMock.ExpectRollback()

		req := withURLParam(jsonRequest(http.MethodPut, "/api/admin/users/9",
			`{"balance_change": -10}`), "id", "9")
		w := httptest.NewRecorder()
		svc.UpdateUser(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("unknown user is a 404", func(t *testing.T) {
		svc, dbMock, _ := newAdminService(t)

		dbMock.ExpectQuery(`SELECT id FROM users WHERE id = \$1`).
			WithArgs("99").WillReturnRows(sqlmock.NewRows([]string{"id"}))

		req := withURLParam(jsonRequest(http.MethodPut, "/api/admin/users/99", `{}`), "id", "99")
		w := httptest.NewRecorder()
		svc.UpdateUser(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminService_CreateProject(t *testing.T) {
	svc, dbMock, _ := newAdminService(t)

	dbMock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM projects WHERE project_id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectQuery(`INSERT INTO projects`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Telegram Login", "telegram_login", "",
			2.0, 0.9, true, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(4, time.Now(), time.Now()))

	body := `{"name": "Telegram Login", "code": "telegram_login", "price": 2.0, "success_rate": 0.9, "is_exclusive": true}`
	w := httptest.NewRecorder()
	svc.CreateProject(w, jsonRequest(http.MethodPost, "/api/admin/projects", body))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		ProjectID   string  `json:"project_id"`
		ExclusiveID *string `json:"exclusive_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.ProjectID, 5)
	require.NotNil(t, resp.ExclusiveID)
	assert.Regexp(t, `^\d{5}----[a-z]{8}$`, *resp.ExclusiveID)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestAdminService_DeleteProject(t *testing.T) {
	t.Run("referenced project is disabled, not deleted", func(t *testing.T) {
		svc, dbMock, _ := newAdminService(t)

		dbMock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM number_requests WHERE project_id`).
			WithArgs("3").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		dbMock.ExpectExec(`UPDATE projects SET available = FALSE`).
			WithArgs(sqlmock.AnyArg(), "3").WillReturnResult(sqlmock.NewResult(0, 1))

		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/projects/3", nil), "id", "3")
		w := httptest.NewRecorder()
		svc.DeleteProject(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "disabled")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("unreferenced project is deleted", func(t *testing.T) {
		svc, dbMock, _ := newAdminService(t)

		dbMock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM number_requests WHERE project_id`).
			WithArgs("3").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		dbMock.ExpectExec(`DELETE FROM projects WHERE id = \$1`).
			WithArgs("3").WillReturnResult(sqlmock.NewResult(0, 1))

		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/projects/3", nil), "id", "3")
		w := httptest.NewRecorder()
		svc.DeleteProject(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "deleted")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestAdminService_ForceRelease(t *testing.T) {
	svc, dbMock, providerMock := newAdminService(t)

	dbMock.ExpectQuery(`SELECT id, status, provider_request_id FROM number_requests`).
		WithArgs("req_x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "provider_request_id"}).
			AddRow(11, "available", "up_9"))
	providerMock.On("ReleaseNumber", mock.Anything, "up_9").Return(nil)
	dbMock.ExpectExec(`UPDATE number_requests SET status`).
		WithArgs("released", sqlmock.AnyArg(), 11).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/admin/numbers/req_x/release", nil),
		"request_id", "req_x")
	w := httptest.NewRecorder()
	svc.ForceRelease(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	providerMock.AssertExpectations(t)
}
