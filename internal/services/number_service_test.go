package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/provider"
)

func newNumberService(t *testing.T) (*NumberService, sqlmock.Sqlmock, *MockProvider) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	providerMock := new(MockProvider)
	return NewNumberService(db, NewLedgerService(db), providerMock), dbMock, providerMock
}

func projectRow(price float64, exclusive bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "exclusive_id", "name", "code", "description",
		"price", "success_rate", "is_exclusive", "available", "created_at", "updated_at",
	}).AddRow(2, "10001", nil, "WeChat Login", "wechat_login", "", price, 0.98, exclusive, true, time.Now(), time.Now())
}

func ownedRequestRow(requestID, number, status, smsCode string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "request_id", "user_id", "project_id", "name", "number", "status",
		"sms_code", "provider_request_id", "created_at", "updated_at", "released_at",
	}).AddRow(11, requestID, 7, 2, "WeChat Login", number, status, smsCode, "up_123", time.Now(), time.Now(), nil)
}

var testIdentity = &middleware.Identity{UserID: 7, Username: "alice"}

func TestNumberService_GetNumber(t *testing.T) {
	t.Run("successful rental debits the price", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
			WithArgs("10001").WillReturnRows(projectRow(1.5, false))
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1`).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))

		providerMock.On("GetNumber", mock.Anything, "wechat_login").
			Return(&provider.NumberInfo{Number: "13811112222", RequestID: "up_1"}, nil)

		dbMock.ExpectBegin()
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))
		dbMock.ExpectExec(`INSERT INTO transactions`).
			WithArgs(7, -1.5, 8.5, "consume", "Rent number for WeChat Login", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec(`UPDATE users SET balance`).
			WithArgs(8.5, sqlmock.AnyArg(), 7).WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectQuery(`INSERT INTO number_requests`).
			WithArgs(sqlmock.AnyArg(), 7, 2, "13811112222", "available", "up_1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		dbMock.ExpectCommit()

		w := httptest.NewRecorder()
		svc.GetNumber(w, authedRequest(t, http.MethodPost, "/api/numbers/get?project_code=10001", testIdentity))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			PhoneNumber struct {
				Number string `json:"number"`
				Status string `json:"status"`
			} `json:"phone_number"`
			Balance float64 `json:"balance"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "13811112222", resp.PhoneNumber.Number)
		assert.Equal(t, "available", resp.PhoneNumber.Status)
		assert.Equal(t, 8.5, resp.Balance)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		providerMock.AssertExpectations(t)
	})

	t.Run("insufficient balance leaves zero trace", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
			WithArgs("10001").WillReturnRows(projectRow(1.0, false))
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1`).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(0.5))

		w := httptest.NewRecorder()
		svc.GetNumber(w, authedRequest(t, http.MethodPost, "/api/numbers/get?project_code=10001", testIdentity))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Insufficient balance")
		providerMock.AssertNotCalled(t, "GetNumber", mock.Anything, mock.Anything)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("unknown project is a 404", func(t *testing.T) {
		svc, dbMock, _ := newNumberService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
			WithArgs("99999").WillReturnRows(sqlmock.NewRows([]string{"id"}))

		w := httptest.NewRecorder()
		svc.GetNumber(w, authedRequest(t, http.MethodPost, "/api/numbers/get?project_code=99999", testIdentity))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("provider failure persists nothing", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
			WithArgs("10001").WillReturnRows(projectRow(1.5, false))
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1`).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))

		providerMock.On("GetNumber", mock.Anything, "wechat_login").
			Return(nil, assert.AnError)

		w := httptest.NewRecorder()
		svc.GetNumber(w, authedRequest(t, http.MethodPost, "/api/numbers/get?project_code=10001", testIdentity))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestNumberService_GetSpecificNumber_Blacklisted(t *testing.T) {
	svc, dbMock, providerMock := newNumberService(t)

	dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
		WithArgs("10001").WillReturnRows(projectRow(1.5, false))
	dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1`).
		WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))
	dbMock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM blacklisted_numbers`).
		WithArgs("13800000001").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := httptest.NewRecorder()
	svc.GetSpecificNumber(w, authedRequest(t, http.MethodPost,
		"/api/numbers/get-specific?project_code=10001&number=13800000001", testIdentity))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "blacklisted")
	providerMock.AssertNotCalled(t, "GetSpecificNumber", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestNumberService_ExclusiveProjectRequiresMembership(t *testing.T) {
	svc, dbMock, providerMock := newNumberService(t)

	dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
		WithArgs("10003").WillReturnRows(projectRow(1.5, true))
	dbMock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM user_exclusive_projects`).
		WithArgs(7, 2).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	w := httptest.NewRecorder()
	svc.GetNumber(w, authedRequest(t, http.MethodPost, "/api/numbers/get?project_code=10003", testIdentity))

	assert.Equal(t, http.StatusForbidden, w.Code)
	providerMock.AssertNotCalled(t, "GetNumber", mock.Anything, mock.Anything)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestNumberService_BatchGetNumbers(t *testing.T) {
	t.Run("three numbers, one ledger entry", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
			WithArgs("10001").WillReturnRows(projectRow(1.5, false))
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1`).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))

		providerMock.On("GetNumber", mock.Anything, "wechat_login").
			Return(&provider.NumberInfo{Number: "13811110001", RequestID: "up_1"}, nil).Once()
		providerMock.On("GetNumber", mock.Anything, "wechat_login").
			Return(&provider.NumberInfo{Number: "13811110002", RequestID: "up_2"}, nil).Once()
		providerMock.On("GetNumber", mock.Anything, "wechat_login").
			Return(&provider.NumberInfo{Number: "13811110003", RequestID: "up_3"}, nil).Once()

		dbMock.ExpectBegin()
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))
		dbMock.ExpectExec(`INSERT INTO transactions`).
			WithArgs(7, -4.5, 5.5, "consume", "Rent 3 numbers for WeChat Login", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec(`UPDATE users SET balance`).
			WithArgs(5.5, sqlmock.AnyArg(), 7).WillReturnResult(sqlmock.NewResult(0, 1))
		for i, number := range []string{"13811110001", "13811110002", "13811110003"} {
			dbMock.ExpectQuery(`INSERT INTO number_requests`).
				WithArgs(sqlmock.AnyArg(), 7, 2, number, "available", sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20 + i))
		}
		dbMock.ExpectCommit()

		w := httptest.NewRecorder()
		svc.BatchGetNumbers(w, authedRequest(t, http.MethodPost,
			"/api/numbers/batch-get?project_code=10001&count=3", testIdentity))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Count   int     `json:"count"`
			Balance float64 `json:"balance"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Count)
		assert.Equal(t, 5.5, resp.Balance)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		providerMock.AssertExpectations(t)
	})

	t.Run("count outside 1..10 is rejected", func(t *testing.T) {
		svc, _, providerMock := newNumberService(t)

		for _, count := range []string{"0", "11"} {
			w := httptest.NewRecorder()
			svc.BatchGetNumbers(w, authedRequest(t, http.MethodPost,
				"/api/numbers/batch-get?project_code=10001&count="+count, testIdentity))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
		providerMock.AssertNotCalled(t, "GetNumber", mock.Anything, mock.Anything)
	})

	t.Run("mid-batch provider failure returns obtained numbers", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT id, project_id, exclusive_id, name, code`).
			WithArgs("10001").WillReturnRows(projectRow(1.5, false))
		dbMock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1`).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))

		providerMock.On("GetNumber", mock.Anything, "wechat_login").
			Return(&provider.NumberInfo{Number: "13811110001", RequestID: "up_1"}, nil).Once()
		providerMock.On("GetNumber", mock.Anything, "wechat_login").
			Return(nil, assert.AnError).Once()
		providerMock.On("ReleaseNumber", mock.Anything, "up_1").Return(nil).Once()

		w := httptest.NewRecorder()
		svc.BatchGetNumbers(w, authedRequest(t, http.MethodPost,
			"/api/numbers/batch-get?project_code=10001&count=3", testIdentity))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "number 2 of 3")
		assert.NoError(t, dbMock.ExpectationsWereMet())
		providerMock.AssertExpectations(t)
	})
}

func TestNumberService_GetSMSCode(t *testing.T) {
	t.Run("stored code returned without provider call", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		for i := 0; i < 2; i++ {
			dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
				WithArgs("req_a1b2c3d4", 7).
				WillReturnRows(ownedRequestRow("req_a1b2c3d4", "13811112222", "used", "123456"))
		}

		for i := 0; i < 2; i++ {
			req := withURLParam(authedRequest(t, http.MethodGet, "/api/numbers/sms/req_a1b2c3d4", testIdentity),
				"request_id", "req_a1b2c3d4")
			w := httptest.NewRecorder()
			svc.GetSMSCode(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "123456")
		}
		providerMock.AssertNotCalled(t, "GetCode", mock.Anything, mock.Anything)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("pending code is a 200 waiting response", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
			WithArgs("req_a1b2c3d4", 7).
			WillReturnRows(ownedRequestRow("req_a1b2c3d4", "13811112222", "available", ""))
		providerMock.On("GetCode", mock.Anything, "up_123").Return("", provider.ErrCodePending)

		req := withURLParam(authedRequest(t, http.MethodGet, "/api/numbers/sms/req_a1b2c3d4", testIdentity),
			"request_id", "req_a1b2c3d4")
		w := httptest.NewRecorder()
		svc.GetSMSCode(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "waiting")
	})

	t.Run("fresh code is stored and transitions to used", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
			WithArgs("req_a1b2c3d4", 7).
			WillReturnRows(ownedRequestRow("req_a1b2c3d4", "13811112222", "available", ""))
		providerMock.On("GetCode", mock.Anything, "up_123").Return("884217", nil)
		dbMock.ExpectExec(`UPDATE number_requests SET sms_code`).
			WithArgs("884217", "used", sqlmock.AnyArg(), 11).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := withURLParam(authedRequest(t, http.MethodGet, "/api/numbers/sms/req_a1b2c3d4", testIdentity),
			"request_id", "req_a1b2c3d4")
		w := httptest.NewRecorder()
		svc.GetSMSCode(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "884217")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("someone else's request is a 404", func(t *testing.T) {
		svc, dbMock, _ := newNumberService(t)

		dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
			WithArgs("req_notmine", 7).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		req := withURLParam(authedRequest(t, http.MethodGet, "/api/numbers/sms/req_notmine", testIdentity),
			"request_id", "req_notmine")
		w := httptest.NewRecorder()
		svc.GetSMSCode(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestNumberService_ReleaseNumber(t *testing.T) {
	t.Run("release then release again is 200 both times", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
			WithArgs("req_a1b2c3d4", 7).
			WillReturnRows(ownedRequestRow("req_a1b2c3d4", "13811112222", "used", "123456"))
		providerMock.On("ReleaseNumber", mock.Anything, "up_123").Return(nil).Once()
		dbMock.ExpectExec(`UPDATE number_requests SET status`).
			WithArgs("released", sqlmock.AnyArg(), 11).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Second call sees the released row and changes nothing.
		dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
			WithArgs("req_a1b2c3d4", 7).
			WillReturnRows(ownedRequestRow("req_a1b2c3d4", "13811112222", "released", "123456"))

		for i := 0; i < 2; i++ {
			req := withURLParam(authedRequest(t, http.MethodPost, "/api/numbers/release/req_a1b2c3d4", testIdentity),
				"request_id", "req_a1b2c3d4")
			w := httptest.NewRecorder()
			svc.ReleaseNumber(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
		assert.NoError(t, dbMock.ExpectationsWereMet())
		providerMock.AssertExpectations(t)
	})

	t.Run("blacklisted rental cannot be released", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
			WithArgs("req_a1b2c3d4", 7).
			WillReturnRows(ownedRequestRow("req_a1b2c3d4", "13811112222", "blacklisted", ""))

		req := withURLParam(authedRequest(t, http.MethodPost, "/api/numbers/release/req_a1b2c3d4", testIdentity),
			"request_id", "req_a1b2c3d4")
		w := httptest.NewRecorder()
		svc.ReleaseNumber(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		providerMock.AssertNotCalled(t, "ReleaseNumber", mock.Anything, mock.Anything)
	})
}

func TestNumberService_BatchReleaseNumbers(t *testing.T) {
	svc, dbMock, providerMock := newNumberService(t)

	// req_mine releases; req_other belongs to another user and fails alone.
	dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
		WithArgs("req_mine", 7).
		WillReturnRows(ownedRequestRow("req_mine", "13811112222", "available", ""))
	providerMock.On("ReleaseNumber", mock.Anything, "up_123").Return(nil).Once()
	dbMock.ExpectExec(`UPDATE number_requests SET status`).
		WithArgs("released", sqlmock.AnyArg(), 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectQuery(`SELECT nr.id, nr.request_id`).
		WithArgs("req_other", 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	svc.BatchReleaseNumbers(w, authedRequest(t, http.MethodPost,
		"/api/numbers/batch-release?request_ids=req_mine,req_other", testIdentity))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Released int `json:"released"`
		Failed   int `json:"failed"`
		Details  []struct {
			RequestID string `json:"request_id"`
			Success   bool   `json:"success"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Released)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Details, 2)
	assert.True(t, resp.Details[0].Success)
	assert.False(t, resp.Details[1].Success)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestNumberService_BlacklistNumber(t *testing.T) {
	t.Run("cascades to every rental of the number", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM number_requests`).
			WithArgs("13811112222", 7).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		dbMock.ExpectBegin()
		dbMock.ExpectExec(`INSERT INTO blacklisted_numbers`).
			WithArgs("13811112222", "spam", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec(`UPDATE number_requests SET status`).
			WithArgs("blacklisted", sqlmock.AnyArg(), "13811112222", "available", "used").
			WillReturnResult(sqlmock.NewResult(0, 2))
		dbMock.ExpectCommit()
		providerMock.On("BlacklistNumber", mock.Anything, "13811112222", "spam").Return(nil)

		w := httptest.NewRecorder()
		svc.BlacklistNumber(w, authedRequest(t, http.MethodPost,
			"/api/numbers/blacklist?number=13811112222&reason=spam", testIdentity))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		providerMock.AssertExpectations(t)
	})

	t.Run("already blacklisted is still a 200", func(t *testing.T) {
		svc, dbMock, providerMock := newNumberService(t)

		dbMock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM number_requests`).
			WithArgs("13811112222", 7).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		dbMock.ExpectBegin()
		dbMock.ExpectExec(`INSERT INTO blacklisted_numbers`).
			WithArgs("13811112222", "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectExec(`UPDATE number_requests SET status`).
			WithArgs("blacklisted", sqlmock.AnyArg(), "13811112222", "available", "used").
			WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectCommit()
		providerMock.On("BlacklistNumber", mock.Anything, "13811112222", "").Return(nil)

		w := httptest.NewRecorder()
		svc.BlacklistNumber(w, authedRequest(t, http.MethodPost,
			"/api/numbers/blacklist?number=13811112222", testIdentity))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestNumberService_InboundSMS(t *testing.T) {
	svc, dbMock, _ := newNumberService(t)

	dbMock.ExpectQuery(`SELECT id, status, sms_code FROM number_requests WHERE provider_request_id`).
		WithArgs("up_123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "sms_code"}).AddRow(11, "available", ""))
	dbMock.ExpectExec(`INSERT INTO sms_messages`).
		WithArgs(11, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	dbMock.ExpectExec(`UPDATE number_requests SET sms_code`).
		WithArgs("123456", "used", sqlmock.AnyArg(), 11).
		WillReturnResult(sqlmock.NewResult(0, 1))

	target := "/api/numbers/inbound?request_id=up_123&content=" +
		"%E6%82%A8%E7%9A%84%E9%AA%8C%E8%AF%81%E7%A0%81%E6%98%AF123456"
	w := httptest.NewRecorder()
	svc.InboundSMS(w, httptest.NewRequest(http.MethodPost, target, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "123456")
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
