package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/provider"
)

// MockProvider is a testify mock of the upstream platform client.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetNumber(ctx context.Context, projectCode string) (*provider.NumberInfo, error) {
	args := m.Called(ctx, projectCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.NumberInfo), args.Error(1)
}

func (m *MockProvider) GetSpecificNumber(ctx context.Context, projectCode, number string) (*provider.NumberInfo, error) {
	args := m.Called(ctx, projectCode, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.NumberInfo), args.Error(1)
}

func (m *MockProvider) ReleaseNumber(ctx context.Context, requestID string) error {
	return m.Called(ctx, requestID).Error(0)
}

func (m *MockProvider) BlacklistNumber(ctx context.Context, number, reason string) error {
	return m.Called(ctx, number, reason).Error(0)
}

func (m *MockProvider) GetCode(ctx context.Context, requestID string) (string, error) {
	args := m.Called(ctx, requestID)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) CheckBalance(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

// authedRequest builds a request that already passed authentication.
func authedRequest(t *testing.T, method, target string, identity *middleware.Identity) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, identity)
	return req.WithContext(ctx)
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
