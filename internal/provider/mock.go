package provider

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// MockClient fabricates provider responses in memory so the platform can run
// without an upstream account. Behaviour matches the HTTP client from the
// lifecycle manager's point of view: allocated numbers are remembered per
// request id, codes are generated on first fetch and stable afterwards, and
// blacklisted numbers are refused by GetSpecificNumber.
type MockClient struct {
	mu        sync.Mutex
	numbers   map[string]string // request id -> number
	codes     map[string]string // request id -> code
	released  map[string]bool
	blacklist map[string]bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		numbers:   make(map[string]string),
		codes:     make(map[string]string),
		released:  make(map[string]bool),
		blacklist: make(map[string]bool),
	}
}

func (m *MockClient) newRequestID() string {
	return fmt.Sprintf("req_%d_%04d", time.Now().Unix(), rand.Intn(10000))
}

func randomDigits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d", rand.Intn(10))
	}
	return b.String()
}

func (m *MockClient) GetNumber(ctx context.Context, projectCode string) (*NumberInfo, error) {
	if projectCode == "" {
		return nil, fmt.Errorf("provider error: unknown project code")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	number := "138" + randomDigits(8)
	requestID := m.newRequestID()
	m.numbers[requestID] = number
	return &NumberInfo{Number: number, RequestID: requestID}, nil
}

func (m *MockClient) GetSpecificNumber(ctx context.Context, projectCode, number string) (*NumberInfo, error) {
	if projectCode == "" {
		return nil, fmt.Errorf("provider error: unknown project code")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.blacklist[number] {
		return nil, fmt.Errorf("provider error: number %s is blacklisted", number)
	}

	requestID := m.newRequestID()
	m.numbers[requestID] = number
	return &NumberInfo{Number: number, RequestID: requestID}, nil
}

func (m *MockClient) ReleaseNumber(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.numbers[requestID]; !ok {
		return fmt.Errorf("provider error: unknown request id %s", requestID)
	}
	m.released[requestID] = true
	return nil
}

func (m *MockClient) BlacklistNumber(ctx context.Context, number, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blacklist[number] = true
	return nil
}

func (m *MockClient) GetCode(ctx context.Context, requestID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.numbers[requestID]; !ok {
		return "", fmt.Errorf("provider error: unknown request id %s", requestID)
	}
	if m.released[requestID] {
		return "", fmt.Errorf("provider error: request %s already released", requestID)
	}

	if code, ok := m.codes[requestID]; ok {
		return code, nil
	}
	code := randomDigits(6)
	m.codes[requestID] = code
	return code, nil
}

func (m *MockClient) CheckBalance(ctx context.Context) (float64, error) {
	return 50 + rand.Float64()*450, nil
}
