package provider

import (
	"context"
	"errors"

	"github.com/spf13/viper"
)

// ErrCodePending is returned by GetCode while the upstream platform has not
// yet received an SMS for the request. Callers poll; it is not a failure.
var ErrCodePending = errors.New("sms code not received yet")

// NumberInfo is the upstream platform's answer to a number allocation.
type NumberInfo struct {
	Number    string `json:"number"`
	RequestID string `json:"request_id"`
}

// Client abstracts the upstream receive-SMS platform. Exactly one
// implementation is selected at startup; no call site branches on mock mode.
type Client interface {
	// GetNumber allocates a number for the project.
	GetNumber(ctx context.Context, projectCode string) (*NumberInfo, error)
	// GetSpecificNumber allocates a particular number for the project.
	GetSpecificNumber(ctx context.Context, projectCode, number string) (*NumberInfo, error)
	// ReleaseNumber returns a previously allocated number to the pool.
	ReleaseNumber(ctx context.Context, requestID string) error
	// BlacklistNumber excludes a number from future allocation upstream.
	BlacklistNumber(ctx context.Context, number, reason string) error
	// GetCode retrieves the received SMS code, or ErrCodePending.
	GetCode(ctx context.Context, requestID string) (string, error)
	// CheckBalance returns the platform account balance upstream.
	CheckBalance(ctx context.Context) (float64, error)
}

// FromConfig builds the configured provider client: the mock by default, the
// HTTP client when provider.use_mock is false.
func FromConfig() Client {
	viper.SetDefault("provider.use_mock", true)
	viper.SetDefault("provider.base_url", "http://localhost:9000/api")
	viper.SetDefault("provider.api_key", "")
	viper.SetDefault("provider.timeout", "10s")

	if viper.GetBool("provider.use_mock") {
		return NewMockClient()
	}
	return NewHTTPClient(
		viper.GetString("provider.base_url"),
		viper.GetString("provider.api_key"),
		viper.GetDuration("provider.timeout"),
	)
}
