package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPClient talks to a real upstream receive-SMS platform over its JSON API.
// Every response uses the envelope {success, message, ...}; a non-success
// envelope surfaces the provider's message to the caller.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Code    string  `json:"code"`
	Pending bool    `json:"pending"`
	Balance float64 `json:"balance"`
	Phone   *struct {
		Number    string `json:"number"`
		RequestID string `json:"request_id"`
	} `json:"phone_number"`
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Printf("[PROVIDER] Unparseable response from %s: %v", path, err)
		return nil, fmt.Errorf("invalid provider response: %w", err)
	}

	if !env.Success {
		if env.Message == "" {
			env.Message = fmt.Sprintf("provider returned status %d", resp.StatusCode)
		}
		return &env, fmt.Errorf("provider error: %s", env.Message)
	}
	return &env, nil
}

func (c *HTTPClient) GetNumber(ctx context.Context, projectCode string) (*NumberInfo, error) {
	env, err := c.call(ctx, http.MethodPost, "/numbers", map[string]string{"project_code": projectCode})
	if err != nil {
		return nil, err
	}
	if env.Phone == nil {
		return nil, fmt.Errorf("provider returned no phone number")
	}
	return &NumberInfo{Number: env.Phone.Number, RequestID: env.Phone.RequestID}, nil
}

func (c *HTTPClient) GetSpecificNumber(ctx context.Context, projectCode, number string) (*NumberInfo, error) {
	env, err := c.call(ctx, http.MethodPost, "/numbers/specific", map[string]string{
		"project_code": projectCode,
		"number":       number,
	})
	if err != nil {
		return nil, err
	}
	if env.Phone == nil {
		return nil, fmt.Errorf("provider returned no phone number")
	}
	return &NumberInfo{Number: env.Phone.Number, RequestID: env.Phone.RequestID}, nil
}

func (c *HTTPClient) ReleaseNumber(ctx context.Context, requestID string) error {
	_, err := c.call(ctx, http.MethodPost, "/numbers/"+requestID+"/release", nil)
	return err
}

func (c *HTTPClient) BlacklistNumber(ctx context.Context, number, reason string) error {
	_, err := c.call(ctx, http.MethodPost, "/numbers/blacklist", map[string]string{
		"number": number,
		"reason": reason,
	})
	return err
}

func (c *HTTPClient) GetCode(ctx context.Context, requestID string) (string, error) {
	env, err := c.call(ctx, http.MethodGet, "/sms/"+requestID, nil)
	if err != nil {
		return "", err
	}
	if env.Pending || env.Code == "" {
		return "", ErrCodePending
	}
	return env.Code, nil
}

func (c *HTTPClient) CheckBalance(ctx context.Context) (float64, error) {
	env, err := c.call(ctx, http.MethodGet, "/account/balance", nil)
	if err != nil {
		return 0, err
	}
	return env.Balance, nil
}
