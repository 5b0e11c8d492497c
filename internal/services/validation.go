package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Message string            `json:"message"`           // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Message: message}
	if validationErr != nil {
		if verrs, ok := validationErr.(validator.ValidationErrors); ok {
			errorResp.Details = make(map[string]string)
			for _, err := range verrs {
				errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
			}
		}
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// SendJSON writes a JSON success response.
func SendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// Params merges query, form and JSON body values for endpoints that accept
// both GET and POST, the way API clients call them interchangeably.
type Params struct {
	values map[string]string
}

// ParseParams reads request parameters from the query string and, for POST
// requests, the JSON or form body. Body values win over query values.
func ParseParams(r *http.Request) *Params {
	values := make(map[string]string)

	for key, v := range r.URL.Query() {
		if len(v) > 0 {
			values[key] = v[0]
		}
	}

	if r.Method == http.MethodPost && r.Body != nil {
		contentType := r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(contentType, "application/json"):
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err == nil {
				var fields map[string]any
				if json.Unmarshal(body, &fields) == nil {
					for key, v := range fields {
						switch value := v.(type) {
						case string:
							values[key] = value
						case float64:
							values[key] = strconv.FormatFloat(value, 'f', -1, 64)
						case bool:
							values[key] = strconv.FormatBool(value)
						}
					}
				}
			}
		case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err == nil {
				for key, v := range r.PostForm {
					if len(v) > 0 {
						values[key] = v[0]
					}
				}
			}
		}
	}

	return &Params{values: values}
}

// Get returns the named parameter, or "".
func (p *Params) Get(key string) string {
	return p.values[key]
}

// GetInt returns the named parameter as an int, or the fallback.
func (p *Params) GetInt(key string, fallback int) int {
	raw, ok := p.values[key]
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// GetFloat returns the named parameter as a float64, or the fallback.
func (p *Params) GetFloat(key string, fallback float64) float64 {
	raw, ok := p.values[key]
	if !ok {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

// Pagination returns sanitized page/per_page parameters.
func (p *Params) Pagination() (page, perPage int) {
	page = p.GetInt("page", 1)
	perPage = p.GetInt("per_page", 10)

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

// PageCount returns the number of pages for total items.
func PageCount(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
