// Package models - API response types and error handling.
// This file defines all outgoing API response structures with consistent formatting.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Optional fields use omitempty to reduce response size
// - Machine-readable error codes plus human-readable messages
// - Standardized pagination envelope
package models

import (
	"encoding/json"
	"time"
)

// ErrorResponse provides structured error information.
//
// Error Categories:
// - Validation errors: malformed pagination or query parameters
// - Not found errors: resource doesn't exist
// - Rate limit errors: admission denied (always HTTP 429)
// - Internal errors: server-side issues
type ErrorResponse struct {
	Error     string            `json:"error"`                // Error type (always "error")
	Message   string            `json:"message"`              // Human-readable error description
	Code      string            `json:"code,omitempty"`       // Machine-readable error code
	Details   map[string]string `json:"details,omitempty"`    // Field-specific error details
	RateLimit *RateLimitDetails `json:"rate_limit,omitempty"` // Present only on 429 responses
	Timestamp time.Time         `json:"timestamp"`            // Error occurrence time
	RequestID string            `json:"request_id,omitempty"` // Unique request identifier
}

// RateLimitDetails describes the limit a denied request ran into.
type RateLimitDetails struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter int    `json:"retry_after"`
	Scope      string `json:"scope,omitempty"`
}

// Pagination is the envelope attached to every paginated listing.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPagination computes the envelope for a page of a result set of total items.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

type ListCryptidsResponse struct {
	Data       []CryptidSummary `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

type CryptidResponse struct {
	Data CryptidDetail `json:"data"`
}

// SelectedCryptidsResponse carries listings narrowed with the fields parameter.
type SelectedCryptidsResponse struct {
	Data       []map[string]json.RawMessage `json:"data"`
	Pagination Pagination                   `json:"pagination"`
}

type SelectedCryptidResponse struct {
	Data map[string]json.RawMessage `json:"data"`
}

// RelatedCryptidsResponse lists cryptids sharing a classification.
type RelatedCryptidsResponse struct {
	Data []CryptidSummary `json:"data"`
}

type ListImagesResponse struct {
	Data       []Image    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type ListClassificationsResponse struct {
	Data []Classification `json:"data"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
)

// Standard HTTP Error Codes
//
// Error Code Strategy:
//   - Upper-case with underscores for consistency
//   - Machine-readable for client error handling
//   - The three rate limit codes let clients tell plain throttling,
//     search abuse and a temporary block apart
const (
	ErrorCodeNotFound                = "RESOURCE_NOT_FOUND"         // 404: Resource doesn't exist
	ErrorCodeEndpointNotFound        = "ENDPOINT_NOT_FOUND"         // 404: No such route
	ErrorCodeBadRequest              = "BAD_REQUEST"                // 400: Invalid request format
	ErrorCodeInvalidPagination       = "INVALID_PAGINATION"         // 400: page/limit out of range
	ErrorCodeMethodNotAllowed        = "METHOD_NOT_ALLOWED"         // 405: Wrong HTTP method
	ErrorCodeInternalError           = "INTERNAL_ERROR"             // 500: Server-side error
	ErrorCodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"        // 429: Generic scope limit hit
	ErrorCodeSearchRateLimitExceeded = "SEARCH_RATE_LIMIT_EXCEEDED" // 429: Search scope limit hit
	ErrorCodeTemporarilyBlocked      = "TEMPORARILY_BLOCKED"        // 429: Repeated search abuse
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// WithRequestID stamps the response with the id assigned to the request.
func (e *ErrorResponse) WithRequestID(id string) *ErrorResponse {
	e.RequestID = id
	return e
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
