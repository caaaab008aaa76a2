package handler

import "github.com/stocksync/backend/internal/interfaces/http/dto"

// APIResponse is the envelope of a successful call, typed for the OpenAPI document
// @Description Standard response wrapper with a typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success" example:"true"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// ErrorResponse is the envelope of a failed call
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
