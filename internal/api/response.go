package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Kontur/internal/flows"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeConflict       ErrorCode = "CONFLICT"
	ErrCodeCapacity       ErrorCode = "CAPACITY_EXHAUSTED"
	ErrCodeBusy           ErrorCode = "WORKSPACE_BUSY"
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Result отображает исход оркестратора в HTTP-ответ.
// Код оркестратора транслируется как есть.
func Result(w http.ResponseWriter, res flows.Result) {
	if res.Success() {
		Success(w, res.Data)
		return
	}
	Error(w, res.Code, errorCode(res.Code), errorMessage(res.Code))
}

func errorCode(code int) ErrorCode {
	switch code {
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusGone:
		return ErrCodeCapacity
	case http.StatusTooEarly:
		return ErrCodeBusy
	case http.StatusNotImplemented:
		return ErrCodeNotImplemented
	default:
		return ErrCodeInternalError
	}
}

func errorMessage(code int) string {
	switch code {
	case http.StatusForbidden:
		return "not allowed to manage this target"
	case http.StatusNotFound:
		return "target not found"
	case http.StatusConflict:
		return "resource already exists or is in use"
	case http.StatusGone:
		return "binding capacity exhausted"
	case http.StatusTooEarly:
		return "target is busy with an unfinished task"
	case http.StatusNotImplemented:
		return "operation not supported by the remote host"
	default:
		return "internal error"
	}
}
