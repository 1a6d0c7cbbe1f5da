package server

import (
	"encoding/json"
	"log"
	"net/http"

	"mock-interview/internal/interview"
)

// ErrorBody - формат ошибки API
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusFor возвращает HTTP статус для кода ошибки
func StatusFor(code string) int {
	switch code {
	case "not_found":
		return http.StatusNotFound
	case "invalid_state":
		return http.StatusConflict
	case "empty_answer", "invalid_settings":
		return http.StatusBadRequest
	case "quota_exceeded":
		return http.StatusTooManyRequests
	case "upstream_failure":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := interview.Code(err)
	status := StatusFor(code)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("❌ Internal error: %v", err)
		message = "internal error"
	}
	writeErrorBody(w, status, code, message)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to write response: %v", err)
	}
}
