package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - неизвестная или истекшая сессия
	ErrNotFound = errors.New("session not found")
	// ErrInvalidState - операция вне очереди или повторная
	ErrInvalidState = errors.New("invalid session state")
	// ErrEmptyAnswer - пустой ответ кандидата
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrQuotaExceeded - бесплатные сессии в этом месяце закончились
	ErrQuotaExceeded = errors.New("monthly quota exceeded")
	// ErrUpstream - AI сервис не ответил или вернул мусор
	ErrUpstream = errors.New("upstream failure")
	// ErrInvalidSettings - некорректные параметры старта
	ErrInvalidSettings = errors.New("invalid settings")
)

// Code возвращает машинный код ошибки для транспорта
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrEmptyAnswer):
		return "empty_answer"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrUpstream):
		return "upstream_failure"
	case errors.Is(err, ErrInvalidSettings):
		return "invalid_settings"
	default:
		return "internal"
	}
}

// FromCode восстанавливает sentinel-ошибку по коду (для клиента)
func FromCode(code, message string) error {
	var base error
	switch code {
	case "not_found":
		base = ErrNotFound
	case "invalid_state":
		base = ErrInvalidState
	case "empty_answer":
		base = ErrEmptyAnswer
	case "quota_exceeded":
		base = ErrQuotaExceeded
	case "upstream_failure":
		base = ErrUpstream
	case "invalid_settings":
		base = ErrInvalidSettings
	default:
		return fmt.Errorf("server error: %s", message)
	}
	if message == "" || message == base.Error() {
		return base
	}
	return fmt.Errorf("%w: %s", base, message)
}

// Upstream оборачивает ошибку AI сервиса
func Upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}
