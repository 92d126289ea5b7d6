// internal/blockchain/errors.go
package blockchain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTokenNotFound возникает, когда источник метаданных не знает токен
	ErrTokenNotFound = errors.New("token metadata not found")

	// ErrRateLimit возникает при превышении лимита запросов
	ErrRateLimit = errors.New("rate limit exceeded")
)

// FetchError описывает неуспешный ответ или транспортную ошибку внешнего источника
type FetchError struct {
	Source string
	Status int
	Err    error
}

// Error реализует интерфейс error
func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s fetch failed with status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("%s fetch failed: %v", e.Source, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError создает новую ошибку запроса
func NewFetchError(source string, status int, err error) error {
	return &FetchError{
		Source: source,
		Status: status,
		Err:    err,
	}
}

// IsRetryable reports whether a request that produced err is worth repeating.
// Transport errors, 429 and 5xx are retryable; other statuses are not.
func IsRetryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if fe.Status == 0 {
		return true
	}
	return fe.Status == http.StatusTooManyRequests || fe.Status >= http.StatusInternalServerError
}
