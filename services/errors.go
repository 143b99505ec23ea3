package services

import (
	"errors"
	"fmt"
)

// Ошибки жизненного цикла заявок. Хендлеры превращают их в коды ответов,
// сервис никогда не паникует и не роняет процесс.
var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicatePending  = errors.New("pending request already exists for this coach")
	ErrAlreadyAccepted   = errors.New("coach already accepted a request from this client")
	ErrAlreadyProcessing = errors.New("request is already being processed")
	ErrNotFound          = errors.New("request not found")
)

// AlreadyResolvedError - заявку уже решил другой участник.
// Несем фактический исход, а не прячем его за общей ошибкой.
type AlreadyResolvedError struct {
	Status string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("request already resolved: %s", e.Status)
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
