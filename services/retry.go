package services

import (
	"context"
	"log"
	"time"
)

const (
	DefaultRetries   = 3
	DefaultBaseDelay = time.Second
)

// RetryConfig - параметры повторов для обращений к хранилищу
type RetryConfig struct {
	Retries   int
	BaseDelay time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Retries: DefaultRetries, BaseDelay: DefaultBaseDelay}
}

// WithRetry выполняет op до cfg.Retries+1 раз с экспоненциальной паузой
// BaseDelay * 2^attempt между попытками. Возвращает последнюю ошибку.
// Оборачивать можно только идемпотентные вызовы.
func WithRetry(ctx context.Context, cfg RetryConfig, name string, op func(ctx context.Context) error) error {
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay * (1 << (attempt - 1))
			log.Printf("Retrying %s (attempt %d/%d) after %v: %v", name, attempt+1, cfg.Retries+1, delay, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
