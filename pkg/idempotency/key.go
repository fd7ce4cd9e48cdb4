package idempotency

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces idempotency keys for create transfer calls
type Generator func() (string, error)

// GenerateKey returns a time-ordered UUIDv7, unique per call
func GenerateKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate idempotency key: %w", err)
	}
	return id.String(), nil
}

// ValidateKey validates an idempotency key format
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("idempotency key cannot be empty")
	}

	if _, err := uuid.Parse(key); err != nil {
		return fmt.Errorf("idempotency key must be a UUID: %w", err)
	}

	return nil
}
