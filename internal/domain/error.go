package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrConflict             = errors.New("conflicting state transition")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrForbidden            = errors.New("forbidden")

	ErrPlanNotFound    = fmt.Errorf("plan: %w", ErrNotFound)
	ErrJobNotFound     = fmt.Errorf("job: %w", ErrNotFound)
	ErrPaymentNotFound = fmt.Errorf("payment: %w", ErrNotFound)
	ErrHolderNotFound  = fmt.Errorf("holder: %w", ErrNotFound)

	// Storage errors
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
