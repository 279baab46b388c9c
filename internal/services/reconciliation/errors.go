package reconciliation

import (
	"fmt"

	"document-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
)

// ValidationError rejects a single malformed request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports a referenced transaction, document, attachment or
// run that does not exist. It matches repository.ErrNotFound with errors.Is.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return repository.ErrNotFound
}
