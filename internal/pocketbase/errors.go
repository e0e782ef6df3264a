package pocketbase

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record matches a lookup filter.
	ErrNotFound = errors.New("record not found")

	// ErrUnreachable is returned when the store cannot be contacted at all.
	ErrUnreachable = errors.New("record store unreachable")
)

// APIError carries a non-2xx response from the store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pocketbase: request failed with status %d: %s", e.Status, e.Message)
}
