// Package idgen issues time-sortable post identifiers.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// NewPostID returns a UUIDv7 in canonical lowercase form. Within a process
// successive IDs compare strictly greater as strings; across processes the
// millisecond timestamp prefix keeps them roughly in creation order.
func NewPostID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate post id: %w", err)
	}
	return id.String(), nil
}

// IsPostID reports whether s is a canonical post identifier.
func IsPostID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 7 && id.String() == s
}
