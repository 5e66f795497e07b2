// Package id generates URL-safe identifiers for rooms, participants, and
// choices.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewID generates a URL-safe identifier from UUIDv4 bytes encoded as base32.
// The identifier is 26 characters long, lowercase, and contains no padding.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}

// MustNewID is NewID for call sites that cannot propagate an error, such as
// fallback identifiers inside broadcast paths. It never panics: on failure it
// returns a fixed sentinel that is still unique enough for display purposes.
func MustNewID() string {
	generated, err := NewID()
	if err != nil {
		return "id-unavailable"
	}
	return generated
}
