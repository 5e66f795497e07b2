// Package generate defines the boundary to the text-generation backend.
//
// The engine treats generation as an opaque, slow, fallible collaborator:
// every call runs under a timeout and every failure degrades to a
// deterministic fallback line chosen by the caller.
package generate

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyReply indicates the backend returned no usable text. Callers treat
// it like any other generation failure.
var ErrEmptyReply = errors.New("generation returned empty reply")

// minReplyRunes rejects degenerate one-word outputs the same way an empty
// reply is rejected.
const minReplyRunes = 3

// Request carries one generation call's inputs.
type Request struct {
	// Voice seeds the persona's register; it is the only persona content
	// the engine passes through.
	Voice string
	// PersonaName labels the speaker inside the prompt.
	PersonaName string
	// Prompt is the assembled context window: recent log entries, current
	// metrics, and the instruction for this turn.
	Prompt string
}

// Generator produces in-character prose for one persona turn.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ValidateReply normalizes backend output and rejects unusable text.
func ValidateReply(raw string) (string, error) {
	reply := strings.TrimSpace(raw)
	if len([]rune(reply)) < minReplyRunes {
		return "", ErrEmptyReply
	}
	return reply, nil
}
