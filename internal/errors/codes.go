// Package errors provides the machine-readable error codes surfaced by the
// play protocol.
package errors

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Room errors
	CodeRoomNotFound Code = "ROOM_NOT_FOUND"
	CodeRoleConflict Code = "ROLE_CONFLICT"

	// Phase errors
	CodeInvalidPhaseAction Code = "INVALID_PHASE_ACTION"
	CodeGameEnded          Code = "GAME_ENDED"

	// Generation errors. These are recovered internally with fallback
	// replies and only appear in logs and delivery tags, never as a
	// protocol error to participants.
	CodeGenerationFailure      Code = "GENERATION_FAILURE"
	CodeGenerationTimeout      Code = "GENERATION_TIMEOUT"
	CodeMalformedChoicePayload Code = "MALFORMED_CHOICE_PAYLOAD"

	// Protocol errors
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeResourceExhausted Code = "RESOURCE_EXHAUSTED"
)

// Sentinels matched by the transport when translating engine errors into
// protocol error frames.
var (
	// ErrRoomNotFound indicates an operation named a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoleConflict indicates the requested role is already held.
	ErrRoleConflict = errors.New("role already held")
	// ErrInvalidPhaseAction indicates a message kind not valid in the
	// room's current phase.
	ErrInvalidPhaseAction = errors.New("action not valid in current phase")
	// ErrGameEnded indicates the room's session has reached its terminal phase.
	ErrGameEnded = errors.New("game has ended")
	// ErrMalformedChoicePayload indicates generated choice text that could
	// not be decoded into a usable option set.
	ErrMalformedChoicePayload = errors.New("malformed choice payload")
)

// CodeFor maps an engine error to its protocol code.
func CodeFor(err error) Code {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrRoleConflict):
		return CodeRoleConflict
	case errors.Is(err, ErrInvalidPhaseAction):
		return CodeInvalidPhaseAction
	case errors.Is(err, ErrGameEnded):
		return CodeGameEnded
	case errors.Is(err, ErrMalformedChoicePayload):
		return CodeMalformedChoicePayload
	default:
		return CodeUnknown
	}
}
