package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/mechanic"
)

var (
	// ErrNotFound is returned when a referenced label, zone, item or node
	// does not exist in the blueprint or session.
	ErrNotFound = errors.New("not found")

	// ErrAlreadySubmitted is returned by a second submit of the same mechanic.
	ErrAlreadySubmitted = errors.New("already submitted")

	// ErrZoneNotVisible is returned when acting on a hidden or blocked zone.
	ErrZoneNotVisible = errors.New("zone not visible")

	// ErrNotInitialized is returned before Initialize has succeeded.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrUnknownMechanic aliases the registry sentinel for callers that only
	// import engine.
	ErrUnknownMechanic = mechanic.ErrUnknownMechanic
)

// RuntimeError is a rejected action, carrying enough structure for logs and
// the event log.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Mode is the mechanic that was active.
	Mode blueprint.MechanicKind

	// Action is the action type that was rejected, if known.
	Action ActionType

	// Err is the sentinel this error wraps.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeInactiveMechanic RuntimeErrorCode = "INACTIVE_MECHANIC"
	ErrCodeNotFound         RuntimeErrorCode = "NOT_FOUND"
	ErrCodeAlreadySubmitted RuntimeErrorCode = "ALREADY_SUBMITTED"
	ErrCodeZoneNotVisible   RuntimeErrorCode = "ZONE_NOT_VISIBLE"
	ErrCodeUnknownMechanic  RuntimeErrorCode = "UNKNOWN_MECHANIC"
	ErrCodeUnknownAction    RuntimeErrorCode = "UNKNOWN_ACTION"
	ErrCodeGameOver         RuntimeErrorCode = "GAME_OVER"
	ErrCodeZoneOccupied     RuntimeErrorCode = "ZONE_OCCUPIED"
	ErrCodeMechanicFinished RuntimeErrorCode = "MECHANIC_FINISHED"
	ErrCodeSwitchNotAllowed RuntimeErrorCode = "SWITCH_NOT_ALLOWED"
	ErrCodeInvalidArgument  RuntimeErrorCode = "INVALID_ARGUMENT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Mode != "" {
		return fmt.Sprintf("%s: %s (mode=%s)", e.Code, e.Message, e.Mode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped sentinel to errors.Is.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadySubmitted reports whether err wraps ErrAlreadySubmitted.
func IsAlreadySubmitted(err error) bool {
	return errors.Is(err, ErrAlreadySubmitted)
}

// IsInactiveMechanic reports whether err rejects an action aimed at a
// mechanic that is not active.
func IsInactiveMechanic(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInactiveMechanic
	}
	return false
}

func newNotFound(what, id string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q", what, id),
		Err:     ErrNotFound,
	}
}

func newInactive(want, current blueprint.MechanicKind) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInactiveMechanic,
		Message: fmt.Sprintf("%s is not the active mechanic", want),
		Mode:    current,
	}
}

func newAlreadySubmitted(kind blueprint.MechanicKind) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeAlreadySubmitted,
		Message: "submission already recorded",
		Mode:    kind,
		Err:     ErrAlreadySubmitted,
	}
}

func newZoneNotVisible(zoneID string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeZoneNotVisible,
		Message: fmt.Sprintf("zone %q", zoneID),
		Err:     ErrZoneNotVisible,
	}
}
