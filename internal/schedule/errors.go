package schedule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidConfig = errors.New("invalid schedule configuration")
	// Callers match on this message, keep it stable.
	ErrScheduleWindowExceeded = errors.New("no available time slots remaining for scheduling")
	ErrMatchConflict          = errors.New("match conflicts with an existing assignment")
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchFinalized         = errors.New("match is already finalized")
	ErrInvalidResult          = errors.New("invalid match result")
	ErrInvalidPatch           = errors.New("invalid match update")
)

type ConfigError struct {
	DivisionID uuid.UUID
	Reason     string
}

func (e *ConfigError) Error() string {
	if e.DivisionID != uuid.Nil {
		return fmt.Sprintf("%s: division %s: %s", ErrInvalidConfig, e.DivisionID, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func configErrorf(divisionID uuid.UUID, format string, args ...any) error {
	return &ConfigError{DivisionID: divisionID, Reason: fmt.Sprintf(format, args...)}
}

// WindowExceededError names the first match that could not be placed before a fixed event end.
type WindowExceededError struct {
	MatchID uuid.UUID
}

func (e *WindowExceededError) Error() string {
	return fmt.Sprintf("%s: match %s", ErrScheduleWindowExceeded, e.MatchID)
}

func (e *WindowExceededError) Unwrap() error {
	return ErrScheduleWindowExceeded
}

type ConflictError struct {
	MatchID      uuid.UUID
	OtherMatchID uuid.UUID
	Reason       string
}

func (e *ConflictError) Error() string {
	if e.OtherMatchID != uuid.Nil {
		return fmt.Sprintf("match %s conflicts with match %s: %s", e.MatchID, e.OtherMatchID, e.Reason)
	}
	return fmt.Sprintf("match %s: %s", e.MatchID, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrMatchConflict
}
