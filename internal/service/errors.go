package service

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrForbidden     = errors.New("operation not allowed for the current user")
	ErrInvalidEvent  = errors.New("invalid event")
	// A finalized result stands but the matches it unlocked did not fit before the event end
	ErrAutoRescheduleEndLimit = errors.New("auto reschedule reached the event end")
)
