package services

import (
	"fmt"
	"time"
)

// AccountLockedError rejects any mutating action for a locked user.
type AccountLockedError struct {
	Reason string
}

func (e *AccountLockedError) Error() string {
	if e.Reason == "" {
		return "account locked"
	}
	return fmt.Sprintf("account locked: %s", e.Reason)
}

// RateLimitedError carries the window bookkeeping the API reports back.
type RateLimitedError struct {
	Action  string
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Action)
}

// ContentRejectedError is returned when the moderation gate rejects content.
type ContentRejectedError struct {
	Reason string
}

func (e *ContentRejectedError) Error() string {
	if e.Reason == "" {
		return "content rejected by moderation"
	}
	return fmt.Sprintf("content rejected: %s", e.Reason)
}
