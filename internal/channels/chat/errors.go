package chat

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotAllowlisted = errors.New("user or channel is not allowed to use the shop")
	ErrRateLimited    = errors.New("user is sending messages too quickly")
)

// RateLimitError names the limited user and when the window reopens.
type RateLimitError struct {
	UserID     string
	RetryAfter time.Duration
}

// Seconds is RetryAfter rounded up to whole seconds, never below one.
func (e *RateLimitError) Seconds() int {
	if e == nil || e.RetryAfter <= time.Second {
		return 1
	}
	seconds := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		seconds++
	}
	return seconds
}

func (e *RateLimitError) Error() string {
	if e == nil {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("user %s is rate limited; retry in %ds", e.UserID, e.Seconds())
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
