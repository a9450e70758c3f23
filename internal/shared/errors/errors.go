package errors

import "errors"

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrUnauthorized    = errors.New("unauthorized user")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidChannel  = errors.New("invalid channel id")
	ErrEmptyQuery      = errors.New("search query is empty")
	ErrUnknownView     = errors.New("unknown view")
	ErrLoopStopped     = errors.New("control loop is not running")
	ErrMissingSetting  = errors.New("required setting is missing")

	// Transport failures. Callers match them with errors.Is.
	ErrNetwork           = errors.New("network error")
	ErrRateLimited       = errors.New("rate limited by remote api")
	ErrMalformedResponse = errors.New("malformed response")
	ErrStaleCursor       = errors.New("pagination cursor rejected")
)
