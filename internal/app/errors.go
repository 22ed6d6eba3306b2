package app

import "errors"

// ErrNotFound and related errors describe lookup and refresh failures.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoSnapshot     = errors.New("no snapshot available")
	ErrSourceRequired = errors.New("snapshot source is required")
)
