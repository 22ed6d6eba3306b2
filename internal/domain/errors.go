package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidRunPhase   = errors.New("invalid run phase")
	ErrInvalidFilterMode = errors.New("invalid work order filter mode")
)
