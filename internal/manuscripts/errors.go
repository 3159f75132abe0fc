package manuscripts

import "errors"

var (
	ErrNotFound     = errors.New("manuscript not found")
	ErrInvalidInput = errors.New("invalid input")
)
