package changelog

import "errors"

// ErrInvalidInput indicates a nil or kindless entry.
var ErrInvalidInput = errors.New("invalid changelog input")
