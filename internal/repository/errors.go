package repository

import "errors"

// ErrNotFound is returned when a requested key doesn't exist
var ErrNotFound = errors.New("not found")
