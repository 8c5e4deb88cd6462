package storage

import "errors"

// ErrNotFound is returned when a requested catalog entry does not exist.
var ErrNotFound = errors.New("resource not found")
