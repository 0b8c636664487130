package repository

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrNotLoaded = errors.New("source not loaded")
	ErrClosed    = errors.New("cache closed")
)
