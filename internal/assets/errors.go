package assets

import "errors"

// Sentinel errors for the assets package.
var (
	// ErrNotFound is returned when an asset has no index record, or the
	// remote answers 404.
	ErrNotFound = errors.New("asset not found")

	// ErrInvalidID is returned when an asset id is not an http(s) URL.
	ErrInvalidID = errors.New("invalid asset id")

	// ErrTooLarge is returned when a transfer exceeds the configured size cap.
	ErrTooLarge = errors.New("asset exceeds size limit")
)
