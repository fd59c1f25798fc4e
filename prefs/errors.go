package prefs

import "errors"

var (
	// ErrLoadFailed indicates the preference document could not be read.
	ErrLoadFailed = errors.New("preference load failed")
	// ErrSaveFailed indicates the preference document could not be written.
	ErrSaveFailed = errors.New("preference save failed")
	// ErrCorruptDocument indicates the persisted document is not valid JSON.
	ErrCorruptDocument = errors.New("preference document corrupt")
)
