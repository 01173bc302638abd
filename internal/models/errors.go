package models

import "errors"

var (
	// ErrEmptyDirectory signals that no snapshot files were recognised.
	ErrEmptyDirectory = errors.New("no snapshot files found")
	// ErrMalformedSnapshot signals a file that does not match the snapshot schema.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrInvalidSelectionParameters signals unusable analysis parameters.
	ErrInvalidSelectionParameters = errors.New("invalid selection parameters")
	// ErrContradictoryTagFilter flags a tag both included and excluded. It is only ever a warning.
	ErrContradictoryTagFilter = errors.New("tag is both included and excluded")
)
