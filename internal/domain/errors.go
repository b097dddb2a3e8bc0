package domain

import "errors"

// Resolution failures. None of these abort a run; callers log and continue.
var (
	ErrFetch             = errors.New("catalog fetch failed")
	ErrParseAnomaly      = errors.New("malformed title block")
	ErrReferenceNotFound = errors.New("referenced course not found in target department")
	ErrPersistence       = errors.New("course record persistence failed")
)

// ErrNotFound is returned by stores for unknown course codes.
var ErrNotFound = errors.New("course not found")
