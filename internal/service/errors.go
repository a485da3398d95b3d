package service

import "errors"

var (
	// ErrInvalidInput marks a request or detection the service refuses to process.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a query has no matching record.
	ErrNotFound = errors.New("not found")
	// ErrBelowThreshold is returned for detections under the configured minimum confidence.
	ErrBelowThreshold = errors.New("confidence below threshold")
)
