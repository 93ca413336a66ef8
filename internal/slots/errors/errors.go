package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	// ErrLookupFailed marks a store read that did not complete. It must never be
	// read as "no results".
	ErrLookupFailed = errors.New("slot lookup failed")

	ErrClaimExists = errors.New("slot instant already claimed")

	ErrStatusChanged = errors.New("slot status changed concurrently")
)
