package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state conflicts such as a duplicate SKU or deleting a
	// cashbox that still has payments.
	ErrConflict = errors.New("conflict")
)
