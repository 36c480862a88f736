package store

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors surfaced to the API layer. They are matched with errors.Is
// and must stay distinguishable; anything else coming out of the store is a
// storage fault the caller treats as unexpected.
var (
	// ErrNotFound is returned when an operation requires a device that is
	// not present in the store.
	ErrNotFound = errors.New("device does not exist")

	// ErrAlreadyExists is returned by Insert when the hardware address is
	// already registered.
	ErrAlreadyExists = errors.New("device already exists")

	// ErrInvalidInput is returned when a time value is not a valid
	// non-negative integer.
	ErrInvalidInput = errors.New("time must be a non-negative integer")
)

// ParseSeconds converts a raw time value from the request layer into seconds.
// Non-numeric and negative input yields ErrInvalidInput.
func ParseSeconds(raw string) (int64, error) {
	seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || seconds < 0 {
		return 0, ErrInvalidInput
	}
	return seconds, nil
}
