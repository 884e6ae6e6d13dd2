package registry

import "errors"

// Catalog construction errors.
var (
	// ErrDuplicateID is returned when two descriptors share an id.
	ErrDuplicateID = errors.New("duplicate model id")

	// ErrInvalidDescriptor is returned for a descriptor with an empty id,
	// unknown role, or non-positive rank.
	ErrInvalidDescriptor = errors.New("invalid model descriptor")
)
