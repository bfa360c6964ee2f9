package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidOffsets       = errors.New("chunk offsets out of range")
	ErrEmptyContent         = errors.New("content cannot be empty")
	ErrNoChildren           = errors.New("parent chunk has no children")
	ErrBrokenParentLink     = errors.New("child does not reference its parent")
	ErrInvalidStructureType = errors.New("invalid structure type")
	ErrMissingDocumentID    = errors.New("document id is required")
)
