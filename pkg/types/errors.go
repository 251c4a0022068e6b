package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyName    = errors.New("item name cannot be empty")
	ErrInvalidKind  = errors.New("invalid item kind")
	ErrNegativeLoc  = errors.New("item location must be >= 0")
	ErrRootRequired = errors.New("project root is required")
)
