package types

import "fmt"

// ParseError reports a strategy-specific failure for a single file.
// The scan that hit it logs the error and skips the file.
type ParseError struct {
	Path     string
	Strategy string
	Err      error
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", pe.Strategy, pe.Path, pe.Err)
}

// Unwrap returns the underlying cause
func (pe *ParseError) Unwrap() error {
	return pe.Err
}
