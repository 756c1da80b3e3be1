package object

import "errors"

var (
	// ErrObjectNotFound signals that no object exists at the path.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectTooLarge signals that the upload exceeds configured limits.
	ErrObjectTooLarge = errors.New("object too large")
	// ErrInvalidPath is returned for paths that are not {owner}/{name}.
	ErrInvalidPath = errors.New("invalid object path")
	// ErrForbidden is returned when the path's owner is not the caller.
	ErrForbidden = errors.New("object belongs to another owner")
)
