package certificate

import "errors"

var (
	// ErrCertificateNotFound signals that no record with the id exists for the owner.
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrTitleRequired is returned when a title is blank.
	ErrTitleRequired = errors.New("title is required")
	// ErrInvalidFile is returned when file reference fields are missing or negative.
	ErrInvalidFile = errors.New("invalid file reference")
)
