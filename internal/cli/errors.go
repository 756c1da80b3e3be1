package cli

import "errors"

var (
	ErrNotSignedIn = errors.New("not signed in; run `certvault login`")
	ErrNoPassword  = errors.New("password is required")
)

// reportedError marks a failure whose message already reached the user as a notice.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}
