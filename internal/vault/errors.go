package vault

import "errors"

var (
	// ErrNotSignedIn is returned by every flow started without a session.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNoSignedURL is returned when the gateway answers a signing request without a link.
	ErrNoSignedURL = errors.New("no signed url returned")
	// ErrNotEditing is returned by Save when no edit is in progress.
	ErrNotEditing = errors.New("no edit in progress")
	// ErrUploadInProgress guards the upload state machine while a submission runs.
	ErrUploadInProgress = errors.New("upload already in progress")
	// ErrNotReady is returned by Submit when CanSubmit is false.
	ErrNotReady = errors.New("select a file and enter a title first")
)

// ValidationError is a user-facing rejection raised before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// userMessager is implemented by errors that carry a message fit for display,
// such as gateway responses.
type userMessager interface {
	UserMessage() string
}

// Message picks the text shown for err: a validation or gateway message
// when there is one, fallback otherwise.
func Message(err error, fallback string) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var remote userMessager
	if errors.As(err, &remote) && remote.UserMessage() != "" {
		return remote.UserMessage()
	}
	if errors.Is(err, ErrNoSignedURL) {
		return "Failed to generate download URL"
	}
	return fallback
}
