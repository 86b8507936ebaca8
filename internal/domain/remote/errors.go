// internal/domain/remote/errors.go
package remote

import (
	"errors"
	"fmt"
)

// ErrorKind separates connectivity failures from rejections by the service.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindApplication
)

// GenericFailureMessage is shown to users when the service could not be reached.
const GenericFailureMessage = "The originality service is temporarily unavailable, try again later"

// Error is a failed call to the checking service.
type Error struct {
	Kind    ErrorKind
	Message string // text supplied by the service, empty for transport failures
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "remote call failed"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// TransportError wraps a network level failure.
func TransportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// ApplicationError is a rejection carrying the service's own message.
func ApplicationError(message string) *Error {
	return &Error{Kind: KindApplication, Message: message}
}

// IsTransport reports whether err is a connectivity failure. Errors that are
// not *Error are treated as transport failures.
func IsTransport(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == KindTransport
	}
	return err != nil
}

// UserMessage is the text stored on a document and shown to users: the
// service's message for rejections, a generic text otherwise.
func UserMessage(err error) string {
	var re *Error
	if errors.As(err, &re) && re.Kind == KindApplication && re.Message != "" {
		return re.Message
	}
	return GenericFailureMessage
}
