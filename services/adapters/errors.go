package adapters

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Failure kinds surfaced by adapters and the registry. Use errors.Is to classify.
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrAuthentication      = errors.New("authentication failed")
	ErrRemoteCall          = errors.New("remote call failed")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrBookingRejected     = errors.New("booking rejected")
)

// AdapterError carries the platform and, for rejections, the remote message.
type AdapterError struct {
	Kind     error
	Platform string
	Message  string
	Err      error
}

func (e *AdapterError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Platform, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error { return e.Err }

func (e *AdapterError) Is(target error) bool { return target == e.Kind }

func newAdapterError(kind error, platform, message string, cause error) error {
	return errors.WithStack(&AdapterError{Kind: kind, Platform: platform, Message: message, Err: cause})
}

// NewError builds a classified adapter failure for adapters living outside this package.
func NewError(kind error, platform, message string, cause error) error {
	return newAdapterError(kind, platform, message, cause)
}

func remoteError(platform string, cause error) error {
	return newAdapterError(ErrRemoteCall, platform, "", cause)
}

func authError(platform, message string) error {
	return newAdapterError(ErrAuthentication, platform, message, nil)
}

func malformedError(platform, message string, cause error) error {
	return newAdapterError(ErrMalformedResponse, platform, message, cause)
}

func rejectedError(platform, message string) error {
	return newAdapterError(ErrBookingRejected, platform, message, nil)
}

// classify makes sure deadline and cancellation surface as remote call failures
// while leaving already classified errors untouched.
func classify(platform string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return remoteError(platform, err)
	}
	return err
}

// RemoteMessage returns the remote platform's message for a rejected booking.
func RemoteMessage(err error) string {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}
