package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidConfig = errors.New("invalid policy config")

	ErrInvalidBackend   = errors.New("invalid backend")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedEvent marks inbound events missing user or message identifiers.
	// They are dropped by the dispatcher and never reach the policy engine.
	ErrMalformedEvent = errors.New("malformed event")

	// User-facing rejections. Decision.Err maps rejected outcomes to these.
	ErrQuotaExceeded    = errors.New("daily link quota exceeded")
	ErrReciprocityUnmet = errors.New("reciprocity rule not met")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
