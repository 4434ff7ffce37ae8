package authcore

import (
	"errors"
	"fmt"
)

// classifyProviderError normalizes identity-provider failures onto the
// package sentinels so callers can branch with errors.Is regardless of
// which provider implementation is wired in.
func classifyProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNetwork),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrUnauthorized):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
}
