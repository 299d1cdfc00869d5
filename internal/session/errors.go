package session

import (
	"errors"
	"fmt"

	"github.com/chukul/sessionctl/internal/provider"
)

// ErrSessionNotFound is returned when no session matches the given id or
// alias.
var ErrSessionNotFound = errors.New("session not found")

// LifecycleError wraps the provider or file error that aborted a transition,
// tagged with the transition name. The session is left in its pre-transition
// state.
type LifecycleError struct {
	Transition string
	Err        error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Transition, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// Reason turns a lifecycle failure into the human-readable line that goes to
// the activity log.
func Reason(err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		if perr.Message != "" {
			return fmt.Sprintf("%s (%s)", perr.Label(), perr.Message)
		}
		return perr.Label()
	}
	return err.Error()
}

func mfaRequired() *provider.Error {
	return &provider.Error{Kind: provider.KindMFARequired, Message: "an MFA code is required to activate this session"}
}
