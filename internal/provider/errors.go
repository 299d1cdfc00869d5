package provider

import "fmt"

// ErrorKind classifies a provider CLI failure from its stderr text.
type ErrorKind string

const (
	KindAccessDenied       ErrorKind = "access_denied"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindMFARequired        ErrorKind = "mfa_required"
	KindMFAInvalid         ErrorKind = "mfa_invalid"
	KindMalformed          ErrorKind = "malformed"
	KindOther              ErrorKind = "other"
)

// Error is a classified provider CLI failure. Message carries the raw
// (truncated) stderr so the user sees what the provider actually said.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Label returns a short human-readable name for the error kind.
func (e *Error) Label() string {
	switch e.Kind {
	case KindAccessDenied:
		return "access denied"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindMFARequired:
		return "MFA code required"
	case KindMFAInvalid:
		return "MFA code rejected"
	case KindMalformed:
		return "malformed provider response"
	default:
		return "provider error"
	}
}
