// Package session holds the credential session model and the lifecycle
// state machine that drives it.
package session

import (
	"time"
)

// DisplayTimeFormat is the standard time format used across the application.
const DisplayTimeFormat = "2006-01-02 15:04:05"

// Kind is how a session obtains its credentials.
type Kind string

const (
	// KindDirect uses long-lived keys already present in the credentials
	// file; no provider call, no expiry.
	KindDirect Kind = "direct"
	// KindAssumedRole exchanges a source identity (plus optional MFA) for
	// temporary role credentials.
	KindAssumedRole Kind = "assumed-role"
	// KindSSO delegates to the provider's own SSO session.
	KindSSO Kind = "sso"
)

// Status is the derived lifecycle state of a session.
type Status string

const (
	StatusInactive     Status = "inactive"
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring-soon"
)

const (
	// RenewWindow is how close to expiry auto-renew sessions are renewed.
	RenewWindow = 5 * time.Minute
	// WarnWindow is how close to expiry non-auto-renew sessions trigger an
	// expiration warning.
	WarnWindow = 10 * time.Minute
)

// LogEntry is one timestamped line of a session's activity log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Session is one configured identity-to-use mapping. Configuration fields
// (everything up to AutoRenew) are owned by the user; the remaining fields
// are activation state owned by the Manager.
type Session struct {
	ID        string `json:"id"`
	Alias     string `json:"alias"`
	Kind      Kind   `json:"kind"`
	Region    string `json:"region,omitempty"`
	AccountID string `json:"account_id,omitempty"`

	RoleArn        string `json:"role_arn,omitempty"`
	MFASerial      string `json:"mfa_serial,omitempty"`
	SourceIdentity string `json:"source_identity,omitempty"`

	// BypassTokenCache forces a fresh MFA code on every activation and
	// keeps the resulting credentials out of the token cache. Required for
	// browser federation, which cannot re-exchange session-token
	// credentials.
	BypassTokenCache bool `json:"bypass_token_cache"`
	AutoRenew        bool `json:"auto_renew"`

	Active            bool       `json:"active"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	ActiveAccessKeyID string     `json:"active_access_key_id,omitempty"`

	ActivityLog []LogEntry `json:"activity_log,omitempty"`
}

// Status derives the lifecycle state at the given instant. ExpiringSoon is a
// display annotation of Active, not a distinct machine state.
func (s *Session) Status(now time.Time) Status {
	if !s.Active {
		return StatusInactive
	}
	if s.ExpiresAt == nil {
		// Direct and SSO sessions track no expiry.
		return StatusActive
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return StatusInactive
	}
	if remaining <= WarnWindow {
		return StatusExpiringSoon
	}
	return StatusActive
}

// Remaining returns the time left until expiry, or zero when no expiry is
// tracked.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.ExpiresAt == nil {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// appendLog adds one line to the append-only activity log. The log is
// bounded only by an explicit ClearLog.
func (s *Session) appendLog(now time.Time, message string) {
	s.ActivityLog = append(s.ActivityLog, LogEntry{Time: now, Message: message})
}

// ClearLog empties the activity log.
func (s *Session) ClearLog() {
	s.ActivityLog = nil
}
