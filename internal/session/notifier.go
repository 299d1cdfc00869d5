package session

import (
	log "github.com/charmbracelet/log"
)

// Notifier is the outbound notification collaborator. Implementations may
// surface desktop notifications; the default just logs.
type Notifier interface {
	ExpiringSoon(s *Session, minutesRemaining int)
	AutoRenewNeedsMFA(s *Session)
	AutoRenewFailed(s *Session, err error)
	AutoRenewSucceeded(s *Session)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) ExpiringSoon(s *Session, minutesRemaining int) {
	log.Warn("session expiring soon", "session", s.Alias, "minutes", minutesRemaining)
}

func (LogNotifier) AutoRenewNeedsMFA(s *Session) {
	log.Warn("auto-renew needs an MFA code", "session", s.Alias)
}

func (LogNotifier) AutoRenewFailed(s *Session, err error) {
	log.Error("auto-renew failed", "session", s.Alias, "error", err)
}

func (LogNotifier) AutoRenewSucceeded(s *Session) {
	log.Info("auto-renew succeeded", "session", s.Alias)
}
