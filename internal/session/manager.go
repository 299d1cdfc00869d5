package session

import (
	"context"
	"fmt"
	"sync"

	log "github.com/charmbracelet/log"

	"github.com/chukul/sessionctl/internal/clock"
	"github.com/chukul/sessionctl/internal/credfile"
	"github.com/chukul/sessionctl/internal/provider"
	"github.com/chukul/sessionctl/internal/tokencache"
)

const (
	// DefaultRoleDuration is the assume-role session length in seconds.
	DefaultRoleDuration int32 = 3600
	// DefaultTokenDuration is the MFA session-token length in seconds (12h),
	// so one code covers a working day of role assumptions.
	DefaultTokenDuration int32 = 43200
)

// Options tune a Manager. Zero values fall back to defaults.
type Options struct {
	RoleDuration  int32
	TokenDuration int32
	Notifier      Notifier
	Clock         clock.Clock
}

// Manager is the session lifecycle state machine. It serializes all
// transitions and sweeps behind one mutex; it is the single writer of
// session activation state.
type Manager struct {
	mu sync.Mutex

	registry *Registry
	files    *credfile.Store
	client   provider.Client
	cache    *tokencache.Cache
	notifier Notifier
	clk      clock.Clock

	roleDuration  int32
	tokenDuration int32

	// warned tracks sessions already notified for the current threshold
	// crossing; cleared on renewal or deactivation.
	warned map[string]bool
}

// NewManager wires the lifecycle engine from its injected collaborators.
func NewManager(registry *Registry, files *credfile.Store, client provider.Client, cache *tokencache.Cache, opts Options) *Manager {
	if opts.RoleDuration <= 0 {
		opts.RoleDuration = DefaultRoleDuration
	}
	if opts.TokenDuration <= 0 {
		opts.TokenDuration = DefaultTokenDuration
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}

	return &Manager{
		registry:      registry,
		files:         files,
		client:        client,
		cache:         cache,
		notifier:      opts.Notifier,
		clk:           opts.Clock,
		roleDuration:  opts.RoleDuration,
		tokenDuration: opts.TokenDuration,
		warned:        map[string]bool{},
	}
}

// Activate transitions a session to Active, obtaining credentials as its
// kind requires. Any failure aborts the transition and leaves the session
// Inactive; the reason is appended to the activity log.
func (m *Manager) Activate(ctx context.Context, idOrAlias, mfaCode string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry.Find(idOrAlias)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, idOrAlias)
	}
	return m.activateLocked(ctx, s, mfaCode)
}

// Deactivate transitions a session to Inactive and removes its credentials
// from the file. File cleanup is best effort: the in-memory state is
// authoritative, so removal failures are logged and the transition proceeds.
func (m *Manager) Deactivate(ctx context.Context, idOrAlias string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry.Find(idOrAlias)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, idOrAlias)
	}
	m.deactivateLocked(s, "deactivated")
	return s, nil
}

// Renew is exactly Deactivate followed by Activate. Configuration flags
// survive the round trip untouched; only activation state is rebuilt.
func (m *Manager) Renew(ctx context.Context, idOrAlias, mfaCode string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry.Find(idOrAlias)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, idOrAlias)
	}
	return m.renewLocked(ctx, s, mfaCode)
}

func (m *Manager) renewLocked(ctx context.Context, s *Session, mfaCode string) (*Session, error) {
	m.deactivateLocked(s, "deactivated for renewal")
	return m.activateLocked(ctx, s, mfaCode)
}

// Sessions lists the registry's sessions.
func (m *Manager) Sessions() []*Session {
	return m.registry.List()
}

// Find looks up one session by id or alias.
func (m *Manager) Find(idOrAlias string) (*Session, bool) {
	return m.registry.Find(idOrAlias)
}

func (m *Manager) activateLocked(ctx context.Context, s *Session, mfaCode string) (*Session, error) {
	var err error
	switch s.Kind {
	case KindDirect:
		err = m.activateDirect(s)
	case KindSSO:
		err = m.activateSSO(ctx, s)
	case KindAssumedRole:
		err = m.activateAssumedRole(ctx, s, mfaCode)
	default:
		err = fmt.Errorf("unknown session kind: %s", s.Kind)
	}

	if err != nil {
		lerr := &LifecycleError{Transition: "activate", Err: err}
		s.appendLog(m.clk.Now(), "activation failed: "+Reason(err))
		m.saveRegistry()
		return nil, lerr
	}

	delete(m.warned, s.ID)
	m.saveRegistry()
	return s, nil
}

// activateDirect activates long-lived keys already present in the
// credentials file. No provider call, no expiry, exempt from the sweep.
func (m *Manager) activateDirect(s *Session) error {
	creds, ok := m.files.Section(s.Alias)
	if !ok || creds.AccessKeyID == "" {
		return fmt.Errorf("no credentials found under [%s]; add the long-lived keys to %s first", s.Alias, m.files.Path())
	}

	s.Active = true
	s.ExpiresAt = nil
	s.ActiveAccessKeyID = creds.AccessKeyID
	s.appendLog(m.clk.Now(), "activated (long-lived credentials)")
	return nil
}

// activateSSO delegates to the provider's SSO session; no expiry is tracked
// on our side.
func (m *Manager) activateSSO(ctx context.Context, s *Session) error {
	if err := m.client.SSOLogin(ctx, s.Alias); err != nil {
		return err
	}

	s.Active = true
	s.ExpiresAt = nil
	s.ActiveAccessKeyID = ""
	s.appendLog(m.clk.Now(), "SSO session started")
	return nil
}

func (m *Manager) activateAssumedRole(ctx context.Context, s *Session, mfaCode string) error {
	var creds *provider.Credentials
	var err error

	switch {
	case s.MFASerial != "" && s.BypassTokenCache:
		// Fresh code every time; the result never touches the cache so it
		// stays exchangeable for a federation token.
		if mfaCode == "" {
			return mfaRequired()
		}
		creds, err = m.client.AssumeRole(ctx, provider.AssumeRoleInput{
			RoleArn:         s.RoleArn,
			SessionName:     s.Alias,
			SourceProfile:   s.SourceIdentity,
			MFASerial:       s.MFASerial,
			MFACode:         mfaCode,
			DurationSeconds: m.roleDuration,
		})

	case s.MFASerial != "":
		creds, err = m.assumeViaTokenCache(ctx, s, mfaCode)

	default:
		creds, err = m.client.AssumeRole(ctx, provider.AssumeRoleInput{
			RoleArn:         s.RoleArn,
			SessionName:     s.Alias,
			SourceProfile:   s.SourceIdentity,
			DurationSeconds: m.roleDuration,
		})
	}
	if err != nil {
		return err
	}

	if err := m.files.UpsertSection(s.Alias, credfile.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}); err != nil {
		return err
	}

	expiration := creds.Expiration
	s.Active = true
	s.ExpiresAt = &expiration
	s.ActiveAccessKeyID = creds.AccessKeyID
	s.appendLog(m.clk.Now(), fmt.Sprintf("assumed %s, expires %s", s.RoleArn, expiration.Local().Format(DisplayTimeFormat)))
	return nil
}

// assumeViaTokenCache satisfies the second factor through the token cache:
// a valid cached session token is written to the intermediate section and
// the role is assumed against it without MFA parameters. On a cache miss an
// MFA code is mandatory and the fresh token is cached for next time.
func (m *Manager) assumeViaTokenCache(ctx context.Context, s *Session, mfaCode string) (*provider.Credentials, error) {
	token, ok := m.cache.Get(s.SourceIdentity, s.MFASerial)
	if !ok {
		if mfaCode == "" {
			return nil, mfaRequired()
		}

		fresh, err := m.client.GetSessionToken(ctx, provider.GetSessionTokenInput{
			SourceProfile:   s.SourceIdentity,
			MFASerial:       s.MFASerial,
			MFACode:         mfaCode,
			DurationSeconds: m.tokenDuration,
		})
		if err != nil {
			return nil, err
		}
		if err := m.cache.Put(s.SourceIdentity, s.MFASerial, fresh); err != nil {
			log.Warn("failed to persist token cache", "error", err)
		}
		token = fresh
	}

	intermediate := intermediateSection(s.SourceIdentity)
	if err := m.files.UpsertSection(intermediate, credfile.Credentials{
		AccessKeyID:     token.AccessKeyID,
		SecretAccessKey: token.SecretAccessKey,
		SessionToken:    token.SessionToken,
	}); err != nil {
		return nil, err
	}

	return m.client.AssumeRole(ctx, provider.AssumeRoleInput{
		RoleArn:         s.RoleArn,
		SessionName:     s.Alias,
		SourceProfile:   intermediate,
		DurationSeconds: m.roleDuration,
	})
}

func (m *Manager) deactivateLocked(s *Session, logLine string) {
	// The default-section check must happen before the alias section is
	// gone; matching is by key material.
	if m.files.IsDefault(s.Alias) {
		if err := m.files.RemoveSection(credfile.DefaultSection); err != nil {
			log.Warn("failed to remove default section", "session", s.Alias, "error", err)
		}
	}
	if err := m.files.RemoveSection(s.Alias); err != nil {
		log.Warn("failed to remove credentials section", "session", s.Alias, "error", err)
		s.appendLog(m.clk.Now(), "warning: could not remove credentials file section: "+err.Error())
	}

	s.Active = false
	s.ExpiresAt = nil
	s.ActiveAccessKeyID = ""
	delete(m.warned, s.ID)
	s.appendLog(m.clk.Now(), logLine)
	m.saveRegistry()
}

// Sweep scans all sessions once: expired ones are forced Inactive,
// auto-renew sessions close to expiry are renewed silently when the cache
// allows, and everything else near expiry gets a single warning per
// threshold crossing. Per-session failures are isolated; the sweep always
// processes every session.
func (m *Manager) Sweep(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clk.Now()
	for _, s := range m.registry.List() {
		if !s.Active || s.ExpiresAt == nil {
			continue
		}
		remaining := s.ExpiresAt.Sub(now)

		switch {
		case remaining <= 0:
			// Credentials are unusable; just clear local state, no network
			// cleanup.
			log.Info("session expired", "session", s.Alias)
			m.deactivateLocked(s, "session expired")

		case s.AutoRenew && remaining <= RenewWindow && !m.warned[s.ID]:
			m.autoRenew(ctx, s)

		case !s.AutoRenew && remaining <= WarnWindow && !m.warned[s.ID]:
			m.warned[s.ID] = true
			m.notifier.ExpiringSoon(s, int(remaining.Minutes()))
		}
	}
}

// autoRenew renews without human input when possible. The cache path
// guarantees no secret re-entry is needed; the bypass path cannot renew
// without a human, so it gets a notification instead.
func (m *Manager) autoRenew(ctx context.Context, s *Session) {
	m.warned[s.ID] = true

	canSilent := s.MFASerial == "" ||
		(!s.BypassTokenCache && m.cache.HasValid(s.SourceIdentity, s.MFASerial))
	if !canSilent {
		m.notifier.AutoRenewNeedsMFA(s)
		return
	}

	if _, err := m.renewLocked(ctx, s, ""); err != nil {
		m.notifier.AutoRenewFailed(s, err)
		return
	}
	m.notifier.AutoRenewSucceeded(s)
}

func (m *Manager) saveRegistry() {
	if err := m.registry.Save(); err != nil {
		log.Warn("failed to save sessions file", "error", err)
	}
}

func intermediateSection(sourceIdentity string) string {
	return sourceIdentity + "-mfa"
}
