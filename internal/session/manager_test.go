package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chukul/sessionctl/internal/clock"
	"github.com/chukul/sessionctl/internal/credfile"
	"github.com/chukul/sessionctl/internal/provider"
	"github.com/chukul/sessionctl/internal/tokencache"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClient struct {
	assumeRoleCalls   []provider.AssumeRoleInput
	tokenCalls        []provider.GetSessionTokenInput
	ssoLogins         []string
	identityProfiles  []string
	assumeRoleErr     error
	tokenErr          error
	identityErr       error
	credentialExpiry  time.Time
	nextAccessKeySeq  int
}

func (f *fakeClient) AssumeRole(_ context.Context, in provider.AssumeRoleInput) (*provider.Credentials, error) {
	f.assumeRoleCalls = append(f.assumeRoleCalls, in)
	if f.assumeRoleErr != nil {
		return nil, f.assumeRoleErr
	}
	f.nextAccessKeySeq++
	return &provider.Credentials{
		AccessKeyID:     "ASIAROLE" + string(rune('0'+f.nextAccessKeySeq)),
		SecretAccessKey: "role-secret",
		SessionToken:    "role-token",
		Expiration:      f.credentialExpiry,
	}, nil
}

func (f *fakeClient) GetSessionToken(_ context.Context, in provider.GetSessionTokenInput) (*provider.Credentials, error) {
	f.tokenCalls = append(f.tokenCalls, in)
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &provider.Credentials{
		AccessKeyID:     "ASIATOKEN",
		SecretAccessKey: "token-secret",
		SessionToken:    "token-token",
		Expiration:      testNow.Add(12 * time.Hour),
	}, nil
}

func (f *fakeClient) GetCallerIdentity(_ context.Context, profile string) (*provider.Identity, error) {
	f.identityProfiles = append(f.identityProfiles, profile)
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return &provider.Identity{Account: "123456789012", Arn: "arn:aws:iam::123456789012:user/dev", UserID: "AIDAEXAMPLE"}, nil
}

func (f *fakeClient) SSOLogin(_ context.Context, profile string) error {
	f.ssoLogins = append(f.ssoLogins, profile)
	return nil
}

type recordingNotifier struct {
	expiring       []string
	needsMFA       []string
	renewFailed    []string
	renewSucceeded []string
}

func (n *recordingNotifier) ExpiringSoon(s *Session, _ int)     { n.expiring = append(n.expiring, s.Alias) }
func (n *recordingNotifier) AutoRenewNeedsMFA(s *Session)       { n.needsMFA = append(n.needsMFA, s.Alias) }
func (n *recordingNotifier) AutoRenewFailed(s *Session, _ error) {
	n.renewFailed = append(n.renewFailed, s.Alias)
}
func (n *recordingNotifier) AutoRenewSucceeded(s *Session) {
	n.renewSucceeded = append(n.renewSucceeded, s.Alias)
}

type fixture struct {
	manager  *Manager
	client   *fakeClient
	cache    *tokencache.Cache
	files    *credfile.Store
	notifier *recordingNotifier
}

func newFixture(t *testing.T, sessions ...*Session) *fixture {
	t.Helper()
	dir := t.TempDir()

	registry, err := NewRegistry(filepath.Join(dir, "sessions.json"))
	require.NoError(t, err)
	for _, s := range sessions {
		require.NoError(t, registry.Put(s))
	}

	cache, err := tokencache.New(tokencache.NewMemoryBackend(), clock.Fixed{T: testNow})
	require.NoError(t, err)

	client := &fakeClient{credentialExpiry: testNow.Add(time.Hour)}
	notifier := &recordingNotifier{}
	files := credfile.NewStore(filepath.Join(dir, "credentials"))

	return &fixture{
		manager: NewManager(registry, files, client, cache, Options{
			Notifier: notifier,
			Clock:    clock.Fixed{T: testNow},
		}),
		client:   client,
		cache:    cache,
		files:    files,
		notifier: notifier,
	}
}

func roleSession(alias string) *Session {
	return &Session{
		ID:             "sess-" + alias,
		Alias:          alias,
		Kind:           KindAssumedRole,
		RoleArn:        "arn:aws:iam::123456789012:role/developer",
		SourceIdentity: "corp",
	}
}

func mfaRoleSession(alias string) *Session {
	s := roleSession(alias)
	s.MFASerial = "arn:aws:iam::123456789012:mfa/dev"
	return s
}

func TestActivateMFAColdCacheUsesIntermediateProfile(t *testing.T) {
	f := newFixture(t, mfaRoleSession("dev"))

	s, err := f.manager.Activate(context.Background(), "dev", "123456")
	require.NoError(t, err)

	require.Len(t, f.client.tokenCalls, 1)
	assert.Equal(t, "corp", f.client.tokenCalls[0].SourceProfile)
	assert.Equal(t, "123456", f.client.tokenCalls[0].MFACode)
	assert.Equal(t, DefaultTokenDuration, f.client.tokenCalls[0].DurationSeconds)

	// The role assumption runs against the intermediate section, without
	// MFA parameters.
	require.Len(t, f.client.assumeRoleCalls, 1)
	assert.Equal(t, "corp-mfa", f.client.assumeRoleCalls[0].SourceProfile)
	assert.Empty(t, f.client.assumeRoleCalls[0].MFACode)
	assert.Empty(t, f.client.assumeRoleCalls[0].MFASerial)

	inter, ok := f.files.Section("corp-mfa")
	require.True(t, ok)
	assert.Equal(t, "ASIATOKEN", inter.AccessKeyID)

	creds, ok := f.files.Section("dev")
	require.True(t, ok)
	assert.Equal(t, s.ActiveAccessKeyID, creds.AccessKeyID)

	assert.True(t, s.Active)
	require.NotNil(t, s.ExpiresAt)
	assert.Equal(t, testNow.Add(time.Hour), *s.ExpiresAt)
	assert.True(t, f.cache.HasValid("corp", s.MFASerial))
}

func TestActivateMFAWarmCacheSkipsTokenCall(t *testing.T) {
	f := newFixture(t, mfaRoleSession("dev"))
	require.NoError(t, f.cache.Put("corp", "arn:aws:iam::123456789012:mfa/dev", &provider.Credentials{
		AccessKeyID:     "ASIACACHED",
		SecretAccessKey: "cached-secret",
		SessionToken:    "cached-token",
		Expiration:      testNow.Add(6 * time.Hour),
	}))

	_, err := f.manager.Activate(context.Background(), "dev", "")
	require.NoError(t, err)

	assert.Empty(t, f.client.tokenCalls)
	require.Len(t, f.client.assumeRoleCalls, 1)
	assert.Equal(t, "corp-mfa", f.client.assumeRoleCalls[0].SourceProfile)

	inter, ok := f.files.Section("corp-mfa")
	require.True(t, ok)
	assert.Equal(t, "ASIACACHED", inter.AccessKeyID)
}

func TestActivateMFAColdCacheWithoutCodeFailsBeforeAnyCall(t *testing.T) {
	f := newFixture(t, mfaRoleSession("dev"))

	_, err := f.manager.Activate(context.Background(), "dev", "")
	require.Error(t, err)

	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, provider.KindMFARequired, perr.Kind)

	assert.Empty(t, f.client.tokenCalls)
	assert.Empty(t, f.client.assumeRoleCalls)

	s, _ := f.manager.Find("dev")
	assert.False(t, s.Active)
	require.Len(t, s.ActivityLog, 1)
}

func TestActivateBypassCacheNeverTouchesCache(t *testing.T) {
	s := mfaRoleSession("console")
	s.BypassTokenCache = true
	f := newFixture(t, s)

	_, err := f.manager.Activate(context.Background(), "console", "654321")
	require.NoError(t, err)

	assert.Empty(t, f.client.tokenCalls)
	require.Len(t, f.client.assumeRoleCalls, 1)
	assert.Equal(t, "654321", f.client.assumeRoleCalls[0].MFACode)
	assert.Equal(t, "corp", f.client.assumeRoleCalls[0].SourceProfile)
	assert.Equal(t, 0, f.cache.Len())

	_, ok := f.files.Section("corp-mfa")
	assert.False(t, ok)
}

func TestActivateBypassCacheRequiresCode(t *testing.T) {
	s := mfaRoleSession("console")
	s.BypassTokenCache = true
	f := newFixture(t, s)

	_, err := f.manager.Activate(context.Background(), "console", "")
	require.Error(t, err)
	assert.Empty(t, f.client.assumeRoleCalls)
}

func TestActivateWithoutMFAAssumesDirectly(t *testing.T) {
	f := newFixture(t, roleSession("plain"))

	_, err := f.manager.Activate(context.Background(), "plain", "")
	require.NoError(t, err)

	assert.Empty(t, f.client.tokenCalls)
	require.Len(t, f.client.assumeRoleCalls, 1)
	assert.Equal(t, "corp", f.client.assumeRoleCalls[0].SourceProfile)
	assert.Equal(t, DefaultRoleDuration, f.client.assumeRoleCalls[0].DurationSeconds)
}

func TestActivateFailureLeavesSessionInactive(t *testing.T) {
	f := newFixture(t, roleSession("denied"))
	f.client.assumeRoleErr = &provider.Error{Kind: provider.KindAccessDenied, Message: "not authorized"}

	_, err := f.manager.Activate(context.Background(), "denied", "")
	require.Error(t, err)

	var lerr *LifecycleError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "activate", lerr.Transition)

	s, _ := f.manager.Find("denied")
	assert.False(t, s.Active)
	assert.Nil(t, s.ExpiresAt)
	require.Len(t, s.ActivityLog, 1)
	assert.Contains(t, s.ActivityLog[0].Message, "activation failed")

	_, ok := f.files.Section("denied")
	assert.False(t, ok)
}

func TestActivateDirectRequiresExistingSection(t *testing.T) {
	s := &Session{ID: "sess-keys", Alias: "keys", Kind: KindDirect}
	f := newFixture(t, s)

	_, err := f.manager.Activate(context.Background(), "keys", "")
	require.Error(t, err)
	assert.False(t, s.Active)

	require.NoError(t, f.files.UpsertSection("keys", credfile.Credentials{
		AccessKeyID:     "AKIADIRECT",
		SecretAccessKey: "direct-secret",
	}))

	got, err := f.manager.Activate(context.Background(), "keys", "")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Nil(t, got.ExpiresAt)
	assert.Equal(t, "AKIADIRECT", got.ActiveAccessKeyID)
	assert.Empty(t, f.client.assumeRoleCalls)
}

func TestActivateSSODelegatesToProvider(t *testing.T) {
	s := &Session{ID: "sess-sso", Alias: "org-sso", Kind: KindSSO}
	f := newFixture(t, s)

	got, err := f.manager.Activate(context.Background(), "org-sso", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"org-sso"}, f.client.ssoLogins)
	assert.True(t, got.Active)
	assert.Nil(t, got.ExpiresAt)
}

func TestActivateUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Activate(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeactivateRemovesFileSectionsIncludingDefault(t *testing.T) {
	f := newFixture(t, roleSession("dev"))

	_, err := f.manager.Activate(context.Background(), "dev", "")
	require.NoError(t, err)
	require.NoError(t, f.files.SetDefault("dev"))
	require.True(t, f.files.IsDefault("dev"))

	s, err := f.manager.Deactivate(context.Background(), "dev")
	require.NoError(t, err)

	assert.False(t, s.Active)
	assert.Nil(t, s.ExpiresAt)
	assert.Empty(t, s.ActiveAccessKeyID)

	_, ok := f.files.Section("dev")
	assert.False(t, ok)
	_, ok = f.files.Section(credfile.DefaultSection)
	assert.False(t, ok)
}

func TestDeactivateLeavesUnrelatedDefaultAlone(t *testing.T) {
	f := newFixture(t, roleSession("dev"))
	require.NoError(t, f.files.UpsertSection(credfile.DefaultSection, credfile.Credentials{
		AccessKeyID:     "AKIAOTHER",
		SecretAccessKey: "other-secret",
	}))

	_, err := f.manager.Activate(context.Background(), "dev", "")
	require.NoError(t, err)
	_, err = f.manager.Deactivate(context.Background(), "dev")
	require.NoError(t, err)

	def, ok := f.files.Section(credfile.DefaultSection)
	require.True(t, ok)
	assert.Equal(t, "AKIAOTHER", def.AccessKeyID)
}

func TestRenewPreservesConfiguration(t *testing.T) {
	s := mfaRoleSession("dev")
	s.AutoRenew = true
	s.Region = "eu-west-1"
	f := newFixture(t, s)

	_, err := f.manager.Activate(context.Background(), "dev", "111111")
	require.NoError(t, err)
	firstKey := s.ActiveAccessKeyID

	renewed, err := f.manager.Renew(context.Background(), "dev", "")
	require.NoError(t, err)

	assert.Equal(t, "dev", renewed.Alias)
	assert.Equal(t, KindAssumedRole, renewed.Kind)
	assert.Equal(t, "eu-west-1", renewed.Region)
	assert.True(t, renewed.AutoRenew)
	assert.Equal(t, "arn:aws:iam::123456789012:mfa/dev", renewed.MFASerial)
	assert.True(t, renewed.Active)
	assert.NotEqual(t, firstKey, renewed.ActiveAccessKeyID)

	// Renewal reuses the cached token; one code for the whole day.
	require.Len(t, f.client.tokenCalls, 1)
	require.Len(t, f.client.assumeRoleCalls, 2)
}

func TestSweepForcesExpiredSessionsInactive(t *testing.T) {
	f := newFixture(t, roleSession("stale"))
	_, err := f.manager.Activate(context.Background(), "stale", "")
	require.NoError(t, err)

	s, _ := f.manager.Find("stale")
	past := testNow.Add(-time.Minute)
	s.ExpiresAt = &past

	f.manager.Sweep(context.Background())

	assert.False(t, s.Active)
	_, ok := f.files.Section("stale")
	assert.False(t, ok)
}

func TestSweepAutoRenewsSilentlyFromCache(t *testing.T) {
	s := mfaRoleSession("dev")
	s.AutoRenew = true
	f := newFixture(t, s)

	_, err := f.manager.Activate(context.Background(), "dev", "222222")
	require.NoError(t, err)

	soon := testNow.Add(4 * time.Minute)
	s.ExpiresAt = &soon

	f.manager.Sweep(context.Background())

	// The renewal ran off the cached token: still only one token call.
	require.Len(t, f.client.tokenCalls, 1)
	assert.Equal(t, []string{"dev"}, f.notifier.renewSucceeded)
	assert.True(t, s.Active)
	require.NotNil(t, s.ExpiresAt)
	assert.True(t, s.ExpiresAt.After(soon))
}

func TestSweepAutoRenewNeedsMFANotifiesOnce(t *testing.T) {
	s := mfaRoleSession("console")
	s.AutoRenew = true
	s.BypassTokenCache = true
	f := newFixture(t, s)

	_, err := f.manager.Activate(context.Background(), "console", "333333")
	require.NoError(t, err)
	soon := testNow.Add(4 * time.Minute)
	s.ExpiresAt = &soon

	f.manager.Sweep(context.Background())
	f.manager.Sweep(context.Background())

	assert.Equal(t, []string{"console"}, f.notifier.needsMFA)
	assert.Empty(t, f.notifier.renewSucceeded)
	assert.True(t, s.Active)
}

func TestSweepWarnsOncePerCrossing(t *testing.T) {
	f := newFixture(t, roleSession("dev"))
	_, err := f.manager.Activate(context.Background(), "dev", "")
	require.NoError(t, err)

	s, _ := f.manager.Find("dev")
	soon := testNow.Add(8 * time.Minute)
	s.ExpiresAt = &soon

	f.manager.Sweep(context.Background())
	f.manager.Sweep(context.Background())

	assert.Equal(t, []string{"dev"}, f.notifier.expiring)
	assert.True(t, s.Active)
}

func TestSweepIgnoresInactiveAndUnexpiringSessions(t *testing.T) {
	direct := &Session{ID: "sess-keys", Alias: "keys", Kind: KindDirect, Active: true}
	idle := roleSession("idle")
	f := newFixture(t, direct, idle)

	f.manager.Sweep(context.Background())

	assert.Empty(t, f.notifier.expiring)
	assert.Empty(t, f.notifier.needsMFA)
	assert.True(t, direct.Active)
}

func TestReasonHumanizesProviderErrors(t *testing.T) {
	err := &LifecycleError{Transition: "activate", Err: &provider.Error{Kind: provider.KindMFAInvalid, Message: "code rejected"}}
	assert.Contains(t, Reason(err), "code rejected")

	plain := errors.New("disk full")
	assert.Equal(t, "disk full", Reason(plain))
}
