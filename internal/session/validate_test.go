package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chukul/sessionctl/internal/provider"
)

func writeProfileFiles(t *testing.T, credentials, config string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	credPath := filepath.Join(dir, "credentials")
	confPath := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(credPath, []byte(credentials), 0600))
	require.NoError(t, os.WriteFile(confPath, []byte(config), 0600))
	return credPath, confPath
}

func result(r *Report, check string) (CheckResult, bool) {
	for _, res := range r.Results {
		if res.Check == check {
			return res, true
		}
	}
	return CheckResult{}, false
}

func TestValidateAllChecksPass(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "[corp]\naws_access_key_id = AKIA\naws_secret_access_key = secret\n", "")
	client := &fakeClient{credentialExpiry: testNow.Add(time.Hour)}
	v := NewValidator(client, credPath, confPath)

	report := v.Validate(context.Background(), roleSession("dev"), "")

	assert.True(t, report.Valid())
	require.Len(t, report.Results, 4)
	assert.Equal(t, []string{"corp"}, client.identityProfiles)
	require.Len(t, client.assumeRoleCalls, 1)
	assert.Equal(t, int32(900), client.assumeRoleCalls[0].DurationSeconds)
}

func TestValidateStopsOnMissingSourceProfile(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "[other]\naws_access_key_id = AKIA\n", "")
	client := &fakeClient{}
	v := NewValidator(client, credPath, confPath)

	report := v.Validate(context.Background(), roleSession("dev"), "")

	assert.False(t, report.Valid())
	require.Len(t, report.Results, 1)
	assert.Equal(t, SeverityError, report.Results[0].Severity)
	assert.Empty(t, client.identityProfiles)
}

func TestValidateFindsProfileInConfigFile(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "", "[profile corp]\nregion = eu-west-1\n")
	client := &fakeClient{credentialExpiry: testNow.Add(time.Hour)}
	v := NewValidator(client, credPath, confPath)

	report := v.Validate(context.Background(), roleSession("dev"), "")
	res, ok := result(report, "source identity")
	require.True(t, ok)
	assert.Equal(t, SeverityOK, res.Severity)
}

func TestValidateStopsOnBadSourceCredentials(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "[corp]\naws_access_key_id = AKIA\n", "")
	client := &fakeClient{identityErr: &provider.Error{Kind: provider.KindInvalidCredentials, Message: "expired token"}}
	v := NewValidator(client, credPath, confPath)

	report := v.Validate(context.Background(), roleSession("dev"), "")

	assert.False(t, report.Valid())
	res, ok := result(report, "source credentials")
	require.True(t, ok)
	assert.Equal(t, SeverityError, res.Severity)
	assert.Contains(t, res.Detail, "expired token")
	assert.Empty(t, client.assumeRoleCalls)
}

func TestValidateRejectsMalformedRoleArn(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "[corp]\naws_access_key_id = AKIA\n", "")
	client := &fakeClient{}
	v := NewValidator(client, credPath, confPath)

	s := roleSession("dev")
	s.RoleArn = "arn:aws:iam::12:role/short-account"
	report := v.Validate(context.Background(), s, "")

	assert.False(t, report.Valid())
	res, _ := result(report, "role ARN")
	assert.Equal(t, SeverityError, res.Severity)
	assert.Empty(t, client.assumeRoleCalls)
}

func TestValidateMFASerialShapeIsAdvisory(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "[corp]\naws_access_key_id = AKIA\n", "")
	client := &fakeClient{credentialExpiry: testNow.Add(time.Hour)}
	v := NewValidator(client, credPath, confPath)

	s := mfaRoleSession("dev")
	s.MFASerial = "GAHT12345678" // hardware token serial
	report := v.Validate(context.Background(), s, "")

	assert.True(t, report.Valid())
	res, ok := result(report, "MFA serial")
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, res.Severity)
}

func TestValidateSkipsLiveCheckWithoutMFACode(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "[corp]\naws_access_key_id = AKIA\n", "")
	client := &fakeClient{}
	v := NewValidator(client, credPath, confPath)

	report := v.Validate(context.Background(), mfaRoleSession("dev"), "")

	assert.True(t, report.Valid())
	res, ok := result(report, "role assumption")
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, res.Severity)
	assert.Contains(t, res.Detail, "skipped")
	assert.Empty(t, client.assumeRoleCalls)
}

func TestValidateRunsLiveCheckWithMFACode(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "[corp]\naws_access_key_id = AKIA\n", "")
	client := &fakeClient{credentialExpiry: testNow.Add(time.Hour)}
	v := NewValidator(client, credPath, confPath)

	report := v.Validate(context.Background(), mfaRoleSession("dev"), "123456")

	assert.True(t, report.Valid())
	require.Len(t, client.assumeRoleCalls, 1)
	assert.Equal(t, "123456", client.assumeRoleCalls[0].MFACode)
}

func TestValidateNonRoleKindsPassTrivially(t *testing.T) {
	credPath, confPath := writeProfileFiles(t, "", "")
	v := NewValidator(&fakeClient{}, credPath, confPath)

	report := v.Validate(context.Background(), &Session{ID: "s", Alias: "keys", Kind: KindDirect}, "")

	assert.True(t, report.Valid())
	require.Len(t, report.Results, 1)
	assert.Equal(t, SeverityOK, report.Results[0].Severity)
}
