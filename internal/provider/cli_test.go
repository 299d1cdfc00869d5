package provider

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		stderr string
		want   ErrorKind
	}{
		{"An error occurred (AccessDenied) when calling the AssumeRole operation", KindAccessDenied},
		{"User: arn:aws:iam::123:user/x is not authorized to perform: sts:AssumeRole", KindAccessDenied},
		{"An error occurred (InvalidClientTokenId) when calling the GetSessionToken operation", KindInvalidCredentials},
		{"The security token included in the request is invalid", KindInvalidCredentials},
		{"An error occurred (ExpiredToken): the token has expired", KindInvalidCredentials},
		{"MultiFactorAuthentication failed with invalid MFA one time pass code", KindMFAInvalid},
		{"AccessDenied: MultiFactorAuthentication failed, unable to validate MFA code", KindMFAInvalid},
		{"Missing required parameter TokenCode", KindMFARequired},
		{"something exploded", KindOther},
	}

	for _, tc := range cases {
		got := classify(tc.stderr)
		assert.Equal(t, tc.want, got.Kind, "stderr: %s", tc.stderr)
		assert.Equal(t, tc.stderr, got.Message)
	}
}

func TestDecodeCredentials(t *testing.T) {
	out := []byte(`{
		"Credentials": {
			"AccessKeyId": "ASIAEXAMPLE",
			"SecretAccessKey": "secret",
			"SessionToken": "token",
			"Expiration": "2030-01-02T15:04:05Z"
		}
	}`)

	creds, err := decodeCredentials(out)
	require.NoError(t, err)
	assert.Equal(t, "ASIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "token", creds.SessionToken)
	assert.Equal(t, time.Date(2030, 1, 2, 15, 4, 5, 0, time.UTC), creds.Expiration)
}

func TestDecodeCredentialsMalformed(t *testing.T) {
	for _, out := range []string{"not json", "{}", `{"Credentials":{"AccessKeyId":"A","Expiration":"nope"}}`} {
		_, err := decodeCredentials([]byte(out))
		require.Error(t, err, "input: %s", out)
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, KindMalformed, perr.Kind)
	}
}

func TestResolveExecutableExplicitWins(t *testing.T) {
	got, err := resolveExecutable("/custom/bin/aws")
	require.NoError(t, err)
	assert.Equal(t, "/custom/bin/aws", got)
}

// writeStubCLI installs a shell script standing in for the aws binary.
func writeStubCLI(t *testing.T, script string) *CLI {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub CLI scripts are unix-only")
	}
	path := filepath.Join(t.TempDir(), "aws")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return &CLI{execPath: path}
}

func TestAssumeRoleViaStub(t *testing.T) {
	cli := writeStubCLI(t, `cat <<'EOF'
{"Credentials":{"AccessKeyId":"ASIASTUB","SecretAccessKey":"s","SessionToken":"t","Expiration":"2030-06-01T00:00:00Z"}}
EOF`)

	creds, err := cli.AssumeRole(context.Background(), AssumeRoleInput{
		RoleArn:       "arn:aws:iam::123456789012:role/Test",
		SessionName:   "test",
		SourceProfile: "default",
	})
	require.NoError(t, err)
	assert.Equal(t, "ASIASTUB", creds.AccessKeyID)
}

func TestNonZeroExitClassified(t *testing.T) {
	cli := writeStubCLI(t, `echo "An error occurred (AccessDenied) when calling the AssumeRole operation" >&2
exit 254`)

	_, err := cli.AssumeRole(context.Background(), AssumeRoleInput{
		RoleArn:       "arn:aws:iam::123456789012:role/Test",
		SessionName:   "test",
		SourceProfile: "default",
	})
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindAccessDenied, perr.Kind)
	assert.Contains(t, perr.Message, "AccessDenied")
}
