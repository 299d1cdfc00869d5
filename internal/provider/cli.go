package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/charmbracelet/log"
)

// maxStderr bounds the raw provider message carried in errors.
const maxStderr = 400

// probePaths are the common AWS CLI install locations tried when the
// executable isn't configured and isn't on PATH.
var probePaths = []string{
	"/opt/homebrew/bin/aws",
	"/usr/local/bin/aws",
	"/usr/bin/aws",
}

// CLI implements Client by spawning the AWS CLI binary.
type CLI struct {
	execPath string
}

// NewCLI resolves the AWS CLI executable. An explicit path wins; otherwise
// PATH lookup, then the fixed probe list.
func NewCLI(execPath string) (*CLI, error) {
	resolved, err := resolveExecutable(execPath)
	if err != nil {
		return nil, err
	}
	return &CLI{execPath: resolved}, nil
}

// ExecPath returns the resolved CLI binary path.
func (c *CLI) ExecPath() string { return c.execPath }

func resolveExecutable(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if found, err := exec.LookPath("aws"); err == nil {
		return found, nil
	}
	for _, p := range probePaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("aws CLI not found; install it or set the cli_path setting")
}

func (c *CLI) AssumeRole(ctx context.Context, in AssumeRoleInput) (*Credentials, error) {
	args := []string{
		"sts", "assume-role",
		"--role-arn", in.RoleArn,
		"--role-session-name", in.SessionName,
		"--profile", in.SourceProfile,
		"--output", "json",
	}
	if in.DurationSeconds > 0 {
		args = append(args, "--duration-seconds", fmt.Sprintf("%d", in.DurationSeconds))
	}
	if in.MFASerial != "" {
		args = append(args, "--serial-number", in.MFASerial, "--token-code", in.MFACode)
	}

	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return decodeCredentials(out)
}

func (c *CLI) GetSessionToken(ctx context.Context, in GetSessionTokenInput) (*Credentials, error) {
	args := []string{
		"sts", "get-session-token",
		"--serial-number", in.MFASerial,
		"--token-code", in.MFACode,
		"--duration-seconds", fmt.Sprintf("%d", in.DurationSeconds),
		"--profile", in.SourceProfile,
		"--output", "json",
	}

	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return decodeCredentials(out)
}

func (c *CLI) GetCallerIdentity(ctx context.Context, profile string) (*Identity, error) {
	out, err := c.run(ctx, []string{
		"sts", "get-caller-identity",
		"--profile", profile,
		"--output", "json",
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Account string `json:"Account"`
		Arn     string `json:"Arn"`
		UserID  string `json:"UserId"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, &Error{Kind: KindMalformed, Message: err.Error()}
	}
	return &Identity{Account: resp.Account, Arn: resp.Arn, UserID: resp.UserID}, nil
}

func (c *CLI) SSOLogin(ctx context.Context, profile string) error {
	_, err := c.run(ctx, []string{"sso", "login", "--profile", profile})
	return err
}

// run spawns the CLI and blocks until exit. Non-zero exit becomes a
// classified Error carrying the truncated stderr.
func (c *CLI) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.execPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("provider call", "cmd", args[0]+" "+args[1])
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		return nil, classify(msg)
	}

	return stdout.Bytes(), nil
}

// stsResponse is the wire shape shared by assume-role and get-session-token.
type stsResponse struct {
	Credentials struct {
		AccessKeyID     string `json:"AccessKeyId"`
		SecretAccessKey string `json:"SecretAccessKey"`
		SessionToken    string `json:"SessionToken"`
		Expiration      string `json:"Expiration"`
	} `json:"Credentials"`
}

func decodeCredentials(out []byte) (*Credentials, error) {
	var resp stsResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, &Error{Kind: KindMalformed, Message: err.Error()}
	}
	if resp.Credentials.AccessKeyID == "" {
		return nil, &Error{Kind: KindMalformed, Message: "response carries no credentials"}
	}

	expiration, err := time.Parse(time.RFC3339, resp.Credentials.Expiration)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, Message: fmt.Sprintf("bad expiration: %v", err)}
	}

	return &Credentials{
		AccessKeyID:     resp.Credentials.AccessKeyID,
		SecretAccessKey: resp.Credentials.SecretAccessKey,
		SessionToken:    resp.Credentials.SessionToken,
		Expiration:      expiration,
	}, nil
}

// classify maps raw stderr to the error taxonomy by substring match.
// MFA-failure wording is checked before the generic access-denied match
// because STS mentions both in the same message.
func classify(stderr string) *Error {
	switch {
	case contains(stderr, "MultiFactorAuthentication failed"), contains(stderr, "invalid MFA"):
		return &Error{Kind: KindMFAInvalid, Message: stderr}
	case contains(stderr, "AccessDenied"), contains(stderr, "not authorized to perform"):
		return &Error{Kind: KindAccessDenied, Message: stderr}
	case contains(stderr, "InvalidClientTokenId"),
		contains(stderr, "SignatureDoesNotMatch"),
		contains(stderr, "security token included in the request is invalid"),
		contains(stderr, "ExpiredToken"):
		return &Error{Kind: KindInvalidCredentials, Message: stderr}
	case contains(stderr, "MultiFactorAuthentication"), contains(stderr, "TokenCode"), contains(stderr, "MFA"):
		return &Error{Kind: KindMFARequired, Message: stderr}
	default:
		return &Error{Kind: KindOther, Message: stderr}
	}
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
