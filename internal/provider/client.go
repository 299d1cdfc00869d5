// Package provider invokes the AWS CLI and decodes its JSON output into
// typed results. One command per call, no retries, no caching; every failure
// surfaces to the caller classified by stderr content.
package provider

import (
	"context"
	"time"
)

// Credentials is the temporary key material returned by STS calls.
// Expiration is zero for long-lived keys.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Identity summarizes a get-caller-identity response.
type Identity struct {
	Account string
	Arn     string
	UserID  string
}

// AssumeRoleInput carries the parameters of one sts assume-role call.
// MFASerial and MFACode are either both set or both empty.
type AssumeRoleInput struct {
	RoleArn         string
	SessionName     string
	SourceProfile   string
	MFASerial       string
	MFACode         string
	DurationSeconds int32
}

// GetSessionTokenInput carries the parameters of one sts get-session-token
// call. The serial and code are always required here; callers that don't
// need MFA assume the role directly instead.
type GetSessionTokenInput struct {
	SourceProfile   string
	MFASerial       string
	MFACode         string
	DurationSeconds int32
}

// Client is the provider call surface the lifecycle manager depends on.
// Substituting a fake implementation is how the state machine is tested.
type Client interface {
	AssumeRole(ctx context.Context, in AssumeRoleInput) (*Credentials, error)
	GetSessionToken(ctx context.Context, in GetSessionTokenInput) (*Credentials, error)
	GetCallerIdentity(ctx context.Context, profile string) (*Identity, error)
	SSOLogin(ctx context.Context, profile string) error
}
