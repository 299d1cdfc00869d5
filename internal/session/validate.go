package session

import (
	"context"
	"fmt"
	"regexp"

	ini "gopkg.in/ini.v1"

	"github.com/chukul/sessionctl/internal/provider"
)

// Severity of one validation check result.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Check    string
	Severity Severity
	Detail   string
}

// Report is an ordered list of check results for one session.
type Report struct {
	Results []CheckResult
}

// Valid reports whether no check produced an error. Warnings do not fail a
// report.
func (r *Report) Valid() bool {
	for _, res := range r.Results {
		if res.Severity == SeverityError {
			return false
		}
	}
	return true
}

func (r *Report) add(check string, severity Severity, detail string) {
	r.Results = append(r.Results, CheckResult{Check: check, Severity: severity, Detail: detail})
}

var (
	roleArnRe   = regexp.MustCompile(`^arn:aws:iam::\d{12}:role/[\w+=,.@-]+$`)
	mfaSerialRe = regexp.MustCompile(`^arn:aws:iam::\d{12}:mfa/[\w+=,.@-]+$`)
)

// Validator checks a session's configuration against the local profile
// files and the provider, before the user depends on it.
type Validator struct {
	client          provider.Client
	credentialsPath string
	configPath      string
}

// NewValidator builds a validator over the given provider client and the
// profile files to check source identities against.
func NewValidator(client provider.Client, credentialsPath, configPath string) *Validator {
	return &Validator{client: client, credentialsPath: credentialsPath, configPath: configPath}
}

// Validate runs the configured checks in order and stops at the first
// error. Only assumed-role sessions have anything to verify; other kinds
// pass trivially. The mfaCode, when given, lets the final check perform a
// live role assumption even for MFA-protected roles.
func (v *Validator) Validate(ctx context.Context, s *Session, mfaCode string) *Report {
	report := &Report{}

	if s.Kind != KindAssumedRole {
		report.add("session kind", SeverityOK, fmt.Sprintf("%s sessions need no validation", s.Kind))
		return report
	}

	if !v.profileExists(s.SourceIdentity) {
		report.add("source identity", SeverityError,
			fmt.Sprintf("profile '%s' not found in %s or %s", s.SourceIdentity, v.credentialsPath, v.configPath))
		return report
	}
	report.add("source identity", SeverityOK, fmt.Sprintf("profile '%s' exists", s.SourceIdentity))

	identity, err := v.client.GetCallerIdentity(ctx, s.SourceIdentity)
	if err != nil {
		report.add("source credentials", SeverityError, Reason(err))
		return report
	}
	report.add("source credentials", SeverityOK, fmt.Sprintf("authenticated as %s", identity.Arn))

	if !roleArnRe.MatchString(s.RoleArn) {
		report.add("role ARN", SeverityError, fmt.Sprintf("'%s' is not a valid IAM role ARN", s.RoleArn))
		return report
	}
	report.add("role ARN", SeverityOK, "well-formed")

	if s.MFASerial != "" {
		if mfaSerialRe.MatchString(s.MFASerial) {
			report.add("MFA serial", SeverityOK, "well-formed")
		} else {
			// Hardware token serials do not follow the ARN form, so this is
			// advisory only.
			report.add("MFA serial", SeverityWarning, fmt.Sprintf("'%s' does not look like an MFA device ARN", s.MFASerial))
		}
	}

	v.checkAssumeRole(ctx, s, mfaCode, report)
	return report
}

func (v *Validator) checkAssumeRole(ctx context.Context, s *Session, mfaCode string, report *Report) {
	if s.MFASerial != "" && mfaCode == "" {
		report.add("role assumption", SeverityWarning, "skipped: an MFA code is needed to test this role")
		return
	}

	input := provider.AssumeRoleInput{
		RoleArn:         s.RoleArn,
		SessionName:     s.Alias + "-validate",
		SourceProfile:   s.SourceIdentity,
		DurationSeconds: 900,
	}
	if s.MFASerial != "" {
		input.MFASerial = s.MFASerial
		input.MFACode = mfaCode
	}

	if _, err := v.client.AssumeRole(ctx, input); err != nil {
		report.add("role assumption", SeverityError, Reason(err))
		return
	}
	report.add("role assumption", SeverityOK, "role assumed successfully")
}

// profileExists reports whether the named profile appears in either the
// credentials file (plain section) or the config file ("profile X" section).
func (v *Validator) profileExists(name string) bool {
	if name == "" {
		return false
	}
	if f, err := ini.Load(v.credentialsPath); err == nil {
		if _, err := f.GetSection(name); err == nil {
			return true
		}
	}
	if f, err := ini.Load(v.configPath); err == nil {
		if _, err := f.GetSection("profile " + name); err == nil {
			return true
		}
		if name == "default" {
			if _, err := f.GetSection("default"); err == nil {
				return true
			}
		}
	}
	return false
}
