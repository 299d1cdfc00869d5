package credfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/gofrs/flock"
)

// DefaultSection is the reserved section read by tools that don't specify a
// profile. Whichever session's key material it carries is the "active"
// identity.
const DefaultSection = "default"

const managedComment = "; managed by sessionctl"

const (
	maxLockRetries = 50
	lockRetryDelay = 10 * time.Millisecond
)

// ErrSectionNotFound is returned when an operation references a section that
// does not exist in the credentials file.
var ErrSectionNotFound = errors.New("section not found")

// Credentials is the key material held by one credentials-file section.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Store is the single writer for the shared AWS credentials file. All
// mutations are whole-file textual rewrites serialized behind an in-process
// mutex and a cross-process file lock; the file is not a database and
// unsynchronized concurrent rewrites would corrupt it.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewStore creates a store for the credentials file at path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// DefaultPath returns the OS-standard shared credentials file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aws", "credentials")
}

// Path returns the credentials file location this store writes.
func (s *Store) Path() string { return s.path }

// UpsertSection replaces the named section wholesale: any previous lines for
// that section are removed and a fresh block is appended. Stale keys are
// never merged.
func (s *Store) UpsertSection(name string, creds Credentials) error {
	return s.withLock(func() error {
		lines := s.readLines()
		lines, _ = removeSectionLines(lines, name)
		lines = trimTrailingBlank(lines)

		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, managedComment)
		lines = append(lines, fmt.Sprintf("[%s]", name))
		lines = append(lines, fmt.Sprintf("aws_access_key_id = %s", creds.AccessKeyID))
		lines = append(lines, fmt.Sprintf("aws_secret_access_key = %s", creds.SecretAccessKey))
		if creds.SessionToken != "" {
			lines = append(lines, fmt.Sprintf("aws_session_token = %s", creds.SessionToken))
		}

		log.Debug("credentials file upsert", "section", name, "path", s.path)
		return s.writeLines(lines)
	})
}

// RemoveSection deletes the named section. No-op if the section is absent.
func (s *Store) RemoveSection(name string) error {
	return s.withLock(func() error {
		lines := s.readLines()
		lines, removed := removeSectionLines(lines, name)
		if !removed {
			return nil
		}
		log.Debug("credentials file remove", "section", name, "path", s.path)
		return s.writeLines(trimTrailingBlank(lines))
	})
}

// SetDefault copies the named section's key material into the reserved
// default section. Fails with ErrSectionNotFound if the section is missing
// or carries no access key; expiry is the caller's responsibility.
func (s *Store) SetDefault(name string) error {
	return s.withLock(func() error {
		lines := s.readLines()
		creds, ok := parseSection(lines, name)
		if !ok || creds.AccessKeyID == "" {
			return fmt.Errorf("%w: %s", ErrSectionNotFound, name)
		}

		lines, _ = removeSectionLines(lines, DefaultSection)
		lines = trimTrailingBlank(lines)
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, managedComment)
		lines = append(lines, fmt.Sprintf("[%s]", DefaultSection))
		lines = append(lines, fmt.Sprintf("aws_access_key_id = %s", creds.AccessKeyID))
		lines = append(lines, fmt.Sprintf("aws_secret_access_key = %s", creds.SecretAccessKey))
		if creds.SessionToken != "" {
			lines = append(lines, fmt.Sprintf("aws_session_token = %s", creds.SessionToken))
		}

		log.Debug("credentials file set default", "section", name, "path", s.path)
		return s.writeLines(lines)
	})
}

// IsDefault reports whether the named section's access-key id matches the
// default section's (both non-empty). Lock-free best-effort snapshot; a
// concurrent write can race it.
func (s *Store) IsDefault(name string) bool {
	lines := s.readLines()
	def, okDef := parseSection(lines, DefaultSection)
	sec, okSec := parseSection(lines, name)
	return okDef && okSec && def.AccessKeyID != "" && def.AccessKeyID == sec.AccessKeyID
}

// Section returns the key material of the named section, if present.
// Lock-free best-effort snapshot.
func (s *Store) Section(name string) (Credentials, bool) {
	return parseSection(s.readLines(), name)
}

func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	var locked bool
	var err error
	for i := 0; i < maxLockRetries; i++ {
		locked, err = s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to acquire credentials file lock: %w", err)
		}
		if locked {
			break
		}
		time.Sleep(lockRetryDelay)
	}
	if !locked {
		return fmt.Errorf("credentials file is locked by another process")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			log.Warn("failed to unlock credentials file", "error", err, "path", s.path)
		}
	}()

	return fn()
}

// readLines treats an unreadable file as empty content, which yields
// section-not-found semantics everywhere above.
func (s *Store) readLines() []string {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	return strings.Split(string(content), "\n")
}

func (s *Store) writeLines(lines []string) error {
	output := ""
	if len(lines) > 0 {
		output = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(s.path, []byte(output), 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// removeSectionLines drops the named section: its header, its body up to the
// next header, and the managed comment and blank separator directly above it.
func removeSectionLines(lines []string, name string) ([]string, bool) {
	out := make([]string, 0, len(lines))
	removed := false
	skip := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			skip = strings.Trim(trimmed, "[]") == name
			if skip {
				removed = true
				for len(out) > 0 {
					last := strings.TrimSpace(out[len(out)-1])
					if last == "" || strings.HasPrefix(last, managedComment) {
						out = out[:len(out)-1]
						continue
					}
					break
				}
				continue
			}
		}

		if !skip {
			out = append(out, line)
		}
	}

	return out, removed
}

func parseSection(lines []string, name string) (Credentials, bool) {
	var creds Credentials
	inSection := false
	found := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inSection = strings.Trim(trimmed, "[]") == name
			if inSection {
				found = true
			}
			continue
		}
		if !inSection || trimmed == "" || strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "aws_access_key_id":
			creds.AccessKeyID = strings.TrimSpace(value)
		case "aws_secret_access_key":
			creds.SecretAccessKey = strings.TrimSpace(value)
		case "aws_session_token":
			creds.SessionToken = strings.TrimSpace(value)
		}
	}

	return creds, found
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
