// Package config loads the tool configuration from ~/.sessionctl/config.yaml
// with SESSIONCTL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configDirName = ".sessionctl"
	configName    = "config"
	configType    = "yaml"
	envPrefix     = "SESSIONCTL"
	awsDirName    = ".aws"
	cacheFileName = "token-cache.json"
	sessionsName  = "sessions.json"
	daemonPIDName = "daemon.pid"
	daemonLogName = "daemon.log"
)

// Config is the resolved tool configuration.
type Config struct {
	// CLIPath overrides provider CLI discovery when set.
	CLIPath string

	CredentialsFile string
	ProfileConfig   string
	SessionsFile    string
	CacheFile       string
	DaemonPIDFile   string
	DaemonLogFile   string

	// EncryptCache seals the token cache with the keychain-managed key.
	EncryptCache bool

	SweepInterval time.Duration
	RoleDuration  int32
	TokenDuration int32

	Region string
}

// Dir returns the tool's own config directory (~/.sessionctl).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// Load reads config.yaml if present and fills defaults for everything else.
// A missing config file is not an error.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, configDirName)

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cli_path", "")
	v.SetDefault("credentials_file", filepath.Join(home, awsDirName, "credentials"))
	v.SetDefault("profile_config", filepath.Join(home, awsDirName, "config"))
	v.SetDefault("sessions_file", filepath.Join(dir, sessionsName))
	v.SetDefault("cache_file", filepath.Join(dir, cacheFileName))
	v.SetDefault("daemon_pid_file", filepath.Join(dir, daemonPIDName))
	v.SetDefault("daemon_log_file", filepath.Join(dir, daemonLogName))
	v.SetDefault("encrypt_cache", false)
	v.SetDefault("sweep_interval", "30s")
	v.SetDefault("role_duration", 3600)
	v.SetDefault("token_duration", 43200)
	v.SetDefault("region", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		CLIPath:         v.GetString("cli_path"),
		CredentialsFile: v.GetString("credentials_file"),
		ProfileConfig:   v.GetString("profile_config"),
		SessionsFile:    v.GetString("sessions_file"),
		CacheFile:       v.GetString("cache_file"),
		DaemonPIDFile:   v.GetString("daemon_pid_file"),
		DaemonLogFile:   v.GetString("daemon_log_file"),
		EncryptCache:    v.GetBool("encrypt_cache"),
		SweepInterval:   v.GetDuration("sweep_interval"),
		RoleDuration:    v.GetInt32("role_duration"),
		TokenDuration:   v.GetInt32("token_duration"),
		Region:          v.GetString("region"),
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	return cfg, nil
}
