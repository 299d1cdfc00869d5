package cmd

import (
	"crypto/sha256"
	"fmt"

	"github.com/chukul/sessionctl/internal/config"
	"github.com/chukul/sessionctl/internal/credfile"
	"github.com/chukul/sessionctl/internal/provider"
	"github.com/chukul/sessionctl/internal/secret"
	"github.com/chukul/sessionctl/internal/session"
	"github.com/chukul/sessionctl/internal/tokencache"
)

// app is the wired object graph every command runs against.
type app struct {
	cfg       *config.Config
	files     *credfile.Store
	client    provider.Client
	cache     *tokencache.Cache
	registry  *session.Registry
	manager   *session.Manager
	validator *session.Validator
}

func wireApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	client, err := provider.NewCLI(cfg.CLIPath)
	if err != nil {
		return nil, fmt.Errorf("locate provider CLI: %w", err)
	}

	cache, err := openCache(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := session.NewRegistry(cfg.SessionsFile)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	files := credfile.NewStore(cfg.CredentialsFile)
	manager := session.NewManager(registry, files, client, cache, session.Options{
		RoleDuration:  cfg.RoleDuration,
		TokenDuration: cfg.TokenDuration,
	})

	return &app{
		cfg:       cfg,
		files:     files,
		client:    client,
		cache:     cache,
		registry:  registry,
		manager:   manager,
		validator: session.NewValidator(client, cfg.CredentialsFile, cfg.ProfileConfig),
	}, nil
}

// openCache picks the cache backend: plain JSON by default, AES-sealed when
// encrypt_cache is on and a key is available.
func openCache(cfg *config.Config) (*tokencache.Cache, error) {
	var backend tokencache.Backend
	if cfg.EncryptCache {
		key, err := secret.Get("")
		if err != nil {
			return nil, fmt.Errorf("encrypt_cache is on but no secret is available: %w", err)
		}
		// Stretch whatever the user gave us to the 32 bytes AES-256 wants.
		sum := sha256.Sum256([]byte(key))
		backend = tokencache.NewEncryptedFileBackend(cfg.CacheFile, sum[:])
	} else {
		backend = tokencache.NewFileBackend(cfg.CacheFile)
	}

	cache, err := tokencache.New(backend, nil)
	if err != nil {
		return nil, fmt.Errorf("open token cache: %w", err)
	}
	return cache, nil
}
