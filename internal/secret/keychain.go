//go:build darwin

package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/keybase/go-keychain"
)

const (
	KeychainService = "sessionctl"
	KeychainAccount = "cache-key"
)

// Get retrieves the cache-encryption secret from one of three sources
// (in priority order):
// 1. Explicit flag/argument (passed in)
// 2. Environment variable (SESSIONCTL_SECRET)
// 3. System Keychain (macOS only)
func Get(explicitSecret string) (string, error) {
	if explicitSecret != "" {
		return explicitSecret, nil
	}

	envSecret := os.Getenv("SESSIONCTL_SECRET")
	if envSecret != "" {
		return envSecret, nil
	}

	s, err := getKeychainSecret()
	if err == nil && s != "" {
		return s, nil
	}

	return "", fmt.Errorf("no secret found")
}

// SetupKeychain generates a random 32-byte key and stores it in the keychain.
func SetupKeychain() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	s := hex.EncodeToString(key) // 64 chars hex string

	if err := StoreKeychainSecret(s); err != nil {
		return "", err
	}
	return s, nil
}

// StoreKeychainSecret saves an existing secret into the keychain, replacing
// any previous item.
func StoreKeychainSecret(secret string) error {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(KeychainService)
	item.SetAccount(KeychainAccount)
	item.SetLabel("SessionCtl Cache Key")
	item.SetAccessGroup(KeychainService)
	item.SetData([]byte(secret))
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	keychain.DeleteItem(item)

	if err := keychain.AddItem(item); err != nil {
		return fmt.Errorf("failed to save to keychain: %w", err)
	}
	return nil
}

func getKeychainSecret() (string, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(KeychainService)
	query.SetAccount(KeychainAccount)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		return "", err
	} else if len(results) != 1 {
		return "", fmt.Errorf("secret not found in keychain")
	}

	return string(results[0].Data), nil
}
