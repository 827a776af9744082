package session

import (
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const serviceName = "qytetaret"

// tokenKey is the keyring entry holding the gateway session token.
const tokenKey = "gateway-token"

// TokenStore abstracts durable storage of the gateway session token.
type TokenStore interface {
	Set(token string) error
	Get() (string, error)
	Clear() error
}

// KeyringTokenStore keeps the token in the OS keyring, falling back to
// an encrypted file backend where no system keychain is available.
type KeyringTokenStore struct{}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/qytetaret/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("qytetaret-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Set stores the session token in the system keyring.
func (KeyringTokenStore) Set(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  tokenKey,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}
	return nil
}

// Get retrieves the session token from the system keyring.
func (KeyringTokenStore) Get() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(tokenKey)
	if err != nil {
		return "", fmt.Errorf("reading session token: %w", err)
	}
	return string(item.Data), nil
}

// Clear removes the session token from the system keyring.
func (KeyringTokenStore) Clear() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(tokenKey); err != nil {
		return fmt.Errorf("removing session token: %w", err)
	}
	return nil
}

// MemoryTokenStore holds the token in memory only. Tests and fallback
// mode use it; the token does not survive a restart.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

func (m *MemoryTokenStore) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
	return nil
}

func (m *MemoryTokenStore) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", fmt.Errorf("no session token stored")
	}
	return m.token, nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
	return nil
}
