package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/99designs/keyring"
)

const (
	keyringService = "gmail-cli"
	keyringItem    = "token"
)

// OpenKeyring opens the OS keychain, falling back to an encrypted file
// backend under fileDir.
func OpenKeyring(fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("gmail-cli-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// KeyringStore keeps the credential JSON as a single keyring item.
type KeyringStore struct {
	Ring keyring.Keyring
	Key  string
}

func (s KeyringStore) key() string {
	if s.Key == "" {
		return keyringItem
	}
	return s.Key
}

func (s KeyringStore) Load() (*Credential, bool) {
	item, err := s.Ring.Get(s.key())
	if err != nil {
		return nil, false
	}
	c, err := decodeCredential(item.Data)
	if err != nil {
		return nil, false
	}
	return c, true
}

func (s KeyringStore) Save(c *Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	err = s.Ring.Set(keyring.Item{
		Key:         s.key(),
		Data:        data,
		Label:       "gmail-cli OAuth token",
		Description: "OAuth credential for the Gmail API",
	})
	if err != nil {
		return fmt.Errorf("store credential %q: %w", s.key(), err)
	}
	return nil
}

func (s KeyringStore) Remove() error {
	err := s.Ring.Remove(s.key())
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("delete credential %q: %w", s.key(), err)
}

var _ Store = KeyringStore{}
