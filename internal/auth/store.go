package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists a single Credential.
type Store interface {
	// Load returns the stored credential; a missing or unparseable record is
	// reported as absent, never as an error.
	Load() (*Credential, bool)
	Save(c *Credential) error
	// Remove deletes the record; an absent record is not an error.
	Remove() error
}

// FileStore keeps the credential as a JSON file.
type FileStore struct {
	Path   string
	Logger *slog.Logger
}

func (s FileStore) log() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

func (s FileStore) Load() (*Credential, bool) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log().Debug("credential file unreadable", slog.String("path", s.Path), slog.Any("error", err))
		}
		return nil, false
	}
	c, err := decodeCredential(data)
	if err != nil {
		s.log().Debug("credential file unparseable", slog.String("path", s.Path), slog.Any("error", err))
		return nil, false
	}
	return c, true
}

// Save writes to a temporary file in the same directory and renames it over
// the target, so readers see either the old or the new record in full.
func (s FileStore) Save(c *Credential) (err error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync credential: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close credential: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace credential file %s: %w", s.Path, err)
	}
	return nil
}

func (s FileStore) Remove() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential file %s: %w", s.Path, err)
	}
	return nil
}

func decodeCredential(data []byte) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.AccessToken == "" && c.RefreshToken == "" {
		return nil, errors.New("record has neither access nor refresh token")
	}
	return &c, nil
}

var _ Store = FileStore{}
