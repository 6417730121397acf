package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

// ArtifactMissingError means the application secret needed for first-time
// authorization is not on disk. It is terminal for the invocation.
type ArtifactMissingError struct {
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("application secret %s not found", e.Path)
}

func (e *ArtifactMissingError) Unwrap() []error {
	return []error{gmail.ErrArtifactMissing, gmail.ErrAuthentication}
}

// Hint is the remediation shown to the user.
func (e *ArtifactMissingError) Hint() string {
	return "Setup:\n" +
		"  1. Open https://console.cloud.google.com/ and create or select a project\n" +
		"  2. Enable the Gmail API\n" +
		"  3. Create an OAuth client ID of type \"Desktop app\"\n" +
		"  4. Download the client secret JSON\n" +
		"  5. Save it as " + e.Path + "\n" +
		"Set GMAIL_CREDENTIALS_PATH to use a different location."
}

// LoadSecret reads an installed-app client secret file.
func LoadSecret(path string, scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ArtifactMissingError{Path: path}
		}
		return nil, fmt.Errorf("read application secret %s: %w: %w", path, gmail.ErrAuthentication, err)
	}
	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse application secret %s: %w: %w", path, gmail.ErrAuthentication, err)
	}
	return cfg, nil
}
