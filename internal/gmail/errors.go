package gmail

import "errors"

// Failure classes. Errors returned by the client, codec and authenticator
// wrap exactly one of these; match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrAuthentication  = errors.New("authentication failed")
	ErrArtifactMissing = errors.New("application secret missing")
	ErrEncoding        = errors.New("encoding failure")
	ErrRemote          = errors.New("remote failure")
)

// Kind names the failure class of err, or "" when it wraps none of them.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrArtifactMissing):
		return "artifact-missing"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrRemote):
		return "remote"
	default:
		return ""
	}
}
