package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

// ErrIncomplete reports a composition request missing a required field.
var ErrIncomplete = errors.New("incomplete composition request")

// Request describes a message to send or draft. Cc and Bcc are passed through
// verbatim and may hold comma separated lists.
type Request struct {
	To          string
	Subject     string
	Body        string
	Cc          string
	Bcc         string
	Attachments []string // local file paths
}

// Options tunes Encode.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Encoded is the wire form of a Request.
type Encoded struct {
	Raw      string   // base64url of the complete RFC 5322 envelope
	Attached []string // file names that made it into the envelope
	Skipped  []string // paths that did not exist
	Size     int      // envelope size in bytes before base64url
}

// Encode builds a multipart/mixed envelope with one text/plain body part and
// one base64 attachment part per existing file. Paths that do not exist are
// skipped and logged; files that exist but cannot be read fail the encode.
func Encode(req Request, opts Options) (Encoded, error) {
	if strings.TrimSpace(req.To) == "" {
		return Encoded{}, fmt.Errorf("%w: recipient is required", ErrIncomplete)
	}
	if strings.TrimSpace(req.Subject) == "" {
		return Encoded{}, fmt.Errorf("%w: subject is required", ErrIncomplete)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var h mail.Header
	h.SetDate(now())
	h.Set("MIME-Version", "1.0")
	h.Set("To", req.To)
	if req.Cc != "" {
		h.Set("Cc", req.Cc)
	}
	if req.Bcc != "" {
		h.Set("Bcc", req.Bcc)
	}
	h.SetSubject(req.Subject)

	var (
		buf bytes.Buffer
		out Encoded
	)
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return Encoded{}, fmt.Errorf("create envelope: %w: %w", gmail.ErrEncoding, err)
	}
	if err := writeBody(mw, req.Body); err != nil {
		return Encoded{}, err
	}
	for _, path := range req.Attachments {
		name, err := writeAttachment(mw, path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("attachment not found, skipping", slog.String("path", path))
			out.Skipped = append(out.Skipped, path)
			continue
		}
		if err != nil {
			return Encoded{}, err
		}
		out.Attached = append(out.Attached, name)
	}
	if err := mw.Close(); err != nil {
		return Encoded{}, fmt.Errorf("close envelope: %w: %w", gmail.ErrEncoding, err)
	}

	out.Size = buf.Len()
	out.Raw = base64.URLEncoding.EncodeToString(buf.Bytes())
	return out, nil
}

func writeBody(mw *mail.Writer, body string) error {
	var th mail.InlineHeader
	th.SetContentType(mimePlain, map[string]string{"charset": "utf-8"})
	// body bytes must survive untouched, including bare \n
	th.Set("Content-Transfer-Encoding", "base64")
	w, err := mw.CreateSingleInline(th)
	if err != nil {
		return fmt.Errorf("create body part: %w: %w", gmail.ErrEncoding, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write body part: %w: %w", gmail.ErrEncoding, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body part: %w: %w", gmail.ErrEncoding, err)
	}
	return nil
}

// writeAttachment returns an error wrapping fs.ErrNotExist when path is absent.
func writeAttachment(mw *mail.Writer, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		return "", fmt.Errorf("stat attachment %s: %w: %w", path, gmail.ErrEncoding, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("attachment %s is a directory: %w", path, gmail.ErrEncoding)
	}
	f, err := os.Open(path) // #nosec G304 - path chosen by the user
	if err != nil {
		return "", fmt.Errorf("open attachment %s: %w: %w", path, gmail.ErrEncoding, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var ah mail.AttachmentHeader
	ah.SetContentType("application/octet-stream", nil)
	ah.SetFilename(name)
	ah.Set("Content-Transfer-Encoding", "base64")
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return "", fmt.Errorf("create attachment part %s: %w: %w", name, gmail.ErrEncoding, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("read attachment %s: %w: %w", path, gmail.ErrEncoding, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close attachment part %s: %w: %w", name, gmail.ErrEncoding, err)
	}
	return name, nil
}
