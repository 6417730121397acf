package codec

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

func fixedNow() time.Time { return time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC) }

func roundTrip(t *testing.T, enc Encoded) (gmail.ContentRecord, *gmail.Payload) {
	t.Helper()
	payload, err := ParseRaw(enc.Raw)
	if err != nil {
		t.Fatalf("parse raw failed: %v", err)
	}
	rec, err := Decode(gmail.Message{ID: "sent", Payload: payload})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return rec, payload
}

func TestEncodeRoundTripNoAttachments(t *testing.T) {
	req := Request{
		To:      "alice@example.com",
		Subject: "Quarterly report",
		Body:    "line one\nline two\n\n-- \nsig",
	}
	enc, err := Encode(req, Options{Now: fixedNow, Logger: slogDiscard()})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if enc.Size == 0 || enc.Raw == "" {
		t.Fatalf("empty envelope: %+v", enc)
	}
	rec, payload := roundTrip(t, enc)
	if rec.To.Value != req.To || rec.Subject.Value != req.Subject || rec.Body != req.Body {
		t.Fatalf("round trip mismatch: to=%q subject=%q body=%q", rec.To.Value, rec.Subject.Value, rec.Body)
	}
	if !strings.HasPrefix(payload.MIMEType, "multipart/") {
		t.Fatalf("zero attachments must still use a multipart envelope, got %s", payload.MIMEType)
	}
	if len(payload.Parts) != 1 || payload.Parts[0].MIMEType != "text/plain" {
		t.Fatalf("expected exactly one text/plain part, got %+v", payload.Parts)
	}
	if len(rec.Attachments) != 0 {
		t.Fatalf("unexpected attachments: %+v", rec.Attachments)
	}
	if !rec.Date.Set {
		t.Fatalf("expected Date header")
	}
}

func TestEncodeSkipsMissingAttachment(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "invoice.pdf")
	if err := os.WriteFile(present, []byte("%PDF-1.4 fake"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	missing := filepath.Join(dir, "missing.txt")

	req := Request{
		To:          "bob@example.com",
		Subject:     "Invoice",
		Body:        "see attached",
		Attachments: []string{missing, present},
	}
	enc, err := Encode(req, Options{Now: fixedNow, Logger: slogDiscard()})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(enc.Skipped) != 1 || enc.Skipped[0] != missing {
		t.Fatalf("expected missing path to be skipped, got %+v", enc.Skipped)
	}
	if len(enc.Attached) != 1 || enc.Attached[0] != "invoice.pdf" {
		t.Fatalf("unexpected attached list %+v", enc.Attached)
	}

	rec, payload := roundTrip(t, enc)
	if rec.Body != req.Body || rec.To.Value != req.To || rec.Subject.Value != req.Subject {
		t.Fatalf("round trip mismatch: %+v", rec)
	}
	if len(payload.Parts) != 2 {
		t.Fatalf("expected body + one attachment part, got %d parts", len(payload.Parts))
	}
	if len(rec.Attachments) != 1 {
		t.Fatalf("expected exactly one attachment, got %+v", rec.Attachments)
	}
	att := rec.Attachments[0]
	if att.Filename != "invoice.pdf" || att.MIMEType != "application/octet-stream" || att.Size != int64(len("%PDF-1.4 fake")) {
		t.Fatalf("unexpected attachment %+v", att)
	}
	disp, _ := payload.Parts[1].Header("Content-Disposition")
	if !strings.HasPrefix(disp, "attachment") {
		t.Fatalf("attachment part disposition = %q", disp)
	}
	data, err := DecodeBase64URL(payload.Parts[1].Body.Data)
	if err != nil || string(data) != "%PDF-1.4 fake" {
		t.Fatalf("attachment bytes mismatch: %q %v", data, err)
	}
}

func TestEncodePassesCcBccVerbatim(t *testing.T) {
	req := Request{
		To:      "alice@example.com",
		Subject: "hi",
		Body:    "body",
		Cc:      "bob@example.com, carol@example.com",
		Bcc:     "dave@example.com",
	}
	enc, err := Encode(req, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	payload, err := ParseRaw(enc.Raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cc, _ := payload.Header("cc"); cc != req.Cc {
		t.Fatalf("cc = %q", cc)
	}
	if bcc, _ := payload.Header("bcc"); bcc != req.Bcc {
		t.Fatalf("bcc = %q", bcc)
	}
}

func TestEncodeNonASCIISubject(t *testing.T) {
	req := Request{To: "a@example.com", Subject: "Résumé für dich", Body: "ünïcödé body"}
	enc, err := Encode(req, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	rec, _ := roundTrip(t, enc)
	if rec.Subject.Value != req.Subject || rec.Body != req.Body {
		t.Fatalf("round trip mismatch: %q %q", rec.Subject.Value, rec.Body)
	}
}

func TestEncodeValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing to", req: Request{Subject: "s", Body: "b"}},
		{name: "missing subject", req: Request{To: "a@example.com", Body: "b"}},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(tc.req, Options{})
			if !errors.Is(err, ErrIncomplete) {
				t.Fatalf("expected ErrIncomplete, got %v", err)
			}
		})
	}
}

func TestEncodeDirectoryAttachmentFails(t *testing.T) {
	req := Request{To: "a@example.com", Subject: "s", Body: "b", Attachments: []string{t.TempDir()}}
	_, err := Encode(req, Options{})
	if !errors.Is(err, gmail.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestParseRawRejectsGarbage(t *testing.T) {
	if _, err := ParseRaw("***"); !errors.Is(err, gmail.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
