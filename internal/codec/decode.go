// Package codec translates between the mailbox wire format and the
// flattened content records used by the command layer.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

const (
	mimePlain = "text/plain"
	mimeHTML  = "text/html"
)

// Decode flattens msg into a ContentRecord. Parts are walked depth-first,
// left to right: the first non-empty text/plain part becomes the body; a
// text/html part is used only until a plain part turns up. Parts with a
// filename are listed as attachments and never become the body.
func Decode(msg gmail.Message) (gmail.ContentRecord, error) {
	rec := gmail.ContentRecord{
		ID:       msg.ID,
		ThreadID: msg.ThreadID,
		Labels:   append([]gmail.LabelID(nil), msg.LabelIDs...),
		Subject:  headerValue(msg.Payload, "Subject"),
		From:     headerValue(msg.Payload, "From"),
		To:       headerValue(msg.Payload, "To"),
		Cc:       headerValue(msg.Payload, "Cc"),
		Date:     headerValue(msg.Payload, "Date"),
	}
	w := &walker{}
	if err := w.walk(msg.Payload); err != nil {
		return gmail.ContentRecord{}, fmt.Errorf("decode message %s: %w", msg.ID, err)
	}
	rec.Body = w.body
	rec.BodyType = w.bodyType
	rec.Attachments = w.attachments
	return rec, nil
}

type walker struct {
	body        string
	bodyType    string
	plain       bool
	attachments []gmail.AttachmentInfo
}

func (w *walker) walk(p *gmail.Payload) error {
	if p == nil {
		return nil
	}
	if p.IsAttachment() {
		info := gmail.AttachmentInfo{PartID: p.PartID, Filename: p.Filename, MIMEType: p.MIMEType}
		if p.Body != nil {
			info.Size = p.Body.Size
			info.AttachmentID = p.Body.AttachmentID
		}
		w.attachments = append(w.attachments, info)
		return nil
	}
	if len(p.Parts) > 0 {
		for _, child := range p.Parts {
			if err := w.walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	switch mediaType(p.MIMEType) {
	case mimePlain:
		if w.plain {
			return nil
		}
		text, err := partText(p)
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		w.body, w.bodyType, w.plain = text, mimePlain, true
	case mimeHTML:
		if w.plain || w.body != "" {
			return nil
		}
		text, err := partText(p)
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		w.body, w.bodyType = text, mimeHTML
	}
	return nil
}

// partText returns the decoded body of a leaf part; no data is an empty body.
func partText(p *gmail.Payload) (string, error) {
	if p.Body == nil || p.Body.Data == "" {
		return "", nil
	}
	data, err := DecodeBase64URL(p.Body.Data)
	if err != nil {
		return "", fmt.Errorf("part %q: %w: %w", p.PartID, gmail.ErrEncoding, err)
	}
	return string(data), nil
}

// DecodeBase64URL accepts url-safe base64 with or without padding.
func DecodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	return base64.RawURLEncoding.DecodeString(s)
}

func headerValue(p *gmail.Payload, name string) gmail.Optional {
	v, ok := p.Header(name)
	if !ok {
		return gmail.Optional{}
	}
	return gmail.Some(v)
}

func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
