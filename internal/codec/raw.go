package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/emersion/go-message"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

// ParseRaw turns a base64url RFC 5322 envelope (the form Encode produces and
// the remote returns for format=raw) into the payload tree Decode consumes.
func ParseRaw(raw string) (*gmail.Payload, error) {
	data, err := DecodeBase64URL(raw)
	if err != nil {
		return nil, fmt.Errorf("decode raw envelope: %w: %w", gmail.ErrEncoding, err)
	}
	ent, err := message.Read(bytes.NewReader(data))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("parse raw envelope: %w: %w", gmail.ErrEncoding, err)
	}
	return entityPayload(ent, "")
}

func entityPayload(ent *message.Entity, partID string) (*gmail.Payload, error) {
	mediaType, params, err := ent.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = mimePlain
	}
	p := &gmail.Payload{
		PartID:   partID,
		MIMEType: mediaType,
		Headers:  entityHeaders(ent.Header),
	}
	if _, dparams, derr := ent.Header.ContentDisposition(); derr == nil && dparams["filename"] != "" {
		p.Filename = dparams["filename"]
	} else if params["name"] != "" {
		p.Filename = params["name"]
	}

	if mr := ent.MultipartReader(); mr != nil {
		for i := 0; ; i++ {
			child, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
				return nil, fmt.Errorf("read part %s: %w: %w", childPartID(partID, i), gmail.ErrEncoding, err)
			}
			cp, err := entityPayload(child, childPartID(partID, i))
			if err != nil {
				return nil, err
			}
			p.Parts = append(p.Parts, cp)
		}
		return p, nil
	}

	body, err := io.ReadAll(ent.Body)
	if err != nil {
		return nil, fmt.Errorf("read part %q body: %w: %w", partID, gmail.ErrEncoding, err)
	}
	p.Body = &gmail.Body{Size: int64(len(body))}
	if len(body) > 0 {
		p.Body.Data = base64.URLEncoding.EncodeToString(body)
	}
	return p, nil
}

func entityHeaders(h message.Header) []gmail.Header {
	var out []gmail.Header
	fields := h.Fields()
	for fields.Next() {
		v, err := fields.Text()
		if err != nil {
			v = fields.Value()
		}
		out = append(out, gmail.Header{Name: fields.Key(), Value: v})
	}
	return out
}

func childPartID(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return parent + "." + strconv.Itoa(i)
}
