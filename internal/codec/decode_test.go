package codec

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func textPart(id, mimeType, text string) *gmail.Payload {
	p := &gmail.Payload{PartID: id, MIMEType: mimeType, Body: &gmail.Body{Size: int64(len(text))}}
	if text != "" {
		p.Body.Data = b64(text)
	}
	return p
}

func TestDecodePlainWinsOverEarlierHTML(t *testing.T) {
	msg := gmail.Message{
		ID:       "m1",
		ThreadID: "t1",
		LabelIDs: []gmail.LabelID{"INBOX"},
		Payload: &gmail.Payload{
			MIMEType: "multipart/alternative",
			Headers: []gmail.Header{
				{Name: "subject", Value: "Weekly"},
				{Name: "FROM", Value: "alerts@example.com"},
			},
			Parts: []*gmail.Payload{
				textPart("0", "text/html", "<p>html body</p>"),
				textPart("1", "text/plain", "plain body"),
			},
		},
	}
	rec, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.Body != "plain body" || rec.BodyType != "text/plain" {
		t.Fatalf("expected plain body, got %q (%s)", rec.Body, rec.BodyType)
	}
	if rec.Subject.Or("No Subject") != "Weekly" || rec.From.Or("Unknown") != "alerts@example.com" {
		t.Fatalf("unexpected headers: %+v %+v", rec.Subject, rec.From)
	}
	if rec.To.Set || rec.Date.Set {
		t.Fatalf("absent headers must stay unset: to=%+v date=%+v", rec.To, rec.Date)
	}
	if rec.To.Or("Unknown") != "Unknown" {
		t.Fatalf("presentation default not applied")
	}
	if rec.ID != "m1" || rec.ThreadID != "t1" || len(rec.Labels) != 1 {
		t.Fatalf("ids/labels not copied: %+v", rec)
	}
}

func TestDecodeFirstPlainWins(t *testing.T) {
	msg := gmail.Message{Payload: &gmail.Payload{
		MIMEType: "multipart/mixed",
		Parts: []*gmail.Payload{
			textPart("0", "text/plain; charset=UTF-8", "first"),
			textPart("1", "text/plain", "second"),
		},
	}}
	rec, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.Body != "first" {
		t.Fatalf("got %q", rec.Body)
	}
}

func TestDecodeHTMLFallback(t *testing.T) {
	msg := gmail.Message{Payload: &gmail.Payload{
		MIMEType: "multipart/alternative",
		Parts:    []*gmail.Payload{textPart("0", "text/html", "<b>only html</b>")},
	}}
	rec, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.Body != "<b>only html</b>" || rec.BodyType != "text/html" {
		t.Fatalf("got %q (%s)", rec.Body, rec.BodyType)
	}
}

func TestDecodeEmptyBodyData(t *testing.T) {
	tests := []struct {
		name    string
		payload *gmail.Payload
	}{
		{name: "nil body", payload: &gmail.Payload{MIMEType: "text/plain"}},
		{name: "empty data", payload: textPart("", "text/plain", "")},
		{name: "multipart with empty part", payload: &gmail.Payload{
			MIMEType: "multipart/mixed",
			Parts:    []*gmail.Payload{textPart("0", "text/plain", "")},
		}},
		{name: "no payload", payload: nil},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Decode(gmail.Message{ID: "x", Payload: tc.payload})
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if rec.Body != "" {
				t.Fatalf("expected empty body, got %q", rec.Body)
			}
		})
	}
}

func TestDecodeSingleBody(t *testing.T) {
	msg := gmail.Message{Payload: &gmail.Payload{
		MIMEType: "text/plain",
		Headers:  []gmail.Header{{Name: "Subject", Value: ""}},
		Body:     &gmail.Body{Data: base64.RawURLEncoding.EncodeToString([]byte("unpadded?"))},
	}}
	rec, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.Body != "unpadded?" {
		t.Fatalf("got %q", rec.Body)
	}
	if !rec.Subject.Set || rec.Subject.Or("No Subject") != "" {
		t.Fatalf("present empty subject must be kept: %+v", rec.Subject)
	}
}

func TestDecodeNestedParts(t *testing.T) {
	msg := gmail.Message{Payload: &gmail.Payload{
		MIMEType: "multipart/mixed",
		Parts: []*gmail.Payload{
			{
				PartID:   "0",
				MIMEType: "multipart/alternative",
				Parts: []*gmail.Payload{
					textPart("0.0", "text/html", "<i>nested html</i>"),
					textPart("0.1", "text/plain", "nested plain"),
				},
			},
			{
				PartID:   "1",
				MIMEType: "application/pdf",
				Filename: "report.pdf",
				Body:     &gmail.Body{Size: 2048, AttachmentID: "att-1"},
			},
			{
				PartID:   "2",
				MIMEType: "text/plain",
				Filename: "notes.txt",
				Body:     &gmail.Body{Data: b64("attached text"), Size: 13},
			},
		},
	}}
	rec, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.Body != "nested plain" {
		t.Fatalf("expected grandchild plain part, got %q", rec.Body)
	}
	if len(rec.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %+v", rec.Attachments)
	}
	first := rec.Attachments[0]
	if first.Filename != "report.pdf" || first.MIMEType != "application/pdf" || first.Size != 2048 || first.AttachmentID != "att-1" {
		t.Fatalf("unexpected attachment: %+v", first)
	}
	if rec.Attachments[1].Filename != "notes.txt" {
		t.Fatalf("filename part must be an attachment regardless of type: %+v", rec.Attachments[1])
	}
}

func TestDecodeMalformedBase64(t *testing.T) {
	msg := gmail.Message{ID: "bad", Payload: &gmail.Payload{
		MIMEType: "multipart/alternative",
		Parts: []*gmail.Payload{
			{PartID: "0", MIMEType: "text/plain", Body: &gmail.Body{Data: "!!not base64!!"}},
		},
	}}
	_, err := Decode(msg)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !errors.Is(err, gmail.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestDecodeSkipsDataAfterPlainSelected(t *testing.T) {
	msg := gmail.Message{Payload: &gmail.Payload{
		MIMEType: "multipart/alternative",
		Parts: []*gmail.Payload{
			textPart("0", "text/plain", "chosen"),
			{PartID: "1", MIMEType: "text/html", Body: &gmail.Body{Data: "%%%"}},
		},
	}}
	rec, err := Decode(msg)
	if err != nil {
		t.Fatalf("unused parts must not be decoded: %v", err)
	}
	if rec.Body != "chosen" {
		t.Fatalf("got %q", rec.Body)
	}
}
