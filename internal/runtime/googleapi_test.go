package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
)

func newFakeService(t *testing.T, mux *http.ServeMux) *googleClient {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewGoogleAPIClient(svc, nil, slogDiscard())
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func writeAPIError(w http.ResponseWriter, code int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"errors":  []map[string]any{{"reason": reason, "message": message}},
		},
	})
}

func TestListMessagesKeepsRemoteOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "is:unread" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("maxResults"); got != "5" {
			t.Errorf("maxResults = %q", got)
		}
		writeJSON(t, w, map[string]any{
			"messages": []map[string]string{
				{"id": "m3", "threadId": "t1"},
				{"id": "m1", "threadId": "t2"},
				{"id": "m2", "threadId": "t1"},
			},
			"resultSizeEstimate": 3,
		})
	})
	client := newFakeService(t, mux)

	page, err := client.ListMessages(context.Background(), gc.ListOptions{
		Query:      gc.Query{Raw: "is:unread"},
		MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []gc.MessageID{"m3", "m1", "m2"}
	if len(page.Messages) != len(want) {
		t.Fatalf("got %d stubs, want %d", len(page.Messages), len(want))
	}
	for i, id := range want {
		if page.Messages[i].ID != id {
			t.Fatalf("stub %d = %s, want %s", i, page.Messages[i].ID, id)
		}
	}
	if page.Messages[1].ThreadID != "t2" {
		t.Fatalf("thread id lost: %+v", page.Messages[1])
	}
}

func TestListMessagesEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"resultSizeEstimate": 0})
	})
	page, err := newFakeService(t, mux).ListMessages(context.Background(), gc.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Messages) != 0 {
		t.Fatalf("expected empty page, got %+v", page.Messages)
	}
}

func TestGetMessageConvertsPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "full" {
			t.Errorf("format = %q", got)
		}
		writeJSON(t, w, map[string]any{
			"id":           "m1",
			"threadId":     "t1",
			"labelIds":     []string{"INBOX", "UNREAD"},
			"internalDate": "1700000000000",
			"payload": map[string]any{
				"mimeType": "multipart/mixed",
				"headers":  []map[string]string{{"name": "Subject", "value": "Hi"}},
				"parts": []map[string]any{
					{"partId": "0", "mimeType": "text/plain", "body": map[string]any{"data": "aGk", "size": 2}},
					{"partId": "1", "mimeType": "application/pdf", "filename": "a.pdf",
						"body": map[string]any{"attachmentId": "att1", "size": 10}},
				},
			},
		})
	})
	msg, err := newFakeService(t, mux).GetMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if subject, _ := msg.Payload.Header("subject"); subject != "Hi" {
		t.Fatalf("subject = %q", subject)
	}
	if len(msg.Payload.Parts) != 2 || msg.Payload.Parts[1].Body.AttachmentID != "att1" {
		t.Fatalf("unexpected parts %+v", msg.Payload.Parts)
	}
	if msg.InternalDate.UnixMilli() != 1700000000000 {
		t.Fatalf("internal date = %v", msg.InternalDate)
	}
	if len(msg.LabelIDs) != 2 || msg.LabelIDs[1] != gc.LabelUnread {
		t.Fatalf("labels = %v", msg.LabelIDs)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		reason string
		want   error
	}{
		{name: "not found", code: http.StatusNotFound, reason: "notFound", want: gc.ErrNotFound},
		{name: "unauthorized", code: http.StatusUnauthorized, reason: "authError", want: gc.ErrAuthentication},
		{name: "insufficient scope", code: http.StatusForbidden, reason: "insufficientPermissions", want: gc.ErrAuthentication},
		{name: "quota", code: http.StatusForbidden, reason: "userRateLimitExceeded", want: gc.ErrRemote},
		{name: "server", code: http.StatusInternalServerError, reason: "backendError", want: gc.ErrRemote},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/gmail/v1/users/me/messages/missing", func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tc.code, tc.reason, "remote says no")
			})
			_, err := newFakeService(t, mux).GetMessage(context.Background(), "missing")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := gc.Kind(err); got == "" {
				t.Fatalf("error %v has no kind", err)
			}
		})
	}
}

func TestModifyMessageSendsLabelChanges(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1/modify", func(w http.ResponseWriter, r *http.Request) {
		var req gmail.ModifyMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.RemoveLabelIds) != 1 || req.RemoveLabelIds[0] != "UNREAD" || len(req.AddLabelIds) != 0 {
			t.Errorf("unexpected modify request %+v", req)
		}
		writeJSON(t, w, map[string]any{"id": "m1"})
	})
	err := newFakeService(t, mux).ModifyMessage(context.Background(), "m1", gc.ModifyOps{
		RemoveLabels: []gc.LabelID{gc.LabelUnread},
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
}

func TestSendMessageReturnsID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var body gmail.Message
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Raw != "cmF3" {
			t.Errorf("raw = %q", body.Raw)
		}
		writeJSON(t, w, map[string]any{"id": "sent-1", "threadId": "t9"})
	})
	stub, err := newFakeService(t, mux).SendMessage(context.Background(), "cmF3")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if stub.ID != "sent-1" || stub.ThreadID != "t9" {
		t.Fatalf("unexpected stub %+v", stub)
	}
}

func TestGetAttachmentDecodesBytes(t *testing.T) {
	payload := []byte{0xff, 0xfe, 0x00, 'p', 'd', 'f'}
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1/attachments/a1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"size": len(payload), "data": base64.RawURLEncoding.EncodeToString(payload)})
	})
	got, err := newFakeService(t, mux).GetAttachment(context.Background(), "m1", "a1")
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("bytes = %v, want %v", got, payload)
	}
}

func TestGetThreadKeepsMessageOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "t1",
			"messages": []map[string]any{
				{"id": "first", "threadId": "t1"},
				{"id": "second", "threadId": "t1"},
			},
		})
	})
	thread, err := newFakeService(t, mux).GetThread(context.Background(), "t1")
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(thread.Messages) != 2 || thread.Messages[0].ID != "first" || thread.Messages[1].ID != "second" {
		t.Fatalf("unexpected thread %+v", thread.Messages)
	}
}

func TestDraftLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/drafts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeJSON(t, w, map[string]any{"id": "d1", "message": map[string]any{"id": "m1"}})
		default:
			writeJSON(t, w, map[string]any{"drafts": []map[string]any{{"id": "d1", "message": map[string]any{"id": "m1"}}}})
		}
	})
	mux.HandleFunc("/gmail/v1/users/me/drafts/send", func(w http.ResponseWriter, r *http.Request) {
		var d gmail.Draft
		_ = json.NewDecoder(r.Body).Decode(&d)
		if d.Id != "d1" {
			t.Errorf("sent draft id = %q", d.Id)
		}
		writeJSON(t, w, map[string]any{"id": "m2", "threadId": "t2"})
	})
	client := newFakeService(t, mux)
	ctx := context.Background()

	d, err := client.CreateDraft(ctx, "cmF3")
	if err != nil || d.ID != "d1" || d.Message.ID != "m1" {
		t.Fatalf("create draft = %+v, %v", d, err)
	}
	page, err := client.ListDrafts(ctx, 10, "")
	if err != nil || len(page.Drafts) != 1 {
		t.Fatalf("list drafts = %+v, %v", page, err)
	}
	stub, err := client.SendDraft(ctx, "d1")
	if err != nil || stub.ID != "m2" {
		t.Fatalf("send draft = %+v, %v", stub, err)
	}
}

func TestSettingsFiltersAndVacation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/settings/filters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"filter": []map[string]any{{
			"id":       "f1",
			"criteria": map[string]any{"from": "boss@example.com"},
			"action":   map[string]any{"addLabelIds": []string{"STARRED"}},
		}}})
	})
	mux.HandleFunc("/gmail/v1/users/me/settings/vacation", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			_ = json.Unmarshal(raw, &body)
			if v, ok := body["enableAutoReply"]; !ok || v != false {
				t.Errorf("enableAutoReply must be sent explicitly, body = %s", raw)
			}
		}
		writeJSON(t, w, map[string]any{"enableAutoReply": false, "responseSubject": "Away"})
	})
	client := newFakeService(t, mux)
	ctx := context.Background()

	filters, err := client.ListFilters(ctx)
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	if len(filters) != 1 || filters[0].Criteria.From != "boss@example.com" || filters[0].Action.AddLabelIDs[0] != gc.LabelStarred {
		t.Fatalf("unexpected filters %+v", filters)
	}
	v, err := client.GetVacation(ctx)
	if err != nil || v.Enabled || v.Subject != "Away" {
		t.Fatalf("vacation = %+v, %v", v, err)
	}
	if _, err := client.UpdateVacation(ctx, gc.Vacation{Subject: "Away"}); err != nil {
		t.Fatalf("update vacation: %v", err)
	}
}

func TestHistoryAndProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/history", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("startHistoryId"); got != "100" {
			t.Errorf("startHistoryId = %q", got)
		}
		writeJSON(t, w, map[string]any{
			"historyId": "120",
			"history": []map[string]any{{
				"id":            "101",
				"messagesAdded": []map[string]any{{"message": map[string]any{"id": "m5", "threadId": "t5"}}},
			}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"emailAddress": "me@example.com", "messagesTotal": 42, "historyId": "120"})
	})
	client := newFakeService(t, mux)
	ctx := context.Background()

	page, err := client.ListHistory(ctx, 100, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.HistoryID != 120 || len(page.Records) != 1 || page.Records[0].MessagesAdded[0].ID != "m5" {
		t.Fatalf("unexpected history %+v", page)
	}
	p, err := client.GetProfile(ctx)
	if err != nil || p.Email != "me@example.com" || p.MessagesTotal != 42 {
		t.Fatalf("profile = %+v, %v", p, err)
	}
}

type countingLimiter struct{ calls atomic.Int32 }

func (c *countingLimiter) Wait(ctx context.Context) error {
	c.calls.Add(1)
	return ctx.Err()
}

func TestEveryCallWaitsOnLimiter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"labels": []map[string]any{{"id": "INBOX", "name": "INBOX", "type": "system"}}})
	})
	client := newFakeService(t, mux)
	lim := &countingLimiter{}
	client.limiter = lim

	for i := 0; i < 3; i++ {
		if _, err := client.ListLabels(context.Background()); err != nil {
			t.Fatalf("labels: %v", err)
		}
	}
	if got := lim.calls.Load(); got != 3 {
		t.Fatalf("limiter waited %d times, want 3", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.ListLabels(ctx); !errors.Is(err, context.Canceled) || !errors.Is(err, gc.ErrRemote) {
		t.Fatalf("expected canceled remote error, got %v", err)
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
