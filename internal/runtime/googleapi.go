// internal/runtime/googleapi.go
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/joshsymonds/gmail-cli/internal/codec"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/rate"
)

// userID addresses the authenticated mailbox.
const userID = "me"

type googleClient struct {
	svc     *gmail.Service
	limiter rate.Limiter
	logger  *slog.Logger
}

// NewGoogleAPIClient wraps svc; limiter and logger may be nil.
func NewGoogleAPIClient(svc *gmail.Service, limiter rate.Limiter, logger *slog.Logger) *googleClient {
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &googleClient{svc: svc, limiter: limiter, logger: logger}
}

var _ gc.Client = (*googleClient)(nil)

func (g *googleClient) begin(ctx context.Context, op string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", op, gc.ErrRemote, err)
	}
	g.logger.DebugContext(ctx, "gmail call", slog.String("op", op))
	return nil
}

// classify maps transport failures onto the mailbox error taxonomy while
// keeping the remote description in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, gc.ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %w", op, gc.ErrAuthentication, err)
		case http.StatusForbidden:
			if !quotaExceeded(apiErr) {
				return fmt.Errorf("%s: %w: %w", op, gc.ErrAuthentication, err)
			}
		}
	}
	if errors.Is(err, gc.ErrAuthentication) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, gc.ErrRemote, err)
}

// quotaExceeded reports a 403 that is rate limiting rather than a scope
// or permission problem.
func quotaExceeded(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

// Messages

func (g *googleClient) ListMessages(ctx context.Context, opts gc.ListOptions) (gc.MessagePage, error) {
	const op = "list messages"
	if err := g.begin(ctx, op); err != nil {
		return gc.MessagePage{}, err
	}
	call := g.svc.Users.Messages.List(userID).Context(ctx)
	if opts.Query.Raw != "" {
		call = call.Q(opts.Query.Raw)
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(int64(opts.MaxResults))
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(toStringsL(opts.LabelIDs)...)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	res, err := call.Do()
	if err != nil {
		return gc.MessagePage{}, classify(op, err)
	}
	page := gc.MessagePage{NextPageToken: res.NextPageToken, Estimate: res.ResultSizeEstimate}
	for _, m := range res.Messages {
		page.Messages = append(page.Messages, gc.MessageStub{ID: gc.MessageID(m.Id), ThreadID: gc.ThreadID(m.ThreadId)})
	}
	return page, nil
}

func (g *googleClient) GetMessage(ctx context.Context, id gc.MessageID) (gc.Message, error) {
	op := fmt.Sprintf("get message %s", id)
	if err := g.begin(ctx, op); err != nil {
		return gc.Message{}, err
	}
	msg, err := g.svc.Users.Messages.Get(userID, string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.Message{}, classify(op, err)
	}
	return toMessage(msg), nil
}

func (g *googleClient) ModifyMessage(ctx context.Context, id gc.MessageID, ops gc.ModifyOps) error {
	op := fmt.Sprintf("modify message %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    toStringsL(ops.AddLabels),
		RemoveLabelIds: toStringsL(ops.RemoveLabels),
	}
	_, err := g.svc.Users.Messages.Modify(userID, string(id), req).Context(ctx).Do()
	return classify(op, err)
}

func (g *googleClient) DeleteMessage(ctx context.Context, id gc.MessageID) error {
	op := fmt.Sprintf("delete message %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	return classify(op, g.svc.Users.Messages.Delete(userID, string(id)).Context(ctx).Do())
}

func (g *googleClient) TrashMessage(ctx context.Context, id gc.MessageID) error {
	op := fmt.Sprintf("trash message %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	_, err := g.svc.Users.Messages.Trash(userID, string(id)).Context(ctx).Do()
	return classify(op, err)
}

func (g *googleClient) UntrashMessage(ctx context.Context, id gc.MessageID) error {
	op := fmt.Sprintf("untrash message %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	_, err := g.svc.Users.Messages.Untrash(userID, string(id)).Context(ctx).Do()
	return classify(op, err)
}

func (g *googleClient) SendMessage(ctx context.Context, raw string) (gc.MessageStub, error) {
	const op = "send message"
	if err := g.begin(ctx, op); err != nil {
		return gc.MessageStub{}, err
	}
	sent, err := g.svc.Users.Messages.Send(userID, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return gc.MessageStub{}, classify(op, err)
	}
	return gc.MessageStub{ID: gc.MessageID(sent.Id), ThreadID: gc.ThreadID(sent.ThreadId)}, nil
}

func (g *googleClient) GetAttachment(ctx context.Context, id gc.MessageID, attachment gc.AttachmentID) ([]byte, error) {
	op := fmt.Sprintf("get attachment %s/%s", id, attachment)
	if err := g.begin(ctx, op); err != nil {
		return nil, err
	}
	body, err := g.svc.Users.Messages.Attachments.Get(userID, string(id), string(attachment)).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}
	data, err := codec.DecodeBase64URL(body.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, gc.ErrEncoding, err)
	}
	return data, nil
}

// Drafts

func (g *googleClient) CreateDraft(ctx context.Context, raw string) (gc.Draft, error) {
	const op = "create draft"
	if err := g.begin(ctx, op); err != nil {
		return gc.Draft{}, err
	}
	d, err := g.svc.Users.Drafts.Create(userID, &gmail.Draft{Message: &gmail.Message{Raw: raw}}).Context(ctx).Do()
	if err != nil {
		return gc.Draft{}, classify(op, err)
	}
	return toDraft(d), nil
}

func (g *googleClient) ListDrafts(ctx context.Context, maxResults int, pageToken string) (gc.DraftPage, error) {
	const op = "list drafts"
	if err := g.begin(ctx, op); err != nil {
		return gc.DraftPage{}, err
	}
	call := g.svc.Users.Drafts.List(userID).Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(int64(maxResults))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Do()
	if err != nil {
		return gc.DraftPage{}, classify(op, err)
	}
	page := gc.DraftPage{NextPageToken: res.NextPageToken}
	for _, d := range res.Drafts {
		page.Drafts = append(page.Drafts, toDraft(d))
	}
	return page, nil
}

func (g *googleClient) GetDraft(ctx context.Context, id gc.DraftID) (gc.Draft, error) {
	op := fmt.Sprintf("get draft %s", id)
	if err := g.begin(ctx, op); err != nil {
		return gc.Draft{}, err
	}
	d, err := g.svc.Users.Drafts.Get(userID, string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.Draft{}, classify(op, err)
	}
	return toDraft(d), nil
}

func (g *googleClient) UpdateDraft(ctx context.Context, id gc.DraftID, raw string) (gc.Draft, error) {
	op := fmt.Sprintf("update draft %s", id)
	if err := g.begin(ctx, op); err != nil {
		return gc.Draft{}, err
	}
	body := &gmail.Draft{Id: string(id), Message: &gmail.Message{Raw: raw}}
	d, err := g.svc.Users.Drafts.Update(userID, string(id), body).Context(ctx).Do()
	if err != nil {
		return gc.Draft{}, classify(op, err)
	}
	return toDraft(d), nil
}

func (g *googleClient) DeleteDraft(ctx context.Context, id gc.DraftID) error {
	op := fmt.Sprintf("delete draft %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	return classify(op, g.svc.Users.Drafts.Delete(userID, string(id)).Context(ctx).Do())
}

func (g *googleClient) SendDraft(ctx context.Context, id gc.DraftID) (gc.MessageStub, error) {
	op := fmt.Sprintf("send draft %s", id)
	if err := g.begin(ctx, op); err != nil {
		return gc.MessageStub{}, err
	}
	sent, err := g.svc.Users.Drafts.Send(userID, &gmail.Draft{Id: string(id)}).Context(ctx).Do()
	if err != nil {
		return gc.MessageStub{}, classify(op, err)
	}
	return gc.MessageStub{ID: gc.MessageID(sent.Id), ThreadID: gc.ThreadID(sent.ThreadId)}, nil
}

// Threads

func (g *googleClient) ListThreads(ctx context.Context, opts gc.ListOptions) (gc.ThreadPage, error) {
	const op = "list threads"
	if err := g.begin(ctx, op); err != nil {
		return gc.ThreadPage{}, err
	}
	call := g.svc.Users.Threads.List(userID).Context(ctx)
	if opts.Query.Raw != "" {
		call = call.Q(opts.Query.Raw)
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(int64(opts.MaxResults))
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(toStringsL(opts.LabelIDs)...)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	res, err := call.Do()
	if err != nil {
		return gc.ThreadPage{}, classify(op, err)
	}
	page := gc.ThreadPage{NextPageToken: res.NextPageToken}
	for _, t := range res.Threads {
		page.Threads = append(page.Threads, gc.ThreadStub{ID: gc.ThreadID(t.Id), Snippet: t.Snippet})
	}
	return page, nil
}

func (g *googleClient) GetThread(ctx context.Context, id gc.ThreadID) (gc.Thread, error) {
	op := fmt.Sprintf("get thread %s", id)
	if err := g.begin(ctx, op); err != nil {
		return gc.Thread{}, err
	}
	t, err := g.svc.Users.Threads.Get(userID, string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.Thread{}, classify(op, err)
	}
	out := gc.Thread{ID: gc.ThreadID(t.Id), Snippet: t.Snippet}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, toMessage(m))
	}
	return out, nil
}

func (g *googleClient) DeleteThread(ctx context.Context, id gc.ThreadID) error {
	op := fmt.Sprintf("delete thread %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	return classify(op, g.svc.Users.Threads.Delete(userID, string(id)).Context(ctx).Do())
}

func (g *googleClient) TrashThread(ctx context.Context, id gc.ThreadID) error {
	op := fmt.Sprintf("trash thread %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	_, err := g.svc.Users.Threads.Trash(userID, string(id)).Context(ctx).Do()
	return classify(op, err)
}

func (g *googleClient) ModifyThread(ctx context.Context, id gc.ThreadID, ops gc.ModifyOps) error {
	op := fmt.Sprintf("modify thread %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	req := &gmail.ModifyThreadRequest{
		AddLabelIds:    toStringsL(ops.AddLabels),
		RemoveLabelIds: toStringsL(ops.RemoveLabels),
	}
	_, err := g.svc.Users.Threads.Modify(userID, string(id), req).Context(ctx).Do()
	return classify(op, err)
}

// Labels

func (g *googleClient) ListLabels(ctx context.Context) ([]gc.Label, error) {
	const op = "list labels"
	if err := g.begin(ctx, op); err != nil {
		return nil, err
	}
	res, err := g.svc.Users.Labels.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}
	out := make([]gc.Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		out = append(out, toLabel(l))
	}
	return out, nil
}

func (g *googleClient) GetLabel(ctx context.Context, id gc.LabelID) (gc.Label, error) {
	op := fmt.Sprintf("get label %s", id)
	if err := g.begin(ctx, op); err != nil {
		return gc.Label{}, err
	}
	l, err := g.svc.Users.Labels.Get(userID, string(id)).Context(ctx).Do()
	if err != nil {
		return gc.Label{}, classify(op, err)
	}
	return toLabel(l), nil
}

func (g *googleClient) CreateLabel(ctx context.Context, label gc.Label) (gc.Label, error) {
	op := fmt.Sprintf("create label %q", label.Name)
	if err := g.begin(ctx, op); err != nil {
		return gc.Label{}, err
	}
	created, err := g.svc.Users.Labels.Create(userID, fromLabel(label)).Context(ctx).Do()
	if err != nil {
		return gc.Label{}, classify(op, err)
	}
	return toLabel(created), nil
}

func (g *googleClient) UpdateLabel(ctx context.Context, label gc.Label) (gc.Label, error) {
	op := fmt.Sprintf("update label %s", label.ID)
	if err := g.begin(ctx, op); err != nil {
		return gc.Label{}, err
	}
	updated, err := g.svc.Users.Labels.Update(userID, string(label.ID), fromLabel(label)).Context(ctx).Do()
	if err != nil {
		return gc.Label{}, classify(op, err)
	}
	return toLabel(updated), nil
}

func (g *googleClient) DeleteLabel(ctx context.Context, id gc.LabelID) error {
	op := fmt.Sprintf("delete label %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	return classify(op, g.svc.Users.Labels.Delete(userID, string(id)).Context(ctx).Do())
}

// Settings

func (g *googleClient) ListFilters(ctx context.Context) ([]gc.Filter, error) {
	const op = "list filters"
	if err := g.begin(ctx, op); err != nil {
		return nil, err
	}
	res, err := g.svc.Users.Settings.Filters.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}
	out := make([]gc.Filter, 0, len(res.Filter))
	for _, f := range res.Filter {
		out = append(out, toFilter(f))
	}
	return out, nil
}

func (g *googleClient) GetFilter(ctx context.Context, id string) (gc.Filter, error) {
	op := fmt.Sprintf("get filter %s", id)
	if err := g.begin(ctx, op); err != nil {
		return gc.Filter{}, err
	}
	f, err := g.svc.Users.Settings.Filters.Get(userID, id).Context(ctx).Do()
	if err != nil {
		return gc.Filter{}, classify(op, err)
	}
	return toFilter(f), nil
}

func (g *googleClient) CreateFilter(ctx context.Context, f gc.Filter) (gc.Filter, error) {
	const op = "create filter"
	if err := g.begin(ctx, op); err != nil {
		return gc.Filter{}, err
	}
	created, err := g.svc.Users.Settings.Filters.Create(userID, fromFilter(f)).Context(ctx).Do()
	if err != nil {
		return gc.Filter{}, classify(op, err)
	}
	return toFilter(created), nil
}

func (g *googleClient) DeleteFilter(ctx context.Context, id string) error {
	op := fmt.Sprintf("delete filter %s", id)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	return classify(op, g.svc.Users.Settings.Filters.Delete(userID, id).Context(ctx).Do())
}

func (g *googleClient) ListForwardingAddresses(ctx context.Context) ([]gc.ForwardingAddress, error) {
	const op = "list forwarding addresses"
	if err := g.begin(ctx, op); err != nil {
		return nil, err
	}
	res, err := g.svc.Users.Settings.ForwardingAddresses.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}
	out := make([]gc.ForwardingAddress, 0, len(res.ForwardingAddresses))
	for _, f := range res.ForwardingAddresses {
		out = append(out, gc.ForwardingAddress{Email: f.ForwardingEmail, VerificationStatus: f.VerificationStatus})
	}
	return out, nil
}

func (g *googleClient) GetForwardingAddress(ctx context.Context, email string) (gc.ForwardingAddress, error) {
	op := fmt.Sprintf("get forwarding address %s", email)
	if err := g.begin(ctx, op); err != nil {
		return gc.ForwardingAddress{}, err
	}
	f, err := g.svc.Users.Settings.ForwardingAddresses.Get(userID, email).Context(ctx).Do()
	if err != nil {
		return gc.ForwardingAddress{}, classify(op, err)
	}
	return gc.ForwardingAddress{Email: f.ForwardingEmail, VerificationStatus: f.VerificationStatus}, nil
}

func (g *googleClient) CreateForwardingAddress(ctx context.Context, email string) (gc.ForwardingAddress, error) {
	op := fmt.Sprintf("create forwarding address %s", email)
	if err := g.begin(ctx, op); err != nil {
		return gc.ForwardingAddress{}, err
	}
	f, err := g.svc.Users.Settings.ForwardingAddresses.Create(userID, &gmail.ForwardingAddress{ForwardingEmail: email}).Context(ctx).Do()
	if err != nil {
		return gc.ForwardingAddress{}, classify(op, err)
	}
	return gc.ForwardingAddress{Email: f.ForwardingEmail, VerificationStatus: f.VerificationStatus}, nil
}

func (g *googleClient) DeleteForwardingAddress(ctx context.Context, email string) error {
	op := fmt.Sprintf("delete forwarding address %s", email)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	return classify(op, g.svc.Users.Settings.ForwardingAddresses.Delete(userID, email).Context(ctx).Do())
}

func (g *googleClient) ListSendAs(ctx context.Context) ([]gc.SendAs, error) {
	const op = "list send-as aliases"
	if err := g.begin(ctx, op); err != nil {
		return nil, err
	}
	res, err := g.svc.Users.Settings.SendAs.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}
	out := make([]gc.SendAs, 0, len(res.SendAs))
	for _, s := range res.SendAs {
		out = append(out, toSendAs(s))
	}
	return out, nil
}

func (g *googleClient) GetSendAs(ctx context.Context, email string) (gc.SendAs, error) {
	op := fmt.Sprintf("get send-as alias %s", email)
	if err := g.begin(ctx, op); err != nil {
		return gc.SendAs{}, err
	}
	s, err := g.svc.Users.Settings.SendAs.Get(userID, email).Context(ctx).Do()
	if err != nil {
		return gc.SendAs{}, classify(op, err)
	}
	return toSendAs(s), nil
}

func (g *googleClient) GetVacation(ctx context.Context) (gc.Vacation, error) {
	const op = "get vacation settings"
	if err := g.begin(ctx, op); err != nil {
		return gc.Vacation{}, err
	}
	v, err := g.svc.Users.Settings.GetVacation(userID).Context(ctx).Do()
	if err != nil {
		return gc.Vacation{}, classify(op, err)
	}
	return toVacation(v), nil
}

func (g *googleClient) UpdateVacation(ctx context.Context, v gc.Vacation) (gc.Vacation, error) {
	const op = "update vacation settings"
	if err := g.begin(ctx, op); err != nil {
		return gc.Vacation{}, err
	}
	updated, err := g.svc.Users.Settings.UpdateVacation(userID, fromVacation(v)).Context(ctx).Do()
	if err != nil {
		return gc.Vacation{}, classify(op, err)
	}
	return toVacation(updated), nil
}

func (g *googleClient) ListDelegates(ctx context.Context) ([]gc.Delegate, error) {
	const op = "list delegates"
	if err := g.begin(ctx, op); err != nil {
		return nil, err
	}
	res, err := g.svc.Users.Settings.Delegates.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}
	out := make([]gc.Delegate, 0, len(res.Delegates))
	for _, d := range res.Delegates {
		out = append(out, gc.Delegate{Email: d.DelegateEmail, VerificationStatus: d.VerificationStatus})
	}
	return out, nil
}

func (g *googleClient) CreateDelegate(ctx context.Context, email string) (gc.Delegate, error) {
	op := fmt.Sprintf("create delegate %s", email)
	if err := g.begin(ctx, op); err != nil {
		return gc.Delegate{}, err
	}
	d, err := g.svc.Users.Settings.Delegates.Create(userID, &gmail.Delegate{DelegateEmail: email}).Context(ctx).Do()
	if err != nil {
		return gc.Delegate{}, classify(op, err)
	}
	return gc.Delegate{Email: d.DelegateEmail, VerificationStatus: d.VerificationStatus}, nil
}

func (g *googleClient) DeleteDelegate(ctx context.Context, email string) error {
	op := fmt.Sprintf("delete delegate %s", email)
	if err := g.begin(ctx, op); err != nil {
		return err
	}
	return classify(op, g.svc.Users.Settings.Delegates.Delete(userID, email).Context(ctx).Do())
}

// History and profile

func (g *googleClient) ListHistory(ctx context.Context, startID uint64, maxResults int) (gc.HistoryPage, error) {
	op := fmt.Sprintf("list history from %d", startID)
	if err := g.begin(ctx, op); err != nil {
		return gc.HistoryPage{}, err
	}
	call := g.svc.Users.History.List(userID).StartHistoryId(startID).Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(int64(maxResults))
	}
	res, err := call.Do()
	if err != nil {
		return gc.HistoryPage{}, classify(op, err)
	}
	page := gc.HistoryPage{HistoryID: res.HistoryId, NextPageToken: res.NextPageToken}
	for _, h := range res.History {
		rec := gc.HistoryRecord{ID: h.Id}
		for _, m := range h.MessagesAdded {
			rec.MessagesAdded = append(rec.MessagesAdded, toStub(m.Message))
		}
		for _, m := range h.MessagesDeleted {
			rec.Deleted = append(rec.Deleted, toStub(m.Message))
		}
		for _, m := range h.LabelsAdded {
			rec.LabelsAdded = append(rec.LabelsAdded, toStub(m.Message))
		}
		for _, m := range h.LabelsRemoved {
			rec.LabelsRemoved = append(rec.LabelsRemoved, toStub(m.Message))
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

func (g *googleClient) GetProfile(ctx context.Context) (gc.Profile, error) {
	const op = "get profile"
	if err := g.begin(ctx, op); err != nil {
		return gc.Profile{}, err
	}
	p, err := g.svc.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return gc.Profile{}, classify(op, err)
	}
	return gc.Profile{
		Email:         p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
		HistoryID:     p.HistoryId,
	}, nil
}

// conversions

func toStub(m *gmail.Message) gc.MessageStub {
	if m == nil {
		return gc.MessageStub{}
	}
	return gc.MessageStub{ID: gc.MessageID(m.Id), ThreadID: gc.ThreadID(m.ThreadId)}
}

func toMessage(m *gmail.Message) gc.Message {
	if m == nil {
		return gc.Message{}
	}
	out := gc.Message{
		ID:           gc.MessageID(m.Id),
		ThreadID:     gc.ThreadID(m.ThreadId),
		LabelIDs:     toLabelIDs(m.LabelIds),
		Snippet:      m.Snippet,
		SizeEstimate: m.SizeEstimate,
		Payload:      toPayload(m.Payload),
		Raw:          m.Raw,
	}
	if m.InternalDate > 0 {
		out.InternalDate = time.UnixMilli(m.InternalDate).UTC()
	}
	return out
}

func toPayload(p *gmail.MessagePart) *gc.Payload {
	if p == nil {
		return nil
	}
	out := &gc.Payload{PartID: p.PartId, MIMEType: p.MimeType, Filename: p.Filename}
	for _, h := range p.Headers {
		out.Headers = append(out.Headers, gc.Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		out.Body = &gc.Body{Data: p.Body.Data, Size: p.Body.Size, AttachmentID: gc.AttachmentID(p.Body.AttachmentId)}
	}
	for _, child := range p.Parts {
		out.Parts = append(out.Parts, toPayload(child))
	}
	return out
}

func toDraft(d *gmail.Draft) gc.Draft {
	return gc.Draft{ID: gc.DraftID(d.Id), Message: toMessage(d.Message)}
}

func toLabel(l *gmail.Label) gc.Label {
	return gc.Label{
		ID:                    gc.LabelID(l.Id),
		Name:                  l.Name,
		Type:                  l.Type,
		LabelListVisibility:   l.LabelListVisibility,
		MessageListVisibility: l.MessageListVisibility,
		MessagesTotal:         l.MessagesTotal,
		MessagesUnread:        l.MessagesUnread,
	}
}

func fromLabel(l gc.Label) *gmail.Label {
	return &gmail.Label{
		Id:                    string(l.ID),
		Name:                  l.Name,
		LabelListVisibility:   l.LabelListVisibility,
		MessageListVisibility: l.MessageListVisibility,
	}
}

func toFilter(f *gmail.Filter) gc.Filter {
	out := gc.Filter{ID: f.Id}
	if c := f.Criteria; c != nil {
		out.Criteria = gc.FilterCriteria{
			From:          c.From,
			To:            c.To,
			Subject:       c.Subject,
			Query:         c.Query,
			NegatedQuery:  c.NegatedQuery,
			HasAttachment: c.HasAttachment,
		}
	}
	if a := f.Action; a != nil {
		out.Action = gc.FilterAction{
			AddLabelIDs:    toLabelIDs(a.AddLabelIds),
			RemoveLabelIDs: toLabelIDs(a.RemoveLabelIds),
			Forward:        a.Forward,
		}
	}
	return out
}

func fromFilter(f gc.Filter) *gmail.Filter {
	return &gmail.Filter{
		Criteria: &gmail.FilterCriteria{
			From:          f.Criteria.From,
			To:            f.Criteria.To,
			Subject:       f.Criteria.Subject,
			Query:         f.Criteria.Query,
			NegatedQuery:  f.Criteria.NegatedQuery,
			HasAttachment: f.Criteria.HasAttachment,
		},
		Action: &gmail.FilterAction{
			AddLabelIds:    toStringsL(f.Action.AddLabelIDs),
			RemoveLabelIds: toStringsL(f.Action.RemoveLabelIDs),
			Forward:        f.Action.Forward,
		},
	}
}

func toSendAs(s *gmail.SendAs) gc.SendAs {
	return gc.SendAs{
		Email:              s.SendAsEmail,
		DisplayName:        s.DisplayName,
		ReplyTo:            s.ReplyToAddress,
		Signature:          s.Signature,
		IsPrimary:          s.IsPrimary,
		IsDefault:          s.IsDefault,
		VerificationStatus: s.VerificationStatus,
	}
}

func toVacation(v *gmail.VacationSettings) gc.Vacation {
	out := gc.Vacation{
		Enabled:            v.EnableAutoReply,
		Subject:            v.ResponseSubject,
		BodyPlainText:      v.ResponseBodyPlainText,
		BodyHTML:           v.ResponseBodyHtml,
		RestrictToContacts: v.RestrictToContacts,
		RestrictToDomain:   v.RestrictToDomain,
	}
	if v.StartTime > 0 {
		out.Start = time.UnixMilli(v.StartTime).UTC()
	}
	if v.EndTime > 0 {
		out.End = time.UnixMilli(v.EndTime).UTC()
	}
	return out
}

func fromVacation(v gc.Vacation) *gmail.VacationSettings {
	out := &gmail.VacationSettings{
		EnableAutoReply:       v.Enabled,
		ResponseSubject:       v.Subject,
		ResponseBodyPlainText: v.BodyPlainText,
		ResponseBodyHtml:      v.BodyHTML,
		RestrictToContacts:    v.RestrictToContacts,
		RestrictToDomain:      v.RestrictToDomain,
		// false booleans are dropped from the request body otherwise
		ForceSendFields: []string{"EnableAutoReply", "RestrictToContacts", "RestrictToDomain"},
	}
	if !v.Start.IsZero() {
		out.StartTime = v.Start.UnixMilli()
	}
	if !v.End.IsZero() {
		out.EndTime = v.End.UnixMilli()
	}
	return out
}

func toStringsL(ids []gc.LabelID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toLabelIDs(ids []string) []gc.LabelID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]gc.LabelID, len(ids))
	for i, id := range ids {
		out[i] = gc.LabelID(id)
	}
	return out
}
