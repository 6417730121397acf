package gmail

import (
	"strings"
	"time"
)

type MessageID string
type ThreadID string
type DraftID string
type LabelID string
type AttachmentID string

// System label IDs used by the mark/trash helpers.
const (
	LabelUnread  LabelID = "UNREAD"
	LabelInbox   LabelID = "INBOX"
	LabelStarred LabelID = "STARRED"
)

// Header is a single name/value pair of a payload node.
type Header struct {
	Name  string
	Value string
}

// Body is the data carried by a payload node. Data holds base64url text
// exactly as the remote returned it; AttachmentID is set instead when the
// bytes must be fetched separately.
type Body struct {
	Data         string
	Size         int64
	AttachmentID AttachmentID
}

// Payload is one node of the wire message tree. A node carries either a Body
// or Parts; a node with a Filename is an attachment regardless of MIME type.
type Payload struct {
	PartID   string
	MIMEType string
	Filename string
	Headers  []Header
	Body     *Body
	Parts    []*Payload
}

// Header returns the first header matching name case-insensitively.
func (p *Payload) Header(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// IsAttachment reports whether the node should be listed as an attachment.
func (p *Payload) IsAttachment() bool {
	return p != nil && p.Filename != ""
}

// Message is a full message as returned by a get call.
type Message struct {
	ID           MessageID
	ThreadID     ThreadID
	LabelIDs     []LabelID
	Snippet      string
	SizeEstimate int64
	InternalDate time.Time
	Payload      *Payload
	Raw          string
}

// MessageStub is the id pair returned by list calls.
type MessageStub struct {
	ID       MessageID
	ThreadID ThreadID
}

// Optional is a header value that may be absent from the message. Defaults
// such as "No Subject" belong to the presentation layer, not to decoding.
type Optional struct {
	Value string
	Set   bool
}

// Some wraps a present value.
func Some(v string) Optional { return Optional{Value: v, Set: true} }

// Or returns the value, or fallback when the value is absent.
func (o Optional) Or(fallback string) string {
	if !o.Set {
		return fallback
	}
	return o.Value
}

// AttachmentInfo describes one attachment found while decoding.
type AttachmentInfo struct {
	PartID       string
	Filename     string
	MIMEType     string
	Size         int64
	AttachmentID AttachmentID
}

// ContentRecord is the flattened, display-ready view of a message.
type ContentRecord struct {
	ID          MessageID
	ThreadID    ThreadID
	Subject     Optional
	From        Optional
	To          Optional
	Cc          Optional
	Date        Optional
	Body        string
	BodyType    string // MIME type the body came from; empty when no text part exists
	Attachments []AttachmentInfo
	Labels      []LabelID
}

// ModifyOps lists label changes applied to a message or thread.
type ModifyOps struct {
	AddLabels    []LabelID
	RemoveLabels []LabelID
}

// Query is a raw Gmail search string (e.g. `is:unread from:alerts@example.com`).
type Query struct {
	Raw string
}

// ListOptions parameterizes message and thread listing.
type ListOptions struct {
	Query      Query
	MaxResults int
	LabelIDs   []LabelID
	PageToken  string
}

// MessagePage is one page of a message listing, in remote order.
type MessagePage struct {
	Messages      []MessageStub
	NextPageToken string
	Estimate      int64
}

// Draft wraps a message that has not been sent yet.
type Draft struct {
	ID      DraftID
	Message Message
}

// DraftPage is one page of a draft listing.
type DraftPage struct {
	Drafts        []Draft
	NextPageToken string
}

// ThreadStub is the summary returned by thread listing.
type ThreadStub struct {
	ID      ThreadID
	Snippet string
}

// ThreadPage is one page of a thread listing.
type ThreadPage struct {
	Threads       []ThreadStub
	NextPageToken string
}

// Thread is a conversation; Messages keep the remote order.
type Thread struct {
	ID       ThreadID
	Snippet  string
	Messages []Message
}

// Label is mailbox label metadata.
type Label struct {
	ID                    LabelID
	Name                  string
	Type                  string
	LabelListVisibility   string
	MessageListVisibility string
	MessagesTotal         int64
	MessagesUnread        int64
}

// FilterCriteria captures the search predicates of a server-side filter.
type FilterCriteria struct {
	From          string
	To            string
	Subject       string
	Query         string
	NegatedQuery  string
	HasAttachment bool
}

// FilterAction describes what a filter does with matching mail.
type FilterAction struct {
	AddLabelIDs    []LabelID
	RemoveLabelIDs []LabelID
	Forward        string
}

// Filter is a server-side mail filter.
type Filter struct {
	ID       string
	Criteria FilterCriteria
	Action   FilterAction
}

// ForwardingAddress is a verified (or pending) forwarding destination.
type ForwardingAddress struct {
	Email              string
	VerificationStatus string
}

// SendAs is an alias the account may send mail from.
type SendAs struct {
	Email              string
	DisplayName        string
	ReplyTo            string
	Signature          string
	IsPrimary          bool
	IsDefault          bool
	VerificationStatus string
}

// Vacation holds the auto-reply settings.
type Vacation struct {
	Enabled            bool
	Subject            string
	BodyPlainText      string
	BodyHTML           string
	RestrictToContacts bool
	RestrictToDomain   bool
	Start              time.Time
	End                time.Time
}

// Delegate is an account granted access to this mailbox.
type Delegate struct {
	Email              string
	VerificationStatus string
}

// HistoryRecord summarizes one mailbox change.
type HistoryRecord struct {
	ID            uint64
	MessagesAdded []MessageStub
	Deleted       []MessageStub
	LabelsAdded   []MessageStub
	LabelsRemoved []MessageStub
}

// HistoryPage is the result of a history listing.
type HistoryPage struct {
	Records       []HistoryRecord
	HistoryID     uint64
	NextPageToken string
}

// Profile is the mailbox owner summary.
type Profile struct {
	Email         string
	MessagesTotal int64
	ThreadsTotal  int64
	HistoryID     uint64
}
