package gmail

import "context"

// Client is the mailbox surface used by the command layer. Each method issues
// exactly one remote call and returns errors wrapping one of the sentinels in
// errors.go.
type Client interface {
	MessageClient
	DraftClient
	ThreadClient
	LabelClient
	SettingsClient

	ListHistory(ctx context.Context, startID uint64, maxResults int) (HistoryPage, error)
	GetProfile(ctx context.Context) (Profile, error)
}

// MessageClient covers message and attachment operations.
type MessageClient interface {
	ListMessages(ctx context.Context, opts ListOptions) (MessagePage, error)
	GetMessage(ctx context.Context, id MessageID) (Message, error)
	ModifyMessage(ctx context.Context, id MessageID, ops ModifyOps) error
	DeleteMessage(ctx context.Context, id MessageID) error
	TrashMessage(ctx context.Context, id MessageID) error
	UntrashMessage(ctx context.Context, id MessageID) error
	SendMessage(ctx context.Context, raw string) (MessageStub, error)
	GetAttachment(ctx context.Context, id MessageID, attachment AttachmentID) ([]byte, error)
}

// DraftClient covers draft operations; raw is a base64url RFC 5322 envelope.
type DraftClient interface {
	CreateDraft(ctx context.Context, raw string) (Draft, error)
	ListDrafts(ctx context.Context, maxResults int, pageToken string) (DraftPage, error)
	GetDraft(ctx context.Context, id DraftID) (Draft, error)
	UpdateDraft(ctx context.Context, id DraftID, raw string) (Draft, error)
	DeleteDraft(ctx context.Context, id DraftID) error
	SendDraft(ctx context.Context, id DraftID) (MessageStub, error)
}

// ThreadClient covers conversation operations.
type ThreadClient interface {
	ListThreads(ctx context.Context, opts ListOptions) (ThreadPage, error)
	GetThread(ctx context.Context, id ThreadID) (Thread, error)
	DeleteThread(ctx context.Context, id ThreadID) error
	TrashThread(ctx context.Context, id ThreadID) error
	ModifyThread(ctx context.Context, id ThreadID, ops ModifyOps) error
}

// LabelClient covers label CRUD.
type LabelClient interface {
	ListLabels(ctx context.Context) ([]Label, error)
	GetLabel(ctx context.Context, id LabelID) (Label, error)
	CreateLabel(ctx context.Context, label Label) (Label, error)
	UpdateLabel(ctx context.Context, label Label) (Label, error)
	DeleteLabel(ctx context.Context, id LabelID) error
}

// SettingsClient covers the mailbox settings resources.
type SettingsClient interface {
	ListFilters(ctx context.Context) ([]Filter, error)
	GetFilter(ctx context.Context, id string) (Filter, error)
	CreateFilter(ctx context.Context, f Filter) (Filter, error)
	DeleteFilter(ctx context.Context, id string) error

	ListForwardingAddresses(ctx context.Context) ([]ForwardingAddress, error)
	GetForwardingAddress(ctx context.Context, email string) (ForwardingAddress, error)
	CreateForwardingAddress(ctx context.Context, email string) (ForwardingAddress, error)
	DeleteForwardingAddress(ctx context.Context, email string) error

	ListSendAs(ctx context.Context) ([]SendAs, error)
	GetSendAs(ctx context.Context, email string) (SendAs, error)

	GetVacation(ctx context.Context) (Vacation, error)
	UpdateVacation(ctx context.Context, v Vacation) (Vacation, error)

	ListDelegates(ctx context.Context) ([]Delegate, error)
	CreateDelegate(ctx context.Context, email string) (Delegate, error)
	DeleteDelegate(ctx context.Context, email string) error
}
