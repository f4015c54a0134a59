package notification

import (
	"context"
	"time"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
)

// FeedReader is the persistence behind a user's feed.
type FeedReader interface {
	ListNotifications(ctx context.Context, userID int64, unseenOnly bool, limit int) ([]model.Notification, error)
	CountUnseen(ctx context.Context, userID int64) (int64, error)
	MarkNotificationSeen(ctx context.Context, userID, id int64) error
	ClearNotifications(ctx context.Context, userID int64) error
	FeedClearedAt(ctx context.Context, userID int64) (time.Time, error)
}

// WorkerNotifier reaches every live session of one worker.
type WorkerNotifier interface {
	SendToWorker(workerID int64, e event.Event) int
}

// Page is a feed slice together with the user's unread counter. ClearedAt
// is set on sync pages when the user has cleared the feed before.
type Page struct {
	Items     []model.Notification `json:"items"`
	Unread    int64                `json:"unread"`
	ClearedAt *time.Time           `json:"clearedAt,omitempty"`
}

// Feed serves the per-user feed queries and acknowledgements.
type Feed struct {
	store     FeedReader
	sessions  WorkerNotifier
	retention int
}

// NewFeed creates a Feed. sessions may be nil when no live delivery exists.
func NewFeed(store FeedReader, sessions WorkerNotifier, retention int) *Feed {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Feed{store: store, sessions: sessions, retention: retention}
}

// List returns the newest entries of the user's feed.
func (f *Feed) List(ctx context.Context, userID int64, unseenOnly bool) (Page, error) {
	items, err := f.store.ListNotifications(ctx, userID, unseenOnly, f.retention)
	if err != nil {
		return Page{}, err
	}
	return f.page(ctx, userID, items)
}

// MarkSeen acknowledges one entry and returns the new unread count.
func (f *Feed) MarkSeen(ctx context.Context, userID, id int64) (int64, error) {
	if err := f.store.MarkNotificationSeen(ctx, userID, id); err != nil {
		return 0, err
	}
	return f.store.CountUnseen(ctx, userID)
}

// ClearAll empties the feed and tells the user's live sessions to purge
// their local caches.
func (f *Feed) ClearAll(ctx context.Context, userID int64) error {
	if err := f.store.ClearNotifications(ctx, userID); err != nil {
		return err
	}
	if f.sessions != nil {
		f.sessions.SendToWorker(userID, event.Event{
			Type:       event.NotificationsCleared,
			OccurredAt: time.Now().UTC(),
		})
	}
	return nil
}

// Sync reconciles a reconnecting client's cache with the server's feed.
// The server's unseen list is authoritative for entries with an id. Cached
// entries without one are kept only when no stored row matches them and
// they are newer than the user's last clear-all.
func (f *Feed) Sync(ctx context.Context, userID int64, cached []model.Notification) (Page, error) {
	stored, err := f.store.ListNotifications(ctx, userID, false, f.retention)
	if err != nil {
		return Page{}, err
	}
	clearedAt, err := f.store.FeedClearedAt(ctx, userID)
	if err != nil {
		return Page{}, err
	}

	known := make(map[string]struct{}, len(stored))
	server := make([]model.Notification, 0, len(stored))
	for _, n := range stored {
		known[compositeKey(n)] = struct{}{}
		if !n.Seen {
			server = append(server, n)
		}
	}

	local := make([]model.Notification, 0, len(cached))
	for _, n := range cached {
		if n.ID != 0 || n.Seen || !n.CreatedAt.After(clearedAt) {
			continue
		}
		if _, dup := known[compositeKey(n)]; dup {
			continue
		}
		n.UserID = userID
		local = append(local, n)
	}

	items := Merge(server, local, f.retention)
	page := Page{Items: items, Unread: int64(len(items))}
	if !clearedAt.IsZero() {
		page.ClearedAt = &clearedAt
	}
	return page, nil
}

func (f *Feed) page(ctx context.Context, userID int64, items []model.Notification) (Page, error) {
	unread, err := f.store.CountUnseen(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return Page{Items: items, Unread: unread}, nil
}
