package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-kitchen-backend/internal/dbtest"
	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/store"
)

type fakeSessions struct {
	sent map[int64][]event.Event
}

func (f *fakeSessions) SendToWorker(workerID int64, e event.Event) int {
	if f.sent == nil {
		f.sent = map[int64][]event.Event{}
	}
	f.sent[workerID] = append(f.sent[workerID], e)
	return 1
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB)
	s := store.NewGormStore(gormDB)
	sessions := &fakeSessions{}
	feed := NewFeed(s, sessions, 100)
	user := fx.Floor.ID

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		n := Format(event.Event{Type: event.Message, DepartmentID: 1,
			Payload: event.Payload{KeyMessage: "note"}, OccurredAt: base.Add(time.Duration(i) * time.Minute)}, user)
		require.NoError(t, s.AppendNotification(ctx, &n, 100))
	}

	page, err := feed.List(ctx, user, false)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, int64(3), page.Unread)

	unread, err := feed.MarkSeen(ctx, user, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	_, err = feed.MarkSeen(ctx, fx.Admin.ID, page.Items[1].ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "entries belong to their owner only")

	t.Run("sync", func(t *testing.T) {
		cached := []model.Notification{
			page.Items[0], // acknowledged on another device
			page.Items[1],
			{Type: "message", Message: "offline note", CreatedAt: base.Add(time.Hour)},
		}
		synced, err := feed.Sync(ctx, user, cached)
		require.NoError(t, err)
		require.Len(t, synced.Items, 3)
		assert.Equal(t, "offline note", synced.Items[0].Message)
		assert.Equal(t, page.Items[1].ID, synced.Items[1].ID)
		assert.Equal(t, page.Items[2].ID, synced.Items[2].ID)
		assert.Equal(t, int64(3), synced.Unread, "unread matches the visible unseen entries")
		assert.Nil(t, synced.ClearedAt)
	})

	require.NoError(t, feed.ClearAll(ctx, user))
	page, err = feed.List(ctx, user, false)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Unread)
	require.Len(t, sessions.sent[user], 1)
	assert.Equal(t, event.NotificationsCleared, sessions.sent[user][0].Type)
}

func TestFeed_SyncAfterClearAll(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB)
	s := store.NewGormStore(gormDB)
	feed := NewFeed(s, nil, 100)
	user := fx.Floor.ID

	ready := event.Event{Type: event.ItemReady, DepartmentID: 1, ItemID: 4,
		Payload: event.Payload{KeyProduct: "Soup", KeyTable: "Table 7"}, OccurredAt: time.Now().UTC().Add(-time.Minute)}
	stored := Format(ready, user)
	require.NoError(t, s.AppendNotification(ctx, &stored, 100))

	// An offline device cached the live copy, which carries no id.
	offline := []model.Notification{Format(ready, user)}

	require.NoError(t, feed.ClearAll(ctx, user))

	synced, err := feed.Sync(ctx, user, offline)
	require.NoError(t, err)
	assert.Empty(t, synced.Items, "cleared entries do not come back")
	assert.Zero(t, synced.Unread)
	require.NotNil(t, synced.ClearedAt)

	t.Run("seen elsewhere", func(t *testing.T) {
		later := ready
		later.OccurredAt = time.Now().UTC().Add(time.Minute)
		n := Format(later, user)
		require.NoError(t, s.AppendNotification(ctx, &n, 100))
		_, err := feed.MarkSeen(ctx, user, n.ID)
		require.NoError(t, err)

		synced, err := feed.Sync(ctx, user, []model.Notification{Format(later, user)})
		require.NoError(t, err)
		assert.Empty(t, synced.Items, "a stored row that was seen hides its cached copy")
		assert.Zero(t, synced.Unread)
	})
}
