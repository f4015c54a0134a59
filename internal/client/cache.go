package client

import (
	"sync"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/notification"
)

// Cache keeps a user's unseen notifications locally, newest first.
type Cache struct {
	mu      sync.Mutex
	userID  int64
	limit   int
	entries []model.Notification
}

// NewCache creates a cache for userID holding at most limit entries.
func NewCache(userID int64, limit int) *Cache {
	if limit <= 0 {
		limit = notification.DefaultRetention
	}
	return &Cache{userID: userID, limit: limit}
}

// Add stores an unseen entry. Seen entries and duplicates are ignored.
func (c *Cache) Add(n model.Notification) {
	if n.Seen {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = notification.Merge(c.entries, []model.Notification{n}, c.limit)
}

// Apply caches what a pushed event would add to the feed and purges the
// cache when the feed was cleared elsewhere.
func (c *Cache) Apply(e event.Event) {
	switch {
	case e.Type == event.NotificationsCleared:
		c.Purge()
	case e.Type.Notifiable():
		c.Add(notification.Format(e, c.userID))
	}
}

// MarkSeen removes an entry by key.
func (c *Cache) MarkSeen(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.entries[:0]
	for _, n := range c.entries {
		if notification.Key(n) != key {
			kept = append(kept, n)
		}
	}
	c.entries = kept
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Entries returns a copy of the cached entries.
func (c *Cache) Entries() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Notification(nil), c.entries...)
}

// Reconcile folds a server page into the cache after a reconnect and
// returns the resulting feed. Cached entries with an id are replaced by the
// server's list, and entries from before the last clear-all are dropped.
func (c *Cache) Reconcile(page notification.Page) []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	local := make([]model.Notification, 0, len(c.entries))
	for _, n := range c.entries {
		if n.ID != 0 {
			continue
		}
		if page.ClearedAt != nil && !n.CreatedAt.After(*page.ClearedAt) {
			continue
		}
		local = append(local, n)
	}

	merged := notification.Merge(page.Items, local, c.limit)
	unseen := merged[:0]
	for _, n := range merged {
		if !n.Seen {
			unseen = append(unseen, n)
		}
	}
	c.entries = unseen
	return append([]model.Notification(nil), unseen...)
}
