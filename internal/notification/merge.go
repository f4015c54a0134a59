package notification

import (
	"fmt"
	"sort"
	"strconv"

	"hotel-kitchen-backend/internal/model"
)

// DefaultRetention is the number of entries kept per feed.
const DefaultRetention = 100

// Key identifies an entry across server and client copies: the id when
// assigned, otherwise type, message and creation time.
func Key(n model.Notification) string {
	if n.ID != 0 {
		return "id:" + strconv.FormatInt(n.ID, 10)
	}
	return compositeKey(n)
}

func compositeKey(n model.Notification) string {
	return fmt.Sprintf("%s|%s|%d", n.Type, n.Message, n.CreatedAt.UnixMilli())
}

// Merge combines the server's list with entries cached by a client while it
// was disconnected. Server copies win on duplicates. The result is sorted
// newest first and truncated to limit.
func Merge(server, local []model.Notification, limit int) []model.Notification {
	if limit <= 0 {
		limit = DefaultRetention
	}

	ids := make(map[int64]struct{}, len(server)+len(local))
	composites := make(map[string]struct{}, len(server)+len(local))
	merged := make([]model.Notification, 0, len(server)+len(local))

	add := func(n model.Notification) {
		ck := compositeKey(n)
		if n.ID != 0 {
			if _, dup := ids[n.ID]; dup {
				return
			}
			ids[n.ID] = struct{}{}
		} else if _, dup := composites[ck]; dup {
			return
		}
		composites[ck] = struct{}{}
		merged = append(merged, n)
	}

	for _, n := range server {
		add(n)
	}
	for _, n := range local {
		add(n)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID > merged[j].ID
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
