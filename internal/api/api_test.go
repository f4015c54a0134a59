package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-kitchen-backend/internal/dbtest"
	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/hub"
	"hotel-kitchen-backend/internal/kitchen"
	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/mw"
	"hotel-kitchen-backend/internal/notification"
	"hotel-kitchen-backend/internal/store"
	"hotel-kitchen-backend/internal/table"
)

const testSecret = "api-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  store.Store
	hub    *hub.Hub
	fx     dbtest.Fixture
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB)
	s := store.NewGormStore(gormDB)
	h := hub.New(s, 16)
	svc := kitchen.NewService(s, table.NewAggregator(s), h)
	feed := notification.NewFeed(s, h, 100)

	handler := NewHandler(s, svc, feed, h, nil)
	router := NewRouter(handler, RouterConfig{
		JWTSecret:       testSecret,
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTL:        time.Minute,
	})
	return &testServer{router: router, store: s, hub: h, fx: fx}
}

func (ts *testServer) do(t *testing.T, method, path string, workerID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if workerID != 0 {
		tok, err := mw.SignWorkerToken(testSecret, workerID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) openOrder(t *testing.T, channel string, products ...string) model.Order {
	t.Helper()
	req := kitchen.OpenOrderRequest{TableID: ts.fx.Table.ID, Channel: channel, DepartmentID: 1}
	for _, p := range products {
		req.Items = append(req.Items, kitchen.LineItem{ProductName: p, Quantity: 1})
	}
	w := ts.do(t, http.MethodPost, "/api/orders", ts.fx.Floor.ID, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	return order
}

func TestItemCommands(t *testing.T) {
	ts := newTestServer(t)
	order := ts.openOrder(t, "restaurant", "Soup", "Salad")
	w1, w2 := ts.fx.Kitchen[0].ID, ts.fx.Kitchen[1].ID
	item := order.Items[0].ID
	path := func(id int64, action string) string {
		return "/api/items/" + strconvI(id) + "/" + action
	}

	testCases := []struct {
		name     string
		path     string
		worker   int64
		code     int
		expected string
	}{
		{"no token", path(item, "accept"), 0, http.StatusUnauthorized, `{"error":"missing bearer token"}`},
		{"bad id", "/api/items/abc/accept", w1, http.StatusBadRequest, `{"error":"invalid id"}`},
		{"unknown item", path(999, "accept"), w1, http.StatusNotFound, ""},
		{"accept", path(item, "accept"), w1, http.StatusOK, ""},
		{"accept taken", path(item, "accept"), w2, http.StatusConflict, `{"error":"already taken by another worker"}`},
		{"complete by other", path(item, "complete"), w2, http.StatusForbidden, ""},
		{"complete", path(item, "complete"), w1, http.StatusOK, ""},
		{"complete again", path(item, "complete"), w1, http.StatusConflict, ""},
		{"serve by kitchen", path(item, "serve"), w1, http.StatusForbidden, ""},
		{"serve", path(item, "serve"), ts.fx.Floor.ID, http.StatusOK, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tc.path, tc.worker, nil)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.expected != "" {
				assert.JSONEq(t, tc.expected, w.Body.String())
			}
		})
	}

	w := ts.do(t, http.MethodPost, path(order.Items[1].ID, "complete"), w1, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid_state"`)
}

func TestOrdersAndTableStatus(t *testing.T) {
	ts := newTestServer(t)
	statusPath := "/api/tables/" + strconvI(ts.fx.Table.ID) + "/status"

	var st table.Status
	w := ts.do(t, http.MethodGet, statusPath, ts.fx.Floor.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, table.Available, st.Availability)

	order := ts.openOrder(t, "bar", "Negroni")

	w = ts.do(t, http.MethodGet, statusPath, ts.fx.Floor.ID, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, table.Occupied, st.Availability, "events flush the cached status")
	assert.Equal(t, order.ID, st.CurrentOrderID)

	w = ts.do(t, http.MethodPost, "/api/orders", ts.fx.Floor.ID, kitchen.OpenOrderRequest{
		TableID: ts.fx.Table.ID, Channel: "bar", DepartmentID: 1,
		Items: []kitchen.LineItem{{ProductName: "Spritz", Quantity: 1}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/orders", ts.fx.Floor.ID, gin.H{"tableId": ts.fx.Table.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	payPath := "/api/orders/" + strconvI(order.ID) + "/pay"
	w = ts.do(t, http.MethodPost, payPath, ts.fx.Floor.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, payPath, ts.fx.Floor.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, statusPath, ts.fx.Floor.ID, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, table.Available, st.Availability)

	w = ts.do(t, http.MethodGet, "/api/tables/404/status", ts.fx.Floor.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotifications(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	user := ts.fx.Kitchen[0].ID

	for i := 0; i < 2; i++ {
		n := notification.Format(event.Event{Type: event.Message, DepartmentID: 1,
			Payload: event.Payload{"message": "note"}, OccurredAt: time.Now().UTC()}, user)
		require.NoError(t, ts.store.AppendNotification(ctx, &n, 100))
	}

	var page notification.Page
	w := ts.do(t, http.MethodGet, "/api/notifications", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Unread)

	w = ts.do(t, http.MethodPost, "/api/notifications/"+strconvI(page.Items[0].ID)+"/seen", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":1}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/notifications/"+strconvI(page.Items[1].ID)+"/seen", ts.fx.Kitchen[1].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/notifications?unseen=true", user, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)

	w = ts.do(t, http.MethodPost, "/api/notifications/sync", user, gin.H{"items": []gin.H{
		{"type": "message", "message": "cached offline", "createdAt": time.Now().UTC().Add(time.Minute)},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, "cached offline", page.Items[0].Message)

	w = ts.do(t, http.MethodDelete, "/api/notifications", user, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/notifications", user, nil)
	assert.JSONEq(t, `{"items":[],"unread":0}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/notifications/sync", user, gin.H{"items": []gin.H{
		{"type": "message", "message": "note", "createdAt": time.Now().UTC().Add(-time.Minute)},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page = notification.Page{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page.Items, "entries cached before the clear are dropped")
	assert.Zero(t, page.Unread)
	assert.NotNil(t, page.ClearedAt)
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	user := ts.fx.Floor.ID
	endpoint := "https://push.example.com/abc"

	w := ts.do(t, http.MethodPut, "/api/subscriptions", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = ts.do(t, http.MethodPut, "/api/subscriptions", user, gin.H{"endpoint": endpoint, "p256dh": "k", "auth": "a"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, user, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, ts.fx.Admin.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "subscriptions are private to their worker")
	w = ts.do(t, http.MethodGet, "/api/subscriptions", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/subscriptions", user, gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, user, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/vapid_public_key", 0, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMessages(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/messages", ts.fx.Kitchen[0].ID, gin.H{"departmentId": 1, "message": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/messages", ts.fx.Admin.ID, gin.H{"departmentId": 1, "message": "hi"})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStreamEvents(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	tok, err := mw.SignWorkerToken(testSecret, ts.fx.Floor.ID, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?session=s1&access_token="+tok, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, prefix) {
				return line
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	assert.Equal(t, "event:ready", next("event:"))

	ts.hub.Publish(event.Event{Type: event.NewOrder, DepartmentID: 2, OrderID: 1})
	ts.hub.Publish(event.Event{Type: event.NewOrder, DepartmentID: 1, OrderID: 2})

	assert.Equal(t, "event:new_order", next("event:"))
	data := strings.TrimPrefix(next("data:"), "data:")
	var got event.Event
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, int64(2), got.OrderID, "other departments are filtered out")
}

func strconvI(id int64) string {
	return strconv.FormatInt(id, 10)
}
