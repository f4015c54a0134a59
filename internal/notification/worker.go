package notification

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// FeedStore is the persistence the pool writes feeds and reads push
// subscriptions through.
type FeedStore interface {
	ListRecipients(ctx context.Context, departmentID int64) ([]model.Worker, error)
	AppendNotification(ctx context.Context, n *model.Notification, retention int) error
	ListPushSubscriptions(ctx context.Context, workerID int64) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

const (
	shardQueueSize = 128

	// PushTimeout bounds one web push request.
	PushTimeout = 10 * time.Second
)

// WorkerPool turns notifiable events into feed entries and web pushes.
// Events are sharded by ShardKey so entries about one item keep their order.
type WorkerPool struct {
	size      int
	jobs      []chan event.Event
	store     FeedStore
	retention int
	webpush   *webpush.Options
	sender    NotificationSender
	dropped   atomic.Uint64
}

// NewWorkerPool creates a new worker pool. A nil webpushOptions disables
// push delivery; feeds are still written.
func NewWorkerPool(size int, store FeedStore, retention int, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if webpushOptions != nil && webpushOptions.HTTPClient == nil {
		opts := *webpushOptions
		opts.HTTPClient = &http.Client{Timeout: PushTimeout}
		webpushOptions = &opts
	}
	jobs := make([]chan event.Event, size)
	for i := range jobs {
		jobs[i] = make(chan event.Event, shardQueueSize)
	}
	return &WorkerPool{
		size:      size,
		jobs:      jobs,
		store:     store,
		retention: retention,
		webpush:   webpushOptions,
		sender:    &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notifier %d started", id)
	for {
		select {
		case e := <-wp.jobs[id]:
			wp.deliver(ctx, e)
		case <-ctx.Done():
			log.Printf("notifier %d shutting down", id)
			return
		}
	}
}

// Publish implements event.Publisher. Non-notifiable events are ignored.
func (wp *WorkerPool) Publish(e event.Event) {
	if !e.Type.Notifiable() {
		return
	}
	wp.Dispatch(e)
}

// Dispatch queues an event on its shard without blocking. A full shard
// drops its oldest queued event; reconnect sync covers the gap.
func (wp *WorkerPool) Dispatch(e event.Event) {
	q := wp.jobs[wp.shard(e)]
	for {
		select {
		case q <- e:
			return
		default:
		}
		select {
		case old := <-q:
			wp.dropped.Add(1)
			log.Printf("notifier shard full, dropped %s for item %d", old.Type, old.ItemID)
		default:
		}
	}
}

// Dropped returns how many queued events were discarded on full shards.
func (wp *WorkerPool) Dropped() uint64 {
	return wp.dropped.Load()
}

func (wp *WorkerPool) shard(e event.Event) int {
	return int(uint64(e.ShardKey()) % uint64(wp.size))
}

// deliver appends the rendered event to every recipient's feed, then pushes it
// to their devices.
func (wp *WorkerPool) deliver(ctx context.Context, e event.Event) {
	recipients, err := wp.store.ListRecipients(ctx, e.DepartmentID)
	if err != nil {
		log.Printf("error fetching recipients for department %d: %v", e.DepartmentID, err)
		return
	}

	for _, r := range recipients {
		n := Format(e, r.ID)
		if err := wp.store.AppendNotification(ctx, &n, wp.retention); err != nil {
			log.Printf("error appending %s to feed of worker %d: %v", e.Type, r.ID, err)
			continue
		}
		if wp.webpush != nil {
			wp.pushToWorker(ctx, r.ID, []byte(n.Message))
		}
	}
}

func (wp *WorkerPool) pushToWorker(ctx context.Context, workerID int64, payload []byte) {
	subscriptions, err := wp.store.ListPushSubscriptions(ctx, workerID)
	if err != nil {
		log.Printf("error fetching subscriptions for worker %d: %v", workerID, err)
		return
	}
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("subscription for endpoint %s is expired, deleting", sub.Endpoint)
		if err := wp.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
