// Package webhook notifies external endpoints about snapshot changes. Every
// delivery carries an HMAC signature so receivers can authenticate the
// sidecar.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 64

	// maxResponseBodySize limits how much of the response body we read back (1KB)
	maxResponseBodySize = 1024
)

// Dispatcher manages event dispatching and delivery
type Dispatcher struct {
	endpoints  []string
	secret     string
	maxRetries int
	client     *http.Client
	logger     *slog.Logger
	queue      chan Event
	done       chan struct{}
	closed     int32 // atomic flag to prevent double-close
}

// NewDispatcher creates a dispatcher delivering to the given endpoint URLs.
// All endpoints share one signing secret.
func NewDispatcher(endpoints []string, secret string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		endpoints:  endpoints,
		secret:     secret,
		maxRetries: 3,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close shuts down the dispatcher after draining pending deliveries. Safe to
// call multiple times.
func (d *Dispatcher) Close() error {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil // Already closed
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event for delivery. Non-blocking: a full queue drops the
// event, later snapshot events supersede dropped ones anyway.
func (d *Dispatcher) Dispatch(event Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("webhook queue full, dropping event",
			"event", event.Type, "etag", event.ETag)
	}
}

// worker processes events from the queue
func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		payload, err := json.Marshal(event)
		if err != nil {
			d.logger.Error("failed to marshal webhook payload", "event", event.Type, "error", err)
			continue
		}
		for _, endpoint := range d.endpoints {
			d.deliverWithRetry(context.Background(), endpoint, event, payload)
		}
	}
}

// deliverWithRetry attempts to deliver an event to one endpoint, doubling the
// wait between attempts.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, endpoint string, event Event, payload []byte) {
	signature := Sign(payload, d.secret)
	deliveryID := uuid.New().String()

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
		if err != nil {
			d.logger.Error("failed to create webhook request", "url", endpoint, "error", err)
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Configship-Signature", signature)
		req.Header.Set("X-Configship-Event", event.Type)
		req.Header.Set("X-Configship-Delivery", deliveryID)

		resp, err := d.client.Do(req)
		duration := time.Since(start)

		var statusCode int
		if err == nil {
			statusCode = resp.StatusCode
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
			resp.Body.Close()
		}

		if err == nil && statusCode >= 200 && statusCode < 300 {
			d.logger.Info("webhook delivered",
				"url", endpoint, "event", event.Type, "status", statusCode,
				"duration_ms", duration.Milliseconds(), "attempt", attempt+1)
			return
		}

		if attempt < d.maxRetries {
			wait := time.Duration(1<<attempt) * time.Second
			d.logger.Warn("webhook delivery failed, retrying",
				"url", endpoint, "event", event.Type, "status", statusCode,
				"error", err, "attempt", attempt+1, "retry_in", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
		} else {
			d.logger.Error("webhook delivery failed permanently",
				"url", endpoint, "event", event.Type, "status", statusCode,
				"error", err, "attempts", attempt+1)
		}
	}
}
