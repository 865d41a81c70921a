// Package sse streams build notifications to browsers as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Build event types.
const (
	EventBuildCompleted = "build.completed"
	EventBuildFailed    = "build.failed"
	EventCatalogUpdated = "catalog.updated"
)

// reconnectDelay is the retry hint sent to EventSource clients, in ms.
const reconnectDelay = 3000

// BuildSummary is the payload of build events.
type BuildSummary struct {
	RunID    string         `json:"run_id"`
	Entries  int            `json:"entries"`
	Failures int            `json:"failures"`
	Cached   int            `json:"cached"`
	Counts   map[string]int `json:"counts,omitempty"`
	Fatal    string         `json:"fatal,omitempty"`
	Duration string         `json:"duration"`
}

// Event is one notification frame.
type Event struct {
	Type string
	// ID is the run that produced the event; it becomes the SSE id field.
	ID   string
	Data any
}

// frame renders e in text/event-stream framing.
func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", e.Type, err)
	}
	var buf bytes.Buffer
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.ID)
	}
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", e.Type, payload)
	return buf.Bytes(), nil
}

type buildResult struct {
	failed  bool
	summary BuildSummary
}

// Broker fans build events out to open streams.
//
// One goroutine owns the stream set, the last build frame and the
// catalog.updated throttle. The exported methods reach it over channels.
type Broker struct {
	catalogEvery time.Duration
	heartbeat    time.Duration

	join   chan chan []byte
	leave  chan chan []byte
	builds chan buildResult
	count  chan chan int

	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker. catalog.updated is sent at most once per
// catalogEvery; a positive heartbeat sends keep-alive comments to idle
// streams.
func NewBroker(catalogEvery, heartbeat time.Duration) *Broker {
	if catalogEvery <= 0 {
		catalogEvery = 2 * time.Second
	}
	b := &Broker{
		catalogEvery: catalogEvery,
		heartbeat:    heartbeat,
		join:         make(chan chan []byte),
		leave:        make(chan chan []byte),
		builds:       make(chan buildResult, 256),
		count:        make(chan chan int),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	streams := make(map[chan []byte]struct{})
	var (
		last        []byte
		lastCatalog time.Time
		tick        <-chan time.Time
	)
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	send := func(msg []byte) {
		for ch := range streams {
			select {
			case ch <- msg:
			default:
				// Slow stream; it misses this frame.
			}
		}
	}

	for {
		select {
		case <-b.stop:
			for ch := range streams {
				close(ch)
			}
			return

		case ch := <-b.join:
			streams[ch] = struct{}{}
			if last != nil {
				ch <- last
			}

		case ch := <-b.leave:
			if _, ok := streams[ch]; ok {
				delete(streams, ch)
				close(ch)
			}

		case res := <-b.builds:
			typ := EventBuildCompleted
			if res.failed {
				typ = EventBuildFailed
			}
			msg, err := Event{Type: typ, ID: res.summary.RunID, Data: res.summary}.frame()
			if err != nil {
				continue
			}
			last = msg
			send(msg)
			if res.failed {
				continue
			}
			if now := time.Now(); now.Sub(lastCatalog) >= b.catalogEvery {
				lastCatalog = now
				if msg, err := (Event{Type: EventCatalogUpdated, ID: res.summary.RunID, Data: map[string]string{}}).frame(); err == nil {
					send(msg)
				}
			}

		case <-tick:
			send([]byte(": keep-alive\n\n"))

		case resp := <-b.count:
			resp <- len(streams)
		}
	}
}

// Close stops the broker and closes every stream.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.done
}

// Subscribe opens a stream. It first receives the frame of the latest
// build, if any.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe closes a stream.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of open streams.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// PublishBuild sends build.completed, followed by a throttled
// catalog.updated, or build.failed for an aborted run.
func (b *Broker) PublishBuild(failed bool, summary BuildSummary) {
	if b.closed.Load() {
		return
	}
	select {
	case b.builds <- buildResult{failed: failed, summary: summary}:
	case <-b.done:
	}
}

// ServeHTTP streams build events (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", reconnectDelay)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
