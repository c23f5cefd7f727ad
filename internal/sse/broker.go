// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/filedeck/internal/fileops"
	"github.com/starford/filedeck/internal/pathresolver"
)

// EventStatsUpdated tells clients that directory statistics may have changed.
const EventStatsUpdated = "stats.updated"

// heartbeat keeps idle connections open through proxies.
const heartbeat = 25 * time.Second

// StatsChange is the payload of a stats.updated event.
type StatsChange struct {
	// Dir is the deepest directory whose statistics changed. Every ancestor
	// changed as well.
	Dir string `json:"dir"`
}

// subscription is one client. Scope is the directory the client shows; it
// receives events at, below or above that directory. The empty scope
// receives everything.
type subscription struct {
	ch    chan []byte
	scope string
}

func (s subscription) wants(paths ...string) bool {
	if s.scope == "" {
		return true
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if p == s.scope || strings.HasPrefix(p, s.scope+"/") || strings.HasPrefix(s.scope, p+"/") {
			return true
		}
	}
	return false
}

// Broker manages SSE client connections and broadcasts file events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + stats throttle timestamp). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	statsMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	fileEventCh   chan fileops.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. stats.updated events are sent at most
// once per statsThrottle.
func NewBroker(statsThrottle time.Duration) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}

	b := &Broker{
		statsMin:      statsThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		fileEventCh:   make(chan fileops.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// frame renders one SSE message with a fresh event ID.
func frame(kind string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), kind, payload))
}

// parentDir returns the directory holding rel ("" for the root).
func parentDir(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]subscription)
	var lastStats time.Time

	send := func(raw []byte, paths ...string) {
		if raw == nil {
			return
		}
		for _, sub := range clients {
			if !sub.wants(paths...) {
				continue
			}
			select {
			case sub.ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.fileEventCh:
			send(frame(string(ev.Kind), ev), ev.Path, ev.From)

			now := time.Now()
			if now.Sub(lastStats) >= b.statsMin {
				lastStats = now
				dir := parentDir(ev.Path)
				// Statistics roll up to the root, so every client is affected.
				send(frame(EventStatsUpdated, StatsChange{Dir: dir}))
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client interested in dir (a managed-root relative path,
// normalized here) and returns its channel.
func (b *Broker) Subscribe(dir string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, scope: pathresolver.Normalize(dir)}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// FileChanged publishes a file event and a throttled stats.updated event.
// It implements fileops.Listener.
func (b *Broker) FileChanged(ev fileops.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.fileEventCh <- ev:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events?dir=).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("dir"))
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
