// Package events fans out job lifecycle transitions to WebSocket observers
// such as an admin dashboard or a CLI watching a pool from outside the
// process.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fluxorio/jobrunner/pkg/concurrency"
	"github.com/fluxorio/jobrunner/pkg/jobrunner"
	"github.com/fluxorio/jobrunner/pkg/logging"
)

// EventKind names the lifecycle transition an Event represents.
type EventKind string

const (
	EventReady    EventKind = "ready"
	EventStarted  EventKind = "started"
	EventCanceled EventKind = "canceled"
	EventFinished EventKind = "finished"
)

// Event is the wire representation of a job lifecycle transition broadcast
// to connected WebSocket clients.
type Event struct {
	JobID           string    `json:"job_id"`
	JobName         string    `json:"job_name"`
	Kind            EventKind `json:"event"`
	PercentComplete float64   `json:"percent_complete"`
	TimestampUnix   int64     `json:"timestamp"`
}

// Clock abstracts the current time so tests can produce deterministic
// timestamps without touching the real clock.
type Clock func() int64

// Broadcaster holds a set of live WebSocket connections and fans job
// lifecycle events out to all of them. A slow or disconnected client is
// dropped rather than allowed to block delivery to the others; the send
// path never runs under any jobrunner-internal lock, since Broadcaster is
// itself just another JobCallback/QueueCallback observer. Each connection's
// outbound buffer is a concurrency.Mailbox rather than a bare channel, so
// backpressure (full) and teardown (closed) are reported the same way the
// rest of the ambient dispatch layer reports them.
type Broadcaster struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]concurrency.Mailbox

	logger logging.Logger
	clock  Clock
}

// NewBroadcaster creates an empty broadcaster. A nil logger falls back to
// logging.NewDefaultLogger(); a nil clock falls back to time.Now().Unix.
func NewBroadcaster(logger logging.Logger, clock Clock) *Broadcaster {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Broadcaster{
		conns:  make(map[*websocket.Conn]concurrency.Mailbox),
		logger: logger,
		clock:  clock,
	}
}

// Register adds conn to the broadcast set and starts a per-connection
// writer goroutine. Call Unregister (or let a write failure do it
// automatically) when the connection closes.
func (b *Broadcaster) Register(conn *websocket.Conn) {
	mb := concurrency.NewBoundedMailbox(64)

	b.mu.Lock()
	b.conns[conn] = mb
	b.mu.Unlock()

	go b.writeLoop(conn, mb)
}

// Unregister removes conn from the broadcast set, if present.
func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	b.mu.Lock()
	mb, ok := b.conns[conn]
	delete(b.conns, conn)
	b.mu.Unlock()

	if ok {
		mb.Close()
	}
}

func (b *Broadcaster) writeLoop(conn *websocket.Conn, mb concurrency.Mailbox) {
	ctx := context.Background()
	for {
		msg, err := mb.Receive(ctx)
		if err != nil {
			// Mailbox closed: Unregister already ran, or the connection was
			// never fully torn down elsewhere.
			return
		}

		ev, ok := msg.(Event)
		if !ok {
			continue
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			b.logger.Errorf("events: marshal event: %v", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			b.logger.Warnf("events: dropping client after write error: %v", err)
			b.Unregister(conn)
			return
		}
	}
}

// Broadcast fans ev out to every registered connection. A connection whose
// mailbox is full is dropped rather than allowed to stall the others.
func (b *Broadcaster) Broadcast(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conn, mb := range b.conns {
		if err := mb.Send(ev); err != nil {
			b.logger.Warnf("events: dropping slow client %v: %v", conn.RemoteAddr(), err)
			delete(b.conns, conn)
			mb.Close()
		}
	}
}

func (b *Broadcaster) now() int64 {
	if b.clock != nil {
		return b.clock()
	}
	return time.Now().Unix()
}

// JobCallback returns a jobrunner.JobCallback that broadcasts the ready,
// started, canceled and finished transitions of the job it is registered on,
// tagging each event with the job's current percent-complete.
func (b *Broadcaster) JobCallback() jobrunner.JobCallback {
	emit := func(j *jobrunner.Job, kind EventKind) {
		b.Broadcast(Event{
			JobID:           j.ID(),
			JobName:         j.Name(),
			Kind:            kind,
			PercentComplete: j.PercentComplete(),
			TimestampUnix:   b.now(),
		})
	}
	return &jobrunner.JobCallbackFuncs{
		ReadyFunc:    func(j *jobrunner.Job) { emit(j, EventReady) },
		StartedFunc:  func(j *jobrunner.Job) { emit(j, EventStarted) },
		CanceledFunc: func(j *jobrunner.Job) { emit(j, EventCanceled) },
		FinishedFunc: func(j *jobrunner.Job) { emit(j, EventFinished) },
	}
}
