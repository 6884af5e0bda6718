package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "campcal/internal/app/outbox"
	infraoutbox "campcal/internal/infra/outbox"
)

// DefaultOutboxCapacity bounds the rows kept for a worker.
const DefaultOutboxCapacity = 10000

// Outbox buffers events in process. Flushed records become claimable by the
// outbox worker, so a run without Mongo still publishes when Kafka is set.
// At most capacity rows are kept and the oldest go first; a zero capacity
// keeps nothing, for processes with no worker draining it.
type Outbox struct {
	mu        sync.Mutex
	capacity  int
	pending   []appoutbox.EventRecord
	rows      []*infraoutbox.EventDocument
	published int
	dropped   int
	now       func() time.Time
}

func NewOutbox(capacity int) *Outbox {
	if capacity < 0 {
		capacity = 0
	}
	return &Outbox{capacity: capacity, now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, rec := range o.pending {
		doc := infraoutbox.NewDocument(rec, now)
		o.rows = append(o.rows, &doc)
	}
	o.pending = nil
	if over := len(o.rows) - o.capacity; over > 0 {
		o.dropped += over
		o.rows = append([]*infraoutbox.EventDocument(nil), o.rows[over:]...)
	}
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, row := range o.rows {
		if row.ClaimedBy != "" || row.NextAttempt.After(now) {
			continue
		}
		row.ClaimedBy = workerID
		row.ClaimedAt = now
		claimed := *row
		return &claimed, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.rows[:0]
	for _, row := range o.rows {
		if row.ID == id {
			o.published++
			continue
		}
		kept = append(kept, row)
	}
	o.rows = kept
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, row := range o.rows {
		if row.ID == id {
			row.ClaimedBy = ""
			row.Attempts++
			row.NextAttempt = next
			row.LastError = errMsg
		}
	}
	return nil
}

// Published counts rows the worker has delivered.
func (o *Outbox) Published() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.published
}

// Queued reports flushed rows not yet delivered.
func (o *Outbox) Queued() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.rows)
}

// Dropped counts rows discarded to stay within capacity.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
