package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/opencafe/intake/internal/db"
	"github.com/opencafe/intake/internal/observability"
)

// Snapshot is the full grouping of items by lifecycle status. Every mutation
// retransmits the whole thing; viewers never receive deltas. Items carrying an
// admin-defined status outside the fixed lifecycle land in Other so the
// buckets always partition the complete item set.
type Snapshot struct {
	Registered []db.ItemSummary `json:"registered"`
	InProgress []db.ItemSummary `json:"inProgress"`
	Ready      []db.ItemSummary `json:"ready"`
	Delivered  []db.ItemSummary `json:"delivered"`
	Other      []db.ItemSummary `json:"other,omitempty"`
}

// Relay fans the current status snapshot out to every subscribed viewer. The
// viewer set is owned here, guarded by a mutex; it is not module state.
type Relay struct {
	store   *db.Store
	metrics *observability.Metrics
	log     *slog.Logger
	buffer  int

	mu      sync.Mutex
	viewers map[uuid.UUID]chan Snapshot
}

func NewRelay(store *db.Store, metrics *observability.Metrics, log *slog.Logger, buffer int) *Relay {
	if buffer < 1 {
		buffer = 1
	}
	return &Relay{
		store:   store,
		metrics: metrics,
		log:     log,
		buffer:  buffer,
		viewers: make(map[uuid.UUID]chan Snapshot),
	}
}

// Snapshot recomputes the grouped view of all items.
func (r *Relay) Snapshot(ctx context.Context) (Snapshot, error) {
	items, err := r.store.ListItemSummaries(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Registered: []db.ItemSummary{},
		InProgress: []db.ItemSummary{},
		Ready:      []db.ItemSummary{},
		Delivered:  []db.ItemSummary{},
	}
	for _, item := range items {
		switch item.Status {
		case StatusRegistered:
			snap.Registered = append(snap.Registered, item)
		case StatusInProgress:
			snap.InProgress = append(snap.InProgress, item)
		case StatusReady:
			snap.Ready = append(snap.Ready, item)
		case StatusDelivered:
			snap.Delivered = append(snap.Delivered, item)
		default:
			snap.Other = append(snap.Other, item)
		}
	}
	return snap, nil
}

// Subscribe registers a new viewer and immediately seeds it with the current
// snapshot, so freshly connected dashboards do not wait for the next mutation.
func (r *Relay) Subscribe(ctx context.Context) (uuid.UUID, <-chan Snapshot, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return uuid.Nil, nil, err
	}

	id := uuid.New()
	ch := make(chan Snapshot, r.buffer)
	ch <- snap

	r.mu.Lock()
	r.viewers[id] = ch
	count := len(r.viewers)
	r.mu.Unlock()

	r.metrics.BroadcastViewers.Set(float64(count))
	r.log.Debug("viewer subscribed", "viewer_id", id, "viewers", count)
	return id, ch, nil
}

func (r *Relay) Unsubscribe(id uuid.UUID) {
	r.mu.Lock()
	ch, ok := r.viewers[id]
	if ok {
		delete(r.viewers, id)
	}
	count := len(r.viewers)
	r.mu.Unlock()

	if ok {
		close(ch)
	}
	r.metrics.BroadcastViewers.Set(float64(count))
}

// Publish recomputes the snapshot and pushes it to every viewer. A viewer
// whose buffer is full skips this frame; the next publish carries the full
// state anyway. Errors are logged and never reach the triggering mutation.
func (r *Relay) Publish(ctx context.Context) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		r.log.Error("failed to build status snapshot", "error", err)
		return
	}

	r.mu.Lock()
	for id, ch := range r.viewers {
		select {
		case ch <- snap:
		default:
			r.log.Warn("viewer too slow, dropping snapshot", "viewer_id", id)
		}
	}
	r.mu.Unlock()

	r.metrics.Broadcasts.Inc()
}

// ViewerCount reports the number of currently subscribed viewers.
func (r *Relay) ViewerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}
