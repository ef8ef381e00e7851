package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"microlend/core/types"
	"microlend/observability"
)

// Record is implemented by events that carry a full attribute payload.
type Record interface {
	Event() *types.Event
}

// Bus fans emitted events out to structured logs and the metrics registry,
// stamping each emission with a unique identifier and a process-local
// sequence number. It is the default Emitter wired by the platform bootstrap.
type Bus struct {
	mu     sync.Mutex
	log    *slog.Logger
	seq    uint64
	sinks  []Emitter
	record bool
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{log: log, record: true}
}

// Subscribe registers an additional downstream emitter.
func (b *Bus) Subscribe(sink Emitter) {
	if b == nil || sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Emit implements the Emitter interface.
func (b *Bus) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.seq++
	seq := b.seq
	sinks := append([]Emitter(nil), b.sinks...)
	b.mu.Unlock()

	id := uuid.NewString()
	if b.record {
		observability.Metrics().RecordEvent(evt.EventType())
	}
	if b.log != nil {
		args := []any{"eventId", id, "seq", seq, "type", evt.EventType()}
		if rec, ok := evt.(Record); ok {
			if payload := rec.Event(); payload != nil {
				for k, v := range payload.Attributes {
					args = append(args, k, v)
				}
			}
		}
		b.log.Info("ledger event", args...)
	}
	for _, sink := range sinks {
		sink.Emit(evt)
	}
}
