package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

// Event announces one at-risk point from a finished run.
type Event struct {
	RunID  string             `json:"run_id"`
	Record models.MatchRecord `json:"record"`
	At     time.Time          `json:"at"`
}

type Broadcaster struct {
	subscribers map[uint64]chan *Event
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *Event),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan *Event) {
	id := b.nextID.Add(1)
	ch := make(chan *Event, 256)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast never blocks; slow subscribers miss events.
func (b *Broadcaster) Broadcast(e *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Publish broadcasts every at-risk record of a run.
func (b *Broadcaster) Publish(runID string, records []models.MatchRecord, at time.Time) int {
	n := 0
	for _, rec := range records {
		if !rec.IsAtRisk {
			continue
		}
		b.Broadcast(&Event{RunID: runID, Record: rec, At: at})
		n++
	}
	return n
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
