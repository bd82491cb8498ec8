package proc

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// GuildQueue is the ordered playback queue of one guild. Index 0 is the track
// playing now.
type GuildQueue struct {
	GuildID snowflake.ID

	mu      sync.Mutex
	entries []*QueuedTrack
	onAdd   func(guildID snowflake.ID, qt *QueuedTrack)
}

func NewGuildQueue(guildID snowflake.ID) *GuildQueue {
	return &GuildQueue{GuildID: guildID}
}

// Add appends qt and returns its 1-based position at the moment of insertion.
func (q *GuildQueue) Add(qt *QueuedTrack) int {
	q.mu.Lock()
	q.entries = append(q.entries, qt)
	pos := len(q.entries)
	hook := q.onAdd
	q.mu.Unlock()

	if hook != nil {
		hook(q.GuildID, qt)
	}
	return pos
}

func (q *GuildQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot copies the current order.
func (q *GuildQueue) Snapshot() []*QueuedTrack {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*QueuedTrack, len(q.entries))
	copy(out, q.entries)
	return out
}

// Skip drops the head and returns it, or nil when empty.
func (q *GuildQueue) Skip() *QueuedTrack {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	head := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	return head
}

// QueueRegistry owns one GuildQueue per guild, created on first use.
type QueueRegistry struct {
	mu     sync.Mutex
	queues map[snowflake.ID]*GuildQueue
	onAdd  func(guildID snowflake.ID, qt *QueuedTrack)
}

func NewQueueRegistry() *QueueRegistry {
	return &QueueRegistry{queues: make(map[snowflake.ID]*GuildQueue)}
}

// OnAdd installs a hook run after every insert into any queue. Set it before use.
func (r *QueueRegistry) OnAdd(fn func(guildID snowflake.ID, qt *QueuedTrack)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAdd = fn
	for _, q := range r.queues {
		q.mu.Lock()
		q.onAdd = fn
		q.mu.Unlock()
	}
}

func (r *QueueRegistry) Get(guildID snowflake.ID) *GuildQueue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[guildID]
	if !ok {
		q = NewGuildQueue(guildID)
		q.onAdd = r.onAdd
		r.queues[guildID] = q
	}
	return q
}

// Lookup returns the queue without creating one.
func (r *QueueRegistry) Lookup(guildID snowflake.ID) (*GuildQueue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[guildID]
	return q, ok
}
