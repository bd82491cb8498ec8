package sys

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// ReactionEvent is the part of a reaction-add gateway event that waiters care about.
type ReactionEvent struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	MessageID snowflake.ID
	UserID    snowflake.ID
	Emoji     string
}

type reactionSubscription struct {
	filter  func(ReactionEvent) bool
	handler func(ReactionEvent)
}

// ReactionWaiter routes reaction events to short-lived subscriptions keyed by message.
type ReactionWaiter struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[snowflake.ID]map[uint64]reactionSubscription
}

// Waiter is fed by the client's reaction listener.
var Waiter = NewReactionWaiter()

func NewReactionWaiter() *ReactionWaiter {
	return &ReactionWaiter{subs: make(map[snowflake.ID]map[uint64]reactionSubscription)}
}

// Subscribe registers handler for reactions on messageID that pass filter.
// The returned cancel func is idempotent.
func (w *ReactionWaiter) Subscribe(messageID snowflake.ID, filter func(ReactionEvent) bool, handler func(ReactionEvent)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	if w.subs[messageID] == nil {
		w.subs[messageID] = make(map[uint64]reactionSubscription)
	}
	w.subs[messageID][id] = reactionSubscription{filter: filter, handler: handler}
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if m, ok := w.subs[messageID]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(w.subs, messageID)
				}
			}
		})
	}
}

// Dispatch runs every matching handler outside the lock.
func (w *ReactionWaiter) Dispatch(ev ReactionEvent) {
	w.mu.Lock()
	var handlers []func(ReactionEvent)
	for _, sub := range w.subs[ev.MessageID] {
		if sub.filter == nil || sub.filter(ev) {
			handlers = append(handlers, sub.handler)
		}
	}
	w.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Pending counts live subscriptions across all messages.
func (w *ReactionWaiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, m := range w.subs {
		n += len(m)
	}
	return n
}
