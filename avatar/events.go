package avatar

import "sync"

// Event names the avatar's public lifecycle notifications.
type Event string

const (
	// EventReady fires once initial assets are loaded and the idle loop can render.
	EventReady Event = "ready"
	// EventBeforeSpeak fires on the tick that releases gated audio playback.
	EventBeforeSpeak Event = "before_speak"
	// EventSpeakStart fires when utterance audio actually starts playing.
	EventSpeakStart Event = "speak_start"
	// EventSpeakEnd fires when utterance audio finishes.
	EventSpeakEnd Event = "speak_end"
	// EventSpeakError fires when a session or its audio fails.
	EventSpeakError Event = "speak_error"
	// EventText carries incremental transcript fragments from the rendering service.
	EventText Event = "text"
	// EventError carries failures outside an utterance (asset loads, config).
	EventError Event = "error"
)

// Handler receives an event payload. Handlers run synchronously on the
// emitting goroutine and must not block.
type Handler func(payload any)

type subscriber struct {
	id int
	fn Handler
}

// Bus is a typed publish/subscribe dispatcher. Unlike a bare listener list
// it hands out cancellable subscriptions, so a superseded session's
// listeners can be detached instead of left to self-check liveness.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Event][]subscriber
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]subscriber)}
}

// Subscription identifies one registered handler.
type Subscription struct {
	bus   *Bus
	event Event
	id    int
}

// Subscribe registers fn for ev. Handlers for the same event are invoked
// in subscription order.
func (b *Bus) Subscribe(ev Event, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[ev] = append(b.subs[ev], subscriber{id: b.nextID, fn: fn})
	return &Subscription{bus: b, event: ev, id: b.nextID}
}

// Cancel detaches the handler. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.event]
	for i, sub := range list {
		if sub.id == s.id {
			b.subs[s.event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// Emit invokes every handler subscribed to ev, synchronously, in
// subscription order. The subscriber list is snapshotted first so a
// handler may cancel subscriptions without corrupting the iteration.
func (b *Bus) Emit(ev Event, payload any) {
	b.mu.Lock()
	list := make([]subscriber, len(b.subs[ev]))
	copy(list, b.subs[ev])
	b.mu.Unlock()

	for _, sub := range list {
		sub.fn(payload)
	}
}
