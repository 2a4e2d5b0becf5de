package bus

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives delivered events. A handler MUST NOT block indefinitely —
// it runs on its subscription's single delivery goroutine, and a slow
// handler delays only that subscription's own queue.
type Handler func(Event)

// defaultQueueSize bounds the per-subscription delivery queue. Overflow
// drops the event and logs a warning rather than blocking Emit, preserving
// the "emit never blocks past enqueuing" contract under a runaway handler.
const defaultQueueSize = 256

// Bus is a typed, concurrency-safe publish/subscribe hub. Subscription
// changes during dispatch of an earlier event never affect that dispatch:
// Emit snapshots the set of matching subscriptions under lock before
// delivering.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType]map[string]*subscription // variant -> subscription id -> sub
}

type subscription struct {
	id       string
	agentID  string
	variant  EventType
	handler  Handler
	queue    chan Event
	closeCh  chan struct{}
	closeOnce sync.Once
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[EventType]map[string]*subscription)}
}

// RegisterHandler installs handler for events of the given variant owned by
// agentID. Returns a registration id usable with DeregisterHandler. Each
// registration gets its own delivery goroutine, so deliveries to this
// handler are strictly FIFO with respect to Emit call order observed by the
// bus, and independent of any other subscription's delivery pace.
func (b *Bus) RegisterHandler(variant EventType, agentID string, handler Handler) string {
	sub := &subscription{
		id:      uuid.New().String(),
		agentID: agentID,
		variant: variant,
		handler: handler,
		queue:   make(chan Event, defaultQueueSize),
		closeCh: make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[variant] == nil {
		b.subs[variant] = make(map[string]*subscription)
	}
	b.subs[variant][sub.id] = sub
	b.mu.Unlock()

	go sub.run()
	return sub.id
}

// DeregisterHandler removes a previously registered handler.
func (b *Bus) DeregisterHandler(variant EventType, registrationID string) {
	b.mu.Lock()
	sub, ok := b.subs[variant][registrationID]
	if ok {
		delete(b.subs[variant], registrationID)
	}
	b.mu.Unlock()

	if ok {
		sub.stop()
	}
}

// DeregisterAgent removes every handler owned by agentID, across all
// variants. Used by Agent.Stop.
func (b *Bus) DeregisterAgent(agentID string) {
	b.mu.Lock()
	var toStop []*subscription
	for variant, subs := range b.subs {
		for id, sub := range subs {
			if sub.agentID == agentID {
				delete(subs, id)
				toStop = append(toStop, sub)
			}
		}
		_ = variant
	}
	b.mu.Unlock()

	for _, sub := range toStop {
		sub.stop()
	}
}

// Emit delivers event to every handler subscribed to event.Type() whose
// owning agent id matches event.ReceiverID, or whose ReceiverID is
// Broadcast. Emit returns once the event has been enqueued to every
// matching subscription's queue; it never blocks on handler execution and
// never propagates a handler's panic.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	variantSubs := b.subs[event.Type()]
	matching := make([]*subscription, 0, len(variantSubs))
	for _, sub := range variantSubs {
		if event.ReceiverID == Broadcast || event.ReceiverID == sub.agentID {
			matching = append(matching, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matching {
		select {
		case sub.queue <- event:
		default:
			slog.Warn("bus: subscription queue full, dropping event",
				"variant", event.Type(), "agent_id", sub.agentID)
		}
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.closeCh:
			return
		case event := <-s.queue:
			s.deliver(event)
		}
	}
}

func (s *subscription) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("bus: handler panicked, isolated from emitter",
				"variant", s.variant, "agent_id", s.agentID, "panic", r)
		}
	}()
	s.handler(event)
}

func (s *subscription) stop() {
	s.closeOnce.Do(func() { close(s.closeCh) })
}
