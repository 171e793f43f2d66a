package eventbus

import "sync"

// Event is a single published message: Topic plus an opaque Payload
// (one of the *Payload structs in payloads.go, by convention — the bus
// itself does not enforce a schema).
type Event struct {
	Topic   string
	Payload any
}

// subscriber is one Subscribe call's delivery channel and policy.
type subscriber struct {
	ch     chan Event
	policy Policy
	mu     sync.Mutex // serializes drop-oldest's read-then-write on ch
}

// Bus is a process-wide, topic-keyed, multi-subscriber fan-out, grounded
// on the teacher's bounded-worker-pool callback queue (knxd.go's
// callbackQueue/callbackWorker), generalized from a single telegram
// callback to arbitrary named topics with per-topic backpressure.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]*subscriber
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]*subscriber)}
}

// Subscribe registers a new subscriber on topic with a channel buffered
// to bufSize, using topic's default backpressure policy (policyFor).
// The returned cancel func unsubscribes and closes the channel; callers
// must keep draining the channel until cancel is called.
func (b *Bus) Subscribe(topic string, bufSize int) (<-chan Event, func()) {
	sub := &subscriber{
		ch:     make(chan Event, bufSize),
		policy: policyFor(topic),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		list := b.subs[topic]
		for i, s := range list {
			if s == sub {
				b.subs[topic] = append(list[:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(sub.ch)
	}
	return sub.ch, cancel
}

// Publish fans payload out to every subscriber of topic, applying each
// subscriber's backpressure policy independently.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subs[topic]...)
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// deliver applies sub's policy for one event.
func (s *subscriber) deliver(ev Event) {
	switch s.policy {
	case PolicyDropOldest:
		s.mu.Lock()
		defer s.mu.Unlock()
		for {
			select {
			case s.ch <- ev:
				return
			default:
				select {
				case <-s.ch:
				default:
				}
			}
		}
	default: // PolicyBlock
		s.ch <- ev
	}
}
