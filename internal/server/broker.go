package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// StateEvent is published after every committed draw or reset. State is
// always the public view.
type StateEvent struct {
	Type   string              `json:"type"`
	Member string              `json:"member,omitempty"`
	BoxID  int                 `json:"boxId,omitempty"`
	Reward int64               `json:"reward,omitempty"`
	State  luckydraw.GameState `json:"state"`
}

const (
	eventDraw  = "draw"
	eventReset = "reset"
)

// Publisher fans committed state changes out to watchers.
type Publisher interface {
	Publish(ctx context.Context, event StateEvent)
}

// Broker is an in-process pub/sub for state events. Every subscriber receives
// every event.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded state events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the subscribers.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends an event to all subscribers.
func (b *Broker) Publish(_ context.Context, event StateEvent) {
	data, _ := json.Marshal(event)
	b.publishRaw(data)
}

func (b *Broker) publishRaw(data []byte) {
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow; it resyncs on its next poll.
		}
	}
	b.mu.RUnlock()
}
