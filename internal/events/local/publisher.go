// Package local delivers events to in-process subscribers.
package local

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
)

// Message is one published event.
type Message struct {
	Topic string
	Event any
}

// Publisher fans events out to subscriber channels. Slow subscribers miss
// events instead of blocking publishers.
type Publisher struct {
	mu     sync.RWMutex
	subs   map[int]chan Message
	nextID int
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan Message)}
}

// Subscribe returns a channel receiving every event published after the
// call, and a function that removes the subscription.
func (p *Publisher) Subscribe(buffer int) (<-chan Message, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan Message, buffer)
	p.subs[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	msg := Message{Topic: topic, Event: event}
	for _, ch := range p.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
