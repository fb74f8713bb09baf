package codeshell

import (
	"context"
	"sync"

	"github.com/aretw0/codeshell/pkg/domain"
)

// subscriberBuffer is the number of records a subscriber may lag behind before drops.
const subscriberBuffer = 256

// broker fans console records out to per-workspace subscribers.
type broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan domain.ConsoleRecord]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[chan domain.ConsoleRecord]struct{})}
}

func (b *broker) subscribe(id string) (<-chan domain.ConsoleRecord, func()) {
	ch := make(chan domain.ConsoleRecord, subscriberBuffer)

	b.mu.Lock()
	if b.subs[id] == nil {
		b.subs[id] = make(map[chan domain.ConsoleRecord]struct{})
	}
	b.subs[id][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[id], ch)
			if len(b.subs[id]) == 0 {
				delete(b.subs, id)
			}
			close(ch)
		})
	}
}

// publish is installed as the OnRecord hook.
func (b *broker) publish(_ context.Context, e *domain.RecordEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[e.WorkspaceID] {
		select {
		case ch <- e.Record:
		default:
		}
	}
}
