package journal

import (
	"context"
	"sync"

	"github.com/user/nftmarket/backend/internal/models"
)

//go:generate mockgen -source=journal.go -destination=../mocks/mock_journal.go -package=mocks

// Journal durably records committed mutations. Append is called inside the
// caller's transaction boundary; when it fails the mutation is rolled back.
type Journal interface {
	Append(ctx context.Context, ev *models.Event) error
}

// Notifier receives events after they commit. Publish must not block.
type Notifier interface {
	Publish(ev models.Event)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Append(context.Context, *models.Event) error { return nil }
func (Nop) Publish(models.Event)                        {}

// Memory keeps events in process. It is used when no database is configured.
type Memory struct {
	mu     sync.RWMutex
	events []models.Event
}

func NewMemory() *Memory {
	return &Memory{events: make([]models.Event, 0)}
}

func (m *Memory) Append(_ context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.Seq = int64(len(m.events) + 1)
	m.events = append(m.events, *ev)
	return nil
}

// Events returns a copy of the recorded events in Seq order.
func (m *Memory) Events() []models.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Event, len(m.events))
	copy(out, m.events)
	return out
}
