package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/klytics/invoicechat/internal/agent"
	"github.com/klytics/invoicechat/internal/metrics"
)

// Manager creates and ends sessions that share one agent.
type Manager struct {
	agent agent.Agent
	store Store
	idle  time.Duration
	log   *zap.Logger

	mu     sync.Mutex
	active map[string]bool
}

// NewManager returns a Manager. A nil logger discards output.
func NewManager(a agent.Agent, store Store, idle time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		agent:  a,
		store:  store,
		idle:   idle,
		log:    log.Named("chat"),
		active: make(map[string]bool),
	}
}

// Open returns the session for id, creating a new one when id is empty,
// unknown or expired. The bool reports whether a session was created.
func (m *Manager) Open(ctx context.Context, id string) (*Session, bool, error) {
	if id != "" {
		ok, err := m.store.Exists(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return &Session{ID: id, m: m}, false, nil
		}
	}

	id = uuid.NewString()
	if err := m.store.Create(ctx, id); err != nil {
		return nil, false, err
	}
	m.observe(ctx)
	m.log.Debug("session started", zap.String("session", id))
	return &Session{ID: id, m: m}, true, nil
}

// End discards the session's transcript.
func (m *Manager) End(ctx context.Context, id string) error {
	ok, err := m.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("could not end session: %w", err)
	}
	m.observe(ctx)
	m.log.Debug("session ended", zap.String("session", id))
	return nil
}

// Run expires idle in-memory sessions and refreshes the session gauge until
// ctx is done. Redis-backed sessions expire through key TTLs and are only
// recounted.
func (m *Manager) Run(ctx context.Context) {
	if m.idle <= 0 {
		return
	}
	mem, _ := m.store.(*MemoryStore)
	interval := m.idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mem != nil {
				m.expire(mem)
			}
			m.observe(ctx)
		}
	}
}

func (m *Manager) expire(mem *MemoryStore) {
	for _, id := range mem.Sweep(m.idle) {
		m.log.Debug("session expired", zap.String("session", id))
	}
}

// observe sets the session gauge from the store's own count.
func (m *Manager) observe(ctx context.Context) {
	n, err := m.store.Len(ctx)
	if err != nil {
		m.log.Warn("could not count sessions", zap.Error(err))
		return
	}
	metrics.ActiveSessions.Set(float64(n))
}

func (m *Manager) acquire(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[id] {
		return false
	}
	m.active[id] = true
	return true
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, id)
}
