// Package network pushes published domain events to outward adapters.
package network

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"imbridge/contracts/events"
	"imbridge/internal/hub"
	"imbridge/pkg/logger"
	"imbridge/pkg/metrics"
)

// Adapter is one outward transport.
type Adapter interface {
	Name() string
	Send(ctx context.Context, env Envelope) error
	Close() error
}

// Manager wraps every hub event in an Envelope and hands it to all adapters.
// One adapter failing never keeps the others from receiving the envelope.
type Manager struct {
	mu       sync.RWMutex
	adapters []Adapter

	unsubscribe func()
	logger      *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

func (m *Manager) Register(a Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters = append(m.adapters, a)
	m.logger.Info("Network adapter registered", zap.String("adapter", a.Name()))
}

// Attach subscribes the manager to every kind published on h.
func (m *Manager) Attach(h *hub.Hub) {
	m.unsubscribe = h.SubscribeAll(func(ctx context.Context, ev events.Event) error {
		m.Dispatch(ctx, ev)
		return nil
	})
}

// Dispatch sends ev to every adapter concurrently and waits for all of them.
func (m *Manager) Dispatch(ctx context.Context, ev events.Event) {
	env := NewEnvelope(ev)

	m.mu.RLock()
	adapters := make([]Adapter, len(m.adapters))
	copy(adapters, m.adapters)
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, a := range adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					metrics.IncrementAdapterFailure(a.Name())
					logger.WithTrace(ctx, m.logger).Error("Network adapter panic recovered",
						zap.String("adapter", a.Name()),
						zap.Any("panic", r),
					)
				}
			}()

			if err := a.Send(ctx, env); err != nil {
				metrics.IncrementAdapterFailure(a.Name())
				logger.WithTrace(ctx, m.logger).Warn("Network adapter failed to send",
					zap.String("adapter", a.Name()),
					zap.String("event_id", env.EventID),
					zap.String("kind", string(env.Kind)),
					zap.Error(err),
				)
			}
		}(a)
	}
	wg.Wait()
}

// Close detaches from the hub and closes every adapter.
func (m *Manager) Close() error {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, a := range m.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.adapters = nil
	return errors.Join(errs...)
}
