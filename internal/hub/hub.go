// Package hub fans domain events out to subscribers, one channel per event kind.
package hub

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"imbridge/contracts/events"
	"imbridge/pkg/logger"
	"imbridge/pkg/metrics"
)

// Handler receives every event published on the channels it subscribed to.
type Handler func(ctx context.Context, ev events.Event) error

// Hub is a typed publish/subscribe surface. Publish never waits for
// subscribers and never reports their failures to the publisher.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	byKind map[events.Kind]map[uint64]Handler
	all    map[uint64]Handler

	inflight sync.WaitGroup
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		byKind: make(map[events.Kind]map[uint64]Handler),
		all:    make(map[uint64]Handler),
		logger: logger,
	}
}

// Subscribe registers fn for the kind of T. T may be the value or the pointer
// form of an event type; events published in the other form are converted
// before fn sees them. The returned func unsubscribes.
func Subscribe[T events.Event](h *Hub, fn func(ctx context.Context, ev T) error) func() {
	kind := kindOf[T]()
	return h.SubscribeKind(kind, func(ctx context.Context, ev events.Event) error {
		typed, ok := as[T](ev)
		if !ok {
			return fmt.Errorf("unexpected payload %T on %s", ev, kind)
		}
		return fn(ctx, typed)
	})
}

// kindOf 指针类型的零值是 nil，需要先构造出元素再取 kind
func kindOf[T events.Event]() events.Kind {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(events.Event).Kind()
	}
	var zero T
	return zero.Kind()
}

// as converts ev to T, dereferencing or taking the address as needed.
func as[T events.Event](ev events.Event) (T, bool) {
	if typed, ok := ev.(T); ok {
		return typed, true
	}

	var zero T
	if ev == nil {
		return zero, false
	}
	target := reflect.TypeFor[T]()
	v := reflect.ValueOf(ev)
	switch {
	case v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Type() == target:
		return v.Elem().Interface().(T), true
	case target.Kind() == reflect.Pointer && target.Elem() == v.Type():
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p.Interface().(T), true
	}
	return zero, false
}

// SubscribeKind registers an untyped handler for one kind.
func (h *Hub) SubscribeKind(kind events.Kind, fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	subs, ok := h.byKind[kind]
	if !ok {
		subs = make(map[uint64]Handler)
		h.byKind[kind] = subs
	}
	subs[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.byKind[kind], id)
	}
}

// SubscribeAll registers a handler for every kind.
func (h *Hub) SubscribeAll(fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.all[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.all, id)
	}
}

// Publish snapshots the current subscribers and delivers ev to each of them on
// its own goroutine.
func (h *Hub) Publish(ctx context.Context, ev events.Event) {
	kind := ev.Kind()

	h.mu.RLock()
	targets := make([]Handler, 0, len(h.byKind[kind])+len(h.all))
	for _, fn := range h.byKind[kind] {
		targets = append(targets, fn)
	}
	for _, fn := range h.all {
		targets = append(targets, fn)
	}
	h.mu.RUnlock()

	metrics.IncrementEventPublished(string(kind))

	// 投递不受条目超时影响，但保留 trace 信息
	deliverCtx := context.WithoutCancel(ctx)
	for _, fn := range targets {
		h.inflight.Add(1)
		go h.deliver(deliverCtx, kind, fn, ev)
	}
}

func (h *Hub) deliver(ctx context.Context, kind events.Kind, fn Handler, ev events.Event) {
	defer h.inflight.Done()
	log := logger.WithTrace(ctx, h.logger)

	defer func() {
		if r := recover(); r != nil {
			metrics.IncrementSubscriberFailure(string(kind))
			log.Error("Subscriber panic recovered",
				zap.String("kind", string(kind)),
				zap.Any("panic", r),
			)
		}
	}()

	if err := fn(ctx, ev); err != nil {
		metrics.IncrementSubscriberFailure(string(kind))
		log.Error("Subscriber failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

// Drain blocks until every delivery started so far has returned.
func (h *Hub) Drain() {
	h.inflight.Wait()
}
