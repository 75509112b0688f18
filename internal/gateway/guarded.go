package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"imbridge/internal/model"
	"imbridge/pkg/metrics"
)

type GuardOptions struct {
	Timeout     time.Duration // 单次调用上限
	MaxFailures uint32        // 连续失败多少次后熔断
	OpenFor     time.Duration // 熔断持续时间
}

// 每个操作一个熔断器，副作用调用失败不影响 uin 查询
const (
	opGroupMemberUin   = "group_member_uin"
	opUserUin          = "user_uin"
	opMessagesBySeq    = "messages_by_seq"
	opCachedMember     = "cached_member"
	opQuitGroup        = "quit_group"
	opClearBuddyUnread = "clear_buddy_unread"
)

var operations = []string{
	opGroupMemberUin,
	opUserUin,
	opMessagesBySeq,
	opCachedMember,
	opQuitGroup,
	opClearBuddyUnread,
}

// Guarded bounds every call with a timeout and a circuit breaker per
// operation. ErrNotFound counts as a successful call and never trips it.
type Guarded struct {
	next     Gateway
	breakers map[string]*gobreaker.CircuitBreaker[any]
	timeout  time.Duration
	logger   *zap.Logger
}

func NewGuarded(next Gateway, opts GuardOptions, logger *zap.Logger) *Guarded {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker[any], len(operations))
	for _, op := range operations {
		breakers[op] = newBreaker("gateway."+op, opts, logger)
	}

	return &Guarded{
		next:     next,
		breakers: breakers,
		timeout:  opts.Timeout,
		logger:   logger,
	}
}

func newBreaker(name string, opts GuardOptions, logger *zap.Logger) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Gateway breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func guard[T any](g *Guarded, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	res, err := g.breakers[op].Execute(func() (any, error) {
		return fn(ctx)
	})
	metrics.RecordGatewayCallLatency(op, callStatus(err), time.Since(start))

	var zero T
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, err
		}
		return zero, fmt.Errorf("gateway %s: %w", op, err)
	}
	v, ok := res.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "open"
	default:
		return "error"
	}
}

func (g *Guarded) GroupMemberUin(ctx context.Context, groupCode, uid string) (string, error) {
	return guard(g, ctx, opGroupMemberUin, func(ctx context.Context) (string, error) {
		return g.next.GroupMemberUin(ctx, groupCode, uid)
	})
}

func (g *Guarded) UserUin(ctx context.Context, uid string) (string, error) {
	return guard(g, ctx, opUserUin, func(ctx context.Context) (string, error) {
		return g.next.UserUin(ctx, uid)
	})
}

func (g *Guarded) MessagesBySeq(ctx context.Context, peer model.Peer, seq string, count int) ([]model.RawMessage, error) {
	return guard(g, ctx, opMessagesBySeq, func(ctx context.Context) ([]model.RawMessage, error) {
		return g.next.MessagesBySeq(ctx, peer, seq, count)
	})
}

func (g *Guarded) CachedMember(ctx context.Context, groupCode, uid string) (model.GroupMember, error) {
	return guard(g, ctx, opCachedMember, func(ctx context.Context) (model.GroupMember, error) {
		return g.next.CachedMember(ctx, groupCode, uid)
	})
}

func (g *Guarded) QuitGroup(ctx context.Context, groupCode string) error {
	_, err := guard(g, ctx, opQuitGroup, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.QuitGroup(ctx, groupCode)
	})
	return err
}

func (g *Guarded) ClearBuddyRequestUnread(ctx context.Context) error {
	_, err := guard(g, ctx, opClearBuddyUnread, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.ClearBuddyRequestUnread(ctx)
	})
	return err
}
