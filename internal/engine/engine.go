// Package engine turns backend notification batches into published domain
// events. One Engine owns the recency guards, the classification pipeline and
// the dispatch hub; nothing here is process-global.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"imbridge/contracts/events"
	"imbridge/internal/classify"
	"imbridge/internal/gateway"
	"imbridge/internal/hub"
	"imbridge/internal/model"
	"imbridge/internal/recency"
	"imbridge/pkg/logger"
	"imbridge/pkg/metrics"
)

// Batch kinds, used as log fields and metric labels.
const (
	BatchRecvMessages  = "recv_messages"
	BatchMessageUpdate = "message_update"
	BatchBuddyRequests = "buddy_requests"
	BatchGroupNotifies = "group_notifies"
	BatchMemberChange  = "member_change"
	BatchInputStatus   = "input_status"
)

// Backend is the hook surface of the messaging backend. The engine registers
// exactly one handler per hook in Attach.
type Backend interface {
	OnRecvMessages(fn func(ctx context.Context, msgs []model.RawMessage))
	OnMessageInfoUpdate(fn func(ctx context.Context, msgs []model.RawMessage))
	OnBuddyRequests(fn func(ctx context.Context, batch *model.BuddyRequestBatch))
	OnGroupNotifies(fn func(ctx context.Context, notifies []model.GroupNotify))
	OnMemberInfoChange(fn func(ctx context.Context, diff *model.MemberDiff))
	OnInputStatus(fn func(ctx context.Context, status *model.InputStatus))
}

type Options struct {
	SelfUin string
	Gateway gateway.Gateway

	// RecallStore / SentStore 为空时使用进程内 LRU
	RecallStore     recency.Store
	SentStore       recency.Store
	RecallCacheSize int
	SentCacheSize   int

	MaxConcurrency int
	ItemTimeout    time.Duration
	FailureSink    FailureSink
	Logger         *zap.Logger
}

type Engine struct {
	selfUin  string
	gw       gateway.Gateway
	pipeline *classify.Pipeline
	recalled recency.Store
	sent     recency.Store
	hub      *hub.Hub
	runner   *Runner
	logger   *zap.Logger
}

func New(opts Options) (*Engine, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("engine: gateway is required")
	}
	if opts.SelfUin == "" {
		return nil, fmt.Errorf("engine: self uin is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	recalled := opts.RecallStore
	if recalled == nil {
		c, err := recency.NewCache(opts.RecallCacheSize)
		if err != nil {
			return nil, err
		}
		recalled = c
	}
	sent := opts.SentStore
	if sent == nil {
		c, err := recency.NewCache(opts.SentCacheSize)
		if err != nil {
			return nil, err
		}
		sent = c
	}

	return &Engine{
		selfUin:  opts.SelfUin,
		gw:       opts.Gateway,
		pipeline: classify.New(opts.Gateway, opts.SelfUin, log),
		recalled: recalled,
		sent:     sent,
		hub:      hub.New(log),
		runner:   NewRunner(opts.MaxConcurrency, opts.ItemTimeout, opts.FailureSink, log),
		logger:   log,
	}, nil
}

// Hub is where consumers subscribe to the events this engine emits.
func (e *Engine) Hub() *hub.Hub {
	return e.hub
}

// Attach registers the engine's handler on every backend hook.
func (e *Engine) Attach(b Backend) {
	b.OnRecvMessages(func(ctx context.Context, msgs []model.RawMessage) {
		e.HandleRecvMessages(ctx, msgs)
	})
	b.OnMessageInfoUpdate(func(ctx context.Context, msgs []model.RawMessage) {
		e.HandleMessageInfoUpdate(ctx, msgs)
	})
	b.OnBuddyRequests(func(ctx context.Context, batch *model.BuddyRequestBatch) {
		e.HandleBuddyRequests(ctx, batch)
	})
	b.OnGroupNotifies(func(ctx context.Context, notifies []model.GroupNotify) {
		e.HandleGroupNotifies(ctx, notifies)
	})
	b.OnMemberInfoChange(func(ctx context.Context, diff *model.MemberDiff) {
		e.HandleMemberInfoChange(ctx, diff)
	})
	b.OnInputStatus(func(ctx context.Context, status *model.InputStatus) {
		e.HandleInputStatus(ctx, status)
	})
}

// Drain waits for subscriber deliveries still in flight.
func (e *Engine) Drain() {
	e.hub.Drain()
}

func (e *Engine) publish(ctx context.Context, evs ...events.Event) {
	for _, ev := range evs {
		e.hub.Publish(ctx, ev)
	}
}

func msgID(m model.RawMessage) string { return m.MsgID }

// HandleRecvMessages classifies inbound messages not authored by the local
// identity. Unmatched messages are published as message.receive.
func (e *Engine) HandleRecvMessages(ctx context.Context, msgs []model.RawMessage) Report {
	inbound := make([]model.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.SenderUin == e.selfUin {
			continue
		}
		inbound = append(inbound, m)
	}

	return Run(ctx, e.runner, BatchRecvMessages, inbound, msgID, func(ctx context.Context, m model.RawMessage) error {
		evs, handled, err := e.pipeline.Message(ctx, &m)
		if err != nil {
			return err
		}
		e.publish(ctx, evs...)
		if !handled {
			e.publish(ctx, events.MessageReceive{Message: &m})
		}
		return nil
	})
}

// HandleMessageInfoUpdate handles recalls and send confirmations, each emitted
// at most once per message id while the id is remembered by its guard.
func (e *Engine) HandleMessageInfoUpdate(ctx context.Context, msgs []model.RawMessage) Report {
	return Run(ctx, e.runner, BatchMessageUpdate, msgs, msgID, func(ctx context.Context, m model.RawMessage) error {
		switch {
		case m.IsRecalled():
			first, err := e.recalled.MarkIfAbsent(ctx, m.MsgID)
			if err != nil {
				return fmt.Errorf("recall guard: %w", err)
			}
			if !first {
				metrics.IncrementDedupSuppressed("recall")
				return nil
			}
			ev, err := e.pipeline.Recall(ctx, &m)
			if err != nil {
				return err
			}
			if ev != nil {
				e.publish(ctx, ev)
			}
			return nil

		case m.SendStatus == model.SendStatusSuccess:
			first, err := e.sent.MarkIfAbsent(ctx, m.MsgID)
			if err != nil {
				return fmt.Errorf("sent guard: %w", err)
			}
			if !first {
				metrics.IncrementDedupSuppressed("sent")
				return nil
			}
			evs, handled, err := e.pipeline.Message(ctx, &m)
			if err != nil {
				return err
			}
			e.publish(ctx, evs...)
			if !handled {
				e.publish(ctx, events.MessageSend{Message: &m})
			}
			return nil
		}
		return nil
	})
}

// HandleBuddyRequests clears the unread counter first, then emits one
// buddy.request per pending entry.
func (e *Engine) HandleBuddyRequests(ctx context.Context, batch *model.BuddyRequestBatch) Report {
	if err := e.gw.ClearBuddyRequestUnread(ctx); err != nil {
		logger.WithTrace(ctx, e.logger).Warn("Failed to clear buddy request unread count", zap.Error(err))
	}
	if batch == nil {
		return Report{BatchKind: BatchBuddyRequests}
	}

	pending := classify.PendingBuddyRequests(batch)
	return Run(ctx, e.runner, BatchBuddyRequests, pending,
		func(r model.BuddyRequest) string { return r.FriendUID },
		func(ctx context.Context, r model.BuddyRequest) error {
			ev, err := e.pipeline.BuddyRequest(ctx, &r)
			if err != nil {
				return err
			}
			e.publish(ctx, ev)
			return nil
		})
}

func (e *Engine) HandleGroupNotifies(ctx context.Context, notifies []model.GroupNotify) Report {
	return Run(ctx, e.runner, BatchGroupNotifies, notifies,
		func(n model.GroupNotify) string { return n.Seq },
		func(ctx context.Context, n model.GroupNotify) error {
			ev, err := e.pipeline.Notify(ctx, &n)
			if err != nil {
				return err
			}
			if ev != nil {
				e.publish(ctx, ev)
			}
			return nil
		})
}

// HandleMemberInfoChange only looks at diffs produced from the local member
// cache; remote refreshes are ignored.
func (e *Engine) HandleMemberInfoChange(ctx context.Context, diff *model.MemberDiff) Report {
	if diff == nil || diff.DataSource != model.DataSourceLocal {
		return Report{BatchKind: BatchMemberChange}
	}

	return Run(ctx, e.runner, BatchMemberChange, diff.Members,
		func(m model.GroupMember) string { return diff.GroupCode + ":" + m.UID },
		func(ctx context.Context, m model.GroupMember) error {
			ev, err := e.pipeline.MemberRoleChange(ctx, diff.GroupCode, &m)
			if err != nil {
				return err
			}
			if ev != nil {
				e.publish(ctx, ev)
			}
			return nil
		})
}

func (e *Engine) HandleInputStatus(ctx context.Context, status *model.InputStatus) Report {
	if status == nil {
		return Report{BatchKind: BatchInputStatus}
	}

	return Run(ctx, e.runner, BatchInputStatus, []model.InputStatus{*status},
		func(s model.InputStatus) string { return s.FromUID },
		func(ctx context.Context, s model.InputStatus) error {
			ev, err := e.pipeline.InputStatus(ctx, &s)
			if err != nil {
				return err
			}
			e.publish(ctx, ev)
			return nil
		})
}
