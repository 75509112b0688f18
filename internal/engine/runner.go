package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"imbridge/internal/classify"
	"imbridge/internal/model"
	"imbridge/pkg/logger"
	"imbridge/pkg/metrics"
	"imbridge/pkg/otel"
)

// Status 单条记录的处理结果
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusPanic   Status = "panic"
)

// Outcome is the settled result of one item.
type Outcome struct {
	ItemID string
	Status Status
	Err    error
}

// Report lists the outcome of every item in input order.
type Report struct {
	BatchKind string
	Outcomes  []Outcome
	Duration  time.Duration
}

func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// FailureSink persists failed items for later inspection.
type FailureSink interface {
	Create(ctx context.Context, item *model.FailedItem) error
}

// Runner fans one batch out to concurrent tasks and settles all of them.
// A failing or panicking task never cancels its siblings.
type Runner struct {
	maxConcurrency int
	itemTimeout    time.Duration
	sink           FailureSink
	logger         *zap.Logger
}

func NewRunner(maxConcurrency int, itemTimeout time.Duration, sink FailureSink, logger *zap.Logger) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	return &Runner{
		maxConcurrency: maxConcurrency,
		itemTimeout:    itemTimeout,
		sink:           sink,
		logger:         logger,
	}
}

// Run executes task once per item and waits for every task to settle.
func Run[T any](ctx context.Context, r *Runner, batchKind string, items []T, idOf func(T) string, task func(context.Context, T) error) Report {
	start := time.Now()
	report := Report{BatchKind: batchKind, Outcomes: make([]Outcome, len(items))}
	if len(items) == 0 {
		return report
	}

	ctx, span := otel.StartSpan(ctx, "engine.batch")
	span.SetAttributes(
		attribute.String("batch.kind", batchKind),
		attribute.Int("batch.size", len(items)),
	)
	defer span.End()

	// 任务不向 group 返回错误，保证兄弟任务不会被取消
	var g errgroup.Group
	g.SetLimit(r.maxConcurrency)
	for i := range items {
		item := items[i]
		id := idOf(item)
		g.Go(func() error {
			report.Outcomes[i] = runItem(ctx, r, batchKind, id, item, task)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	metrics.RecordBatchDuration(batchKind, report.Duration)

	if failed := report.Count(StatusFailed) + report.Count(StatusPanic); failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d items failed", failed, len(items)))
	}
	logger.WithTrace(ctx, r.logger).Debug("Batch settled",
		zap.String("batch_kind", batchKind),
		zap.Int("items", len(items)),
		zap.Int("failed", report.Count(StatusFailed)),
		zap.Int("panicked", report.Count(StatusPanic)),
		zap.Int("skipped", report.Count(StatusSkipped)),
		zap.Duration("took", report.Duration),
	)
	return report
}

func runItem[T any](ctx context.Context, r *Runner, batchKind, id string, item T, task func(context.Context, T) error) (out Outcome) {
	out.ItemID = id

	ctx, span := otel.StartSpan(ctx, "engine.item")
	span.SetAttributes(
		attribute.String("batch.kind", batchKind),
		attribute.String("item.id", id),
	)
	defer span.End()

	if r.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.itemTimeout)
		defer cancel()
	}

	log := logger.WithTrace(ctx, r.logger).With(
		zap.String("batch_kind", batchKind),
		zap.String("item_id", id),
	)

	defer func() {
		if rec := recover(); rec != nil {
			out.Status = StatusPanic
			out.Err = fmt.Errorf("panic: %v", rec)
			span.SetStatus(codes.Error, "panic")
			log.Error("Item task panic recovered", zap.Any("panic", rec))
			r.recordFailure(ctx, batchKind, id, item, out)
		}
		metrics.IncrementItemOutcome(batchKind, string(out.Status))
	}()

	err := task(ctx, item)
	switch {
	case err == nil:
		out.Status = StatusOK
	case classify.Recoverable(err):
		out.Status = StatusSkipped
		out.Err = err
		log.Warn("Item skipped", zap.Error(err))
	default:
		out.Status = StatusFailed
		out.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Item failed", zap.Error(err))
		r.recordFailure(ctx, batchKind, id, item, out)
	}
	return out
}

func (r *Runner) recordFailure(ctx context.Context, batchKind, id string, item any, out Outcome) {
	if r.sink == nil {
		return
	}

	payload, err := json.Marshal(item)
	if err != nil {
		payload = nil
	}
	failed := &model.FailedItem{
		BatchKind: batchKind,
		ItemID:    id,
		Status:    string(out.Status),
		Error:     out.Err.Error(),
		Payload:   payload,
	}

	// 条目本身可能已超时，落库使用独立的超时
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.sink.Create(sinkCtx, failed); err != nil {
		logger.WithTrace(ctx, r.logger).Warn("Failed to persist failed item",
			zap.String("batch_kind", batchKind),
			zap.String("item_id", id),
			zap.Error(err),
		)
	}
}
