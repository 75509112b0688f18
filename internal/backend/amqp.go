// Package backend delivers raw notification batches from the messaging
// backend to the engine over RabbitMQ.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"imbridge/internal/engine"
	"imbridge/internal/model"
	"imbridge/pkg/logger"
	"imbridge/pkg/mq"
)

// 每个 hook 一个持久化队列，routing key 与队列同名
const (
	QueueRecvMessages  = "backend.msg.recv"
	QueueMessageUpdate = "backend.msg.update"
	QueueBuddyRequests = "backend.buddy.req"
	QueueGroupNotifies = "backend.group.notify"
	QueueMemberChange  = "backend.group.member"
	QueueInputStatus   = "backend.buddy.input"
)

// DeadLetterer receives bodies that cannot be decoded.
type DeadLetterer interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError string) error
}

// consumer is the part of *mq.Consumer the bridge drives.
type consumer interface {
	SetHandler(h mq.MessageHandler)
	StartConsuming() error
	Stop()
	Close()
}

type consumerFactory func(url, exchange, queue, routingKey string, logger *zap.Logger) (consumer, error)

func newMQConsumer(url, exchange, queue, routingKey string, logger *zap.Logger) (consumer, error) {
	c, err := mq.NewConsumer(url, exchange, queue, routingKey, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type route struct {
	queue   string
	handler mq.MessageHandler
}

// AMQPBridge implements engine.Backend on top of one consumer per hook.
type AMQPBridge struct {
	url    string
	dlq    DeadLetterer
	logger *zap.Logger

	newConsumer consumerFactory
	routes      []route
	consumers   []consumer
	running     sync.WaitGroup
}

var _ engine.Backend = (*AMQPBridge)(nil)

func NewAMQPBridge(url string, dlq DeadLetterer, logger *zap.Logger) *AMQPBridge {
	return &AMQPBridge{
		url:         url,
		dlq:         dlq,
		logger:      logger,
		newConsumer: newMQConsumer,
	}
}

func (b *AMQPBridge) OnRecvMessages(fn func(ctx context.Context, msgs []model.RawMessage)) {
	addRoute(b, QueueRecvMessages, fn)
}

func (b *AMQPBridge) OnMessageInfoUpdate(fn func(ctx context.Context, msgs []model.RawMessage)) {
	addRoute(b, QueueMessageUpdate, fn)
}

func (b *AMQPBridge) OnBuddyRequests(fn func(ctx context.Context, batch *model.BuddyRequestBatch)) {
	addRoute(b, QueueBuddyRequests, func(ctx context.Context, batch model.BuddyRequestBatch) {
		fn(ctx, &batch)
	})
}

func (b *AMQPBridge) OnGroupNotifies(fn func(ctx context.Context, notifies []model.GroupNotify)) {
	addRoute(b, QueueGroupNotifies, fn)
}

func (b *AMQPBridge) OnMemberInfoChange(fn func(ctx context.Context, diff *model.MemberDiff)) {
	addRoute(b, QueueMemberChange, func(ctx context.Context, diff model.MemberDiff) {
		fn(ctx, &diff)
	})
}

func (b *AMQPBridge) OnInputStatus(fn func(ctx context.Context, status *model.InputStatus)) {
	addRoute(b, QueueInputStatus, func(ctx context.Context, status model.InputStatus) {
		fn(ctx, &status)
	})
}

// addRoute 解码失败的消息转入 DLQ 后 ack，避免毒消息反复重投
func addRoute[T any](b *AMQPBridge, queue string, deliver func(context.Context, T)) {
	b.routes = append(b.routes, route{
		queue: queue,
		handler: func(ctx context.Context, data json.RawMessage) error {
			var batch T
			if err := json.Unmarshal(data, &batch); err != nil {
				logger.WithTrace(ctx, b.logger).Warn("Undecodable backend batch, dead-lettering",
					zap.String("queue", queue),
					zap.Int("size", len(data)),
					zap.Error(err),
				)
				if err := b.dlq.PublishToDLQ(ctx, queue, data, err.Error()); err != nil {
					return fmt.Errorf("dead-letter %s: %w", queue, err)
				}
				return nil
			}
			deliver(ctx, batch)
			return nil
		},
	})
}

// Start declares one queue per registered hook and starts consuming each on
// its own goroutine.
func (b *AMQPBridge) Start(declareDLQ func(routingKey string) error) error {
	for _, r := range b.routes {
		if declareDLQ != nil {
			if err := declareDLQ(r.queue); err != nil {
				b.Stop()
				return fmt.Errorf("declare DLQ for %s: %w", r.queue, err)
			}
		}

		c, err := b.newConsumer(b.url, mq.ExchangeBackend, r.queue, r.queue, b.logger)
		if err != nil {
			b.Stop()
			return fmt.Errorf("consume %s: %w", r.queue, err)
		}
		c.SetHandler(r.handler)
		b.consumers = append(b.consumers, c)

		b.running.Add(1)
		go func(c consumer, queue string) {
			defer b.running.Done()
			if err := c.StartConsuming(); err != nil {
				b.logger.Error("Consumer exited", zap.String("queue", queue), zap.Error(err))
			}
		}(c, r.queue)
	}

	b.logger.Info("Backend bridge started", zap.Int("queues", len(b.consumers)))
	return nil
}

// Stop cancels every consumer, waits until each in-flight batch has been
// handled and acked, then closes the connections. Once it returns the engine
// receives no further batches.
func (b *AMQPBridge) Stop() {
	for _, c := range b.consumers {
		c.Stop()
	}
	b.running.Wait()
	for _, c := range b.consumers {
		c.Close()
	}
	b.consumers = nil
}
