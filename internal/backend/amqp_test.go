package backend

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"imbridge/internal/model"
	"imbridge/pkg/mq"
)

type fakeDLQ struct {
	routingKeys []string
	err         error
}

func (f *fakeDLQ) PublishToDLQ(_ context.Context, routingKey string, _ []byte, _ string) error {
	f.routingKeys = append(f.routingKeys, routingKey)
	return f.err
}

func handlerFor(t *testing.T, b *AMQPBridge, queue string) func(context.Context, json.RawMessage) error {
	t.Helper()
	for _, r := range b.routes {
		if r.queue == queue {
			return r.handler
		}
	}
	t.Fatalf("no route for %s", queue)
	return nil
}

func TestBridgeRegistersOneRoutePerHook(t *testing.T) {
	b := NewAMQPBridge("amqp://unused", &fakeDLQ{}, zaptest.NewLogger(t))
	b.OnRecvMessages(func(context.Context, []model.RawMessage) {})
	b.OnMessageInfoUpdate(func(context.Context, []model.RawMessage) {})
	b.OnBuddyRequests(func(context.Context, *model.BuddyRequestBatch) {})
	b.OnGroupNotifies(func(context.Context, []model.GroupNotify) {})
	b.OnMemberInfoChange(func(context.Context, *model.MemberDiff) {})
	b.OnInputStatus(func(context.Context, *model.InputStatus) {})

	var queues []string
	for _, r := range b.routes {
		queues = append(queues, r.queue)
	}
	assert.ElementsMatch(t, []string{
		QueueRecvMessages, QueueMessageUpdate, QueueBuddyRequests,
		QueueGroupNotifies, QueueMemberChange, QueueInputStatus,
	}, queues)
}

func TestBridgeDecodesBatches(t *testing.T) {
	b := NewAMQPBridge("amqp://unused", &fakeDLQ{}, zaptest.NewLogger(t))

	var got []model.RawMessage
	b.OnRecvMessages(func(_ context.Context, msgs []model.RawMessage) { got = msgs })
	var diff *model.MemberDiff
	b.OnMemberInfoChange(func(_ context.Context, d *model.MemberDiff) { diff = d })

	err := handlerFor(t, b, QueueRecvMessages)(context.Background(),
		json.RawMessage(`[{"msgId":"m-1","chatType":2,"senderUin":"5","recallTime":"0"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m-1", got[0].MsgID)
	assert.Equal(t, model.ChatTypeGroup, got[0].ChatType)

	err = handlerFor(t, b, QueueMemberChange)(context.Background(),
		json.RawMessage(`{"groupCode":"100","dataSource":0,"members":[{"uid":"u_1","role":3}]}`))
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, model.GroupMemberRoleAdmin, diff.Members[0].Role)
}

func TestBridgeDeadLettersUndecodableBodies(t *testing.T) {
	dlq := &fakeDLQ{}
	b := NewAMQPBridge("amqp://unused", dlq, zaptest.NewLogger(t))
	called := false
	b.OnGroupNotifies(func(context.Context, []model.GroupNotify) { called = true })

	err := handlerFor(t, b, QueueGroupNotifies)(context.Background(), json.RawMessage(`{not json`))
	assert.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, []string{QueueGroupNotifies}, dlq.routingKeys)

	dlq.err = errors.New("channel closed")
	err = handlerFor(t, b, QueueGroupNotifies)(context.Background(), json.RawMessage(`{not json`))
	assert.Error(t, err)
}

type lifecycleLog struct {
	mu     sync.Mutex
	events []string
}

func (l *lifecycleLog) record(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *lifecycleLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// blockingConsumer 模拟一条正在处理中的消息：Stop 之后才会结束消费循环
type blockingConsumer struct {
	log      *lifecycleLog
	queue    string
	stop     chan struct{}
	started  chan struct{}
	stopOnce sync.Once
}

func newBlockingConsumer(log *lifecycleLog, queue string) *blockingConsumer {
	return &blockingConsumer{
		log:     log,
		queue:   queue,
		stop:    make(chan struct{}),
		started: make(chan struct{}),
	}
}

func (c *blockingConsumer) SetHandler(mq.MessageHandler) {}

func (c *blockingConsumer) StartConsuming() error {
	close(c.started)
	<-c.stop
	// ack 前的收尾
	time.Sleep(20 * time.Millisecond)
	c.log.record("acked:" + c.queue)
	return nil
}

func (c *blockingConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *blockingConsumer) Close() {
	c.Stop()
	c.log.record("closed:" + c.queue)
}

func TestBridgeStopWaitsForInFlightBatches(t *testing.T) {
	log := &lifecycleLog{}
	var consumers []*blockingConsumer

	b := NewAMQPBridge("amqp://unused", &fakeDLQ{}, zaptest.NewLogger(t))
	b.newConsumer = func(_, _, queue, _ string, _ *zap.Logger) (consumer, error) {
		c := newBlockingConsumer(log, queue)
		consumers = append(consumers, c)
		return c, nil
	}
	b.OnRecvMessages(func(context.Context, []model.RawMessage) {})
	b.OnGroupNotifies(func(context.Context, []model.GroupNotify) {})

	var declared []string
	require.NoError(t, b.Start(func(rk string) error {
		declared = append(declared, rk)
		return nil
	}))
	assert.Equal(t, []string{QueueRecvMessages, QueueGroupNotifies}, declared)

	for _, c := range consumers {
		<-c.started
	}
	b.Stop()

	// 所有 ack 都发生在任何连接关闭之前
	events := log.snapshot()
	require.Len(t, events, 4)
	assert.ElementsMatch(t, []string{"acked:" + QueueRecvMessages, "acked:" + QueueGroupNotifies}, events[:2])
	assert.Equal(t, []string{"closed:" + QueueRecvMessages, "closed:" + QueueGroupNotifies}, events[2:])
	assert.Empty(t, b.consumers)
}

func TestBridgeStartFailureStopsStartedConsumers(t *testing.T) {
	log := &lifecycleLog{}
	b := NewAMQPBridge("amqp://unused", &fakeDLQ{}, zaptest.NewLogger(t))
	calls := 0
	b.newConsumer = func(_, _, queue, _ string, _ *zap.Logger) (consumer, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("connection refused")
		}
		return newBlockingConsumer(log, queue), nil
	}
	b.OnRecvMessages(func(context.Context, []model.RawMessage) {})
	b.OnGroupNotifies(func(context.Context, []model.GroupNotify) {})

	err := b.Start(nil)
	require.Error(t, err)
	assert.Equal(t, []string{"acked:" + QueueRecvMessages, "closed:" + QueueRecvMessages}, log.snapshot())
}
