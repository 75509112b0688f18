package network

import (
	"context"
)

// Publisher is satisfied by *mq.Publisher.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// AMQPPublisher publishes envelopes to the events exchange, routed by kind.
type AMQPPublisher struct {
	pub   Publisher
	close func()
}

// NewAMQPPublisher wraps pub; closeFn, when non-nil, runs on Close.
func NewAMQPPublisher(pub Publisher, closeFn func()) *AMQPPublisher {
	return &AMQPPublisher{pub: pub, close: closeFn}
}

func (a *AMQPPublisher) Name() string {
	return "amqp"
}

func (a *AMQPPublisher) Send(ctx context.Context, env Envelope) error {
	return a.pub.Publish(ctx, string(env.Kind), env)
}

func (a *AMQPPublisher) Close() error {
	if a.close != nil {
		a.close()
	}
	return nil
}
