package observability

import (
	"context"
	"sync/atomic"
)

// Publisher sends observability events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

type publisherHolder struct {
	p Publisher
}

var defaultPublisher atomic.Pointer[publisherHolder]

// SetPublisher installs the publisher used by PublishEvent; nil disables it.
func SetPublisher(publisher Publisher) {
	if publisher == nil {
		defaultPublisher.Store(nil)
		return
	}
	defaultPublisher.Store(&publisherHolder{p: publisher})
}

// PublishEvent emits an event when a publisher is installed.
func PublishEvent(ctx context.Context, routingKey string, message any, headers map[string]string) error {
	holder := defaultPublisher.Load()
	if holder == nil {
		return nil
	}

	err := holder.p.Publish(ctx, routingKey, message, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
