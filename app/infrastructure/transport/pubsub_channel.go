package transport

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

// PubSubChannel is the primary transport: a native broadcast channel over
// Redis Pub/Sub.
type PubSubChannel struct {
	client *redis.Client

	mu   sync.Mutex
	sub  *redis.PubSub
	done chan struct{}
}

func NewPubSubChannel(client *redis.Client) *PubSubChannel {
	return &PubSubChannel{client: client}
}

func (c *PubSubChannel) Publish(ctx context.Context, payload []byte) error {
	return c.client.Publish(ctx, syncChannelName, payload).Err()
}

func (c *PubSubChannel) Start(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return nil
	}

	sub := c.client.Subscribe(ctx, syncChannelName)
	// Receive confirms the subscription before we report the channel active.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	c.sub = sub
	c.done = make(chan struct{})
	go func(done chan struct{}) {
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			case <-done:
				return
			}
		}
	}(c.done)

	logger.GetLogger().Info("sync transport active: pubsub")
	return nil
}

func (c *PubSubChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	close(c.done)
	err := c.sub.Close()
	c.sub = nil
	c.done = nil
	return err
}

func (c *PubSubChannel) Name() string {
	return "pubsub"
}
