package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

// Messages in the fallback keyspace outlive any sane poll interval but do not
// accumulate.
const keyEventMessageTTL = time.Minute

// KeyEventChannel is the fallback transport used when Pub/Sub subscriptions
// are unavailable: each message is written under a sequenced well-known key
// and other instances observe the change by polling the sequence counter.
type KeyEventChannel struct {
	client *redis.Client
	poll   time.Duration

	mu       sync.Mutex
	lastSeen int64
	stop     chan struct{}

	gaps *gapTracker // touched only by the watch goroutine
}

func NewKeyEventChannel(client *redis.Client, pollInterval time.Duration) *KeyEventChannel {
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}
	return &KeyEventChannel{
		client: client,
		poll:   pollInterval,
		gaps:   newGapTracker(keyEventMessageTTL),
	}
}

// gapTracker holds position on sequence numbers whose message body has not
// appeared yet. INCR and SET are separate commands, so a poller can observe a
// sequence before its message is written; the gap is retried on later polls
// and only abandoned once the message TTL window has passed.
type gapTracker struct {
	window    time.Duration
	firstMiss map[int64]time.Time
}

func newGapTracker(window time.Duration) *gapTracker {
	return &gapTracker{window: window, firstMiss: make(map[int64]time.Time)}
}

// abandon reports whether a still-missing seq should be given up on. The
// first observation starts the grace window; until it elapses the caller must
// hold position and retry.
func (g *gapTracker) abandon(seq int64, now time.Time) bool {
	first, ok := g.firstMiss[seq]
	if !ok {
		g.firstMiss[seq] = now
		return false
	}
	if now.Sub(first) < g.window {
		return false
	}
	delete(g.firstMiss, seq)
	return true
}

// resolve clears the pending gap once its message arrived.
func (g *gapTracker) resolve(seq int64) {
	delete(g.firstMiss, seq)
}

func (c *KeyEventChannel) Publish(ctx context.Context, payload []byte) error {
	seq, err := c.client.Incr(ctx, syncSeqKey).Result()
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(syncMsgKeyFmt, seq), payload, keyEventMessageTTL).Err()
}

func (c *KeyEventChannel) Start(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	// Baseline the counter so pre-existing messages are not replayed.
	seq, err := c.client.Get(ctx, syncSeqKey).Int64()
	if err != nil && err != redis.Nil {
		return err
	}
	c.lastSeen = seq
	c.stop = make(chan struct{})

	go c.watch(c.stop, handler)
	logger.GetLogger().Info("sync transport active: keyevent (storage fallback)")
	return nil
}

// watch polls the shared sequence counter and delivers every message written
// since the last observation, in sequence order.
func (c *KeyEventChannel) watch(stop chan struct{}, handler Handler) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.deliverPending(handler)
		}
	}
}

func (c *KeyEventChannel) deliverPending(handler Handler) {
	ctx, cancel := context.WithTimeout(context.Background(), c.poll)
	defer cancel()

	current, err := c.client.Get(ctx, syncSeqKey).Int64()
	if err != nil {
		return // includes redis.Nil when nothing was ever published
	}

	c.mu.Lock()
	from := c.lastSeen
	c.mu.Unlock()

	advanced := from
	now := time.Now()
	for seq := from + 1; seq <= current; seq++ {
		payload, err := c.client.Get(ctx, fmt.Sprintf(syncMsgKeyFmt, seq)).Bytes()
		if err == redis.Nil {
			// The writer may still be between INCR and SET. Hold position and
			// retry next poll; abandon only after the message TTL has passed.
			if !c.gaps.abandon(seq, now) {
				break
			}
			advanced = seq
			continue
		}
		if err != nil {
			break
		}
		c.gaps.resolve(seq)
		handler(payload)
		advanced = seq
	}

	if advanced > from {
		c.mu.Lock()
		if advanced > c.lastSeen {
			c.lastSeen = advanced
		}
		c.mu.Unlock()
	}
}

func (c *KeyEventChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	c.stop = nil
	return nil
}

func (c *KeyEventChannel) Name() string {
	return "keyevent"
}
