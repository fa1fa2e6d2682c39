package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/pkg/chessproto"
)

// Connect opens a client for a redis:// or rediss:// URL and pings it.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// parseRedisURL accepts redis:// and rediss:// URLs. rediss enables TLS; a bare host gets port 6379.
func parseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// RedisPublisher mirrors session broadcasts onto a pub/sub channel.
// Publish only enqueues; Run does the network writes.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	queue   chan []byte
	dropped atomic.Int64
}

func NewRedisPublisher(rdb *redis.Client, channel string, buffer int) *RedisPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &RedisPublisher{rdb: rdb, channel: channel, queue: make(chan []byte, buffer)}
}

// Publish queues env; when the queue is full the envelope is dropped and counted.
func (p *RedisPublisher) Publish(env chessproto.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		obslog.L().Warn("fanout_marshal_failed", zap.String("event", env.Event), zap.Error(err))
		return
	}
	select {
	case p.queue <- raw:
	default:
		n := p.dropped.Add(1)
		obslog.L().Warn("fanout_queue_full", zap.String("event", env.Event), zap.Int64("dropped", n))
	}
}

// Dropped reports how many envelopes were discarded because the queue was full.
func (p *RedisPublisher) Dropped() int64 { return p.dropped.Load() }

// Run publishes queued envelopes until ctx is done.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-p.queue:
			if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
				if ctx.Err() != nil {
					return
				}
				obslog.L().Warn("fanout_publish_failed", zap.String("channel", p.channel), zap.Error(err))
			}
		}
	}
}

// Subscribe calls fn for every envelope on channel until ctx is done.
// Frames that do not decode are logged and skipped.
func Subscribe(ctx context.Context, rdb *redis.Client, channel string, fn func(chessproto.Envelope)) error {
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so no early message is missed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env chessproto.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Event == "" {
				obslog.L().Warn("fanout_bad_frame", zap.String("channel", channel), zap.Error(err))
				continue
			}
			fn(env)
		}
	}
}
