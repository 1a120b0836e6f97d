// Package relay forwards bus events to a Redis pub/sub channel so other
// storefront processes can follow chat activity.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/storechat/internal/bus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is the subset of the Redis client the relay needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// Relay publishes every bus event as a JSON envelope.
type Relay struct {
	client   Publisher
	bus      *bus.Bus
	channel  string
	instance string
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a relay publishing to channel.
func New(client Publisher, b *bus.Bus, channel, instance string, logger *zap.Logger) *Relay {
	return &Relay{
		client:   client,
		bus:      b,
		channel:  channel,
		instance: instance,
		logger:   logger,
	}
}

// Start begins forwarding events.
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	ch, unsub := r.bus.Subscribe("", 256)

	go func() {
		defer close(r.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if err := r.forward(ctx, evt); err != nil {
					r.logger.Warn("relay publish failed", zap.Error(err), zap.String("kind", evt.Kind))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops forwarding and waits for the worker to exit.
func (r *Relay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Relay) forward(ctx context.Context, evt bus.Event) error {
	data, err := json.Marshal(bus.Wrap(r.instance, evt))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}
