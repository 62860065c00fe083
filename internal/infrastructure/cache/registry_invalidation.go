package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bizsuite/backend/internal/infrastructure/config"
)

// DefaultRegistryChannel is the Pub/Sub channel used to tell every instance
// to rebuild its extension registry after a contract change.
const DefaultRegistryChannel = "extension:invalidate"

const defaultCloseTimeout = 5 * time.Second

// RegistryUpdateMessage is the payload broadcast on the invalidation channel
type RegistryUpdateMessage struct {
	Action    string `json:"action"`           // "rebuild"
	Module    string `json:"module,omitempty"` // contract that changed, informational
	Timestamp int64  `json:"timestamp"`
}

// RedisRegistryInvalidator broadcasts and receives extension registry
// rebuild notifications over Redis Pub/Sub.
type RedisRegistryInvalidator struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisRegistryInvalidatorOption is a functional option for configuring the invalidator
type RedisRegistryInvalidatorOption func(*RedisRegistryInvalidator)

// WithRegistryChannel sets the Pub/Sub channel name
func WithRegistryChannel(channel string) RedisRegistryInvalidatorOption {
	return func(i *RedisRegistryInvalidator) {
		i.channel = channel
	}
}

// WithRegistryInvalidatorLogger sets the logger for the invalidator
func WithRegistryInvalidatorLogger(logger *zap.Logger) RedisRegistryInvalidatorOption {
	return func(i *RedisRegistryInvalidator) {
		i.logger = logger
	}
}

// NewRedisRegistryInvalidator creates a new Redis Pub/Sub registry invalidator
func NewRedisRegistryInvalidator(cfg config.RedisConfig, opts ...RedisRegistryInvalidatorOption) (*RedisRegistryInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	invalidator := NewRedisRegistryInvalidatorWithClient(client, opts...)
	invalidator.ownsClient = true
	return invalidator, nil
}

// NewRedisRegistryInvalidatorWithClient creates an invalidator with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisRegistryInvalidatorWithClient(client *redis.Client, opts ...RedisRegistryInvalidatorOption) *RedisRegistryInvalidator {
	invalidator := &RedisRegistryInvalidator{
		client:  client,
		channel: DefaultRegistryChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator
}

// PublishRebuild broadcasts a registry rebuild notification
func (i *RedisRegistryInvalidator) PublishRebuild(ctx context.Context, module string) error {
	msg := RegistryUpdateMessage{
		Action:    "rebuild",
		Module:    module,
		Timestamp: time.Now().UnixNano(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("failed to publish registry rebuild message",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	i.logger.Debug("published registry rebuild message",
		zap.String("module", module),
		zap.String("channel", i.channel))
	return nil
}

// Subscribe starts listening for registry rebuild notifications. The
// callback is invoked for each received message. Blocks until ctx is
// cancelled or Close is called; run it in a goroutine.
func (i *RedisRegistryInvalidator) Subscribe(ctx context.Context, callback func(msg RegistryUpdateMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	i.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	i.mu.Lock()
	i.cancelFn = cancel
	i.mu.Unlock()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	i.logger.Info("subscribed to registry invalidation channel",
		zap.String("channel", i.channel))

	ch := pubsub.Channel()

	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("registry invalidation subscription stopped")
			i.mu.Lock()
			i.isRunning = false
			i.mu.Unlock()
			i.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("registry invalidation channel closed")
				i.mu.Lock()
				i.isRunning = false
				i.mu.Unlock()
				i.markDone()
				return nil
			}

			var updateMsg RegistryUpdateMessage
			if err := json.Unmarshal([]byte(msg.Payload), &updateMsg); err != nil {
				i.logger.Error("failed to unmarshal registry update message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			go func(m RegistryUpdateMessage) {
				defer func() {
					if r := recover(); r != nil {
						i.logger.Error("panic in registry update callback", zap.Any("panic", r))
					}
				}()
				callback(m)
			}(updateMsg)
		}
	}
}

func (i *RedisRegistryInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close releases any resources held by the invalidator
func (i *RedisRegistryInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("timeout waiting for subscription to stop")
		}
	}

	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}
