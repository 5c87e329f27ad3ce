package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "payplan:snapshot:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps each user's document under one key and announces every
// save on a channel of the same name so other devices can pick it up.
type RedisStore struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
	logger     *zap.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the prefix for document keys and channels.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithRedisLogger sets the logger used for pub/sub diagnostics.
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	s := NewRedisStoreWithClient(client, opts...)
	s.ownsClient = true
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisStoreWithClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(userID string) string {
	return s.keyPrefix + userID
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*Document, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot document: %w", err)
	}
	return &doc, nil
}

// Save writes the document and publishes it in one transaction.
func (s *RedisStore) Save(ctx context.Context, userID string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot document: %w", err)
	}

	key := s.key(userID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.Publish(ctx, key, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	s.logger.Debug("saved snapshot document",
		zap.String("key", key),
		zap.Uint64("generation", doc.Generation),
		zap.String("origin", doc.Origin))
	return nil
}

// Watch blocks, delivering every published document to fn until ctx is
// done or the subscription channel closes.
func (s *RedisStore) Watch(ctx context.Context, userID string, fn func(Document)) error {
	channel := s.key(userID)
	pubsub := s.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	s.logger.Info("watching snapshot channel", zap.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				s.logger.Warn("snapshot channel closed", zap.String("channel", channel))
				return nil
			}
			var doc Document
			if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
				s.logger.Error("decode pushed snapshot",
					zap.String("channel", channel),
					zap.Error(err))
				continue
			}
			fn(doc)
		}
	}
}

// Close releases the client when the store created it.
func (s *RedisStore) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}
