package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFeed publishes change signals over Redis Pub/Sub so every process
// serving the same project sees every write.
type RedisFeed struct {
	client    *redis.Client
	namespace string
}

func NewRedisFeed(client *redis.Client, namespace string) *RedisFeed {
	return &RedisFeed{client: client, namespace: namespace}
}

func (f *RedisFeed) channel(topic string) string {
	return f.namespace + ":changes:" + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string) error {
	return f.client.Publish(ctx, f.channel(topic), time.Now().UnixNano()).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (Listener, error) {
	ps := f.client.Subscribe(ctx, f.channel(topic))
	// Wait for the subscription confirmation so no publish after this
	// returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	l := &redisListener{ps: ps, ch: make(chan struct{}, 1)}
	go l.run(ps.Channel())
	return l, nil
}

type redisListener struct {
	ps   *redis.PubSub
	ch   chan struct{}
	once sync.Once
}

func (l *redisListener) run(msgs <-chan *redis.Message) {
	defer close(l.ch)
	for range msgs {
		select {
		case l.ch <- struct{}{}:
		default:
		}
	}
}

func (l *redisListener) C() <-chan struct{} { return l.ch }

// Close ends the subscription; the message channel closes with it and the
// listener channel follows.
func (l *redisListener) Close() error {
	var err error
	l.once.Do(func() { err = l.ps.Close() })
	return err
}

// RedisSessions stores revoked session token ids with a TTL matching the
// remaining token lifetime.
type RedisSessions struct {
	client    *redis.Client
	namespace string
}

func NewRedisSessions(client *redis.Client, namespace string) *RedisSessions {
	return &RedisSessions{client: client, namespace: namespace}
}

func (s *RedisSessions) key(tokenID string) string {
	return s.namespace + ":revoked:" + tokenID
}

func (s *RedisSessions) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(tokenID), 1, ttl).Err()
}

func (s *RedisSessions) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
