package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// opTimeout bounds every cache operation; a slow cache must never slow a
// query by more than this.
const opTimeout = 1 * time.Second

// Redis implements Cache on a Redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects using a redis:// URL. ttl <= 0 means entries do not
// expire (eviction is the store's responsibility).
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, docID string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	val, err := r.client.Get(ctx, Key(docID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("doc_id", docID).Msg("index_cache_get_error")
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Put(ctx context.Context, docID string, blob []byte) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := r.client.Set(ctx, Key(docID), blob, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("doc_id", docID).Int("bytes", len(blob)).Msg("index_cache_put_error")
	}
}

func (r *Redis) Delete(ctx context.Context, docID string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := r.client.Del(ctx, Key(docID)).Err(); err != nil {
		log.Debug().Err(err).Str("doc_id", docID).Msg("index_cache_delete_error")
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
