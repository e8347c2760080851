package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store persists cart documents. Load returns an empty cart for unknown users.
// Update applies fn to the current cart and persists the result atomically; an
// error from fn aborts the write and is returned unchanged. A cart left with no
// lines is deleted.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Update(ctx context.Context, userID uuid.UUID, fn func(c *Cart) error) (*Cart, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisCartClient interface {
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Watch(ctx context.Context, fn func(*goredis.Tx) error, keys ...string) error
	CartKey(userID string) string
}

const maxUpdateAttempts = 8

// RedisStore keeps carts as JSON strings that expire after ttl of inactivity.
// Updates run under WATCH so concurrent writers retry instead of overwriting.
type RedisStore struct {
	client redisCartClient
	ttl    time.Duration
}

func NewRedisStore(client redisCartClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(userID.String()))
	if err != nil && !pkgredis.IsNil(err) {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return decodeCart(userID, raw)
}

func (s *RedisStore) Update(ctx context.Context, userID uuid.UUID, fn func(c *Cart) error) (*Cart, error) {
	key := s.client.CartKey(userID.String())
	var updated *Cart

	txn := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil && !pkgredis.IsNil(err) {
			return fmt.Errorf("load cart: %w", err)
		}
		c, err := decodeCart(userID, raw)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		var payload []byte
		if len(c.Items) > 0 {
			if payload, err = json.Marshal(c); err != nil {
				return fmt.Errorf("encode cart: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if payload == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, payload, s.ttl)
			}
			return nil
		})
		if err == nil {
			updated = c
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, goredis.TxFailedErr):
			continue
		default:
			return nil, err
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is being changed by another request, retry")
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, s.client.CartKey(userID.String()))
}

func decodeCart(userID uuid.UUID, raw string) (*Cart, error) {
	c := &Cart{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), c); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
	}
	c.UserID = userID
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

// MemoryStore is an in-process Store for local development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID]Cart)}
}

func (s *MemoryStore) Load(_ context.Context, userID uuid.UUID) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(userID), nil
}

// Update holds the store lock for the whole read-modify-write.
func (s *MemoryStore) Update(_ context.Context, userID uuid.UUID, fn func(c *Cart) error) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.snapshot(userID)
	if err := fn(c); err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		delete(s.carts, userID)
		return c, nil
	}
	stored := *c
	stored.Items = append([]Item(nil), c.Items...)
	s.carts[userID] = stored
	return c, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

func (s *MemoryStore) snapshot(userID uuid.UUID) *Cart {
	c, ok := s.carts[userID]
	if !ok {
		return &Cart{UserID: userID, Items: []Item{}}
	}
	c.Items = append([]Item{}, c.Items...)
	return &c
}
