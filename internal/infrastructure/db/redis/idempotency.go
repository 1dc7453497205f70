package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coursereg/registration-system/internal/core/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers registration results so a retried request with
// the same Idempotency-Key gets the original answer.
// Key format: idem:<scope>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. A non-positive ttl uses the default.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func (s *IdempotencyStore) Lookup(ctx context.Context, scope, key string) (*ports.RegistrationResult, bool, error) {
	raw, err := s.client.Get(ctx, idempotencyKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	var result ports.RegistrationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &result, true, nil
}

// Save stores result unless an entry already exists, so the first answer wins.
func (s *IdempotencyStore) Save(ctx context.Context, scope, key string, result *ports.RegistrationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	if err := s.client.SetNX(ctx, idempotencyKey(scope, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency save: %w", err)
	}
	return nil
}

func idempotencyKey(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}
