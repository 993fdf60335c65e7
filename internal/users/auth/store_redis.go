// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/glyphlock/glyphlock/internal/platform/constants"
)

// # Attempt Ledger Implementation

// RedisAttemptRepository implements [AttemptRepository] on Redis.
//
// One counter key per username under the auth:attempts: prefix. Keys carry no
// TTL: a lockout never decays on its own and must be cleared explicitly. A
// missing key reads as zero, so an account whose ledger entry was never
// initialized still authenticates normally.
type RedisAttemptRepository struct {
	client *redis.Client
}

// NewRedisAttemptRepository creates a new Redis-backed attempt ledger.
func NewRedisAttemptRepository(client *redis.Client) *RedisAttemptRepository {
	return &RedisAttemptRepository{client: client}
}

// Init writes an explicit zero counter for a freshly enrolled username.
func (repository *RedisAttemptRepository) Init(context context.Context, username string) error {
	if err := repository.client.Set(context, attemptKey(username), 0, 0).Err(); err != nil {
		return fmt.Errorf("attempt_ledger_init_failed: %w", err)
	}
	return nil
}

// Get reads the current failure count. A missing key reads as zero.
func (repository *RedisAttemptRepository) Get(context context.Context, username string) (int, error) {
	count, err := repository.client.Get(context, attemptKey(username)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("attempt_ledger_get_failed: %w", err)
	}
	return count, nil
}

/*
Increment adds one to the failure counter and returns the new value.

Description: INCR is atomic at the server, so two concurrent failed attempts
always land as two distinct increments; the read-modify-write race a
client-side counter would have cannot occur here. INCR on a missing key
creates it at 1.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - int: The counter value after the increment
  - err: Connection errors from go-redis
*/
func (repository *RedisAttemptRepository) Increment(context context.Context, username string) (int, error) {
	count, err := repository.client.Incr(context, attemptKey(username)).Result()
	if err != nil {
		return 0, fmt.Errorf("attempt_ledger_increment_failed: %w", err)
	}
	return int(count), nil
}

// Reset sets the failure counter back to zero.
func (repository *RedisAttemptRepository) Reset(context context.Context, username string) error {
	if err := repository.client.Set(context, attemptKey(username), 0, 0).Err(); err != nil {
		return fmt.Errorf("attempt_ledger_reset_failed: %w", err)
	}
	return nil
}

// attemptKey builds the per-username counter key.
func attemptKey(username string) string {
	return constants.RedisPrefixAttempts + username
}
