/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps documents in redis under a namespace and announces every save on a
// channel, so other instances viewing the same board can reload.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store whose keys are prefixed with namespace.
func NewRedisStore(opts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &RedisStore{rdb: redis.NewClient(opts), namespace: namespace}, nil
}

func (s *RedisStore) key(id string) string { return s.namespace + ":board:" + id }

// SavedChannel is the pub/sub channel that receives the id of every written board.
func (s *RedisStore) SavedChannel() string { return s.namespace + ":board_saved" }

// Ping verifies redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Write(ctx context.Context, id string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(id), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write board to redis: %w", err)
	}
	if err := s.rdb.Publish(ctx, s.SavedChannel(), id).Err(); err != nil {
		return fmt.Errorf("failed to publish board saved event: %w", err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, id string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read board from redis: %w", err)
	}
	return b, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete board from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

// SubscribeSaved delivers the ids of boards saved by any instance until ctx is done.
// The subscription is active when the function returns.
func (s *RedisStore) SubscribeSaved(ctx context.Context) (<-chan string, error) {
	sub := s.rdb.Subscribe(ctx, s.SavedChannel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to board saved events: %w", err)
	}
	out := make(chan string)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- m.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
