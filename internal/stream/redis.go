package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStream struct {
	client *redis.Client
}

func NewRedisStream(client *redis.Client) *RedisStream {
	return &RedisStream{client: client}
}

func (s *RedisStream) Append(ctx context.Context, key string, values map[string]string) (string, error) {
	args := make(map[string]interface{}, len(values))
	for k, v := range values {
		args[k] = v
	}
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: key, Values: args}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append to stream %s: %w", key, err)
	}
	return id, nil
}

func (s *RedisStream) EnsureGroup(ctx context.Context, key, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, key, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", group, key, err)
	}
	return nil
}

func (s *RedisStream) ReadGroup(ctx context.Context, key, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{key, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from stream %s: %w", key, err)
	}

	var entries []Entry
	for _, st := range streams {
		for _, msg := range st.Messages {
			entries = append(entries, toEntry(msg))
		}
	}
	return entries, nil
}

func (s *RedisStream) Pending(ctx context.Context, key, group string, count int64) ([]PendingEntry, error) {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: key,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries on %s: %w", key, err)
	}

	entries := make([]PendingEntry, 0, len(pending))
	for _, p := range pending {
		entries = append(entries, PendingEntry{
			ID:         p.ID,
			Consumer:   p.Consumer,
			Idle:       p.Idle,
			Deliveries: p.RetryCount,
		})
	}
	return entries, nil
}

func (s *RedisStream) Claim(ctx context.Context, key, group, consumer string, minIdle time.Duration, ids []string) ([]Entry, error) {
	msgs, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   key,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim entries on %s: %w", key, err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, toEntry(msg))
	}
	return entries, nil
}

func (s *RedisStream) Ack(ctx context.Context, key, group string, ids ...string) error {
	if err := s.client.XAck(ctx, key, group, ids...).Err(); err != nil {
		return fmt.Errorf("failed to ack entries on %s: %w", key, err)
	}
	return nil
}

func (s *RedisStream) Delete(ctx context.Context, key string, ids ...string) error {
	if err := s.client.XDel(ctx, key, ids...).Err(); err != nil {
		return fmt.Errorf("failed to delete entries on %s: %w", key, err)
	}
	return nil
}

func (s *RedisStream) Get(ctx context.Context, key, id string) (*Entry, error) {
	msgs, err := s.client.XRange(ctx, key, id, id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s on %s: %w", id, key, err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	entry := toEntry(msgs[0])
	return &entry, nil
}

func (s *RedisStream) Len(ctx context.Context, key string) (int64, error) {
	length, err := s.client.XLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read stream length of %s: %w", key, err)
	}
	return length, nil
}

func toEntry(msg redis.XMessage) Entry {
	values := make(map[string]string, len(msg.Values))
	for k, v := range msg.Values {
		values[k] = fmt.Sprint(v)
	}
	return Entry{ID: msg.ID, Values: values}
}
