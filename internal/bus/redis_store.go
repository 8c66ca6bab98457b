package bus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is the production Store, backed by Redis Streams and Redis's
// atomic key commands: a struct holding the driver handle plus a logger,
// with a constructor that dials and a Close that drains cleanly.
type RedisStore struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisStore dials Redis at url (e.g. "redis://localhost:6379/0") and
// verifies connectivity with a Ping before returning.
func NewRedisStore(url string, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("bus: parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("bus: redis ping: %w", err)
	}

	logger.Info("redis bus connected", zap.String("url", redact(url)))
	return &RedisStore{rdb: rdb, log: logger}, nil
}

// redact strips credentials from a Redis URL before it is logged.
func redact(url string) string {
	at := -1
	for i := 0; i < len(url); i++ {
		if url[i] == '@' {
			at = i
		}
	}
	if at == -1 {
		return url
	}
	scheme := "redis://"
	if len(url) >= len(scheme) && url[:len(scheme)] == scheme {
		return scheme + "***" + url[at:]
	}
	return "***" + url[at:]
}

// Close drains outstanding commands and closes the connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Append(ctx context.Context, stream string, fields map[string]string, approxMaxLen int64) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: fields,
	}
	if approxMaxLen > 0 {
		args.MaxLen = approxMaxLen
		args.Approx = true
	}
	id, err := s.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("bus: XADD %s: %w", stream, err)
	}
	return id, nil
}

func (s *RedisStore) ReadRange(ctx context.Context, stream, start, end string, count int64) ([]Entry, error) {
	res, err := s.rdb.XRangeN(ctx, stream, start, end, count).Result()
	if err != nil {
		return nil, fmt.Errorf("bus: XRANGE %s: %w", stream, err)
	}
	return toEntries(res), nil
}

func (s *RedisStore) ReadRecent(ctx context.Context, stream string, count int64) ([]Entry, error) {
	res, err := s.rdb.XRevRangeN(ctx, stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("bus: XREVRANGE %s: %w", stream, err)
	}
	return toEntries(res), nil
}

func (s *RedisStore) CreateGroup(ctx context.Context, stream, group string, startAtTail bool) error {
	start := "0"
	if startAtTail {
		start = "$"
	}
	err := s.rdb.XGroupCreateMkStream(ctx, stream, group, start).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		// BUSYGROUP means the group already exists — idempotent create.
		if isBusyGroup(err) {
			return nil
		}
		return fmt.Errorf("bus: XGROUP CREATE %s/%s: %w", stream, group, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return len(s) >= 9 && s[:9] == "BUSYGROUP"
}

// ReadGroup first re-delivers this consumer's own unacked entries (its
// pending entries list, read with id "0") before fetching fresh ones (id
// ">"). This is what lets a message whose handler failed get retried on a
// later call without the worker doing anything special — the PEL re-read is
// the only mechanism.
func (s *RedisStore) ReadGroup(ctx context.Context, stream, group, consumer string, count int64, blockMs int64) ([]Entry, error) {
	pending, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("bus: XREADGROUP(pending) %s/%s: %w", stream, group, err)
	}
	entries := []Entry{}
	if len(pending) > 0 {
		entries = append(entries, toEntries(pending[0].Messages)...)
	}
	if int64(len(entries)) >= count {
		return entries, nil
	}

	// go-redis sends BLOCK 0 (wait forever) for a zero Block and omits BLOCK
	// for a negative one, so blockMs <= 0 maps to a non-blocking read.
	block := time.Duration(blockMs) * time.Millisecond
	if blockMs <= 0 {
		block = -1
	}
	fresh, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count - int64(len(entries)),
		Block:    block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("bus: XREADGROUP(new) %s/%s: %w", stream, group, err)
	}
	if len(fresh) > 0 {
		entries = append(entries, toEntries(fresh[0].Messages)...)
	}
	return entries, nil
}

func (s *RedisStore) Ack(ctx context.Context, stream, group string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.rdb.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("bus: XACK %s/%s: %w", stream, group, err)
	}
	return nil
}

func (s *RedisStore) SetIfAbsentWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("bus: SETNX %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("bus: INCR %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("bus: EXPIRE %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("bus: DEL %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("bus: GET %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("bus: SET %s: %w", key, err)
	}
	return nil
}

func toEntries(msgs []redis.XMessage) []Entry {
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		fields := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			fields[k] = fmt.Sprint(v)
		}
		out = append(out, Entry{ID: m.ID, Fields: fields})
	}
	return out
}

// entryIDSeq is used only by MemStore to assign monotonically increasing
// ids that resemble Redis's "<ms>-<seq>" stream id format. seq is
// zero-padded so that ids also increase under the plain string comparison
// MemStore uses.
func entryIDSeq(ms int64, seq int64) string {
	return strconv.FormatInt(ms, 10) + "-" + fmt.Sprintf("%019d", seq)
}
