package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/mmynk/splitit/internal/syncer"
)

// lwwScript writes the record unless the stored one is newer. Timestamps are
// zero padded so string comparison orders them exactly.
var lwwScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'updated_at')
if cur and cur > ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1], 'payload', ARGV[2])
return 1
`)

// Redis is a Target backed by one hash per record.
type Redis struct {
	client  *redis.Client
	logger  *slog.Logger
	prefix  string
	timeout time.Duration
}

var _ Target = (*Redis)(nil)

// NewRedis connects to addr and checks the connection with a ping.
func NewRedis(addr, password string, db int, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Redis{
		client:  client,
		logger:  logger,
		prefix:  "splitit:sync:",
		timeout: 2 * time.Second,
	}, nil
}

func (r *Redis) key(kind syncer.Kind, id string) string {
	return r.prefix + string(kind) + ":" + id
}

func stamp(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// Store implements Target.
func (r *Redis) Store(ctx context.Context, records []syncer.Record) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	accepted := make([]string, 0, len(records))
	for _, rec := range records {
		written, err := lwwScript.Run(ctx, r.client,
			[]string{r.key(rec.Kind, rec.ID)}, stamp(rec.UpdatedAt), string(rec.Payload),
		).Int()
		if err != nil {
			r.logger.Error("redis sync target error", "op", "store", "key", rec.Key(), "error", err)
			return accepted, fmt.Errorf("failed to store %s: %w", rec.Key(), err)
		}
		if written == 0 {
			r.logger.Debug("Stored record is newer, keeping it", "key", rec.Key())
		}
		accepted = append(accepted, rec.Key())
	}
	return accepted, nil
}

// Get implements Target.
func (r *Redis) Get(ctx context.Context, kind syncer.Kind, id string) (syncer.Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vals, err := r.client.HMGet(ctx, r.key(kind, id), "updated_at", "payload").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return syncer.Record{}, false, fmt.Errorf("failed to read %s/%s: %w", kind, id, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return syncer.Record{}, false, nil
	}

	nanos, err := strconv.ParseInt(vals[0].(string), 10, 64)
	if err != nil {
		return syncer.Record{}, false, fmt.Errorf("corrupt timestamp for %s/%s: %w", kind, id, err)
	}
	return syncer.Record{
		Kind:      kind,
		ID:        id,
		UpdatedAt: time.Unix(0, nanos).UTC(),
		Payload:   []byte(vals[1].(string)),
	}, true, nil
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
