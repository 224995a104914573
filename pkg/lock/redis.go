package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var errBusy = errors.New("lock busy")

type RedisConfig struct {
	Prefix string
	// TTL bounds how long a crashed holder can keep the key.
	TTL time.Duration
	// Wait bounds how long Acquire retries before giving up.
	Wait time.Duration
}

// Redis is a single-instance Redis lock (SET NX PX + compare-and-delete).
type Redis struct {
	client redis.UniversalClient
	cfg    RedisConfig
}

func NewRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "lock"
	}
	return &Redis{client: client, cfg: cfg}
}

// Lease is a held Redis lock. Token identifies the holder, so a commit can
// check that Key still carries it before writing.
type Lease struct {
	Key   string
	Token string

	client redis.UniversalClient
}

// Release deletes the key if it still carries the lease's token.
func (l *Lease) Release() {
	// release must run even if the caller's context is already done
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{l.Key}, l.Token).Err(); err != nil {
		slog.Warn("lock: release failed", "key", l.Key, "error", err)
	}
}

// Lease acquires key, retrying until cfg.Wait elapses.
func (r *Redis) Lease(ctx context.Context, key string) (*Lease, error) {
	k := r.cfg.Prefix + ":" + key
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (bool, error) {
		ok, err := r.client.SetNX(ctx, k, token, r.cfg.TTL).Result()
		if err != nil {
			return false, backoff.Permanent(err)
		}
		if !ok {
			return false, errBusy
		}
		return true, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(r.cfg.Wait))
	if err != nil {
		if errors.Is(err, errBusy) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
		return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	return &Lease{Key: k, Token: token, client: r.client}, nil
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	l, err := r.Lease(ctx, key)
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}
