package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "lock is held by another owner")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

const lockKeyPrefix = "caselaw:lock:"

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// extendScript resets the expiry only if the key still holds our token.
const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

// Mutex is a single-owner lock with an expiry.  It keeps two pipeline runs
// from writing the same exports concurrently.
type Mutex struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
	logger logging.Logger
}

// NewMutex returns an unlocked mutex named name.
func NewMutex(client *Client, name string, ttl time.Duration, logger logging.Logger) *Mutex {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Mutex{
		client: client,
		key:    lockKeyPrefix + name,
		token:  uuid.NewString(),
		ttl:    ttl,
		logger: logger.Named("lock"),
	}
}

// Key is the redis key backing the mutex.
func (m *Mutex) Key() string { return m.key }

// TryLock acquires the lock or returns ErrLockNotAcquired.
func (m *Mutex) TryLock(ctx context.Context) error {
	ok, err := m.client.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire lock")
	}
	if !ok {
		return ErrLockNotAcquired.WithDetail("key=" + m.key)
	}
	m.logger.Debug("lock acquired", logging.String("key", m.key))
	return nil
}

// Unlock releases the lock if this mutex still owns it.
func (m *Mutex) Unlock(ctx context.Context) error {
	n, err := m.client.Eval(ctx, releaseScript, []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if n == 0 {
		return ErrLockNotHeld.WithDetail("key=" + m.key)
	}
	m.logger.Debug("lock released", logging.String("key", m.key))
	return nil
}

// Extend resets the expiry to the full ttl if this mutex still owns the lock.
func (m *Mutex) Extend(ctx context.Context) error {
	n, err := m.client.Eval(ctx, extendScript, []string{m.key}, m.token, m.ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to extend lock")
	}
	if n == 0 {
		return ErrLockNotHeld.WithDetail("key=" + m.key)
	}
	return nil
}

// KeepAlive extends the lock every third of its ttl until stop is called or
// ctx ends.  It gives up once the lock is lost.  stop waits for the refresher
// to exit.
func (m *Mutex) KeepAlive(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(m.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := m.Extend(ctx)
			if err == nil || ctx.Err() != nil {
				continue
			}
			m.logger.Warn("lock extension failed", logging.String("key", m.key), logging.Err(err))
			if errors.Is(err, ErrLockNotHeld) {
				return
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
