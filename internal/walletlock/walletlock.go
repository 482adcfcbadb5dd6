// Package walletlock serializes check-then-act balance flows with Postgres
// session advisory locks. Every write path that reads a balance and then acts
// on it must run under WithLock keyed by a stable per-user string.
package walletlock

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrLockTimeout means the lock could not be acquired before the deadline.
// The caller may retry; no state change has happened.
var ErrLockTimeout = errors.New("wallet lock timeout")

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultDeadline     = 10 * time.Second
)

type Locker struct {
	db           *sqlx.DB
	pollInterval time.Duration
	deadline     time.Duration
}

func New(db *sqlx.DB) *Locker {
	return &Locker{db: db, pollInterval: defaultPollInterval, deadline: defaultDeadline}
}

// KeyHash maps a lock key to the 32-bit advisory lock space.
func KeyHash(key string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int64(int32(h.Sum32()))
}

// WithLock acquires the advisory lock for key, runs fn, and releases the lock
// on every exit path. Acquisition is non-blocking with a fixed poll interval
// and a bounded deadline. Advisory locks are session-scoped, so acquire and
// release are pinned to one dedicated connection.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	conn, err := l.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	lockKey := KeyHash(key)
	deadline := time.Now().Add(l.deadline)
	for {
		var acquired bool
		if err := conn.GetContext(ctx, &acquired, `SELECT pg_try_advisory_lock($1)`, lockKey); err != nil {
			return err
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
	defer func() {
		// Release must not inherit a cancelled request context.
		var released bool
		_ = conn.GetContext(context.Background(), &released, `SELECT pg_advisory_unlock($1)`, lockKey)
	}()
	return fn(ctx)
}
