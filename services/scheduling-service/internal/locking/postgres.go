package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/md-rashed-zaman/salonsched/libs/db"
)

// PostgresLocker takes a session-level advisory lock and keeps its connection
// out of the pool until release. It spans replicas sharing one database and is
// used when no Redis is configured. Give it its own pool: holders keep a
// connection for the whole critical section.
type PostgresLocker struct {
	pool   *db.Pool
	prefix string
	retry  time.Duration
}

func NewPostgresLocker(pool *db.Pool, prefix string) *PostgresLocker {
	if prefix == "" {
		prefix = "lock"
	}
	return &PostgresLocker{pool: pool, prefix: prefix, retry: 25 * time.Millisecond}
}

func (l *PostgresLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + ":" + key

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		conn, ok, err := l.tryLock(ctx, fullKey)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("pg advisory lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(conn, fullKey), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

// tryLock returns the connection holding the lock when ok; otherwise the
// connection is already back in the pool.
func (l *PostgresLocker) tryLock(ctx context.Context, fullKey string) (*pgxpool.Conn, bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtextextended($1, 0))", fullKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return conn, true, nil
}

func (l *PostgresLocker) releaser(conn *pgxpool.Conn, fullKey string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, err := conn.Exec(releaseCtx, "SELECT pg_advisory_unlock(hashtextextended($1, 0))", fullKey); err != nil {
				// The session may still hold the lock; closing it drops the lock.
				_ = conn.Conn().Close(releaseCtx)
			}
			conn.Release()
		})
	}
}
