// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB when configured for
// the MySQL wire protocol.
//
// Public entry points:
//
//	Open(ctx, dsn)                      – quick helper with conservative pool sizes.
//	OpenWithOptions(ctx, dsn, opts)     – fine-grained control plus retry.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Options tunes one connection pool.  Zero values fall back to the
// conservative defaults used by Open.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra Ping attempts after the first
	RetryBackoff    time.Duration // pause between attempts
}

func (o *Options) fill() {
	if o.MaxOpenConns == 0 {
		o.MaxOpenConns = 15
	}
	if o.MaxIdleConns == 0 {
		o.MaxIdleConns = 5
	}
	if o.ConnMaxLifetime == 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
}

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.  Suitable for the control-plane pool or
// for test setups.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, Options{})
}

// OpenWithOptions lets callers tune the pool per use.  The initial Ping is
// retried opts.Retries times so a briefly unreachable backend during boot
// does not kill the process.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	opts.fill()

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		select {
		case <-time.After(opts.RetryBackoff):
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		}
	}
	db.Close()
	return nil, err
}
