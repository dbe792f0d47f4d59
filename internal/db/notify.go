package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/dbpool"
)

const (
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2

	// DefaultQuietPeriod is how long the listener waits after the last
	// notification before triggering a reload. A matching run saves many
	// parcels in a burst; they collapse into one reload.
	DefaultQuietPeriod = 2 * time.Second
)

// Reloader rebuilds whatever depends on the stored data.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context) error

// Reload implements Reloader.
func (f ReloaderFunc) Reload(ctx context.Context) error { return f(ctx) }

// ChangeListener subscribes to PostgreSQL LISTEN/NOTIFY on a channel and
// triggers a debounced reload after each burst of notifications.
type ChangeListener struct {
	log      *logrus.Logger
	pool     *dbpool.Pool
	channel  string
	reloader Reloader
	quiet    time.Duration
	changes  chan struct{}
}

// NewChangeListener creates a ChangeListener on channel.
func NewChangeListener(log *logrus.Logger, pool *dbpool.Pool, channel string, reloader Reloader, quiet time.Duration) *ChangeListener {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}

	return &ChangeListener{
		log:      log,
		pool:     pool,
		channel:  channel,
		reloader: reloader,
		quiet:    quiet,
		changes:  make(chan struct{}, 1),
	}
}

// Start launches the LISTEN loop and the reload loop in background
// goroutines. It verifies the database is reachable before returning; the
// LISTEN loop reconnects with backoff on later failures.
func (l *ChangeListener) Start(ctx context.Context) error {
	if err := l.pool.Ping(ctx); err != nil {
		return fmt.Errorf("change listener: database not reachable: %w", err)
	}

	go l.listen(ctx)
	go l.debounce(ctx)

	return nil
}

func (l *ChangeListener) listen(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		err := l.subscribe(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		l.log.WithError(err).WithField("retry_in", backoff).
			Warn("change listener connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// subscribe acquires a connection, issues LISTEN, and blocks on
// notifications until the connection fails or ctx is cancelled.
func (l *ChangeListener) subscribe(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// LISTEN takes the channel inline, not as a parameter.
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	l.log.WithField("channel", l.channel).Info("change listener listening")

	for {
		// Periodic read deadline so ctx cancellation is noticed.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		l.handle(n)
	}
}

func (l *ChangeListener) handle(n *pgconn.Notification) {
	var payload struct {
		Table    string `json:"table"`
		Op       string `json:"op"`
		ParcelID string `json:"parcel_id,omitempty"`
	}
	if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil {
		l.log.WithField("payload", n.Payload).Warn("ignoring undecodable change notification")
		return
	}

	l.log.WithFields(logrus.Fields{
		"table":     payload.Table,
		"op":        payload.Op,
		"parcel_id": payload.ParcelID,
	}).Debug("change notification received")

	l.Notify()
}

// Notify records a change. Changes arriving while one is already pending
// are absorbed.
func (l *ChangeListener) Notify() {
	select {
	case l.changes <- struct{}{}:
	default:
	}
}

// debounce waits for a change, then for a quiet period without further
// changes, then reloads.
func (l *ChangeListener) debounce(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.changes:
		}

		timer := time.NewTimer(l.quiet)

	quiet:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-l.changes:
				timer.Reset(l.quiet)
			case <-timer.C:
				break quiet
			}
		}

		if err := l.reloader.Reload(ctx); err != nil {
			l.log.WithError(err).Warn("reload after store change failed")
		}
	}
}

// nextBackoff doubles the current backoff duration with random jitter (±25%),
// capped at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := min(current*backoffMultiplier, maxBackoff)

	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
