// Package dbvault serializes access to a single database connection.
//
// A Vault owns exactly one live connection and funnels every operation
// through one worker goroutine, so a connection that is not safe for
// concurrent use can be shared by any number of goroutines. Callers submit
// an Action and block until its outcome comes back; actions execute strictly
// in arrival order.
package dbvault

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Logger captures vault logs; implementors can wrap slog/zap/etc.
type Logger interface {
	Info(ctx context.Context, format string, v ...any)
	Warn(ctx context.Context, format string, v ...any)
	Error(ctx context.Context, format string, v ...any)
}

// Options configure Vault behaviour.
type Options struct {
	// QueueSize bounds how many submissions may sit in the command channel;
	// Submit blocks (or honours its context) once the channel is full.
	QueueSize int
	// Setup runs on the owned connection before anything else, typically
	// engine-level session configuration such as PRAGMAs.
	Setup func(ctx context.Context, conn *sql.Conn) error
	// Migrations are applied in order on the owned connection, after Setup
	// and before the worker starts.
	Migrations []Migration
	// Prepare runs after migrations, before the worker starts. Failures here
	// prevent the vault from starting at all.
	Prepare func(ctx context.Context, conn *sql.Conn) error
	// Classify reports whether an action's error was raised by the database
	// engine. Matching errors are wrapped in *EngineError; everything else is
	// surfaced verbatim as the action's own failure. The engines subpackages
	// supply classifiers for their drivers.
	Classify func(err error) bool
	// Retryable, combined with MaxAttempts > 1, makes the worker re-run an
	// action whose error it matches (e.g. SQLITE_BUSY). Off by default.
	Retryable func(err error) bool
	// MaxAttempts is the total number of tries per action when Retryable is
	// set. Defaults to 1 (no retries).
	MaxAttempts int
	// Backoff computes the wait between retries.
	Backoff Backoff
	// Logger emits logs for worker activity.
	Logger Logger
	// CloseDB, when set, runs after the worker releases the connection;
	// engine openers use it to close the owning *sql.DB.
	CloseDB func() error
}

func (o *Options) setDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.Backoff == nil {
		o.Backoff = Exponential(10*time.Millisecond, 2.0, 500*time.Millisecond)
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
}

// outcome is the single value written to an envelope's reply slot.
type outcome struct {
	value any
	err   error
}

// envelope pairs a type-erased action with its single-use reply slot. The
// reply channel is buffered so the worker's write never blocks; a submitter
// that stops waiting flips abandoned so the worker can drop the reply.
type envelope struct {
	run       func(ctx context.Context, conn *sql.Conn) (any, error)
	reply     chan outcome
	abandoned *atomic.Bool
}

// Vault is the client-facing handle to the worker. A *Vault is cheap to
// share: any number of goroutines may call Submit or Exec concurrently, and
// none of them ever touches the connection directly.
type Vault struct {
	queue chan envelope
	opts  Options

	// baseCtx is what actions execute under; it deliberately does not carry
	// any submitter's cancellation, because a dequeued action cannot be
	// preempted.
	baseCtx context.Context

	mu     sync.RWMutex
	closed bool

	done     chan struct{}
	closeErr error
}

// New pins one connection from db and starts the worker goroutine that owns
// it. Setup, migrations and Prepare run on that connection before the worker
// accepts work. The pinned connection is released only by Close.
func New(ctx context.Context, db *sql.DB, opts Options) (*Vault, error) {
	opts.setDefaults()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbvault: acquire connection: %w", err)
	}
	if err := initConn(ctx, conn, opts); err != nil {
		_ = conn.Close()
		return nil, err
	}

	v := &Vault{
		queue:   make(chan envelope, opts.QueueSize),
		opts:    opts,
		baseCtx: context.WithoutCancel(ctx),
		done:    make(chan struct{}),
	}
	go v.work(conn)
	return v, nil
}

// initConn brings a fresh connection to a usable state: session setup,
// migrations, then the caller's prepare hook.
func initConn(ctx context.Context, conn *sql.Conn, opts Options) error {
	if opts.Setup != nil {
		if err := opts.Setup(ctx, conn); err != nil {
			return fmt.Errorf("dbvault: setup: %w", err)
		}
	}
	if err := applyMigrations(ctx, conn, opts.Migrations, opts.Logger); err != nil {
		return err
	}
	if opts.Prepare != nil {
		if err := opts.Prepare(ctx, conn); err != nil {
			return fmt.Errorf("dbvault: prepare: %w", err)
		}
	}
	return nil
}

// Submit enqueues action and blocks until its outcome is available.
//
// The returned error is the action's own error verbatim, an *EngineError, a
// *PanicError, or ErrVaultClosed. If ctx ends while the action is queued or
// running, Submit returns ctx.Err() immediately but the action still runs to
// completion; its reply is dropped by the worker.
func Submit[T any](ctx context.Context, v *Vault, action Action[T]) (T, error) {
	var zero T
	env := envelope{
		run: func(ctx context.Context, conn *sql.Conn) (any, error) {
			return action.Run(ctx, conn)
		},
		reply:     make(chan outcome, 1),
		abandoned: new(atomic.Bool),
	}
	if err := v.send(ctx, env); err != nil {
		return zero, err
	}

	select {
	case out := <-env.reply:
		return unwrap[T](out)
	case <-ctx.Done():
		env.abandoned.Store(true)
		// The worker may have answered in the same instant; prefer the
		// outcome when it is already there.
		select {
		case out := <-env.reply:
			return unwrap[T](out)
		default:
			return zero, ctx.Err()
		}
	}
}

// unwrap converts the type-erased outcome back to T. The comma-ok form
// matters when T is itself an interface type: a successful action may have
// returned a nil interface, and a plain assertion on the nil it erased to
// would panic.
func unwrap[T any](out outcome) (T, error) {
	var zero T
	if out.err != nil {
		return zero, out.err
	}
	val, _ := out.value.(T)
	return val, nil
}

// Exec submits an action that yields no value.
func (v *Vault) Exec(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	_, err := Submit(ctx, v, ActionFunc[struct{}](func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		return struct{}{}, fn(ctx, conn)
	}))
	return err
}

// send enqueues the envelope unless the vault is closed. The read lock spans
// the channel send so Close cannot close the queue underneath a sender.
func (v *Vault) send(ctx context.Context, env envelope) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return ErrVaultClosed
	}
	select {
	case v.queue <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake, waits for every queued action to finish, and releases
// the connection. It is idempotent and safe to call concurrently with
// Submit; submissions racing Close observe ErrVaultClosed.
func (v *Vault) Close() error {
	v.mu.Lock()
	if !v.closed {
		v.closed = true
		close(v.queue)
	}
	v.mu.Unlock()

	<-v.done
	return v.closeErr
}

// defaultClassify catches driver-level failures that are engine errors no
// matter which driver is in use.
func defaultClassify(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

// noopLogger discards all vault logs.
type noopLogger struct{}

// Info implements Logger.
func (noopLogger) Info(context.Context, string, ...any) {}

// Warn implements Logger.
func (noopLogger) Warn(context.Context, string, ...any) {}

// Error implements Logger.
func (noopLogger) Error(context.Context, string, ...any) {}
