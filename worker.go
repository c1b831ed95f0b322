package dbvault

import (
	"context"
	"database/sql"
	"errors"
	"runtime/debug"
	"time"
)

// work is the single goroutine that owns conn. It drains the command channel
// strictly in arrival order and exits once Close has shut the channel; that
// drain is the regular termination path, so outcomes queued before Close are
// still delivered. A panic outside action execution (a broken Logger is the
// only code that runs there) fails the vault closed instead of unwinding the
// goroutine: intake stops and everything still queued is answered with
// ErrVaultClosed.
func (v *Vault) work(conn *sql.Conn) {
	ctx := v.baseCtx
	defer v.release(conn)
	defer func() {
		if r := recover(); r != nil {
			v.fail()
		}
	}()

	v.opts.Logger.Info(ctx, "dbvault: worker started")
	for env := range v.queue {
		out := v.execute(ctx, conn, env)
		if env.abandoned.Load() {
			// The submitter gave up waiting. The action already ran to
			// completion; only its reply is dropped.
			v.opts.Logger.Warn(ctx, "dbvault: reply abandoned, outcome dropped (err=%v)", out.err)
			continue
		}
		env.reply <- out
	}
	v.opts.Logger.Info(ctx, "dbvault: worker stopped")
}

// release closes the connection (and the owning DB when the opener handed one
// over) and signals Close that the worker is gone.
func (v *Vault) release(conn *sql.Conn) {
	err := conn.Close()
	if v.opts.CloseDB != nil {
		if cerr := v.opts.CloseDB(); err == nil {
			err = cerr
		}
	}
	v.closeErr = err
	close(v.done)
}

// fail stops intake after a worker fault and answers every envelope still
// queued with ErrVaultClosed.
func (v *Vault) fail() {
	v.mu.Lock()
	if !v.closed {
		v.closed = true
		close(v.queue)
	}
	v.mu.Unlock()

	for env := range v.queue {
		if env.abandoned.Load() {
			continue
		}
		env.reply <- outcome{err: ErrVaultClosed}
	}
}

// execute runs one action, retrying when the options ask for it. The deferred
// recover covers the user-supplied callbacks between attempts (Retryable,
// Backoff, the loggers): a panic in any of them becomes that action's
// *PanicError rather than unwinding the worker.
func (v *Vault) execute(ctx context.Context, conn *sql.Conn, env envelope) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
	}()

	for attempt := 1; ; attempt++ {
		out = v.runOnce(ctx, conn, env)
		if out.err == nil || attempt >= v.opts.MaxAttempts ||
			v.opts.Retryable == nil || !v.opts.Retryable(out.err) {
			return out
		}
		delay := v.opts.Backoff(attempt)
		v.opts.Logger.Warn(ctx, "dbvault: retrying action in %s (attempt %d/%d): %v",
			delay, attempt, v.opts.MaxAttempts, out.err)
		time.Sleep(delay)
	}
}

// runOnce executes the action and resolves exactly one failure kind: the
// action's own error verbatim, or *EngineError when the classifier attributes
// the error to the engine. A panic inside the action is recovered and
// reported as that action's *PanicError; the worker keeps going.
func (v *Vault) runOnce(ctx context.Context, conn *sql.Conn, env envelope) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.opts.Logger.Error(ctx, "dbvault: recovered action panic: %v", r)
			out = outcome{err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
	}()

	value, err := env.run(ctx, conn)
	if err != nil {
		return outcome{err: classifyError(v.opts, err)}
	}
	return outcome{value: value}
}

// classifyError wraps engine errors and passes everything else through
// untouched. An error already carrying an *EngineError is never wrapped
// twice.
func classifyError(opts Options, err error) error {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return err
	}
	if defaultClassify(err) || (opts.Classify != nil && opts.Classify(err)) {
		return &EngineError{Err: err}
	}
	return err
}
