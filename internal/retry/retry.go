// Package retry re-runs fallible operations under an attempt budget and a
// hard wall-clock ceiling.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/config"
)

// DefaultDeadline is the wall-clock ceiling applied when a policy does not
// set one. It keeps a retried step inside a typical 60 second step timeout.
const DefaultDeadline = 58 * time.Second

// Policy bounds one retried operation. The deadline applies regardless of
// how many attempts remain.
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	Deadline    time.Duration `mapstructure:"deadline" yaml:"deadline"`
}

// NewDefaultPolicy returns 5 attempts spaced 200ms apart.
func NewDefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Interval:    200 * time.Millisecond,
		Deadline:    DefaultDeadline,
	}
}

// Validate checks that the policy can run at least once.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return schemas.NewInvalidArgumentError("max_attempts", fmt.Sprintf("must be at least 1, got %d", p.MaxAttempts))
	}
	if p.Interval < 0 {
		return schemas.NewInvalidArgumentError("interval", "must not be negative")
	}
	if p.Deadline < 0 {
		return schemas.NewInvalidArgumentError("deadline", "must not be negative")
	}
	return nil
}

// FromConfig builds the policy configured under the retry section. A zero
// deadline falls back to DefaultDeadline.
func FromConfig(cfg config.RetryConfig) Policy {
	p := Policy{
		MaxAttempts: cfg.MaxAttempts,
		Interval:    cfg.Interval,
		Deadline:    cfg.Deadline,
	}
	if p.Deadline == 0 {
		p.Deadline = DefaultDeadline
	}
	return p
}

// WithAttempts returns a copy of p with a different attempt budget.
func (p Policy) WithAttempts(n int, interval time.Duration) Policy {
	p.MaxAttempts = n
	p.Interval = interval
	return p
}

// timerSleeper pauses on a timer and gives up early when ctx ends.
type timerSleeper struct{}

func (timerSleeper) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pauseTimer adapts a schemas.Sleeper to backoff.Timer. Start blocks for the
// pause and then fires, so the retry loop never runs ahead of the sleeper.
type pauseTimer struct {
	ctx     context.Context
	sleeper schemas.Sleeper
	onError func(error)
	c       chan time.Time
}

func newPauseTimer(ctx context.Context, sleeper schemas.Sleeper, onError func(error)) *pauseTimer {
	return &pauseTimer{ctx: ctx, sleeper: sleeper, onError: onError, c: make(chan time.Time, 1)}
}

func (t *pauseTimer) Start(d time.Duration) {
	if err := t.sleeper.Pause(t.ctx, d); err != nil {
		t.onError(err)
	}
	select {
	case t.c <- time.Now():
	default:
	}
}

func (t *pauseTimer) Stop() {}

func (t *pauseTimer) C() <-chan time.Time { return t.c }

// errDeadline ends the loop once the policy's wall-clock ceiling has passed.
var errDeadline = errors.New("retry deadline passed")

// permanent reports errors that no amount of retrying can fix: the selector
// itself is malformed.
func permanent(err error) bool {
	return errors.Is(err, schemas.ErrInvalidArgument) ||
		errors.Is(err, schemas.ErrUnknownSymbol) ||
		errors.Is(err, schemas.ErrIncompatibleStrategies)
}

// Engine runs retry loops. The sleeper is usually the browser session so that
// pauses go through the same channel as every other browser operation.
type Engine struct {
	logger  *zap.Logger
	sleeper schemas.Sleeper
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for the deadline.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleeper replaces the sleeper.
func WithSleeper(s schemas.Sleeper) Option {
	return func(e *Engine) { e.sleeper = s }
}

// NewEngine creates an engine. Without a sleeper option it pauses on a timer.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:  logger.Named("retry"),
		sleeper: timerSleeper{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do calls op until it succeeds, the attempts run out, or the deadline
// passes. Attempts are spaced by a constant interval paused through the
// engine's sleeper. A failed pause is logged and the loop continues.
// Cancellation of ctx is checked before every attempt and returned as is.
// Selector construction errors are returned unwrapped after one attempt.
func (e *Engine) Do(ctx context.Context, description string, p Policy, op func(ctx context.Context) error) error {
	if err := p.Validate(); err != nil {
		return err
	}
	deadline := p.Deadline
	if deadline == 0 {
		deadline = DefaultDeadline
	}

	start := e.now()
	var lastErr error
	attempts := 0
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if attempts > 0 && e.now().Sub(start) >= deadline {
			return backoff.Permanent(errDeadline)
		}
		attempts++
		lastErr = op(ctx)
		switch {
		case lastErr == nil:
			return nil
		case errors.Is(lastErr, context.Canceled) && ctx.Err() != nil, permanent(lastErr):
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}

	notify := func(err error, next time.Duration) {
		e.logger.Debug("Attempt failed, retrying.",
			zap.String("operation", description),
			zap.Int("attempt", attempts),
			zap.Duration("interval", next),
			zap.Error(err))
	}
	timer := newPauseTimer(ctx, e.sleeper, func(err error) {
		e.logger.Warn("Pause between attempts failed.", zap.String("operation", description), zap.Error(err))
	})

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(p.MaxAttempts-1)), ctx)
	err := backoff.RetryNotifyWithTimer(operation, b, notify, timer)
	switch {
	case err == nil:
		if attempts > 1 {
			e.logger.Debug("Operation succeeded after retry.", zap.String("operation", description), zap.Int("attempt", attempts))
		}
		return nil
	case errors.Is(err, errDeadline):
		return &schemas.RetryExhaustedError{
			Description: description,
			Attempts:    attempts,
			TimedOut:    true,
			Err:         lastErr,
		}
	case ctx.Err() != nil:
		return ctx.Err()
	case permanent(err):
		return err
	}

	e.logger.Debug("Final attempt failed.", zap.String("operation", description), zap.Int("attempt", attempts), zap.Error(lastErr))
	return &schemas.RetryExhaustedError{Description: description, Attempts: attempts, Err: lastErr}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, e *Engine, description string, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, description, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
