package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnavailable wraps every failure to obtain the shared pool.
var ErrUnavailable = errors.New("database unavailable")

type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConnecting:
		return "CONNECTING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// OpenFunc establishes a verified connection pool.
type OpenFunc func(ctx context.Context) (*sql.DB, error)

// Status is a point-in-time snapshot of the pool lifecycle.
type Status struct {
	State     State     `json:"-"`
	StateName string    `json:"state"`
	Failures  int       `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
	RetryAt   time.Time `json:"retry_at,omitempty"`
}

// Pool lazily opens a single *sql.DB on first use and hands the same handle to
// every caller afterwards. Concurrent callers share one in-flight attempt. A
// failed attempt is cached until its backoff window expires; the next caller
// after that triggers exactly one new attempt.
type Pool struct {
	open     OpenFunc
	logger   *slog.Logger
	base     time.Duration
	max      time.Duration
	now      func() time.Time
	onChange func(State)

	mu       sync.Mutex
	state    State
	db       *sql.DB
	lastErr  error
	failures int
	retryAt  time.Time

	group    singleflight.Group
	attempts atomic.Int64
}

type Option func(*Pool)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithBackoff sets the retry window after a failed attempt: base doubled per
// consecutive failure, capped at max.
func WithBackoff(base, max time.Duration) Option {
	return func(p *Pool) {
		p.base = base
		p.max = max
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// WithStateHook registers a callback run on every state change. It is called
// with the pool lock held and must not call back into the pool.
func WithStateHook(fn func(State)) Option {
	return func(p *Pool) { p.onChange = fn }
}

func NewPool(open OpenFunc, opts ...Option) *Pool {
	p := &Pool{
		open:   open,
		logger: slog.Default(),
		base:   time.Second,
		max:    30 * time.Second,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the shared handle, connecting on first use.
func (p *Pool) Get(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	switch p.state {
	case StateReady:
		db := p.db
		p.mu.Unlock()
		return db, nil
	case StateFailed:
		if p.now().Before(p.retryAt) {
			err := p.lastErr
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	p.mu.Unlock()

	ch := p.group.DoChan("connect", func() (interface{}, error) {
		return p.connect()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, res.Err)
		}
		return res.Val.(*sql.DB), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) connect() (*sql.DB, error) {
	p.mu.Lock()
	// Another round may have finished between Get releasing the lock and this call.
	switch p.state {
	case StateReady:
		db := p.db
		p.mu.Unlock()
		return db, nil
	case StateFailed:
		if p.now().Before(p.retryAt) {
			err := p.lastErr
			p.mu.Unlock()
			return nil, err
		}
	}
	p.setStateLocked(StateConnecting)
	p.mu.Unlock()

	attempt := p.attempts.Add(1)
	p.logger.Info("connecting to database", slog.Int64("attempt", attempt))

	// The attempt is shared, so it must not die with the first caller's context.
	db, err := p.open(context.Background())

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failures++
		p.lastErr = err
		wait := p.backoffLocked()
		p.retryAt = p.now().Add(wait)
		p.setStateLocked(StateFailed)
		p.logger.Error("database connection failed",
			slog.Any("error", err),
			slog.Int("failures", p.failures),
			slog.Duration("retry_in", wait),
		)
		return nil, err
	}

	p.db = db
	p.failures = 0
	p.lastErr = nil
	p.retryAt = time.Time{}
	p.setStateLocked(StateReady)
	p.logger.Info("database connection established")
	return db, nil
}

func (p *Pool) backoffLocked() time.Duration {
	wait := p.base
	for i := 1; i < p.failures; i++ {
		wait *= 2
		if wait >= p.max {
			return p.max
		}
	}
	if wait > p.max {
		return p.max
	}
	return wait
}

func (p *Pool) setStateLocked(s State) {
	if p.state == s {
		return
	}
	p.state = s
	if p.onChange != nil {
		p.onChange(s)
	}
}

// Ping acquires the pool and verifies a connection.
func (p *Pool) Ping(ctx context.Context) error {
	db, err := p.Get(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		State:     p.state,
		StateName: p.state.String(),
		Failures:  p.failures,
		RetryAt:   p.retryAt,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	return st
}

// Attempts returns how many physical connection attempts were made.
func (p *Pool) Attempts() int64 {
	return p.attempts.Load()
}

// Reset closes any open handle and forgets a cached failure, so the next Get
// connects immediately.
func (p *Pool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.db != nil {
		err = p.db.Close()
		p.db = nil
	}
	p.failures = 0
	p.lastErr = nil
	p.retryAt = time.Time{}
	p.setStateLocked(StateUninitialized)
	return err
}

// Close releases the handle. Diagnostic tools and shutdown call it explicitly.
func (p *Pool) Close() error {
	return p.Reset()
}
