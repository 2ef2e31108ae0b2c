// Package uow runs a function inside a store transaction carried by the
// context.
//
// A unit of work moves from Started to Committed when its body returns nil,
// or to Aborted when the body fails. Nested calls that receive the
// transactional context join the running unit instead of opening a new one.
// Stores read the active session with SessionFrom.
package uow

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/internal/logging"
)

// State of a unit of work.
type State int

const (
	Started State = iota
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is an open store transaction.
type Session interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// Transactor opens sessions on a store.
type Transactor interface {
	Begin(ctx context.Context) (Session, error)
}

type scopeKey struct{}

type scope struct {
	session Session

	mu    sync.Mutex
	state State
	hooks []func(context.Context)
}

func (s *scope) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *scope) finish(state State) []func(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	hooks := s.hooks
	s.hooks = nil
	return hooks
}

func activeScope(ctx context.Context) *scope {
	if ctx == nil {
		return nil
	}
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok || sc.current() != Started {
		return nil
	}
	return sc
}

// SessionFrom returns the session of the running unit of work in ctx.
func SessionFrom(ctx context.Context) (Session, bool) {
	sc := activeScope(ctx)
	if sc == nil {
		return nil, false
	}
	return sc.session, true
}

// InTransaction reports whether ctx carries a running unit of work.
func InTransaction(ctx context.Context) bool {
	return activeScope(ctx) != nil
}

// AfterCommit registers fn to run once the unit of work in ctx commits. It
// is dropped on abort. Without a running unit fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	sc := activeScope(ctx)
	if sc == nil {
		fn(ctx)
		return
	}

	sc.mu.Lock()
	sc.hooks = append(sc.hooks, fn)
	sc.mu.Unlock()
}

// UnitOfWork wraps functions in transactions opened by a Transactor.
type UnitOfWork struct {
	transactor Transactor
	logger     zerolog.Logger
}

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(u *UnitOfWork) {
		u.logger = logger
	}
}

// New returns a UnitOfWork bound to transactor.
func New(transactor Transactor, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		transactor: transactor,
		logger:     logging.NewLogger("uow"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run executes fn in a transaction. If ctx already carries a running unit of
// work fn joins it and the outer Run decides the outcome.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	session, err := u.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("uow: begin: %w", err)
	}

	sc := &scope{session: session, state: Started}
	txCtx := context.WithValue(ctx, scopeKey{}, sc)

	defer func() {
		if r := recover(); r != nil {
			u.abort(ctx, sc)
			panic(r)
		}
	}()

	if err = fn(txCtx); err != nil {
		u.abort(ctx, sc)
		return err
	}

	if err = session.Commit(ctx); err != nil {
		sc.finish(Aborted)
		u.logger.Warn().Err(err).Msg("unit of work commit failed")
		return fmt.Errorf("uow: commit: %w", err)
	}

	hooks := sc.finish(Committed)
	u.logger.Debug().Int("hooks", len(hooks)).Msg("unit of work committed")

	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

func (u *UnitOfWork) abort(ctx context.Context, sc *scope) {
	sc.finish(Aborted)
	if err := sc.session.Abort(ctx); err != nil {
		u.logger.Warn().Err(err).Msg("unit of work abort failed")
		return
	}
	u.logger.Debug().Msg("unit of work aborted")
}

// Transactional runs fn in a unit of work and returns its value.
func Transactional[T any](ctx context.Context, u *UnitOfWork, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := u.Run(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
