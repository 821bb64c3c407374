// Package lifecycle is the resource-lifecycle engine: it opens a
// controller session per request and runs exactly one of the fault,
// VLAN, provisioning or reset workflows on it.
//
// Every public operation returns a Result; none of them panics on
// controller errors or returns without a message.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/nano-ucsm/model"
	"github.com/nanoncore/nano-ucsm/types"
)

// Dialer creates a fresh, not yet logged-in controller handle
type Dialer func(cfg *types.ControllerConfig) (types.Controller, error)

// Recorder observes completed operations
type Recorder interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}

// Engine runs lifecycle operations against one controller
type Engine struct {
	config   *types.ControllerConfig
	dial     Dialer
	profile  model.ProvisioningProfile
	logger   *zap.Logger
	recorder Recorder
	locks    *orgLocks
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProfile overrides the provisioning profile
func WithProfile(profile model.ProvisioningProfile) Option {
	return func(e *Engine) {
		e.profile = profile
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine creates an engine. cfg and dial are required.
func NewEngine(cfg *types.ControllerConfig, dial Dialer, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("controller config is required")
	}
	if dial == nil {
		return nil, fmt.Errorf("dialer is required")
	}

	e := &Engine{
		config:   cfg,
		dial:     dial,
		profile:  model.DefaultProfile(),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		locks:    newOrgLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provisioning profile: %w", err)
	}
	return e, nil
}

// Profile returns the provisioning profile in use
func (e *Engine) Profile() model.ProvisioningProfile {
	return e.profile
}

// run times an operation, logs its outcome and records it
func (e *Engine) run(op Operation, fn func(logger *zap.Logger) Result) Result {
	start := time.Now()
	logger := e.logger.With(zap.String("op", string(op)))

	res := fn(logger)
	res.Operation = op

	elapsed := time.Since(start)
	e.recorder.ObserveOperation(string(op), res.Outcome.String(), elapsed)

	fields := []zap.Field{
		zap.Stringer("outcome", res.Outcome),
		zap.Duration("elapsed", elapsed),
	}
	if res.Outcome.Failed() {
		logger.Warn("operation failed", append(fields, zap.Error(res.Err))...)
	} else {
		logger.Info("operation completed", fields...)
	}
	return res
}

// withSession dials, opens a session and runs fn on it. The session is
// closed on every exit path, including a panic in fn.
func (e *Engine) withSession(ctx context.Context, op Operation, logger *zap.Logger, fn func(ctx context.Context, ctrl types.Controller) error) error {
	ctrl, err := e.dial(e.config)
	if err != nil {
		return newError(KindConnectivity, op, msgConnectivity, err)
	}

	session, err := Open(ctx, ctrl, e.config, logger)
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			logger.Debug("session close failed", zap.Error(cerr))
		}
	}()
	if err != nil {
		var le *Error
		if errors.As(err, &le) {
			le.Op = op
		}
		return err
	}

	return fn(ctx, ctrl)
}

// fatal wraps an unexpected controller error
func fatal(op Operation, step string, err error) error {
	return newError(KindFatal, op, fatalMessage(op), fmt.Errorf("%s: %w", step, err))
}

// orgLocks serializes provisioning per organization
type orgLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOrgLocks() *orgLocks {
	return &orgLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for org and returns its release function
func (l *orgLocks) lock(org string) func() {
	l.mu.Lock()
	m, ok := l.locks[org]
	if !ok {
		m = &sync.Mutex{}
		l.locks[org] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
