package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/nano-ucsm/types"
)

// closeTimeout bounds the logout sent when an operation ends, including
// when the operation's own context is already done.
const closeTimeout = 10 * time.Second

// Status is the connection state of a Session
type Status int

const (
	StatusUnestablished Status = iota
	StatusEstablished
	StatusNetworkError
	StatusProtocolError
)

func (s Status) String() string {
	switch s {
	case StatusUnestablished:
		return "unestablished"
	case StatusEstablished:
		return "established"
	case StatusNetworkError:
		return "network-error"
	case StatusProtocolError:
		return "protocol-error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Session is one authenticated conversation with the controller. It is
// owned by the operation that opened it.
type Session struct {
	ctrl   types.Controller
	host   string
	logger *zap.Logger

	mu     sync.Mutex
	status Status
	closed bool
}

// Open logs in once. A failed login still returns the Session so the
// caller can inspect Status; the error is a KindConnectivity Error.
func Open(ctx context.Context, ctrl types.Controller, cfg *types.ControllerConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{ctrl: ctrl, host: cfg.Address, logger: logger}

	err := ctrl.Login(ctx)
	switch {
	case err == nil:
		s.status = StatusEstablished
		logger.Debug("controller session established", zap.String("host", s.host))
		return s, nil
	case types.IsTransportError(err):
		s.status = StatusNetworkError
	default:
		s.status = StatusProtocolError
	}

	logger.Warn("controller login failed",
		zap.String("host", s.host),
		zap.Stringer("status", s.status),
		zap.Error(err))
	return s, &Error{Kind: KindConnectivity, Message: msgConnectivity, Err: err}
}

// Status returns the connection state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Host returns the controller address
func (s *Session) Host() string {
	return s.host
}

// Controller returns the driver the session runs on
func (s *Session) Controller() types.Controller {
	return s.ctrl
}

// Close releases the controller-side session. It is safe to call more
// than once and on sessions that never got established.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	if err := s.ctrl.Logout(ctx); err != nil {
		s.logger.Warn("controller logout failed", zap.String("host", s.host), zap.Error(err))
		return fmt.Errorf("logout from %s: %w", s.host, err)
	}
	return nil
}
