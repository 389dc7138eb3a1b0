package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bjoernd/cj/internal/clock"
	"github.com/google/uuid"
)

const (
	// fallbackPortAttempts is how many ascending neighbor ports a session
	// tries after the configured one turns out to be taken.
	fallbackPortAttempts = 2

	defaultTunnelTimeout = 30 * time.Second
)

// SessionConfig configures a bridge session.
type SessionConfig struct {
	// ForwardPort is the port the container publishes URLs to. The host
	// listener starts here too, walking up on conflicts.
	ForwardPort int
	SSHEndpoint Endpoint
	Mappings    []MountMapping
	// KeyDir stores the session's SSH key pair.
	KeyDir        string
	TunnelTimeout time.Duration

	// Optional overrides; zero values select the production defaults.
	Open       OpenFunc
	Supervisor TunnelSupervisor
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Session ties the listener and the reverse tunnel together for one
// container run. Sessions are independent values; concurrent projects can
// each run their own.
type Session struct {
	id       string
	listener *Listener
	tunnel   Tunnel
	keys     *KeyPair
	logger   *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// StartSession brings the bridge up: key pair, loopback listener, reverse
// tunnel, in that order. A failing tunnel degrades the session to
// listener-only and is reported in the returned warnings. A session that
// has no keys or cannot bind any candidate port returns an error instead;
// callers treat that as a warning too and run the container without the
// bridge.
func StartSession(ctx context.Context, cfg SessionConfig) (*Session, []string, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()[:8]
	logger = logger.With("bridge", id)

	keys, err := EnsureKeyPair(cfg.KeyDir)
	if err != nil {
		return nil, nil, err
	}

	listener, err := listenWithFallback(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sess := &Session{id: id, listener: listener, keys: keys, logger: logger}

	var warnings []string
	if cfg.ForwardPort != 0 && listener.Port() != cfg.ForwardPort {
		warnings = append(warnings,
			fmt.Sprintf("bridge port %d was taken, listening on %d instead", cfg.ForwardPort, listener.Port()))
	}

	supervisor := cfg.Supervisor
	if supervisor == nil {
		supervisor = &SSHSupervisor{Clock: cfg.Clock, Logger: logger}
	}
	timeout := cfg.TunnelTimeout
	if timeout <= 0 {
		timeout = defaultTunnelTimeout
	}

	tunnel, err := supervisor.Establish(ctx, TunnelConfig{
		Endpoint:   cfg.SSHEndpoint,
		RemotePort: cfg.ForwardPort,
		LocalPort:  listener.Port(),
		Keys:       keys,
		Timeout:    timeout,
	})
	if err != nil {
		warnings = append(warnings,
			fmt.Sprintf("reverse tunnel unavailable, URLs opened inside the container will not reach the host: %v", err))
	} else {
		sess.tunnel = tunnel
	}

	return sess, warnings, nil
}

// listenWithFallback tries the configured port and its ascending
// neighbors, moving on only for port conflicts.
func listenWithFallback(cfg SessionConfig, logger *slog.Logger) (*Listener, error) {
	var lastErr error
	for i := 0; i <= fallbackPortAttempts; i++ {
		l := NewListener(ListenerConfig{
			Port:     cfg.ForwardPort + i,
			Mappings: cfg.Mappings,
			Open:     cfg.Open,
			Logger:   logger,
		})
		err := l.Start()
		if err == nil {
			return l, nil
		}
		var portErr *PortUnavailableError
		if !errors.As(err, &portErr) {
			return nil, err
		}
		logger.Debug("bridge port unavailable", "port", cfg.ForwardPort+i, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("no bridge port available: %w", lastErr)
}

// Stop tears the session down in reverse order: tunnel first, then the
// listener. Both are always attempted and every failure is collected.
// Safe to call repeatedly and from any goroutine.
func (s *Session) Stop() []error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	var errs []error
	if s.tunnel != nil {
		if err := s.tunnel.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("tunnel shutdown: %w", err))
		}
	}
	if err := s.listener.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("listener shutdown: %w", err))
	}

	s.logger.Debug("bridge session stopped", "errors", len(errs))
	return errs
}

// ID returns the session's short identifier, used in log lines.
func (s *Session) ID() string { return s.id }

// Port returns the host port the listener is bound to.
func (s *Session) Port() int { return s.listener.Port() }
