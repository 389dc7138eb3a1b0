package bridge

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bjoernd/cj/internal/clock"
)

// TunnelState tracks the reverse tunnel lifecycle.
type TunnelState int

const (
	TunnelIdle TunnelState = iota
	TunnelConnecting
	TunnelEstablished
	TunnelDegraded
	TunnelStopped
)

func (s TunnelState) String() string {
	switch s {
	case TunnelIdle:
		return "idle"
	case TunnelConnecting:
		return "connecting"
	case TunnelEstablished:
		return "established"
	case TunnelDegraded:
		return "degraded"
	case TunnelStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Endpoint is the SSH endpoint the tunnel connects to.
type Endpoint struct {
	Host string
	Port int
}

// TunnelConfig describes the reverse forward to establish: connections to
// RemotePort inside the container are relayed to LocalPort on the host.
type TunnelConfig struct {
	Endpoint   Endpoint
	RemotePort int
	LocalPort  int
	Keys       *KeyPair
	Timeout    time.Duration
}

// Tunnel is a live reverse tunnel handle. Done is closed when the
// underlying process exits, whatever the reason.
type Tunnel interface {
	State() TunnelState
	Done() <-chan struct{}
	Terminate() error
}

// TunnelSupervisor establishes reverse tunnels. It is an interface so the
// ssh subprocess transport can be swapped without touching session logic.
type TunnelSupervisor interface {
	Establish(ctx context.Context, cfg TunnelConfig) (Tunnel, error)
}

// retryAction tells the establish loop what to do after a failed attempt.
type retryAction int

const (
	retryAgain retryAction = iota
	retryGiveUp
)

// retryPolicy computes backoff delays for tunnel attempts. Delays double
// from Base up to Ceiling and are clamped so the loop never sleeps past
// the overall Timeout.
type retryPolicy struct {
	Base    time.Duration
	Ceiling time.Duration
	Timeout time.Duration
}

// next decides the follow-up to a failed attempt, given the time elapsed
// since establish began and the number of attempts made so far.
func (p retryPolicy) next(elapsed time.Duration, attempt int) (retryAction, time.Duration) {
	if elapsed >= p.Timeout {
		return retryGiveUp, 0
	}

	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Ceiling {
			delay = p.Ceiling
			break
		}
	}
	if remaining := p.Timeout - elapsed; delay > remaining {
		delay = remaining
	}
	return retryAgain, delay
}

const (
	defaultConfirmWindow = time.Second
	defaultRetryBase     = 250 * time.Millisecond
	defaultRetryCeiling  = 4 * time.Second

	// terminateWait bounds the graceful shutdown window before the tunnel
	// process is killed outright.
	terminateWait = 2 * time.Second
)

// SSHSupervisor runs the reverse tunnel as an ssh subprocess.
type SSHSupervisor struct {
	// Command is the binary to invoke. Defaults to "ssh".
	Command string
	Clock   clock.Clock
	Logger  *slog.Logger

	// confirmWindow is how long a spawned process must survive before the
	// forward counts as up. ExitOnForwardFailure turns a failed forward
	// into an exit within this window.
	confirmWindow time.Duration
	policy        *retryPolicy
}

// TunnelArgs returns the ssh argument list for a reverse forward. Host key
// checking is disabled: the endpoint is the local container's sshd, whose
// key changes on every rebuild.
func TunnelArgs(cfg TunnelConfig) []string {
	return []string{
		"-R", fmt.Sprintf("%d:localhost:%d", cfg.RemotePort, cfg.LocalPort),
		"-p", strconv.Itoa(cfg.Endpoint.Port),
		"-i", cfg.Keys.PrivateKeyPath,
		"-N",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "ExitOnForwardFailure=yes",
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=5",
		"root@" + cfg.Endpoint.Host,
	}
}

func (s *SSHSupervisor) command() string {
	if s.Command != "" {
		return s.Command
	}
	return "ssh"
}

func (s *SSHSupervisor) clk() clock.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return clock.System
}

func (s *SSHSupervisor) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Establish spawns the tunnel process and retries with exponential backoff
// until the forward survives its confirmation window or cfg.Timeout
// elapses. On timeout it returns a TunnelEstablishmentError carrying the
// last observed failure.
func (s *SSHSupervisor) Establish(ctx context.Context, cfg TunnelConfig) (Tunnel, error) {
	clk := s.clk()
	logger := s.log()

	window := s.confirmWindow
	if window <= 0 {
		window = defaultConfirmWindow
	}
	policy := retryPolicy{Base: defaultRetryBase, Ceiling: defaultRetryCeiling, Timeout: cfg.Timeout}
	if s.policy != nil {
		policy = *s.policy
		policy.Timeout = cfg.Timeout
	}

	t := &sshTunnel{state: TunnelIdle, done: make(chan struct{}), clk: clk}
	args := TunnelArgs(cfg)
	start := clk.Now()
	var lastErr error

	for attempt := 1; ; attempt++ {
		t.setState(TunnelConnecting)
		logger.Debug("starting tunnel process", "attempt", attempt, "command", s.command())

		proc, err := startTunnelProcess(ctx, s.command(), args)
		if err != nil {
			lastErr = err
		} else {
			select {
			case <-proc.waitDone:
				lastErr = proc.exitErr()
				logger.Debug("tunnel process exited before confirmation", "attempt", attempt, "error", lastErr)
			case <-clk.After(window):
				// The process survived the window, so the forward is up.
				t.adopt(proc)
				t.setState(TunnelEstablished)
				logger.Info("reverse tunnel established",
					"remote_port", cfg.RemotePort, "local_port", cfg.LocalPort, "attempts", attempt)
				go t.monitor(logger)
				return t, nil
			case <-ctx.Done():
				proc.kill()
				t.setState(TunnelStopped)
				return nil, ctx.Err()
			}
		}

		action, delay := policy.next(clk.Now().Sub(start), attempt)
		if action == retryGiveUp {
			t.setState(TunnelDegraded)
			return nil, &TunnelEstablishmentError{
				Attempts: attempt,
				Elapsed:  clk.Now().Sub(start),
				LastErr:  lastErr,
			}
		}

		logger.Debug("retrying tunnel", "attempt", attempt, "delay", delay, "error", lastErr)
		select {
		case <-clk.After(delay):
		case <-ctx.Done():
			t.setState(TunnelStopped)
			return nil, ctx.Err()
		}
	}
}

// tunnelProcess wraps a running ssh command with exit monitoring.
type tunnelProcess struct {
	cmd      *exec.Cmd
	stderr   *bytes.Buffer
	waitDone chan struct{}
	waitErr  error
}

func startTunnelProcess(ctx context.Context, name string, args []string) (*tunnelProcess, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &tunnelProcess{cmd: cmd, stderr: &stderr, waitDone: make(chan struct{})}
	go p.monitorExit()
	return p, nil
}

// monitorExit is the sole caller of Wait.
func (p *tunnelProcess) monitorExit() {
	p.waitErr = p.cmd.Wait()
	close(p.waitDone)
}

// exitErr describes why the process exited, folding in captured stderr.
func (p *tunnelProcess) exitErr() error {
	<-p.waitDone
	msg := strings.TrimSpace(p.stderr.String())
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = strings.TrimSpace(msg[i+1:])
	}
	switch {
	case p.waitErr == nil && msg == "":
		return fmt.Errorf("ssh exited before the forward came up")
	case p.waitErr == nil:
		return fmt.Errorf("ssh exited: %s", msg)
	case msg == "":
		return p.waitErr
	default:
		return fmt.Errorf("%w: %s", p.waitErr, msg)
	}
}

func (p *tunnelProcess) kill() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.waitDone
}

// sshTunnel is the handle over a tunnelProcess.
type sshTunnel struct {
	clk clock.Clock

	mu    sync.Mutex
	state TunnelState
	proc  *tunnelProcess
	done  chan struct{}
}

func (t *sshTunnel) setState(s TunnelState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *sshTunnel) adopt(p *tunnelProcess) {
	t.mu.Lock()
	t.proc = p
	t.mu.Unlock()
}

// State returns the current lifecycle state.
func (t *sshTunnel) State() TunnelState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed once the tunnel process has exited.
func (t *sshTunnel) Done() <-chan struct{} { return t.done }

// monitor flips an Established tunnel to Degraded when its process dies
// underneath it. A requested Terminate is not a degradation. There is no
// automatic reconnect; a degraded tunnel stays down for the session.
func (t *sshTunnel) monitor(logger *slog.Logger) {
	<-t.proc.waitDone

	t.mu.Lock()
	degraded := t.state == TunnelEstablished
	if degraded {
		t.state = TunnelDegraded
	}
	t.mu.Unlock()

	if degraded {
		logger.Warn("reverse tunnel exited unexpectedly, browser redirection is degraded",
			"error", t.proc.exitErr())
	}
	close(t.done)
}

// Terminate signals the tunnel process, waits briefly, then kills it.
// Safe to call repeatedly and from any goroutine.
func (t *sshTunnel) Terminate() error {
	t.mu.Lock()
	if t.state == TunnelStopped {
		t.mu.Unlock()
		return nil
	}
	t.state = TunnelStopped
	proc := t.proc
	t.mu.Unlock()

	if proc == nil {
		return nil
	}

	select {
	case <-proc.waitDone:
		return nil
	default:
	}

	if proc.cmd.Process != nil {
		proc.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-proc.waitDone:
	case <-t.clk.After(terminateWait):
		proc.cmd.Process.Kill()
		<-proc.waitDone
	}
	return nil
}
