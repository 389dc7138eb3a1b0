package bridge

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// maxRequestBytes bounds a single bridge payload. The protocol is one
	// URL per connection; anything larger is noise or abuse.
	maxRequestBytes = 8 * 1024

	// readTimeout bounds how long a connection may take to deliver its
	// payload, so a stalled peer cannot pin a handler goroutine.
	readTimeout = 10 * time.Second
)

// ListenerConfig configures a bridge Listener.
type ListenerConfig struct {
	// Port to bind on the loopback interface. 0 picks a free port.
	Port     int
	Mappings []MountMapping
	Open     OpenFunc
	Logger   *slog.Logger
}

// Listener accepts loopback connections from the reverse tunnel and opens
// each received URL on the host. The protocol is fire and forget: one URL
// per connection, terminated by newline or EOF, no response.
type Listener struct {
	mappings []MountMapping
	open     OpenFunc
	logger   *slog.Logger

	mu      sync.Mutex
	port    int
	ln      net.Listener
	done    chan struct{}
	wg      sync.WaitGroup
	conns   map[net.Conn]struct{}
	started bool
}

// NewListener creates a Listener. Nil config fields fall back to the
// host opener and the default logger.
func NewListener(cfg ListenerConfig) *Listener {
	open := cfg.Open
	if open == nil {
		open = OpenOnHost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		mappings: cfg.Mappings,
		open:     open,
		logger:   logger,
		port:     cfg.Port,
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start binds the loopback interface and begins accepting connections.
// The bind is 127.0.0.1 only; the bridge must never be reachable from off
// the host. A failed bind returns a PortUnavailableError.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("listener already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", l.port))
	if err != nil {
		return &PortUnavailableError{Port: l.port, Err: err}
	}
	l.ln = ln
	l.port = ln.Addr().(*net.TCPAddr).Port
	l.started = true

	l.logger.Debug("bridge listener started", "addr", ln.Addr().String())

	l.wg.Add(1)
	go l.acceptLoop()
	return nil
}

// Port returns the bound port once Start has succeeded, or the configured
// port before that.
func (l *Listener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				l.logger.Warn("bridge accept error", "error", err)
				continue
			}
		}

		l.mu.Lock()
		select {
		case <-l.done:
			l.mu.Unlock()
			conn.Close()
			return
		default:
		}
		l.conns[conn] = struct{}{}
		l.mu.Unlock()

		l.wg.Add(1)
		go l.handleConn(conn)
	}
}

// handleConn serves a single connection. Each connection gets its own
// goroutine so a slow browser open never blocks the accept loop.
func (l *Listener) handleConn(conn net.Conn) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	payload, err := readRequest(conn)
	if err != nil {
		l.logger.Warn("bridge request rejected", "error", err)
		return
	}

	url := strings.TrimSpace(string(payload))
	if url == "" {
		return
	}

	l.dispatch(url)
}

// readRequest reads one request: everything up to the first newline or
// EOF, whichever comes first, capped at maxRequestBytes.
func readRequest(r io.Reader) ([]byte, error) {
	buf := make([]byte, 0, 512)
	chunk := make([]byte, 512)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			nl := bytes.IndexByte(chunk[:n], '\n')
			if nl >= 0 {
				buf = append(buf, chunk[:nl]...)
			} else {
				buf = append(buf, chunk[:n]...)
			}
			if len(buf) > maxRequestBytes {
				return nil, &MalformedRequestError{Bytes: len(buf), Reason: "payload exceeds limit"}
			}
			if nl >= 0 {
				return buf, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return buf, nil
			}
			return nil, err
		}
	}
}

func (l *Listener) dispatch(url string) {
	res := Translate(url, l.mappings)
	if res.NeedsMapping() {
		l.logger.Warn("no path mapping found for container path", "path", res.OriginalPath)
	}

	target := res.URL()
	l.logger.Debug("opening url on host", "url", target, "translated", res.Translated)
	if err := l.open(target); err != nil {
		l.logger.Warn("browser open failed", "error", &OpenFacilityError{URL: target, Err: err})
	}
}

// Stop closes the socket, cuts in-flight connections, and waits for the
// handlers to drain. Safe to call repeatedly, from any goroutine, and
// before Start.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return nil
	}
	select {
	case <-l.done:
		l.mu.Unlock()
		return nil
	default:
	}
	close(l.done)

	err := l.ln.Close()
	for conn := range l.conns {
		conn.Close()
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Debug("bridge listener stopped")
	return err
}
