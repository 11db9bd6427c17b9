// Package socket reserves TCP listen endpoints ("socket://host:port").
package socket

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

const Scheme = "socket"

const (
	// HandoffReadTimeout bounds how long Drain waits on each buffered connection
	HandoffReadTimeout = 200 * time.Millisecond
	// MaxHandoffBytes caps the payload read from one connection on Drain
	MaxHandoffBytes = 64 << 10
)

// Driver reserves TCP listeners
type Driver struct {
	depth  int
	logger *zap.Logger
}

// New creates a socket driver buffering up to depth accepted connections per reservation
func New(depth int, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{depth: depth, logger: logger}
}

func (d *Driver) Scheme() string { return Scheme }

func (d *Driver) Validate(ep transport.Endpoint, _ transport.Filter) error {
	return transport.ValidateListen(ep)
}

func (d *Driver) Open(_ context.Context, p transport.OpenParams) (transport.Handle, error) {
	ln, err := net.Listen("tcp", p.Endpoint.Address())
	if err != nil {
		return nil, transport.ListenError(p.Endpoint, err)
	}

	h := &Handle{
		ln:      ln,
		filter:  p.Filter,
		notify:  p.Notify,
		pending: transport.NewPending[net.Conn](d.depth),
		logger:  d.logger.With(zap.String("connection", p.Endpoint.Raw)),
	}
	h.wg.Add(1)
	go h.acceptLoop()
	return h, nil
}

// Handle is a reserved TCP listener holding accepted connections until the app takes them
type Handle struct {
	ln      net.Listener
	filter  transport.Filter
	notify  func()
	pending *transport.Pending[net.Conn]
	logger  *zap.Logger
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// Addr returns the bound listen address
func (h *Handle) Addr() net.Addr { return h.ln.Addr() }

// Take removes every buffered connection; the caller owns them afterwards
func (h *Handle) Take() []net.Conn { return h.pending.Drain() }

func (h *Handle) HasData() bool { return h.pending.Len() > 0 }

// Drain reads whatever each buffered connection has already sent, then closes it
func (h *Handle) Drain() []transport.Item {
	conns := h.pending.Drain()
	items := make([]transport.Item, 0, len(conns))
	for _, c := range conns {
		items = append(items, transport.Item{
			Sender:  transport.RemoteHost(c.RemoteAddr()),
			Payload: readAvailable(c),
		})
		_ = c.Close()
	}
	return items
}

// readAvailable returns at most MaxHandoffBytes read before the deadline
func readAvailable(c net.Conn) []byte {
	_ = c.SetReadDeadline(time.Now().Add(HandoffReadTimeout))
	data, _ := io.ReadAll(io.LimitReader(c, MaxHandoffBytes))
	return data
}

func (h *Handle) Cancel() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := h.ln.Close()
	h.wg.Wait()
	for _, c := range h.pending.Drain() {
		_ = c.Close()
	}
	return err
}

func (h *Handle) acceptLoop() {
	defer h.wg.Done()

	for {
		conn, err := h.ln.Accept()
		if err != nil {
			if h.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			h.logger.Warn("accept failed", zap.Error(err))
			return
		}

		sender := transport.RemoteHost(conn.RemoteAddr())
		if !h.filter.Match(sender) {
			h.logger.Debug("sender rejected by filter", zap.String("sender", sender))
			_ = conn.Close()
			continue
		}
		if !h.pending.Push(conn) {
			h.logger.Warn("pending queue full, dropping connection", zap.String("sender", sender))
			_ = conn.Close()
		}
		h.notify()
	}
}
