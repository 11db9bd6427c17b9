// Package ws reserves WebSocket listen endpoints ("ws://host:port/path").
// Each inbound text or binary frame from an accepted peer is buffered.
package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

const Scheme = "ws"

// Message is one buffered inbound frame
type Message struct {
	From string
	Type int
	Data []byte
}

// Driver reserves WebSocket listeners
type Driver struct {
	depth    int
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a WebSocket driver
func New(depth int, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		depth:  depth,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (d *Driver) Scheme() string { return Scheme }

func (d *Driver) Validate(ep transport.Endpoint, _ transport.Filter) error {
	return transport.ValidatePort(ep)
}

func (d *Driver) Open(_ context.Context, p transport.OpenParams) (transport.Handle, error) {
	ln, err := net.Listen("tcp", p.Endpoint.Address())
	if err != nil {
		return nil, transport.ListenError(p.Endpoint, err)
	}

	h := &Handle{
		ln:       ln,
		filter:   p.Filter,
		notify:   p.Notify,
		pending:  transport.NewPending[Message](d.depth),
		upgrader: d.upgrader,
		peers:    make(map[*websocket.Conn]struct{}),
		logger:   d.logger.With(zap.String("connection", p.Endpoint.Raw)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/"+p.Endpoint.Path, h.serveWS)
	h.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Warn("websocket listener stopped", zap.Error(err))
		}
	}()
	return h, nil
}

// Handle is a reserved WebSocket listener
type Handle struct {
	ln       net.Listener
	srv      *http.Server
	filter   transport.Filter
	notify   func()
	pending  *transport.Pending[Message]
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu     sync.Mutex
	peers  map[*websocket.Conn]struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

// Addr returns the bound listen address
func (h *Handle) Addr() net.Addr { return h.ln.Addr() }

// Take removes every buffered frame
func (h *Handle) Take() []Message { return h.pending.Drain() }

func (h *Handle) HasData() bool { return h.pending.Len() > 0 }

func (h *Handle) Drain() []transport.Item {
	msgs := h.pending.Drain()
	items := make([]transport.Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, transport.Item{Sender: m.From, Payload: m.Data})
	}
	return items
}

func (h *Handle) Cancel() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := h.srv.Close()

	h.mu.Lock()
	for c := range h.peers {
		_ = c.Close()
	}
	h.mu.Unlock()

	h.wg.Wait()
	h.pending.Drain()
	return err
}

func (h *Handle) serveWS(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !h.filter.Match(host) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.peers[conn] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	go h.readLoop(conn, host)
}

func (h *Handle) readLoop(conn *websocket.Conn, sender string) {
	defer h.wg.Done()
	defer func() {
		h.mu.Lock()
		delete(h.peers, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !h.pending.Push(Message{From: sender, Type: mt, Data: data}) {
			h.logger.Warn("pending queue full, dropping frame", zap.String("sender", sender))
		}
		h.notify()
	}
}
