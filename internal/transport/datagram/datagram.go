// Package datagram reserves UDP endpoints ("datagram://host:port").
package datagram

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

const (
	Scheme = "datagram"

	maxDatagram = 64 * 1024
)

// Datagram is one buffered inbound packet
type Datagram struct {
	From string
	Data []byte
}

// Driver reserves UDP sockets
type Driver struct {
	depth  int
	logger *zap.Logger
}

// New creates a datagram driver
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
	pc, err := net.ListenPacket("udp", p.Endpoint.Address())
	if err != nil {
		return nil, transport.ListenError(p.Endpoint, err)
	}

	h := &Handle{
		pc:      pc,
		filter:  p.Filter,
		notify:  p.Notify,
		pending: transport.NewPending[Datagram](d.depth),
		logger:  d.logger.With(zap.String("connection", p.Endpoint.Raw)),
	}
	h.wg.Add(1)
	go h.readLoop()
	return h, nil
}

// Handle is a reserved UDP socket
type Handle struct {
	pc      net.PacketConn
	filter  transport.Filter
	notify  func()
	pending *transport.Pending[Datagram]
	logger  *zap.Logger
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// Addr returns the bound local address
func (h *Handle) Addr() net.Addr { return h.pc.LocalAddr() }

// Take removes every buffered datagram
func (h *Handle) Take() []Datagram { return h.pending.Drain() }

func (h *Handle) HasData() bool { return h.pending.Len() > 0 }

func (h *Handle) Drain() []transport.Item {
	grams := h.pending.Drain()
	items := make([]transport.Item, 0, len(grams))
	for _, g := range grams {
		items = append(items, transport.Item{Sender: g.From, Payload: g.Data})
	}
	return items
}

func (h *Handle) Cancel() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := h.pc.Close()
	h.wg.Wait()
	h.pending.Drain()
	return err
}

func (h *Handle) readLoop() {
	defer h.wg.Done()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := h.pc.ReadFrom(buf)
		if err != nil {
			if h.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			h.logger.Warn("read failed", zap.Error(err))
			continue
		}

		sender := transport.RemoteHost(from)
		if !h.filter.Match(sender) {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		if !h.pending.Push(Datagram{From: from.String(), Data: data}) {
			h.logger.Warn("pending queue full, dropping datagram", zap.String("sender", sender))
		}
		h.notify()
	}
}
