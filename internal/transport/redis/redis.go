// Package redis reserves Redis pub/sub channels ("redis://host:port/channel").
// A channel containing glob characters is pattern-subscribed; the filter is
// matched against the concrete channel each message was published on.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

const (
	Scheme = "redis"

	pingTimeout = 5 * time.Second
)

// Message is one buffered publish
type Message struct {
	Channel string
	Payload string
}

// Driver reserves Redis subscriptions
type Driver struct {
	depth  int
	logger *zap.Logger
}

// New creates a Redis pub/sub driver
func New(depth int, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{depth: depth, logger: logger}
}

func (d *Driver) Scheme() string { return Scheme }

func (d *Driver) Validate(ep transport.Endpoint, _ transport.Filter) error {
	return transport.ValidateBroker(ep)
}

func (d *Driver) Open(ctx context.Context, p transport.OpenParams) (transport.Handle, error) {
	client := goredis.NewClient(&goredis.Options{Addr: p.Endpoint.Address()})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("reserve %s: %w", p.Endpoint.Raw, err)
	}

	channel := p.Endpoint.Path
	var sub *goredis.PubSub
	if strings.ContainsAny(channel, "*?[") {
		sub = client.PSubscribe(ctx, channel)
	} else {
		sub = client.Subscribe(ctx, channel)
	}
	if _, err := sub.Receive(pingCtx); err != nil {
		_ = sub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("reserve %s: %w", p.Endpoint.Raw, err)
	}

	h := &Handle{
		client:  client,
		sub:     sub,
		filter:  p.Filter,
		notify:  p.Notify,
		pending: transport.NewPending[Message](d.depth),
		logger:  d.logger.With(zap.String("connection", p.Endpoint.Raw)),
	}
	h.wg.Add(1)
	go h.readLoop(sub.Channel())
	return h, nil
}

// Handle is a live Redis subscription
type Handle struct {
	client  *goredis.Client
	sub     *goredis.PubSub
	filter  transport.Filter
	notify  func()
	pending *transport.Pending[Message]
	logger  *zap.Logger
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// Take removes every buffered message
func (h *Handle) Take() []Message { return h.pending.Drain() }

func (h *Handle) HasData() bool { return h.pending.Len() > 0 }

func (h *Handle) Drain() []transport.Item {
	msgs := h.pending.Drain()
	items := make([]transport.Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, transport.Item{Sender: m.Channel, Payload: []byte(m.Payload)})
	}
	return items
}

func (h *Handle) Cancel() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := h.sub.Close()
	h.wg.Wait()
	h.pending.Drain()
	if cerr := h.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (h *Handle) readLoop(ch <-chan *goredis.Message) {
	defer h.wg.Done()

	for msg := range ch {
		if !h.filter.Match(msg.Channel) {
			continue
		}
		if !h.pending.Push(Message{Channel: msg.Channel, Payload: msg.Payload}) {
			h.logger.Warn("pending queue full, dropping message", zap.String("channel", msg.Channel))
		}
		h.notify()
	}
}
