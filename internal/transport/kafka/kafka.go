// Package kafka reserves Kafka topic consumers ("kafka://broker:port/topic").
// Each reservation consumes with its own consumer group so that two owners
// can never share offsets; the filter is matched against message keys.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

const (
	Scheme = "kafka"

	dialTimeout = 5 * time.Second
)

// Message is one buffered record
type Message struct {
	Key   []byte
	Value []byte
}

// Driver reserves Kafka consumers
type Driver struct {
	depth  int
	logger *zap.Logger
}

// New creates a Kafka driver
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

// GroupID names the consumer group used for a reservation
func GroupID(p transport.OpenParams) string {
	return fmt.Sprintf("push-%s-%s", p.Owner.Hex(), p.Endpoint.Path)
}

func (d *Driver) Open(ctx context.Context, p transport.OpenParams) (transport.Handle, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := kafkago.DialContext(dialCtx, "tcp", p.Endpoint.Address())
	if err != nil {
		return nil, fmt.Errorf("reserve %s: %w", p.Endpoint.Raw, err)
	}
	_ = conn.Close()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  []string{p.Endpoint.Address()},
		Topic:    p.Endpoint.Path,
		GroupID:  GroupID(p),
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	runCtx, stop := context.WithCancel(context.Background())
	h := &Handle{
		reader:  reader,
		stop:    stop,
		filter:  p.Filter,
		notify:  p.Notify,
		pending: transport.NewPending[Message](d.depth),
		logger:  d.logger.With(zap.String("connection", p.Endpoint.Raw)),
	}
	h.wg.Add(1)
	go h.readLoop(runCtx)
	return h, nil
}

// Handle is a live Kafka consumer
type Handle struct {
	reader  *kafkago.Reader
	stop    context.CancelFunc
	filter  transport.Filter
	notify  func()
	pending *transport.Pending[Message]
	logger  *zap.Logger
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// Take removes every buffered record
func (h *Handle) Take() []Message { return h.pending.Drain() }

func (h *Handle) HasData() bool { return h.pending.Len() > 0 }

func (h *Handle) Drain() []transport.Item {
	msgs := h.pending.Drain()
	items := make([]transport.Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, transport.Item{Sender: string(m.Key), Payload: m.Value})
	}
	return items
}

func (h *Handle) Cancel() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	h.stop()
	h.wg.Wait()
	h.pending.Drain()
	return h.reader.Close()
}

func (h *Handle) readLoop(ctx context.Context) {
	defer h.wg.Done()

	for {
		m, err := h.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			h.logger.Warn("read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		h.deliver(m)
	}
}

// deliver buffers one record whose key passes the filter and signals arrival
func (h *Handle) deliver(m kafkago.Message) {
	if !h.filter.Match(string(m.Key)) {
		return
	}
	if !h.pending.Push(Message{Key: m.Key, Value: m.Value}) {
		h.logger.Warn("pending queue full, dropping record", zap.ByteString("key", m.Key))
	}
	h.notify()
}
