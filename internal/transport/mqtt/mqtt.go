// Package mqtt reserves MQTT topic subscriptions ("mqtt://broker:port/topic").
// The sender filter is matched against the topic of each inbound message,
// which is useful with wildcard subscriptions such as "sensors/+/alarm".
package mqtt

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

const (
	Scheme = "mqtt"

	defaultQoS     = byte(1)
	connectTimeout = 10 * time.Second
	disconnectMS   = 250
)

// Message is one buffered inbound publish
type Message struct {
	Topic   string
	Payload []byte
}

// Driver reserves broker subscriptions with a dedicated client per reservation
type Driver struct {
	depth  int
	logger *zap.Logger
}

// New creates an MQTT driver
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

func (d *Driver) Open(_ context.Context, p transport.OpenParams) (transport.Handle, error) {
	h := &Handle{
		topic:   p.Endpoint.Path,
		filter:  p.Filter,
		notify:  p.Notify,
		pending: transport.NewPending[Message](d.depth),
		logger:  d.logger.With(zap.String("connection", p.Endpoint.Raw)),
	}

	clientID := fmt.Sprintf("push-%s-%s", p.Owner.Hex(), uuid.NewString()[:8])
	opts := paho.NewClientOptions().
		AddBroker("tcp://" + p.Endpoint.Address()).
		SetClientID(clientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c paho.Client) {
			// resubscribe after auto-reconnect
			if h.closed.Load() {
				return
			}
			if token := c.Subscribe(h.topic, defaultQoS, h.onMessage); token.Wait() && token.Error() != nil {
				h.logger.Warn("resubscribe failed", zap.Error(token.Error()))
			}
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			h.logger.Warn("broker connection lost", zap.Error(err))
		})

	h.client = paho.NewClient(opts)
	token := h.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		h.client.Disconnect(0)
		return nil, fmt.Errorf("reserve %s: connect timeout", p.Endpoint.Raw)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("reserve %s: %w", p.Endpoint.Raw, err)
	}
	return h, nil
}

// Handle is a live MQTT subscription
type Handle struct {
	client  paho.Client
	topic   string
	filter  transport.Filter
	notify  func()
	pending *transport.Pending[Message]
	logger  *zap.Logger
	closed  atomic.Bool
}

// Take removes every buffered message
func (h *Handle) Take() []Message { return h.pending.Drain() }

func (h *Handle) HasData() bool { return h.pending.Len() > 0 }

func (h *Handle) Drain() []transport.Item {
	msgs := h.pending.Drain()
	items := make([]transport.Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, transport.Item{Sender: m.Topic, Payload: m.Payload})
	}
	return items
}

func (h *Handle) Cancel() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if token := h.client.Unsubscribe(h.topic); token.WaitTimeout(connectTimeout) {
		err = token.Error()
	}
	h.client.Disconnect(disconnectMS)
	h.pending.Drain()
	return err
}

func (h *Handle) onMessage(_ paho.Client, msg paho.Message) {
	if h.closed.Load() {
		return
	}
	if !h.filter.Match(msg.Topic()) {
		return
	}
	if !h.pending.Push(Message{Topic: msg.Topic(), Payload: msg.Payload()}) {
		h.logger.Warn("pending queue full, dropping message", zap.String("topic", msg.Topic()))
	}
	h.notify()
}
