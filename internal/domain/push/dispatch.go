package push

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// Signals exposes the data-arrival channel handed to every reservation
func (c *Controller) Signals() chan<- transport.Signal {
	return c.signals
}

// Run dispatches data-arrival signals until ctx is done or Shutdown is called
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case sig := <-c.signals:
			c.Dispatch(ctx, sig)
		}
	}
}

// Dispatch launches the owner of the reservation that raised sig. Signals
// from canceled or replaced reservations are dropped. Launch failures are
// logged only; the reservation stays live and the next signal retries.
// It reports whether a launch was attempted.
func (c *Controller) Dispatch(ctx context.Context, sig transport.Signal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.registry.FindByConnection(sig.Connection)
	if !ok || r.Handle != sig.Handle || r.Canceled() {
		c.dropped.Add(1)
		c.metrics.IncSignalsDropped()
		c.logger.Debug("stale signal dropped", logging.Connection(sig.Connection))
		return false
	}

	c.metrics.RecordSignal(scheme(sig.Connection))
	c.launches.Add(1)

	span, ctx := c.tracer.StartSpan(ctx, "push.dispatch")
	span.SetTag("connection", r.Record.Connection)
	span.SetTag("target", r.Record.LaunchTarget)

	start := time.Now()
	err := c.launcher.Launch(ctx, r.Record.Owner, r.Record.LaunchTarget)
	c.metrics.RecordLaunch(time.Since(start), err)
	span.SetError(err)
	c.tracer.Finish(span)
	if err != nil {
		c.launchFailures.Add(1)
		c.logger.Warn("launch failed", logging.Record(r.Record), zap.Error(err))
		return true
	}
	c.logger.Debug("launched", logging.Owner(r.Record.Owner), logging.Target(r.Record.LaunchTarget))
	return true
}
