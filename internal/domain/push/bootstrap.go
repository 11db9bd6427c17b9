package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// BootstrapResult summarizes a recovery pass
type BootstrapResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// Bootstrap re-establishes a reservation for every persisted record.
// Records were approved when first registered, so no permission check runs.
// A record that cannot be restored is logged and skipped; only a failure to
// enumerate the store is returned.
func (c *Controller) Bootstrap(ctx context.Context) (BootstrapResult, error) {
	var res BootstrapResult

	err := c.store.ForEach(ctx, func(o store.OwnerRecords) error {
		if o.Err != nil {
			res.Skipped++
			c.metrics.RecordBootstrap("corrupt")
			c.logger.Warn("bootstrap: unreadable owner node", zap.String("uri", o.URI), zap.Error(o.Err))
			return nil
		}

		for _, rec := range o.Records {
			if err := ctx.Err(); err != nil {
				return err
			}

			desc, err := c.factory.Descriptor(rec.Connection, rec.Filter, transport.AllowAll)
			if err == nil {
				c.mu.Lock()
				_, err = c.registerLocked(ctx, rec.Owner, rec.LaunchTarget, desc, false)
				c.mu.Unlock()
			}
			if err != nil {
				res.Skipped++
				c.metrics.RecordBootstrap("skipped")
				c.logger.Warn("bootstrap: record skipped", logging.Record(rec), zap.Error(err))
				continue
			}
			res.Restored++
			c.metrics.RecordBootstrap("restored")
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("bootstrap: %w", err)
	}

	c.logger.Info("bootstrap complete", zap.Int("restored", res.Restored), zap.Int("skipped", res.Skipped))
	return res, nil
}
