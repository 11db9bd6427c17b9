// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Field helpers keep the push vocabulary consistent across components:
//
//	logger := logging.NewDefault()
//	logger.Info("registered", logging.Owner(rec.Owner), logging.Connection(rec.Connection))
//	logger.Warn("bootstrap skip", logging.Owner(owner), zap.Error(err))
package logging
