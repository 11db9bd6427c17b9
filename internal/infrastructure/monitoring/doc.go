/*
Package monitoring provides Prometheus metrics for the push daemon.

# Overview

Metrics cover the HTTP API, registrations, data-arrival signals, launches,
bootstrap restoration and persistence calls. Every collector is registered on
the registry passed to NewMetrics, so tests can use a private registry.

All recording methods are safe on a nil *Metrics.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	go metrics.RunUptime(ctx)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg)))

	timer := monitoring.NewTimer(metrics, "add_connection")
	err := store.AddConnection(ctx, rec)
	timer.Stop(err)
*/
package monitoring
