// Package main is the entry point for pushd, the push registration daemon.
//
// pushd keeps network endpoints reserved on behalf of installed applications
// and launches the owning application when data arrives on one of them.
// Registrations are persisted and restored on the next start.
//
// Configuration:
//   - Environment variables (PUSHD_*, LOG_*, RATE_LIMIT_*, CORS_ORIGINS)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	./pushd -port 8070 -store badger -data ./data/push
//
//	# Development mode (colored logs, in-memory store)
//	./pushd -dev -store memory
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown. Reservations are released but
//     their records are kept.
package main
