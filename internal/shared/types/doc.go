// Package types provides shared data structures for the push registry.
//
// Core Types:
//   - OwnerID: Installed application (suite) identifier
//   - ConnectionRecord: Durable unit of a push registration
//   - App: Running application instance started by a launch
//   - ControllerStats: Registry statistics
//
// Example Usage:
//
//	rec := types.ConnectionRecord{
//	    Owner:        42,
//	    LaunchTarget: "chat.Inbox",
//	    Connection:   "socket://:5000",
//	    Filter:       "10.0.*.*",
//	}
package types
