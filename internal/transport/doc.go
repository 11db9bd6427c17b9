// Package transport turns generic connection names into live, exclusive
// reservations of transport endpoints.
//
// A Factory validates a connection name and sender filter, runs the
// caller's permission check and hands back a Descriptor. Reserving the
// Descriptor binds the real endpoint (listen socket, broker subscription)
// and returns a Handle. When data arrives for the endpoint the Handle
// sends a Signal on the channel supplied at reservation time.
//
// Connection names:
//
//	socket://[host]:port         TCP listen
//	datagram://[host]:port       UDP listen
//	ws://[host]:port[/path]      WebSocket listen
//	mqtt://broker:port/topic     MQTT subscription
//	kafka://broker:port/topic    Kafka consumer
//	redis://host:port/channel    Redis pub/sub
//
// Drivers live in sub-packages and are registered on a Drivers factory:
//
//	f := transport.NewDrivers(socket.New(), datagram.New())
//	d, err := f.Descriptor("socket://:5000", "10.0.*.*", transport.AllowAll)
//	h, err := d.Reserve(ctx, owner, "chat.Inbox", signals)
package transport
