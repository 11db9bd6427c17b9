/*
Package push coordinates push registrations: it ties durable connection
records to live transport reservations and launches the owning application
when data arrives.

# Overview

The Controller is the single entry point. Every mutation and every
data-arrival dispatch runs under one controller-wide mutex, so for any
connection name register, unregister and dispatch observe a total order.

Register reserves the transport first and persists second, canceling the
reservation if the write fails; a record is never persisted without a live
reservation behind it. Unregister removes the durable record first and only
then releases the transport, so a failed delete leaves everything intact for
a retry.

Data arrival is delivered as transport.Signal values on a channel drained by
Run. A signal whose reservation has been canceled or replaced is dropped.

# Startup

	ctrl := push.NewController(connStore, drivers, launcher, push.Options{Logger: logger})
	res, err := ctrl.Bootstrap(ctx)
	go ctrl.Run(ctx)
	defer ctrl.Shutdown()
*/
package push
