/*
Package tracing provides lightweight in-process tracing written to the log.

Spans follow a request through the HTTP API, the gRPC health service and
push dispatch, so one trace ID ties a data arrival to the launch it caused.

# Usage

	tracer := tracing.New("pushd", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))
	server := grpc.NewServer(grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))

	span, ctx := tracer.StartSpan(ctx, "push.dispatch")
	span.SetTag("connection", name)
	defer tracer.Finish(span)

# Trace Format

Context propagates through the X-Trace-ID and X-Span-ID headers, or the
x-trace-id and x-span-id gRPC metadata keys.

A nil *Tracer is valid and discards spans.
*/
package tracing
