// Package observability wires OpenTelemetry tracing and metrics for process
// invocations.
//
// Exporters are only installed when an OTLP endpoint is configured; without
// one the global no-op providers stay in place and spans cost nothing.
//
//	tp, err := observability.InitTracer(ctx, observability.TracerConfig{
//		ServiceName: "execkit",
//		Endpoint:    "localhost:4318",
//		Insecure:    true,
//	})
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanExecute)
//	defer span.End()
package observability
