// Package observability wires OpenTelemetry tracing and metrics export.
//
// The Component initializes OTLP trace and metric providers on Start when
// enabled and flushes them on Stop. When disabled, the global no-op
// providers stay in place and instrumented code records nothing.
//
//	obs := observability.NewComponent(cfg.Observability, cfg.ServiceConfig, log)
//	app.RegisterComponent(obs)
//
//	metrics, err := observability.NewMetrics(observability.Meter("persistd"))
//	metrics.RecordRequestEnd(ctx, "GET", "/v1/notes", 200, duration)
package observability
