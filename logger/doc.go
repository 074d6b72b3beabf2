// Package logger provides structured logging for persistkit on top of
// zerolog.
//
// Loggers carry a service tag and may be scoped to a component:
//
//	log := logger.New(&cfg, "persistd").WithComponent("persistence")
//	log.Info("Factory opened", logger.Fields("unit", "orders", "attempt", 1))
//
// Output is either JSON (one event per line) or a compact console format.
package logger
