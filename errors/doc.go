// Package errors provides the structured application error used at the
// service boundary. An AppError carries a machine-readable code, a message
// safe to show to callers, the HTTP status it maps to, and whether the
// operation may be retried.
package errors
