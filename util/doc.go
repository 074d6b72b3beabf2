// Package util holds small helpers shared by the persistence layer and the
// HTTP handlers: secret masking for logs, size strings and request ID parsing.
package util
