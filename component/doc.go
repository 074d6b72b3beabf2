// Package component defines lifecycle-managed infrastructure pieces and the
// registry that starts them in registration order and stops them in
// reverse.
package component
