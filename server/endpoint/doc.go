// Package endpoint provides the health and build-info handlers mounted by
// server.RegisterDefaultEndpoints.
package endpoint
