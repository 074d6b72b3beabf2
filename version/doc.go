// Package version reports build information for persistkit binaries.
//
// Version, commit, branch and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/persistkit/version.Version=1.2.0" ./cmd/persistd
//
// Unset values fall back to the module's embedded VCS settings.
package version
