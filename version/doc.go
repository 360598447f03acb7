// Package version reports build information for the execkit binary.
//
// Values are stamped at link time and fall back to the Go build info:
//
//	go build -ldflags "-X github.com/kbukum/execkit/version.Version=1.2.0" ./cmd/execkit
package version
