// Package buildinfo provides build information for tagurl.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/tagurl-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/tagurl-go/internal/infra/buildinfo.Commit=abc123"
//
// When they are not, the module version and VCS revision recorded by the Go
// toolchain are used.
package buildinfo
