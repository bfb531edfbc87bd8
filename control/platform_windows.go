//go:build windows
// +build windows

// The reactor has no Windows multiplexer backend (epoll/kqueue only);
// this file exists so a Windows build of the ambient control layer
// still compiles and reports the same probe names as the Linux build.

package control

import (
	"runtime"
)

// RegisterPlatformProbes registers the same probe names
// platform_linux.go does, so callers reading endpoint.Debug don't need
// a build-tag switch of their own.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
