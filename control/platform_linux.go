//go:build linux
// +build linux

// This file registers the Linux probe set; platform_windows.go registers
// the same probe names for Windows builds.

package control

import (
	"runtime"
)

// RegisterPlatformProbes registers the debug probes an endpoint exposes
// for inspecting the Go runtime its reactor workers run on: logical
// CPU count (the usual thread-count ceiling for a fixed worker pool)
// and live goroutine count (workers plus whatever the hosting
// application has spun up).
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
