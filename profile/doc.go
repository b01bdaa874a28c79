// Package profile provides optional runtime profiling for hyperdash.
//
// Profiling integrates [github.com/pkg/profile] and is compiled in only with
// the pprof build tag:
//
//	go build -tags pprof .
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// stopper, so callers never need to check the build configuration.
//
// # Modes
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     block (synchronization) profiling
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine profiling
//   - heap:      heap profiling (live allocations)
//   - mem:       general memory profiling
//   - mutex:     mutex contention profiling
//   - thread:    thread creation profiling
//   - trace:     execution trace
//
// # Usage
//
//	p := profile.New(profile.WithMode("cpu"), profile.WithPath("/tmp/prof"))
//	defer p.Start().Stop()
//
// From the command line:
//
//	hyperdash --pprof-mode=cpu resolve dashboard.yaml
//
// Profiles are written to --pprof-dir, which defaults to the pprof directory
// under the user cache directory. Analyze them with go tool pprof.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
