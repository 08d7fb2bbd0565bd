package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/spiffcs/vitals/internal/log"
)

// profiler manages CPU, memory, and trace profiling for one command run.
type profiler struct {
	cpuFile   *os.File
	traceFile *os.File
	memPath   string
}

// startProfiling begins the profiles named in opts. The returned stop
// function is always safe to call.
func startProfiling(opts *Options) (func(), error) {
	p := &profiler{memPath: opts.MemProfile}

	if opts.CPUProfile != "" {
		f, err := os.Create(opts.CPUProfile)
		if err != nil {
			return func() {}, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return func() {}, fmt.Errorf("could not start CPU profile: %w", err)
		}
		p.cpuFile = f
	}

	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			p.stop()
			return func() {}, fmt.Errorf("could not create trace: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			p.stop()
			return func() {}, fmt.Errorf("could not start trace: %w", err)
		}
		p.traceFile = f
	}

	return p.stop, nil
}

func (p *profiler) stop() {
	var errs []error

	if p.traceFile != nil {
		trace.Stop()
		errs = append(errs, p.traceFile.Close())
		p.traceFile = nil
	}

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		errs = append(errs, p.cpuFile.Close())
		p.cpuFile = nil
	}

	if p.memPath != "" {
		errs = append(errs, writeHeapProfile(p.memPath))
		p.memPath = ""
	}

	if err := errors.Join(errs...); err != nil {
		log.Warn("profiling output incomplete", "error", err)
	}
}

func writeHeapProfile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}
