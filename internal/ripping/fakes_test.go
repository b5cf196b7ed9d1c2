package ripping_test

import (
	"context"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"cdmedia/internal/services/cdrdao"
	"cdmedia/internal/testsupport"
)

// discFrames is the length of the simulated disc: ten seconds, two tracks.
const discFrames = 750

// cleanRead is cdrdao read-cd output for the simulated disc with two
// recoverable warnings.
var cleanRead = []string{
	"Cdrdao version 1.2.4 - (C) Andreas Mueller <andreas@daneb.de>",
	"ASUS    DRW-24F1ST   b 1.00  (/dev/sr0)",
	"Track   Mode    Flags  Start                Length",
	"------------------------------------------------------------",
	" 1      AUDIO   0      00:00:00(     0)     00:05:00(   375)",
	" 2      AUDIO   0      00:05:00(   375)     00:05:00(   375)",
	"Leadout AUDIO   0      00:10:00(   750)",
	`Copying audio tracks 1-2: start 00:00:00, length 00:10:00 to "tracks.bin"...`,
	"00:01:00",
	"WARNING: Track 1: 3 C2 errors",
	"00:03:00",
	"Track 2...",
	"2 L-EC errors corrected at 00:06:12",
	"00:09:00",
	"Reading of toc and track data finished successfully.",
}

var cleanReadWarnings = []string{
	"Track 1: 3 C2 errors",
	"2 L-EC errors corrected at 00:06:12",
}

type fakeProcess struct {
	lines    []string
	next     int
	exitCode int
	// block holds ReadLine after the scripted lines until Cancel.
	block bool
	// startGate, when set, holds the first ReadLine until closed.
	startGate chan struct{}
	// exitGate, when set, holds Wait until closed.
	exitGate chan struct{}
	readErr  error
	onExit   func()

	cancels    atomic.Int32
	cancelled  chan struct{}
	cancelOnce sync.Once
	exitOnce   sync.Once
}

func newFakeProcess(lines ...string) *fakeProcess {
	return &fakeProcess{lines: lines, cancelled: make(chan struct{})}
}

func (p *fakeProcess) ReadLine() (string, error) {
	if p.startGate != nil {
		<-p.startGate
		p.startGate = nil
	}
	if p.next < len(p.lines) {
		line := p.lines[p.next]
		p.next++
		return line, nil
	}
	if p.block {
		<-p.cancelled
	}
	p.exitOnce.Do(func() {
		if p.onExit != nil {
			p.onExit()
		}
	})
	if p.readErr != nil {
		return "", p.readErr
	}
	return "", io.EOF
}

func (p *fakeProcess) Cancel() {
	p.cancels.Add(1)
	p.cancelOnce.Do(func() { close(p.cancelled) })
}

func (p *fakeProcess) Wait() (int, error) {
	if p.exitGate != nil {
		<-p.exitGate
	}
	if p.block && p.wasCancelled() {
		return 130, nil
	}
	return p.exitCode, nil
}

func (p *fakeProcess) wasCancelled() bool {
	select {
	case <-p.cancelled:
		return true
	default:
		return false
	}
}

type fakeRunner struct {
	mu       sync.Mutex
	binaries []string
	calls    [][]string
	procs    []*fakeProcess
	startErr error
	script   func(args []string) *fakeProcess
}

func (r *fakeRunner) Start(_ context.Context, binary string, args []string) (cdrdao.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.binaries = append(r.binaries, binary)
	r.calls = append(r.calls, slices.Clone(args))
	if r.startErr != nil {
		return nil, r.startErr
	}
	p := r.script(args)
	r.procs = append(r.procs, p)
	return p, nil
}

func (r *fakeRunner) started() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *fakeRunner) process(i int) *fakeProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.procs[i]
}

func (r *fakeRunner) args(i int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls[i])
}

// outputPaths extracts the data and TOC paths from a read-cd argument list.
func outputPaths(args []string) (data, toc string) {
	for i, arg := range args {
		if arg == "--datafile" && i+1 < len(args) {
			data = args[i+1]
		}
	}
	return data, args[len(args)-1]
}

// writesImage makes p leave a disc image behind when its output ends.
func writesImage(p *fakeProcess, args []string, dataFrames int) *fakeProcess {
	data, toc := outputPaths(args)
	p.onExit = func() {
		_ = testsupport.WriteDiscImage(data, toc, dataFrames, discFrames)
	}
	return p
}

func cleanScript(args []string) *fakeProcess {
	return writesImage(newFakeProcess(cleanRead...), args, discFrames)
}
