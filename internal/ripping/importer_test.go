package ripping_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdmedia/internal/bundle"
	"cdmedia/internal/config"
	"cdmedia/internal/events"
	"cdmedia/internal/logging"
	"cdmedia/internal/metrics"
	"cdmedia/internal/ripping"
	"cdmedia/internal/services"
	"cdmedia/internal/services/cdrdao"
	"cdmedia/internal/testsupport"
)

const waitTimeout = 5 * time.Second

func newImporter(t *testing.T, runner *fakeRunner, opts ...ripping.Option) (*ripping.Importer, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	opts = append([]ripping.Option{ripping.WithRunner(runner)}, opts...)
	return ripping.NewImporter(cfg, logging.NewNop(), opts...), cfg
}

func destination(cfg *config.Config, name string) string {
	return filepath.Join(cfg.Paths.LibraryDir, name+".cdmedia")
}

func wait(t *testing.T, s *ripping.Session) ripping.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	select {
	case <-s.Done():
	case <-ctx.Done():
		t.Fatalf("session %s did not finish; state %s", s.ID(), s.State())
	}
	outcome, _ := s.Wait(ctx)
	return outcome
}

// recorder captures everything a subscriber sees.
type recorder struct {
	mu       sync.Mutex
	progress []float64
	tracks   []int
	warnings []string
	outcomes []ripping.Outcome
}

func (r *recorder) callbacks() ripping.Callbacks {
	return ripping.Callbacks{
		OnProgress: func(p float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, p)
		},
		OnTrack: func(n int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.tracks = append(r.tracks, n)
		},
		OnWarning: func(w string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.warnings = append(r.warnings, w)
		},
		OnComplete: func(o ripping.Outcome) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.outcomes = append(r.outcomes, o)
		},
	}
}

func assertNoBundle(t *testing.T, dest string) {
	t.Helper()
	_, err := os.Lstat(dest)
	assert.True(t, errors.Is(err, os.ErrNotExist), "destination %s must not exist: %v", dest, err)
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".staging-"), "staging directory %s left behind", e.Name())
	}
}

func assertWorkDirRemoved(t *testing.T, s *ripping.Session) {
	t.Helper()
	_, err := os.Stat(s.WorkDir())
	assert.True(t, errors.Is(err, os.ErrNotExist), "work dir %s must be removed", s.WorkDir())
}

func gatedCleanScript(gate chan struct{}) func([]string) *fakeProcess {
	return func(args []string) *fakeProcess {
		p := cleanScript(args)
		p.startGate = gate
		return p
	}
}

func TestImportSucceedsWithOrderedWarnings(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{script: gatedCleanScript(gate)}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Demo Disc")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{
		SourceDevice:       "/dev/sr0",
		DestinationBundle:  dest,
		UseErrorCorrection: true,
	})
	require.NoError(t, err)
	rec := &recorder{}
	imp.Subscribe(s, rec.callbacks())
	close(gate)

	outcome := wait(t, s)
	require.NoError(t, outcome.Err)
	assert.Equal(t, ripping.StateSucceeded, outcome.Status)
	assert.Equal(t, ripping.StateSucceeded, s.State())
	assert.Equal(t, cleanReadWarnings, outcome.Warnings)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.NoError(t, outcome.CleanupErr)
	assert.False(t, outcome.FinishedAt.Before(outcome.StartedAt))

	rec.mu.Lock()
	assert.Equal(t, []float64{10, 30, 90, 100}, rec.progress)
	assert.Equal(t, []int{1, 2}, rec.tracks)
	assert.Equal(t, cleanReadWarnings, rec.warnings)
	require.Len(t, rec.outcomes, 1)
	rec.mu.Unlock()

	require.NotNil(t, outcome.Bundle)
	assert.Equal(t, dest, outcome.Bundle.Path)
	assert.Len(t, outcome.Bundle.Tracks, 2)
	assert.Equal(t, discFrames, outcome.Bundle.Frames())
	cue, err := os.ReadFile(filepath.Join(dest, "tracks.cue"))
	require.NoError(t, err)
	assert.Equal(t, "FILE \"tracks.bin\" BINARY\n  TRACK 01 AUDIO\n    INDEX 01 00:00:00\n  TRACK 02 AUDIO\n    INDEX 01 00:05:00\n", string(cue))
	assertWorkDirRemoved(t, s)
	assert.Equal(t, float64(100), s.Progress())
	assert.Equal(t, []string{"cdrdao"}, runner.binaries)
}

func TestFatalLineFailsWithoutBundle(t *testing.T) {
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := newFakeProcess(
			"Leadout AUDIO   0      00:10:00(   750)",
			"Copying audio tracks 1-2: start 00:00:00, length 00:10:00",
			"00:01:00",
			"ERROR: Read error at sector 112: unrecoverable",
			"00:03:00",
			"ERROR: Cannot read disk",
		)
		p.exitCode = 1
		return writesImage(p, args, 80)
	}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Scratched")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	outcome := wait(t, s)

	assert.Equal(t, ripping.StateFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, services.ErrToolFatal)
	var fatal *cdrdao.FatalError
	require.ErrorAs(t, outcome.Err, &fatal)
	assert.Equal(t, cdrdao.ClassUnreadableSector, fatal.Class)
	assert.Equal(t, "Read error at sector 112: unrecoverable", fatal.Message)
	assert.Equal(t, "tool_fatal", services.Kind(outcome.Err))
	assert.Equal(t, int32(1), runner.process(0).cancels.Load(), "fatal output stops cdrdao exactly once")
	assert.Equal(t, float64(10), s.Progress(), "progress after the fatal line is ignored")
	assertNoBundle(t, dest)
	assertWorkDirRemoved(t, s)
}

func TestNonZeroExitWithoutFatalIsUnknownFailure(t *testing.T) {
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := newFakeProcess("Leadout AUDIO   0      00:10:00(   750)", "00:02:00")
		p.exitCode = 2
		return writesImage(p, args, discFrames)
	}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Odd")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	outcome := wait(t, s)

	assert.Equal(t, ripping.StateFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, services.ErrUnknownFailure)
	assert.NotErrorIs(t, outcome.Err, services.ErrToolFatal)
	assert.Contains(t, outcome.Err.Error(), "status 2")
	assert.Equal(t, 2, outcome.ExitCode)
	assert.Zero(t, runner.process(0).cancels.Load())
	assertNoBundle(t, dest)
}

func TestReadErrorIsUnknownFailure(t *testing.T) {
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := newFakeProcess("00:02:00")
		p.readErr = errors.New("pipe broke")
		return p
	}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Broken")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	outcome := wait(t, s)

	assert.ErrorIs(t, outcome.Err, services.ErrUnknownFailure)
	assert.Contains(t, outcome.Err.Error(), "pipe broke")
	assert.Equal(t, int32(1), runner.process(0).cancels.Load())
	assertNoBundle(t, dest)
}

func TestCancelMidRunTerminatesOnce(t *testing.T) {
	exitGate := make(chan struct{})
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := newFakeProcess("Leadout AUDIO   0      00:10:00(   750)", "00:01:00", "00:03:00")
		p.block = true
		p.exitGate = exitGate
		return writesImage(p, args, 200)
	}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Interrupted")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)

	reached := make(chan struct{})
	var once sync.Once
	imp.Subscribe(s, ripping.Callbacks{OnProgress: func(p float64) {
		if p >= 30 {
			once.Do(func() { close(reached) })
		}
	}})
	select {
	case <-reached:
	case <-time.After(waitTimeout):
		t.Fatal("progress never reached 30%")
	}

	imp.RequestCancel(s)
	imp.RequestCancel(s)
	s.Cancel()

	// cdrdao has been asked to stop but has not exited yet.
	assert.Never(t, func() bool {
		select {
		case <-s.Done():
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.False(t, s.State().Terminal())
	close(exitGate)

	outcome := wait(t, s)
	assert.Equal(t, ripping.StateCancelled, outcome.Status)
	assert.ErrorIs(t, outcome.Err, services.ErrCancelled)
	assert.Equal(t, 130, outcome.ExitCode)
	assert.Equal(t, int32(1), runner.process(0).cancels.Load())
	assertNoBundle(t, dest)
	assertWorkDirRemoved(t, s)

	imp.RequestCancel(s)
	assert.Equal(t, int32(1), runner.process(0).cancels.Load(), "cancel after completion is a no-op")
}

func TestContextCancellationCancelsSession(t *testing.T) {
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := newFakeProcess("Leadout AUDIO   0      00:10:00(   750)", "00:01:00")
		p.block = true
		return p
	}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Ctx")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := imp.BeginImport(ctx, ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.State() == ripping.StateRunning }, waitTimeout, 5*time.Millisecond)

	cancel()
	outcome := wait(t, s)
	assert.Equal(t, ripping.StateCancelled, outcome.Status)
	assert.Equal(t, int32(1), runner.process(0).cancels.Load())
	assertNoBundle(t, dest)
}

func TestBeginImportRejectsCancelledContext(t *testing.T) {
	runner := &fakeRunner{script: cleanScript}
	imp, cfg := newImporter(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := imp.BeginImport(ctx, ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: destination(cfg, "x")})
	assert.ErrorIs(t, err, services.ErrCancelled)
	assert.Zero(t, runner.started())
}

func TestConcurrentImportsToSameDestinationAreRejected(t *testing.T) {
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := newFakeProcess("00:00:10")
		p.block = true
		return p
	}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Shared")

	first, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runner.started() == 1 }, waitTimeout, 5*time.Millisecond)

	for _, alias := range []string{dest, dest + "/", filepath.Join(cfg.Paths.LibraryDir, ".", "Shared.cdmedia")} {
		_, err = imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr1", DestinationBundle: alias})
		require.Error(t, err, alias)
		assert.ErrorIs(t, err, services.ErrConfiguration)
	}
	assert.Equal(t, 1, runner.started(), "rejected imports never launch cdrdao")

	imp.RequestCancel(first)
	wait(t, first)

	runner.mu.Lock()
	runner.script = cleanScript
	runner.mu.Unlock()
	again, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err, "destination is released once the first session finishes")
	outcome := wait(t, again)
	assert.Equal(t, ripping.StateSucceeded, outcome.Status)
}

func TestErrorCorrectionOnlyChangesParanoiaMode(t *testing.T) {
	runner := &fakeRunner{script: cleanScript}
	imp, cfg := newImporter(t, runner)

	var outcomes []ripping.Outcome
	var workDirs []string
	for i, accurate := range []bool{true, false} {
		s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{
			SourceDevice:       "/dev/sr0",
			DestinationBundle:  destination(cfg, []string{"accurate", "fast"}[i]),
			UseErrorCorrection: accurate,
		})
		require.NoError(t, err)
		outcomes = append(outcomes, wait(t, s))
		workDirs = append(workDirs, s.WorkDir())
	}

	normalise := func(args []string, workDir string) []string {
		out := make([]string, len(args))
		for i, a := range args {
			out[i] = strings.ReplaceAll(a, workDir, "WORK")
		}
		return out
	}
	accurateArgs := normalise(runner.args(0), workDirs[0])
	fastArgs := normalise(runner.args(1), workDirs[1])
	require.Len(t, fastArgs, len(accurateArgs))

	var diff []int
	for i := range accurateArgs {
		if accurateArgs[i] != fastArgs[i] {
			diff = append(diff, i)
		}
	}
	require.Len(t, diff, 1)
	assert.Equal(t, "--paranoia-mode", accurateArgs[diff[0]-1])
	assert.Equal(t, "3", accurateArgs[diff[0]])
	assert.Equal(t, "0", fastArgs[diff[0]])
	assert.Equal(t, []string{
		"read-cd", "--read-raw", "--device", "/dev/sr0", "--paranoia-mode", "0",
		"--datafile", "WORK/tracks.bin", "WORK/tracks.toc",
	}, fastArgs)

	for _, o := range outcomes {
		assert.Equal(t, ripping.StateSucceeded, o.Status)
		assert.Equal(t, cleanReadWarnings, o.Warnings)
	}
}

func TestBeginImportValidation(t *testing.T) {
	runner := &fakeRunner{script: cleanScript}
	imp, cfg := newImporter(t, runner)

	existing := destination(cfg, "Existing")
	require.NoError(t, os.Mkdir(existing, 0o755))
	notDir := filepath.Join(cfg.Paths.LibraryDir, "file")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0o644))

	tests := []struct {
		name string
		rc   ripping.RipConfiguration
	}{
		{"missing device", ripping.RipConfiguration{SourceDevice: " ", DestinationBundle: destination(cfg, "a")}},
		{"missing destination", ripping.RipConfiguration{SourceDevice: "/dev/sr0"}},
		{"destination exists", ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: existing}},
		{"parent missing", ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: filepath.Join(cfg.Paths.LibraryDir, "nope", "a.cdmedia")}},
		{"parent is a file", ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: filepath.Join(notDir, "a.cdmedia")}},
		{"filesystem root", ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: "/"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := imp.BeginImport(context.Background(), tt.rc)
			assert.Nil(t, s)
			require.Error(t, err)
			assert.ErrorIs(t, err, services.ErrConfiguration)
			assert.Equal(t, "configuration", services.Kind(err))
		})
	}
	assert.Zero(t, runner.started())
	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no work directories for rejected imports")
}

func TestBeginImportRejectsReadOnlyParent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	runner := &fakeRunner{script: cleanScript}
	imp, cfg := newImporter(t, runner)
	parent := filepath.Join(cfg.Paths.LibraryDir, "locked")
	require.NoError(t, os.Mkdir(parent, 0o555))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })

	_, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: filepath.Join(parent, "a.cdmedia")})
	assert.ErrorIs(t, err, services.ErrConfiguration)
	assert.ErrorContains(t, err, "not writable")
	assert.Zero(t, runner.started())
}

func TestLaunchFailure(t *testing.T) {
	runner := &fakeRunner{startErr: &cdrdao.LaunchError{Binary: "cdrdao", Err: exec.ErrNotFound}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "NoTool")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	outcome := wait(t, s)

	assert.Equal(t, ripping.StateFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, services.ErrLaunch)
	assert.ErrorIs(t, outcome.Err, exec.ErrNotFound)
	assert.Equal(t, -1, outcome.ExitCode)
	assertNoBundle(t, dest)
	assertWorkDirRemoved(t, s)
}

func TestAssemblyFailureLeavesNoBundle(t *testing.T) {
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		return writesImage(newFakeProcess(cleanRead...), args, discFrames-100)
	}}
	imp, cfg := newImporter(t, runner)
	dest := destination(cfg, "Truncated")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	rec := &recorder{}
	imp.Subscribe(s, rec.callbacks())
	outcome := wait(t, s)

	assert.Equal(t, ripping.StateFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, services.ErrAssembly)
	assert.Equal(t, cleanReadWarnings, outcome.Warnings)
	assertNoBundle(t, dest)
	assertWorkDirRemoved(t, s)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NotContains(t, rec.progress, float64(100))
}

func TestDestinationCreatedDuringRunIsConflict(t *testing.T) {
	var dest string
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := cleanScript(args)
		writeImage := p.onExit
		p.onExit = func() {
			writeImage()
			_ = os.Mkdir(dest, 0o755)
		}
		return p
	}}
	imp, cfg := newImporter(t, runner)
	dest = destination(cfg, "Raced")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest})
	require.NoError(t, err)
	outcome := wait(t, s)

	assert.Equal(t, ripping.StateFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, services.ErrAssembly)
	assert.ErrorIs(t, outcome.Err, bundle.ErrDestinationConflict)
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "the foreign directory is left untouched")
}

func TestLateSubscriberReceivesReplay(t *testing.T) {
	runner := &fakeRunner{script: cleanScript}
	imp, cfg := newImporter(t, runner)

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: destination(cfg, "Late")})
	require.NoError(t, err)
	wait(t, s)

	rec := &recorder{}
	imp.Subscribe(s, rec.callbacks())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []float64{100}, rec.progress)
	assert.Equal(t, cleanReadWarnings, rec.warnings)
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, ripping.StateSucceeded, rec.outcomes[0].Status)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{script: gatedCleanScript(gate)}
	imp, cfg := newImporter(t, runner)

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: destination(cfg, "Quiet")})
	require.NoError(t, err)
	rec := &recorder{}
	unsubscribe := imp.Subscribe(s, rec.callbacks())
	unsubscribe()
	close(gate)
	wait(t, s)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.progress)
	assert.Empty(t, rec.outcomes)
}

func TestProgressIsNonDecreasing(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{script: func(args []string) *fakeProcess {
		p := newFakeProcess(
			"Leadout AUDIO   0      00:10:00(   750)",
			"00:02:00", "00:01:00", "00:04:00", "00:04:00", "35%", "00:06:00", "00:03:00", "00:09:74",
		)
		p.startGate = gate
		return writesImage(p, args, discFrames)
	}}
	imp, cfg := newImporter(t, runner)

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: destination(cfg, "Jitter")})
	require.NoError(t, err)
	rec := &recorder{}
	imp.Subscribe(s, rec.callbacks())
	close(gate)
	outcome := wait(t, s)
	require.Equal(t, ripping.StateSucceeded, outcome.Status)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.progress)
	for i := 1; i < len(rec.progress); i++ {
		assert.GreaterOrEqual(t, rec.progress[i], rec.progress[i-1], "progress %v", rec.progress)
	}
	assert.Equal(t, float64(100), rec.progress[len(rec.progress)-1])
}

func TestBusAndMetricsObserveOutcome(t *testing.T) {
	bus := events.New()
	finished := make(chan events.ImportFinished, 1)
	unsub := events.Subscribe(bus, func(e events.ImportFinished) { finished <- e })
	defer unsub()
	collector := metrics.New()

	runner := &fakeRunner{script: cleanScript}
	imp, cfg := newImporter(t, runner, ripping.WithBus(bus), ripping.WithMetrics(collector))
	dest := destination(cfg, "Observed")

	s, err := imp.BeginImport(context.Background(), ripping.RipConfiguration{SourceDevice: "/dev/sr0", DestinationBundle: dest, UseErrorCorrection: true})
	require.NoError(t, err)
	wait(t, s)

	select {
	case ev := <-finished:
		assert.Equal(t, s.ID(), ev.SessionID)
		assert.Equal(t, "succeeded", ev.Status)
		assert.Empty(t, ev.ErrorKind)
		assert.Equal(t, dest, ev.Destination)
		assert.True(t, ev.ErrorCorrection)
		assert.Equal(t, cleanReadWarnings, ev.Warnings)
		assert.Equal(t, 2, ev.Tracks)
		assert.Equal(t, int64(discFrames*cdrdao.RawSectorSize), ev.DataBytes)
	case <-time.After(waitTimeout):
		t.Fatal("ImportFinished not published")
	}

	path := filepath.Join(t.TempDir(), "cdmedia.prom")
	require.NoError(t, collector.WriteTextfile(path))
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(text), `cdmedia_imports_total{status="succeeded"} 1`)
	assert.Contains(t, string(text), "cdmedia_import_warnings_total 2")
	assert.Contains(t, string(text), "cdmedia_imports_active 0")
}
