package ripping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"cdmedia/internal/bundle"
	"cdmedia/internal/events"
	"cdmedia/internal/logging"
	"cdmedia/internal/services"
	"cdmedia/internal/services/cdrdao"
)

type subscriber struct {
	id uint64
	cb Callbacks
}

// Session is one running or finished import.
type Session struct {
	id        string
	rc        RipConfiguration
	raw       bundle.RawOutput
	importer  *Importer
	claim     *claim
	logger    *slog.Logger
	startedAt time.Time
	stopWatch func() bool
	done      chan struct{}

	// Used only by the worker goroutine.
	sampler *logging.ProgressSampler
	track   int

	// deliverMu pairs every observable state change with the callbacks that
	// report it, so a subscriber's replay never interleaves with live delivery.
	deliverMu sync.Mutex

	mu              sync.Mutex
	state           State
	progress        float64
	progressSeen    bool
	warnings        []string
	outcome         *Outcome
	subscribers     []subscriber
	nextSubscriber  uint64
	proc            cdrdao.Process
	cancelRequested bool
	stopRequested   bool
	fatal           *cdrdao.FatalError

	terminateOnce sync.Once
}

// ID returns the session identifier used in logs and the import history.
func (s *Session) ID() string { return s.id }

// Configuration returns the normalised configuration the session runs with.
func (s *Session) Configuration() RipConfiguration { return s.rc }

// WorkDir returns the scratch directory cdrdao writes into.
func (s *Session) WorkDir() string { return s.raw.WorkDir }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the highest completion percentage reported so far.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Warnings returns the recoverable warnings reported so far.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.warnings)
}

// Done is closed once the outcome has been delivered to subscribers.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session finishes or ctx ends. It returns the outcome
// together with its error.
func (s *Session) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		o := *s.outcome
		s.mu.Unlock()
		return o, o.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Cancel is shorthand for Importer.RequestCancel.
func (s *Session) Cancel() { s.requestCancel() }

func (s *Session) run(ctx context.Context) {
	imp := s.importer
	s.mu.Lock()
	cancelled := s.cancelRequested
	s.mu.Unlock()
	if cancelled {
		s.complete(Outcome{
			Status:   StateCancelled,
			ExitCode: -1,
			Err:      services.Wrap(services.ErrCancelled, "ripping", "launch cdrdao", "import cancelled before launch", nil),
		})
		return
	}

	args := cdrdao.ReadCDArgs(cdrdao.ReadOptions{
		Device:       s.rc.SourceDevice,
		Driver:       imp.cfg.Cdrdao.Driver,
		ReadRaw:      imp.cfg.Cdrdao.ReadRaw,
		ParanoiaMode: imp.cfg.ParanoiaMode(s.rc.UseErrorCorrection),
		DataFile:     s.raw.DataFile,
		TOCFile:      s.raw.TOCFile,
	})
	s.logger.Info("launching cdrdao",
		logging.String("binary", imp.cfg.Cdrdao.Binary),
		logging.String("args", strings.Join(args, " ")),
	)
	proc, err := imp.runner.Start(ctx, imp.cfg.Cdrdao.Binary, args)
	if err != nil {
		s.complete(Outcome{
			Status:   StateFailed,
			ExitCode: -1,
			Err:      services.Wrap(services.ErrLaunch, "ripping", "launch cdrdao", "check cdrdao.binary in the config", err),
		})
		return
	}
	if s.attach(proc) {
		s.terminate()
	}

	classifier := cdrdao.NewClassifier()
	var readErr error
	for {
		line, err := proc.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
				s.terminate()
			}
			break
		}
		s.handleLine(classifier, line)
	}
	exitCode, waitErr := proc.Wait()

	s.mu.Lock()
	cancelled = s.cancelRequested
	fatal := s.fatal
	clean := !cancelled && fatal == nil && readErr == nil && waitErr == nil && exitCode == 0
	if clean {
		s.state = StateFinalizing
	}
	s.mu.Unlock()

	outcome := Outcome{ExitCode: exitCode}
	switch {
	case cancelled:
		outcome.Status = StateCancelled
		outcome.Err = services.Wrap(services.ErrCancelled, "ripping", "read disc", "import cancelled", nil)
	case fatal != nil:
		outcome.Status = StateFailed
		outcome.Err = services.Wrap(services.ErrToolFatal, "ripping", "read disc", fatal.Hint(), fatal)
	case readErr != nil:
		outcome.Status = StateFailed
		outcome.Err = services.Wrap(services.ErrUnknownFailure, "ripping", "read cdrdao output", "", readErr)
	case waitErr != nil:
		outcome.Status = StateFailed
		outcome.Err = services.Wrap(services.ErrUnknownFailure, "ripping", "wait for cdrdao", "", waitErr)
	case exitCode != 0:
		outcome.Status = StateFailed
		outcome.Err = services.Wrap(services.ErrUnknownFailure, "ripping", "read disc",
			fmt.Sprintf("cdrdao exited with status %d without reporting an error", exitCode), nil)
	default:
		s.logger.Info("cdrdao finished, assembling bundle", logging.Int("exit_code", exitCode))
		b, err := imp.assembler.Finalize(s.raw, s.rc.DestinationBundle)
		if err != nil {
			outcome.Status = StateFailed
			outcome.Err = err
		} else {
			outcome.Status = StateSucceeded
			outcome.Bundle = b
			s.updateProgress(100)
		}
	}
	s.complete(outcome)
}

// attach records the running process and reports whether a stop was
// requested while it was being launched.
func (s *Session) attach(proc cdrdao.Process) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = proc
	if !s.cancelRequested {
		s.state = StateRunning
	}
	return s.stopRequested
}

// terminate asks cdrdao to stop. The process sees at most one request no
// matter how many cancels, fatal lines or read errors lead here.
func (s *Session) terminate() {
	s.mu.Lock()
	s.stopRequested = true
	proc := s.proc
	s.mu.Unlock()
	if proc != nil {
		s.terminateOnce.Do(proc.Cancel)
	}
}

func (s *Session) requestCancel() {
	s.mu.Lock()
	if s.cancelRequested || s.fatal != nil || s.state == StateFinalizing || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.cancelRequested = true
	s.mu.Unlock()
	s.logger.Info("cancellation requested")
	s.terminate()
}

func (s *Session) halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRequested || s.fatal != nil
}

func (s *Session) handleLine(classifier *cdrdao.Classifier, line string) {
	ev, ok := classifier.Classify(line)
	if !ok {
		s.logger.Debug("cdrdao output", logging.String("line", line))
		return
	}
	// Once stopping, the remaining output is only drained.
	if s.halted() {
		s.logger.Debug("cdrdao output after stop", logging.String("line", line))
		return
	}
	switch ev.Kind {
	case cdrdao.EventProgress:
		if s.sampler.ShouldLog(ev.Percent, fmt.Sprintf("track %d", s.track)) {
			s.logger.Info("rip progress",
				logging.Float64("percent", ev.Percent),
				logging.Int("track", s.track),
			)
		}
		s.updateProgress(ev.Percent)
	case cdrdao.EventTrackStarted:
		s.track = ev.Track
		s.logger.Info("reading track", logging.Int("track", ev.Track))
		s.deliverTrack(ev.Track)
	case cdrdao.EventWarning:
		logging.WarnWithContext(s.logger, "cdrdao warning", "rip_warning",
			logging.String("message", ev.Message),
			logging.Int("track", s.track),
			logging.String(logging.FieldErrorHint, "enable error correction or clean the disc if warnings persist"),
			logging.String(logging.FieldImpact, "import continues; affected sectors may be imperfect"),
		)
		s.addWarning(ev.Message)
	case cdrdao.EventFatal:
		s.fail(&cdrdao.FatalError{Class: ev.Class, Message: ev.Message})
	}
}

func (s *Session) fail(fatal *cdrdao.FatalError) {
	s.mu.Lock()
	if s.cancelRequested || s.fatal != nil {
		s.mu.Unlock()
		return
	}
	s.fatal = fatal
	s.mu.Unlock()
	logging.ErrorWithContext(s.logger, "cdrdao reported a fatal error", "rip_fatal",
		logging.String("message", fatal.Message),
		logging.String("class", fatal.Class),
		logging.String(logging.FieldErrorHint, fatal.Hint()),
	)
	s.terminate()
}

func (s *Session) updateProgress(percent float64) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	if s.progressSeen && percent <= s.progress {
		s.mu.Unlock()
		return
	}
	s.progress = percent
	s.progressSeen = true
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.cb.OnProgress != nil {
			sub.cb.OnProgress(percent)
		}
	}
	s.importer.bus.Publish(events.ImportProgress{SessionID: s.id, Percent: percent})
}

func (s *Session) deliverTrack(track int) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.cb.OnTrack != nil {
			sub.cb.OnTrack(track)
		}
	}
	s.importer.bus.Publish(events.ImportTrackStarted{SessionID: s.id, Track: track})
}

func (s *Session) addWarning(message string) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	s.warnings = append(s.warnings, message)
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.cb.OnWarning != nil {
			sub.cb.OnWarning(message)
		}
	}
	s.importer.bus.Publish(events.ImportWarning{SessionID: s.id, Message: message})
}

func (s *Session) subscribe(cb Callbacks) func() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	s.nextSubscriber++
	id := s.nextSubscriber
	s.subscribers = append(s.subscribers, subscriber{id: id, cb: cb})
	progress, seen := s.progress, s.progressSeen
	warnings := slices.Clone(s.warnings)
	outcome := s.outcome
	s.mu.Unlock()

	if seen && cb.OnProgress != nil {
		cb.OnProgress(progress)
	}
	if cb.OnWarning != nil {
		for _, w := range warnings {
			cb.OnWarning(w)
		}
	}
	if outcome != nil && cb.OnComplete != nil {
		cb.OnComplete(*outcome)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscriber) bool { return sub.id == id })
	}
}

// complete discards scratch output, releases the destination and reports
// the outcome. It runs exactly once, on the worker goroutine.
func (s *Session) complete(o Outcome) {
	imp := s.importer
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if err := imp.assembler.Discard(s.raw); err != nil {
		o.CleanupErr = err
	}
	if err := s.claim.release(); err != nil {
		logging.WarnWithContext(s.logger, "destination lock not released", "rip_claim_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove stale files under the state directory's locks folder"),
		)
	}

	s.mu.Lock()
	o.Warnings = slices.Clone(s.warnings)
	s.mu.Unlock()
	o.StartedAt = s.startedAt
	o.FinishedAt = imp.now()
	s.logOutcome(o)

	var dataBytes int64
	tracks := 0
	if o.Bundle != nil {
		dataBytes = o.Bundle.DataSize
		tracks = len(o.Bundle.Tracks)
	}
	imp.metrics.ImportFinished(o.Status.String(), len(o.Warnings), o.FinishedAt.Sub(o.StartedAt), dataBytes)
	finished := events.ImportFinished{
		SessionID:       s.id,
		Device:          s.rc.SourceDevice,
		Destination:     s.rc.DestinationBundle,
		ErrorCorrection: s.rc.UseErrorCorrection,
		Status:          o.Status.String(),
		ErrorKind:       services.Kind(o.Err),
		Warnings:        o.Warnings,
		ExitCode:        o.ExitCode,
		Tracks:          tracks,
		DataBytes:       dataBytes,
		StartedAt:       o.StartedAt,
		FinishedAt:      o.FinishedAt,
	}
	if o.Err != nil {
		finished.Error = o.Err.Error()
	}
	if o.CleanupErr != nil {
		finished.CleanupError = o.CleanupErr.Error()
	}
	imp.bus.Publish(finished)

	s.deliverMu.Lock()
	s.mu.Lock()
	s.state = o.Status
	s.outcome = &o
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.cb.OnComplete != nil {
			sub.cb.OnComplete(o)
		}
	}
	s.deliverMu.Unlock()
	close(s.done)
}

func (s *Session) logOutcome(o Outcome) {
	duration := o.FinishedAt.Sub(o.StartedAt)
	switch o.Status {
	case StateSucceeded:
		s.logger.Info("import succeeded",
			logging.Int("tracks", len(o.Bundle.Tracks)),
			logging.Int64("data_bytes", o.Bundle.DataSize),
			logging.Int("warnings", len(o.Warnings)),
			logging.Duration("duration", duration),
		)
	case StateCancelled:
		s.logger.Info("import cancelled", logging.Duration("duration", duration))
	default:
		attrs := []logging.Attr{
			logging.String("error_kind", services.Kind(o.Err)),
			logging.Error(o.Err),
			logging.Int("exit_code", o.ExitCode),
			logging.Duration("duration", duration),
		}
		var fatal *cdrdao.FatalError
		if errors.As(o.Err, &fatal) {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, fatal.Hint()))
		}
		logging.ErrorWithContext(s.logger, "import failed", "rip_failed", attrs...)
	}
}
