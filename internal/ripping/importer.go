package ripping

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cdmedia/internal/bundle"
	"cdmedia/internal/config"
	"cdmedia/internal/events"
	"cdmedia/internal/logging"
	"cdmedia/internal/metrics"
	"cdmedia/internal/services"
	"cdmedia/internal/services/cdrdao"
	"cdmedia/internal/staging"
)

// tocFileName is the TOC cdrdao writes next to the raw data in a work dir.
const tocFileName = "tracks.toc"

// Importer starts and tracks disc import sessions.
type Importer struct {
	cfg       *config.Config
	logger    *slog.Logger
	runner    cdrdao.Runner
	assembler *bundle.Assembler
	bus       *events.Bus
	metrics   *metrics.Collector
	claims    *claimRegistry
	now       func() time.Time
}

// Option customises an Importer.
type Option func(*Importer)

// WithRunner replaces the cdrdao process runner.
func WithRunner(r cdrdao.Runner) Option {
	return func(i *Importer) {
		if r != nil {
			i.runner = r
		}
	}
}

// WithBus publishes session lifecycle events on bus.
func WithBus(bus *events.Bus) Option {
	return func(i *Importer) { i.bus = bus }
}

// WithMetrics records import metrics in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(i *Importer) { i.metrics = c }
}

// NewImporter constructs an importer for cfg.
func NewImporter(cfg *config.Config, logger *slog.Logger, opts ...Option) *Importer {
	logger = logging.NewComponentLogger(logger, "ripping")
	i := &Importer{
		cfg:    cfg,
		logger: logger,
		runner: cdrdao.NewExecRunner(cfg.StopGrace(), logger),
		assembler: bundle.NewAssembler(bundle.Layout{
			DataFile:  cfg.Bundle.DataFile,
			SheetFile: cfg.Bundle.SheetFile,
		}, logger),
		claims: newClaimRegistry(cfg.LockDir()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// BeginImport validates rc, claims its destination and starts reading the
// disc on a new worker goroutine. Configuration problems, including a
// destination claimed by another live session, are returned synchronously
// marked services.ErrConfiguration and nothing is launched. Cancelling ctx
// cancels the session.
func (i *Importer) BeginImport(ctx context.Context, rc RipConfiguration) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	configErr := func(message string, err error) (*Session, error) {
		return nil, services.Wrap(services.ErrConfiguration, "ripping", "begin import", message, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrCancelled, "ripping", "begin import", "", err)
	}

	rc, err := rc.normalized()
	if err != nil {
		return configErr("invalid destination", err)
	}
	if err := rc.validate(); err != nil {
		return configErr("invalid rip configuration", err)
	}
	claim, err := i.claims.acquire(rc.DestinationBundle)
	if err != nil {
		return configErr(rc.DestinationBundle, err)
	}

	if err := os.MkdirAll(i.cfg.Paths.StagingDir, 0o755); err != nil {
		_ = claim.release()
		return configErr("create staging directory; set paths.staging_dir to a writable location", err)
	}
	id := uuid.NewString()
	workDir, err := os.MkdirTemp(i.cfg.Paths.StagingDir, staging.WorkDirPrefix+id[:8]+"-")
	if err != nil {
		_ = claim.release()
		return configErr("create work directory", err)
	}

	sessionCtx := services.WithStage(services.WithSessionID(context.WithoutCancel(ctx), id), "ripping")
	s := &Session{
		id:       id,
		rc:       rc,
		importer: i,
		claim:    claim,
		raw: bundle.RawOutput{
			WorkDir:  workDir,
			DataFile: filepath.Join(workDir, i.cfg.Bundle.DataFile),
			TOCFile:  filepath.Join(workDir, tocFileName),
		},
		logger: logging.WithContext(sessionCtx, i.logger).With(
			logging.String(logging.FieldDevice, rc.SourceDevice),
			logging.String(logging.FieldDestination, rc.DestinationBundle),
		),
		startedAt: i.now(),
		state:     StateStarting,
		done:      make(chan struct{}),
		sampler:   logging.NewProgressSampler(5),
	}

	s.logger.Info("import started",
		logging.Bool("error_correction", rc.UseErrorCorrection),
		logging.String("work_dir", workDir),
	)
	i.metrics.ImportStarted()
	i.bus.Publish(events.ImportStarted{
		SessionID:       id,
		Device:          rc.SourceDevice,
		Destination:     rc.DestinationBundle,
		ErrorCorrection: rc.UseErrorCorrection,
		StartedAt:       s.startedAt,
	})

	s.stopWatch = context.AfterFunc(ctx, s.requestCancel)
	go s.run(sessionCtx)
	return s, nil
}

// Subscribe registers callbacks on session. A subscriber that arrives late
// first receives the current progress, the warnings so far and the outcome
// if the session has already finished. The returned function unsubscribes.
func (i *Importer) Subscribe(session *Session, cb Callbacks) func() {
	if session == nil {
		return func() {}
	}
	return session.subscribe(cb)
}

// RequestCancel asks session to stop. It returns immediately; the session
// reports Cancelled once cdrdao has exited. Repeated calls, and calls after
// the reader finished, have no effect.
func (i *Importer) RequestCancel(session *Session) {
	if session == nil {
		return
	}
	session.requestCancel()
}
