package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cdmedia/internal/config"
	"cdmedia/internal/deps"
	"cdmedia/internal/disc"
	"cdmedia/internal/events"
	"cdmedia/internal/history"
	"cdmedia/internal/logging"
	"cdmedia/internal/metrics"
	"cdmedia/internal/preflight"
	"cdmedia/internal/ripping"
	"cdmedia/internal/services"
)

type importOptions struct {
	device            string
	errorCorrection   bool
	noErrorCorrection bool
	noWait            bool
	eject             bool
	quiet             bool
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [DESTINATION]",
		Short: "Read the disc in the drive into a .cdmedia bundle",
		Long: `Read the disc in the configured drive with cdrdao and publish it as a
.cdmedia bundle (raw data file plus cue sheet).

DESTINATION is the bundle directory to create. When omitted, the bundle is
named from the disc's volume label and placed in paths.library_dir.

Press Ctrl-C to cancel; partial output is removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.errorCorrection && opts.noErrorCorrection {
				return fmt.Errorf("--error-correction and --no-error-correction are mutually exclusive")
			}
			var dest string
			if len(args) == 1 {
				dest = args[0]
			}
			return runImport(cmd, ctx, opts, dest)
		},
	}

	cmd.Flags().StringVarP(&opts.device, "device", "d", "", "Optical drive to read (default cdrdao.device)")
	cmd.Flags().BoolVar(&opts.errorCorrection, "error-correction", false, "Read with full error correction")
	cmd.Flags().BoolVar(&opts.noErrorCorrection, "no-error-correction", false, "Read without error correction (faster)")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Do not wait for a disc to be inserted")
	cmd.Flags().BoolVar(&opts.eject, "eject", false, "Eject the disc after a successful import")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not show progress")
	return cmd
}

func runImport(cmd *cobra.Command, ctx *commandContext, opts importOptions, dest string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	runCtx := cmd.Context()

	if missing := deps.MissingRequired(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "import", "check dependencies",
			fmt.Sprintf("%s: %s (install cdrdao or set cdrdao.binary)", missing[0].Name, missing[0].Detail), nil)
	}
	if failed, ok := preflight.FirstFailure(preflight.RunAll(cfg)); ok {
		return services.Wrap(services.ErrConfiguration, "import", "preflight", failed.Name+": "+failed.Detail, nil)
	}

	device := strings.TrimSpace(opts.device)
	if device == "" {
		device = cfg.Cdrdao.Device
	}

	if !opts.noWait {
		if _, err := disc.WaitForMedia(runCtx, device, cfg.DiscWaitTimeout(), logger); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return services.Wrap(services.ErrConfiguration, "import", "wait for disc", "", err)
		}
	}

	if strings.TrimSpace(dest) == "" {
		dest, err = defaultDestination(runCtx, cfg, device)
		if err != nil {
			return err
		}
	}

	bus := events.New()
	collector := metrics.New()

	var recorder *history.Recorder
	store, err := ctx.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "import history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir or disable [history]"),
			logging.String(logging.FieldImpact, "this import will not appear in cdmedia history"),
		)
	} else if store != nil {
		defer store.Close()
		recorder = history.NewRecorder(store, logger)
		defer recorder.Attach(bus)()
	}

	errorCorrection := cfg.Cdrdao.ErrorCorrection
	switch {
	case opts.errorCorrection:
		errorCorrection = true
	case opts.noErrorCorrection:
		errorCorrection = false
	}

	importer := ripping.NewImporter(cfg, logger, ripping.WithBus(bus), ripping.WithMetrics(collector))
	session, err := importer.BeginImport(runCtx, ripping.RipConfiguration{
		SourceDevice:       device,
		DestinationBundle:  dest,
		UseErrorCorrection: errorCorrection,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Importing %s into %s (%s mode)\n", device, session.Configuration().DestinationBundle, formatMode(errorCorrection))

	var view *progressView
	if !opts.quiet {
		view = newProgressView(errOut, shouldColorize(errOut))
		unsubscribe := importer.Subscribe(session, ripping.Callbacks{
			OnProgress: view.OnProgress,
			OnTrack:    view.OnTrack,
			OnWarning:  view.OnWarning,
		})
		defer unsubscribe()
	}

	outcome, importErr := session.Wait(context.Background())
	if view != nil {
		view.Finish()
	}

	if recorder != nil {
		waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := recorder.Wait(waitCtx, session.ID()); err != nil {
			logger.Debug("history write still pending", logging.Error(err))
		}
		cancel()
	}

	if path := strings.TrimSpace(cfg.Metrics.TextfilePath); path != "" {
		if err := collector.WriteTextfile(path); err != nil {
			logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.textfile_path"),
			)
		}
	}

	printOutcome(out, outcome, shouldColorize(out))

	if outcome.Status == ripping.StateSucceeded && (opts.eject || cfg.Disc.EjectOnSuccess) {
		ejectDisc(runCtx, device, logger)
	}

	return importErr
}

// defaultDestination names a bundle in the library directory after the disc
// label, adding a numeric suffix when the name is taken.
func defaultDestination(ctx context.Context, cfg *config.Config, device string) (string, error) {
	library := strings.TrimSpace(cfg.Paths.LibraryDir)
	if library == "" {
		return "", services.Wrap(services.ErrConfiguration, "import", "choose destination",
			"pass a destination or set paths.library_dir", nil)
	}
	if err := os.MkdirAll(library, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "import", "create library directory", "", err)
	}

	label, _ := disc.ReadLabel(ctx, device, 10*time.Second)
	name := disc.BundleName(label, device, time.Now())
	candidate := filepath.Join(library, name+cfg.Bundle.Extension)
	for i := 2; ; i++ {
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		candidate = filepath.Join(library, fmt.Sprintf("%s (%d)%s", name, i, cfg.Bundle.Extension))
	}
}

func ejectDisc(ctx context.Context, device string, logger *slog.Logger) {
	ejectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := disc.NewEjector().Eject(ejectCtx, device); err != nil {
		logging.WarnWithContext(logger, "disc not ejected", "eject_failed",
			logging.String(logging.FieldDevice, device),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "eject the disc manually"),
		)
	}
}
