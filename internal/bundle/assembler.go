package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cdmedia/internal/fileutil"
	"cdmedia/internal/logging"
	"cdmedia/internal/services"
	"cdmedia/internal/services/cdrdao"
)

// ErrDestinationConflict reports that something already exists at the
// destination path.
var ErrDestinationConflict = errors.New("destination already exists")

// RawOutput locates the files cdrdao wrote for one rip.
type RawOutput struct {
	// WorkDir is the session's private scratch directory; Discard removes it.
	WorkDir  string
	DataFile string
	TOCFile  string
}

// Assembler turns raw rip output into published bundles.
type Assembler struct {
	layout Layout
	logger *slog.Logger
	verify func(dir string, layout Layout) (*Bundle, error)
}

// NewAssembler constructs an assembler writing bundles in layout.
func NewAssembler(layout Layout, logger *slog.Logger) *Assembler {
	if layout.DataFile == "" {
		layout.DataFile = DefaultLayout.DataFile
	}
	if layout.SheetFile == "" {
		layout.SheetFile = DefaultLayout.SheetFile
	}
	return &Assembler{layout: layout, logger: logging.NewComponentLogger(logger, "bundle"), verify: Verify}
}

// Finalize moves the raw data into a staging directory next to dest, writes
// the cue sheet, verifies the result, and renames the staging directory to
// dest. On failure nothing is left at dest, including when the published
// copy fails its final check.
func (a *Assembler) Finalize(raw RawOutput, dest string) (*Bundle, error) {
	fail := func(message string, err error) (*Bundle, error) {
		return nil, services.Wrap(services.ErrAssembly, "bundle", "finalize", message, err)
	}
	if err := checkDestinationFree(dest); err != nil {
		return fail(dest, err)
	}

	toc, err := cdrdao.ReadTOCFile(raw.TOCFile)
	if err != nil {
		return fail("read toc", err)
	}
	for _, t := range toc.Tracks {
		if filepath.Base(t.File) != filepath.Base(raw.DataFile) {
			return fail("read toc", fmt.Errorf("track %d references unexpected data file %q", t.Number, t.File))
		}
	}
	info, err := os.Stat(raw.DataFile)
	if err != nil {
		return fail("stat data file", err)
	}
	sheet, err := BuildCueSheet(toc, a.layout.DataFile, info.Size())
	if err != nil {
		return fail("build cue sheet", err)
	}

	parent := filepath.Dir(dest)
	stage, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+".staging-")
	if err != nil {
		return fail("create staging directory", err)
	}
	published := false
	defer func() {
		if !published {
			if err := os.RemoveAll(stage); err != nil {
				logging.WarnWithContext(a.logger, "staging directory not removed", "bundle_staging_cleanup_failed",
					logging.String("path", stage),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "remove the directory manually"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
		}
	}()
	if err := os.Chmod(stage, 0o755); err != nil {
		return fail("prepare staging directory", err)
	}

	if err := fileutil.MoveFile(raw.DataFile, filepath.Join(stage, a.layout.DataFile)); err != nil {
		return fail("move data file", err)
	}
	if err := fileutil.WriteFileSync(filepath.Join(stage, a.layout.SheetFile), sheet.Render(), 0o644); err != nil {
		return fail("write cue sheet", err)
	}
	if err := fileutil.SyncDir(stage); err != nil {
		return fail("sync staging directory", err)
	}
	if _, err := a.verify(stage, a.layout); err != nil {
		return fail("verify staged bundle", err)
	}

	if err := checkDestinationFree(dest); err != nil {
		return fail(dest, err)
	}
	if err := os.Rename(stage, dest); err != nil {
		return fail("publish bundle", err)
	}
	published = true
	if err := fileutil.SyncDir(parent); err != nil {
		a.logger.Debug("parent directory sync failed", logging.String("path", parent), logging.Error(err))
	}

	bundle, err := a.verify(dest, a.layout)
	if err != nil {
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			logging.WarnWithContext(a.logger, "unverified bundle not removed", "bundle_unpublish_failed",
				logging.String(logging.FieldDestination, dest),
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "delete the bundle directory before importing again"),
				logging.String(logging.FieldImpact, "an unusable bundle remains in the library"),
			)
		}
		return fail("verify published bundle", err)
	}
	a.logger.Info("bundle published",
		logging.String(logging.FieldDestination, dest),
		logging.Int("tracks", len(bundle.Tracks)),
		logging.Int64("data_bytes", bundle.DataSize),
	)
	return bundle, nil
}

// Discard removes the session's scratch directory. Failures are logged and
// returned marked with services.ErrCleanup; callers treat them as advisory.
func (a *Assembler) Discard(raw RawOutput) error {
	if raw.WorkDir == "" {
		return nil
	}
	if err := os.RemoveAll(raw.WorkDir); err != nil {
		logging.WarnWithContext(a.logger, "partial rip output not removed", "bundle_discard_failed",
			logging.String("path", raw.WorkDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory manually or run cdmedia cleanup"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return services.Wrap(services.ErrCleanup, "bundle", "discard", raw.WorkDir, err)
	}
	return nil
}

func checkDestinationFree(dest string) error {
	_, err := os.Lstat(dest)
	switch {
	case err == nil:
		return ErrDestinationConflict
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("stat destination: %w", err)
	}
}
