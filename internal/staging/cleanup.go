package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cdmedia/internal/logging"
)

// WorkDirPrefix starts the name of every per-session cdrdao work directory
// inside the staging directory.
const WorkDirPrefix = "rip-"

// bundleStagingMarker appears in the hidden sibling directories a bundle is
// assembled in before it is renamed into place.
const bundleStagingMarker = ".staging-"

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// IsWorkDir reports whether name is a rip work directory.
func IsWorkDir(name string) bool {
	return strings.HasPrefix(name, WorkDirPrefix)
}

// IsBundleStagingDir reports whether name is an unpublished bundle directory.
func IsBundleStagingDir(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, bundleStagingMarker)
}

// CleanStale removes rip work directories older than maxAge. They are left
// behind only when a previous run crashed before discarding its output.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	return removeOlderThan(ctx, stagingDir, maxAge, IsWorkDir, "staging", logger)
}

// CleanAbandonedBundles removes unpublished bundle staging directories older
// than maxAge from libraryDir.
func CleanAbandonedBundles(ctx context.Context, libraryDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	return removeOlderThan(ctx, libraryDir, maxAge, IsBundleStagingDir, "library", logger)
}

func removeOlderThan(ctx context.Context, root string, maxAge time.Duration, match func(string) bool, kind string, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !match(entry.Name()) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale "+kind+" directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, kind+"_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check "+kind+" directory permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale "+kind+" directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, kind+"_cleanup"),
			)
		}
	}

	return result
}

// ListDirectories returns the rip work directories in the staging directory
// with their metadata.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !IsWorkDir(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		size, _ := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a staging directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if d.Type().IsRegular() {
			if info, infoErr := d.Info(); infoErr == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}
