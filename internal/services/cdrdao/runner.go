package cdrdao

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"cdmedia/internal/logging"
	"cdmedia/internal/services"
)

const defaultStopGrace = 10 * time.Second

// Process is a running tool invocation.
type Process interface {
	// ReadLine returns the next line of merged stdout/stderr output in the
	// order the tool produced it, or io.EOF once the output is exhausted.
	ReadLine() (string, error)
	// Cancel asks the tool to stop. Repeated calls have no further effect.
	Cancel()
	// Wait blocks until the tool has exited and returns its exit code.
	Wait() (int, error)
}

// Runner starts tool processes.
type Runner interface {
	Start(ctx context.Context, binary string, args []string) (Process, error)
}

// LaunchError reports that the tool could not be started at all.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, services.ErrLaunch) classify launch failures.
func (e *LaunchError) Is(target error) bool { return target == services.ErrLaunch }

// ExecRunner runs tools as child processes in their own process group.
type ExecRunner struct {
	grace  time.Duration
	logger *slog.Logger
}

// NewExecRunner constructs a runner. Cancelled processes receive SIGINT and
// are killed if they are still alive after grace.
func NewExecRunner(grace time.Duration, logger *slog.Logger) *ExecRunner {
	if grace <= 0 {
		grace = defaultStopGrace
	}
	return &ExecRunner{grace: grace, logger: logging.NewComponentLogger(logger, "cdrdao")}
}

// Start launches binary. Cancelling ctx is equivalent to calling Cancel on
// the returned process.
func (r *ExecRunner) Start(ctx context.Context, binary string, args []string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LaunchError{Binary: binary, Err: err}
	}
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Binary: binary, Err: fmt.Errorf("output pipe: %w", err)}
	}

	// A single pipe for both streams keeps their relative order intact.
	cmd := exec.Command(binary, args...) //nolint:gosec
	cmd.Stdout = writer
	cmd.Stderr = writer
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, &LaunchError{Binary: binary, Err: err}
	}
	_ = writer.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanOutputLines)

	p := &execProcess{
		cmd:     cmd,
		output:  reader,
		scanner: scanner,
		grace:   r.grace,
		done:    make(chan struct{}),
		logger:  r.logger.With(logging.Int("pid", cmd.Process.Pid)),
	}
	p.stopWatch = context.AfterFunc(ctx, p.Cancel)
	go p.reap()
	p.logger.Debug("cdrdao started", logging.String("binary", binary), logging.Any("args", args))
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	output  io.Closer
	scanner *bufio.Scanner
	grace   time.Duration
	logger  *slog.Logger

	stopWatch  func() bool
	cancelOnce sync.Once
	closeOnce  sync.Once

	done     chan struct{}
	exitCode int
	waitErr  error
}

func (p *execProcess) ReadLine() (string, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	err := p.scanner.Err()
	p.closeOutput()
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return "", fmt.Errorf("read tool output: %w", err)
	}
	return "", io.EOF
}

func (p *execProcess) Cancel() {
	p.cancelOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		pgid := -p.cmd.Process.Pid
		p.logger.Info("stopping cdrdao", logging.Duration("grace", p.grace))
		if err := unix.Kill(pgid, unix.SIGINT); err != nil && !errors.Is(err, unix.ESRCH) {
			p.logger.Debug("interrupt failed", logging.Error(err))
		}
		go func() {
			timer := time.NewTimer(p.grace)
			defer timer.Stop()
			select {
			case <-p.done:
			case <-timer.C:
				logging.WarnWithContext(p.logger, "cdrdao ignored interrupt; killing", "cdrdao_kill",
					logging.String(logging.FieldErrorHint, "check the drive for a stuck read"),
					logging.String(logging.FieldImpact, "partial output is discarded"),
				)
				_ = unix.Kill(pgid, unix.SIGKILL)
			}
		}()
	})
}

func (p *execProcess) Wait() (int, error) {
	<-p.done
	p.closeOutput()
	return p.exitCode, p.waitErr
}

func (p *execProcess) reap() {
	err := p.cmd.Wait()
	p.exitCode, p.waitErr = exitCodeFromError(err)
	if p.stopWatch != nil {
		p.stopWatch()
	}
	close(p.done)
}

func (p *execProcess) closeOutput() {
	p.closeOnce.Do(func() {
		_ = p.output.Close()
	})
}

// exitCodeFromError maps a Wait error to a shell-style exit code: signals are
// reported as 128+signal.
func exitCodeFromError(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// scanOutputLines splits on \n, \r\n, and bare \r. cdrdao redraws progress
// in place with carriage returns.
func scanOutputLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// Need one more byte to tell \r from \r\n.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
