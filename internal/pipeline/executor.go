package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"ledaps/internal/logging"
	"ledaps/internal/services"
	"ledaps/internal/toolexec"
)

var (
	// ErrDescriptorMissing reports that the metadata descriptor does not exist.
	ErrDescriptorMissing = fmt.Errorf("%w: metadata descriptor missing", services.ErrNotFound)
	// ErrNotWritable reports that the descriptor directory cannot be written.
	ErrNotWritable = fmt.Errorf("%w: descriptor directory not writable", services.ErrValidation)
	// ErrStageFailed marks a stage that exited non-zero.
	ErrStageFailed = fmt.Errorf("%w: stage failed", services.ErrExternalTool)
)

// StageError identifies the stage that stopped a run.
type StageError struct {
	Stage    string
	ExitCode int
	Signal   string
	Err      error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}
	if e.Signal != "" {
		return fmt.Sprintf("stage %s killed by signal %s", e.Stage, e.Signal)
	}
	return fmt.Sprintf("stage %s exited with status %d", e.Stage, e.ExitCode)
}

// Unwrap exposes ErrStageFailed and the underlying cause.
func (e *StageError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrStageFailed, e.Err}
	}
	return []error{ErrStageFailed}
}

// Run describes one pipeline invocation.
type Run struct {
	// Descriptor is the path to <id>.xml.
	Descriptor string
	// ProcessSR includes the surface reflectance stages.
	ProcessSR bool
	// LogFile, when set, receives a copy of every stage's output.
	LogFile string
}

// Option configures an Executor.
type Option func(*Executor)

// WithExecutor injects a custom command executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(e *Executor) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithBinDir resolves stage binaries inside dir instead of PATH.
func WithBinDir(dir string) Option {
	return func(e *Executor) {
		e.binDir = strings.TrimSpace(dir)
	}
}

// Executor runs pipeline stages.
type Executor struct {
	exec   toolexec.Executor
	binDir string
	logger *slog.Logger
}

// NewExecutor constructs an Executor.
func NewExecutor(logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		exec:   toolexec.CommandExecutor{},
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the stages for run.Descriptor in order. It returns
// ErrDescriptorMissing or ErrNotWritable before any stage runs, and a
// *StageError for the first stage that fails. The working directory is the
// descriptor's directory while stages run and is restored before Run returns.
func (e *Executor) Run(ctx context.Context, run Run) error {
	descriptor := strings.TrimSpace(run.Descriptor)
	if descriptor == "" {
		return fmt.Errorf("%w: no descriptor given", ErrDescriptorMissing)
	}
	info, statErr := os.Stat(descriptor)
	if statErr != nil || !info.Mode().IsRegular() {
		if statErr == nil || errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDescriptorMissing, descriptor)
		}
		return fmt.Errorf("%w: %s: %w", ErrDescriptorMissing, descriptor, statErr)
	}

	workDir, absErr := filepath.Abs(filepath.Dir(descriptor))
	if absErr != nil {
		return fmt.Errorf("resolve descriptor directory: %w", absErr)
	}
	if accessErr := unix.Access(workDir, unix.W_OK); accessErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, workDir, accessErr)
	}

	id := DescriptorID(descriptor)
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger).With(
		logging.String("descriptor", id),
		logging.String("work_dir", workDir),
	)

	var logFile io.Writer = io.Discard
	if path := strings.TrimSpace(run.LogFile); path != "" {
		if !filepath.IsAbs(path) {
			if abs, absErr := filepath.Abs(path); absErr == nil {
				path = abs
			}
		}
		file, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if openErr != nil {
			return services.Wrap(services.ErrConfiguration, "pipeline", "open log file", path, openErr)
		}
		defer file.Close()
		logFile = file
	}

	return withWorkDir(workDir, func() error {
		return e.runStages(ctx, logger, BuildStages(id, run.ProcessSR, e.binDir), logFile)
	})
}

func (e *Executor) runStages(ctx context.Context, logger *slog.Logger, stages []Stage, logFile io.Writer) error {
	logger.Info("pipeline started",
		logging.Int("stages", len(stages)),
		logging.String(logging.FieldEventType, "pipeline_start"),
	)
	for _, stage := range stages {
		stageCtx := services.WithStage(ctx, stage.Name)
		stageLogger := logging.WithContext(stageCtx, logger)
		started := time.Now()
		stageLogger.Info("stage started",
			logging.String("command", stage.Command()),
			logging.String(logging.FieldEventType, "stage_start"),
		)
		fmt.Fprintf(logFile, "==> %s\n", stage.Command())

		result, err := e.exec.Run(stageCtx, stage.Binary, stage.Args)
		if len(result.Output) > 0 {
			_, _ = logFile.Write(result.Output)
		}
		if err == nil && !result.Success() {
			stageErr := &StageError{Stage: stage.Name, ExitCode: result.ExitCode, Signal: result.Signal}
			fmt.Fprintf(logFile, "error running %s: %v\n", stage.Name, stageErr)
			logging.ErrorWithContext(stageLogger, "stage failed", "stage_failed",
				logging.Int("exit_code", result.ExitCode),
				logging.String("signal", result.Signal),
				logging.String("output", tail(result.Output)),
				logging.String(logging.FieldErrorHint, "inspect the stage output in the log file"),
			)
			return stageErr
		}
		if err != nil {
			fmt.Fprintf(logFile, "error running %s: %v\n", stage.Name, err)
			logging.ErrorWithContext(stageLogger, "stage could not run", "stage_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the LEDAPS binaries are installed (ledaps deps)"),
			)
			return &StageError{Stage: stage.Name, ExitCode: -1, Err: err}
		}
		stageLogger.Info("stage completed",
			logging.Duration("duration", time.Since(started)),
			logging.String(logging.FieldEventType, "stage_complete"),
		)
	}
	logger.Info("pipeline completed", logging.String(logging.FieldEventType, "pipeline_complete"))
	return nil
}

// withWorkDir runs fn with the process working directory set to dir and
// restores the previous directory on every return path, including panics.
func withWorkDir(dir string, fn func() error) (err error) {
	previous, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("read working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, dir, err)
	}
	defer func() {
		if restoreErr := os.Chdir(previous); restoreErr != nil && err == nil {
			err = fmt.Errorf("restore working directory: %w", restoreErr)
		}
	}()
	return fn()
}

func tail(output []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(output))
	if len(text) > limit {
		return text[len(text)-limit:]
	}
	return text
}
