package exec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/metrics"
	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
)

// NoOutputSentinel lets callers distinguish "ran, produced nothing" from
// "ran, produced output".
const NoOutputSentinel = "Code executed successfully (no output)"

// Dispatcher routes execution requests to per-language strategies and
// enforces the wall-clock budget. Every call is stateless and independent;
// the only shared state is the immutable registry.
type Dispatcher struct {
	registry     *Registry
	defaultLimit time.Duration
	maxLimit     time.Duration
	log          *zap.Logger
}

func NewDispatcher(registry *Registry, defaultLimit, maxLimit time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		log:          log,
	}
}

// DefaultRegistry wires the python sandbox (when reachable) and the
// declared-unsupported placeholder for every other supported language.
func DefaultRegistry(sandboxImage string, limits SandboxLimits, log *zap.Logger) *Registry {
	registry := NewRegistry()
	for _, lang := range models.SupportedLanguages() {
		registry.Register(lang, NewUnsupportedStrategy(lang))
	}
	python, err := NewPythonStrategy(sandboxImage, limits)
	if err != nil {
		log.Warn("docker unavailable, python falls back to the placeholder strategy", zap.Error(err))
		return registry
	}
	registry.Register(models.LangPython, python)
	return registry
}

// Languages lists the registered languages with their starter templates.
func (d *Dispatcher) Languages() []models.Language {
	return d.registry.Languages()
}

// Execute dispatches by language tag and races the strategy against the
// clamped time limit. On expiry the execution is abandoned, partial output is
// discarded, and status timeout is returned.
func (d *Dispatcher) Execute(ctx context.Context, req models.ExecutionRequest) models.ExecutionResult {
	start := time.Now()
	result := d.execute(ctx, req, start)
	metrics.ObserveExecution(string(req.Language), string(result.Status), time.Since(start))
	return result
}

func (d *Dispatcher) execute(ctx context.Context, req models.ExecutionRequest, start time.Time) models.ExecutionResult {
	if req.Code == "" || req.Language == "" {
		return models.ExecutionResult{
			Error:  "code and language are required",
			Status: models.ExecError,
		}
	}
	if !req.Language.Valid() {
		return models.ExecutionResult{
			Error:           fmt.Sprintf("Language %s is not supported", req.Language),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Status:          models.ExecError,
		}
	}

	strategy, err := d.registry.Get(req.Language)
	if err != nil {
		return models.ExecutionResult{
			Error:           fmt.Sprintf("Language %s is not supported", req.Language),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Status:          models.ExecError,
		}
	}

	limit := d.clampLimit(req.TimeLimitMs)
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type outcome struct {
		out Output
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, runErr := strategy.Run(ctx, req.Code, req.Input)
		done <- outcome{out: out, err: runErr}
	}()

	select {
	case <-ctx.Done():
		// Partial output is discarded; the strategy's deferred cleanup
		// releases sandbox resources once its context observes the cancel.
		return d.interrupted(ctx, start, limit)
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil {
				return d.interrupted(ctx, start, limit)
			}
			d.log.Error("sandbox fault", zap.String("language", string(req.Language)), zap.Error(o.err))
			return models.ExecutionResult{
				Error:           o.err.Error(),
				ExecutionTimeMs: time.Since(start).Milliseconds(),
				Status:          models.ExecError,
			}
		}
		return normalize(o.out, start)
	}
}

// interrupted maps a context interruption to its result: the enforced limit
// expiring is a timeout, anything else (the caller hung up) is a plain error
// and reports the real elapsed time.
func (d *Dispatcher) interrupted(ctx context.Context, start time.Time, limit time.Duration) models.ExecutionResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.ExecutionResult{
			Error:           "Execution timed out",
			ExecutionTimeMs: limit.Milliseconds(),
			Status:          models.ExecTimeout,
		}
	}
	return models.ExecutionResult{
		Error:           "Execution cancelled",
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Status:          models.ExecError,
	}
}

func (d *Dispatcher) clampLimit(requestedMs int) time.Duration {
	if requestedMs <= 0 {
		return d.defaultLimit
	}
	limit := time.Duration(requestedMs) * time.Millisecond
	if limit > d.maxLimit {
		return d.maxLimit
	}
	return limit
}

func normalize(out Output, start time.Time) models.ExecutionResult {
	if out.Simulated {
		return models.ExecutionResult{
			Output: out.Stdout,
			Status: models.ExecSuccess,
		}
	}

	elapsed := time.Since(start).Milliseconds()
	if out.ExitCode != 0 || strings.TrimSpace(out.Stderr) != "" {
		errText := strings.TrimSpace(out.Stderr)
		if errText == "" {
			errText = fmt.Sprintf("process exited with code %d", out.ExitCode)
		}
		return models.ExecutionResult{
			Output:          out.Stdout,
			Error:           errText,
			ExecutionTimeMs: elapsed,
			Status:          models.ExecError,
		}
	}

	output := out.Stdout
	if output == "" {
		output = NoOutputSentinel
	}
	return models.ExecutionResult{
		Output:          output,
		ExecutionTimeMs: elapsed,
		Status:          models.ExecSuccess,
	}
}
