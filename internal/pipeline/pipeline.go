package pipeline

import (
	"context"
	"log/slog"

	"github.com/thlarsen/sitemirror/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence on one document, each seeing the content
// left by the previous step.
type Step interface {
	// Do executes the step on doc. Per-asset failures are recorded in the
	// report and do not produce an error; an error means the step could not
	// finish, for example because ctx was cancelled.
	Do(ctx context.Context, doc *model.Document, report *model.RunReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// of a document after one of them fails. The first error is still returned.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps on doc in sequence. Cancellation is checked
// before each step; a step is expected to honor ctx itself while it runs.
//
// A cancelled context always stops the pipeline. Other step errors stop it
// unless continueOnError is set, in which case the first error is returned
// after all steps have run.
func (p *Pipeline) Execute(ctx context.Context, doc *model.Document, report *model.RunReport) error {
	var firstErr error

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"page", doc.RelPath,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"page", doc.RelPath,
		)

		if err := step.Do(ctx, doc, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"page", doc.RelPath,
				"error", err,
			)

			if ctx.Err() != nil || !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"page", doc.RelPath,
		)
	}

	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
