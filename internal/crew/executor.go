package crew

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Stage is one step of a run.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *State) error
}

// State carries outputs between stages of one run.
type State struct {
	Inputs  Inputs
	Outputs map[string]string
	Files   map[string]string
}

// NewState creates an empty state for in.
func NewState(in Inputs) *State {
	return &State{
		Inputs:  in,
		Outputs: make(map[string]string),
		Files:   make(map[string]string),
	}
}

// Executor runs stages sequentially in order.
type Executor struct {
	stages []Stage
	logger *slog.Logger
}

// StageConfig is the configuration for a single stage.
type StageConfig struct {
	Order int
	Stage Stage
}

// NewExecutor creates an executor. Stages run by ascending Order; equal
// orders keep their given sequence.
func NewExecutor(logger *slog.Logger, stages []StageConfig) *Executor {
	sorted := make([]StageConfig, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	e := &Executor{
		stages: make([]Stage, len(sorted)),
		logger: logger,
	}
	for i, s := range sorted {
		e.stages[i] = s.Stage
	}
	return e
}

// Names returns the stage names in execution order.
func (e *Executor) Names() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes every stage. The first failure stops the run and is
// returned as a *StageError.
func (e *Executor) Run(ctx context.Context, state *State) error {
	for _, stage := range e.stages {
		if err := ctx.Err(); err != nil {
			return &StageError{StageName: stage.Name(), Err: err}
		}

		start := time.Now()
		e.logger.Info("stage started", slog.String("stage", stage.Name()))

		if err := stage.Run(ctx, state); err != nil {
			e.logger.Error("stage failed",
				slog.String("stage", stage.Name()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("error", err.Error()))
			return &StageError{StageName: stage.Name(), Err: err}
		}

		e.logger.Info("stage completed",
			slog.String("stage", stage.Name()),
			slog.Duration("elapsed", time.Since(start)))
	}
	return nil
}

// StageError is returned when a stage fails.
type StageError struct {
	StageName string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("crew stage %s error: %v", e.StageName, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError returns true if the error is a stage failure.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
