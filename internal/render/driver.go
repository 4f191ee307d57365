// Package render drives a compiled plan against the transcoding engine.
// It owns the export lifecycle: staging inputs, running steps in plan
// order, reading the output, and guaranteeing that every staged artifact
// is released on every exit path.
package render

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jmadderra/stillsplice/internal/engine"
	"github.com/jmadderra/stillsplice/internal/plan"
)

// Driver executes render plans. The engine handle is a single stateful
// resource owned by the caller; the driver issues one command at a time
// against it and never re-acquires mid-export. One export per driver call;
// concurrent exports need independent engines.
type Driver struct {
	logger zerolog.Logger
	eng    engine.Engine
}

// NewDriver wraps an engine handle.
func NewDriver(logger zerolog.Logger, eng engine.Engine) *Driver {
	return &Driver{
		logger: logger.With().Str("component", "driver").Logger(),
		eng:    eng,
	}
}

// Execute runs a plan end to end and returns the final encoded output.
//
// Steps run in plan order, exactly once each, with no retry: a failed step
// aborts the export, because a partially rendered EDL has no meaning. The
// engine call boundary is the only cancellation point; a cancellation
// takes effect before the next call, and cleanup still runs. The first
// fatal error comes back annotated with its stage; cleanup errors are
// logged, never returned.
func (d *Driver) Execute(ctx context.Context, p *plan.Plan, source []byte, sink ProgressSink) ([]byte, error) {
	tracker := NewTracker(sink)
	ec := newExecutionContext(d.logger, d.eng)
	defer ec.releaseAll()

	tracker.Report(StageInit, 0, "initializing export")
	if p == nil || len(p.Steps) == 0 {
		return nil, failAt(StageInit, fmt.Errorf("empty render plan"))
	}
	if err := ctx.Err(); err != nil {
		return nil, failAt(StageInit, err)
	}
	d.logger.Info().
		Str("strategy", string(p.Strategy)).
		Int("steps", len(p.Steps)).
		Int("inputs", len(p.Inputs)).
		Msg("starting export")
	tracker.Report(StageInit, 1, "engine ready")

	if err := d.eng.Stage(p.SourceName, source); err != nil {
		return nil, failAt(StageInput, fmt.Errorf("stage %s: %w", p.SourceName, err))
	}
	ec.register(p.SourceName)
	tracker.Report(StageInput, 1, "source media staged")

	for i, in := range p.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, failAt(StageImages, err)
		}
		if err := d.eng.Stage(in.Name, in.Data); err != nil {
			return nil, failAt(StageImages, fmt.Errorf("stage %s: %w", in.Name, err))
		}
		ec.register(in.Name)
		tracker.Report(StageImages, float64(i+1)/float64(len(p.Inputs)), "segment inputs staged")
	}
	tracker.Report(StageImages, 1, "segment inputs staged")

	total := p.TotalWeight()
	var done float64
	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return nil, failAt(StageExecute, err)
		}

		// Outputs are registered before the step runs so a partial write
		// from a failed step is still released.
		for _, out := range step.Produces {
			ec.register(out)
		}

		d.logger.Info().Str("step", step.Name).Msg("running plan step")
		doneSoFar, weight := done, step.Weight
		err := d.eng.Run(ctx, step.Args, step.Span, func(pr engine.Progress) {
			if pr.Fraction >= 0 {
				tracker.Report(StageExecute, (doneSoFar+pr.Fraction*weight)/total, step.Name)
			}
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, failAt(StageExecute, ctx.Err())
			}
			return nil, failAt(StageExecute, fmt.Errorf("step %s: %w", step.Name, err))
		}

		done += step.Weight
		tracker.Report(StageExecute, done/total, step.Name+" complete")
	}

	if err := ctx.Err(); err != nil {
		return nil, failAt(StageFinalize, err)
	}
	output, err := d.eng.Read(p.OutputName)
	if err != nil {
		return nil, failAt(StageFinalize, fmt.Errorf("read %s: %w", p.OutputName, err))
	}

	tracker.Done("export complete")
	d.logger.Info().Int("bytes", len(output)).Msg("export complete")
	return output, nil
}
