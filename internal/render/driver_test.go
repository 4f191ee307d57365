package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmadderra/stillsplice/internal/engine"
	"github.com/jmadderra/stillsplice/internal/plan"
	"github.com/jmadderra/stillsplice/internal/timeline"
)

// fakeEngine records every protocol call so cleanup and ordering
// guarantees can be asserted.
type fakeEngine struct {
	staged     map[string][]byte
	unstaged   map[string]int
	runs       []string // step names are not visible; record first arg vectors
	runArgs    [][]string
	failRunAt  int // 0-based run index to fail on, -1 for never
	failStage  string
	emitFrac   bool
	cancelOn   int // run index that cancels the context, -1 for never
	cancelFunc context.CancelFunc
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		staged:    make(map[string][]byte),
		unstaged:  make(map[string]int),
		failRunAt: -1,
		cancelOn:  -1,
	}
}

func (f *fakeEngine) Stage(name string, data []byte) error {
	if name == f.failStage {
		return fmt.Errorf("disk full")
	}
	f.staged[name] = data
	return nil
}

func (f *fakeEngine) Run(ctx context.Context, args []string, span time.Duration, onProgress engine.ProgressFunc) error {
	idx := len(f.runArgs)
	f.runArgs = append(f.runArgs, args)

	if idx == f.cancelOn && f.cancelFunc != nil {
		f.cancelFunc()
	}
	if idx == f.failRunAt {
		return fmt.Errorf("codec exploded")
	}
	if f.emitFrac && onProgress != nil {
		onProgress(engine.Progress{Fraction: 0.5})
		onProgress(engine.Progress{Fraction: 1})
	}
	// Pretend the step wrote its outputs.
	return nil
}

func (f *fakeEngine) Read(name string) ([]byte, error) {
	if data, ok := f.staged[name]; ok {
		return data, nil
	}
	// Step outputs are not tracked by Stage; fabricate them.
	return []byte("encoded " + name), nil
}

func (f *fakeEngine) Unstage(name string) error {
	f.unstaged[name]++
	if _, ok := f.staged[name]; !ok {
		return fmt.Errorf("no such artifact %s", name)
	}
	delete(f.staged, name)
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func testPlan(t *testing.T, strategy plan.Strategy) *plan.Plan {
	t.Helper()
	src := timeline.SourceMeta{
		Duration: timeline.KnownDuration(10 * time.Second),
		Width:    1280, Height: 720,
		HasAudio: true,
	}
	events := []timeline.InsertionEvent{
		{At: 3 * time.Second, Hold: 2 * time.Second, Image: []byte("a")},
		{At: 8 * time.Second, Hold: 2 * time.Second, Image: []byte("b")},
	}
	tl, err := timeline.Normalize(events, src)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	p, err := plan.Compile(timeline.BuildEDL(tl, src), strategy, plan.Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return p
}

func testDriver(eng engine.Engine) *Driver {
	return NewDriver(zerolog.New(os.Stderr), eng)
}

func TestExecuteSuccess(t *testing.T) {
	p := testPlan(t, plan.SegmentConcat)
	eng := newFakeEngine()
	eng.emitFrac = true

	var events []ProgressEvent
	out, err := testDriver(eng).Execute(context.Background(), p, []byte("video"), func(e ProgressEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected output bytes")
	}

	// Steps ran in plan order, one engine invocation each.
	if len(eng.runArgs) != len(p.Steps) {
		t.Fatalf("expected %d runs, got %d", len(p.Steps), len(eng.runArgs))
	}
	for i, step := range p.Steps {
		if len(eng.runArgs[i]) != len(step.Args) {
			t.Errorf("run %d does not match step %q", i, step.Name)
		}
	}

	// Every staged input released exactly once.
	wantReleased := []string{p.SourceName}
	for _, in := range p.Inputs {
		wantReleased = append(wantReleased, in.Name)
	}
	for _, name := range wantReleased {
		if eng.unstaged[name] != 1 {
			t.Errorf("artifact %s released %d times, want 1", name, eng.unstaged[name])
		}
	}

	// Progress never regressed and finished at exactly 100.
	last := -1.0
	for _, e := range events {
		if e.Percent < last {
			t.Errorf("progress moved backward: %f after %f", e.Percent, last)
		}
		last = e.Percent
	}
	if last != 100 {
		t.Errorf("final progress is %f, want 100", last)
	}
}

func TestExecuteStepFailureCleansUp(t *testing.T) {
	p := testPlan(t, plan.SegmentConcat)
	eng := newFakeEngine()
	eng.failRunAt = 2 // fail mid-plan

	_, err := testDriver(eng).Execute(context.Background(), p, []byte("video"), nil)

	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if exportErr.Stage != StageExecute {
		t.Errorf("expected stage %s, got %s", StageExecute, exportErr.Stage)
	}

	// Everything staged before the failure is released exactly once.
	if eng.unstaged[p.SourceName] != 1 {
		t.Errorf("source released %d times, want 1", eng.unstaged[p.SourceName])
	}
	for _, in := range p.Inputs {
		if eng.unstaged[in.Name] != 1 {
			t.Errorf("input %s released %d times, want 1", in.Name, eng.unstaged[in.Name])
		}
	}

	// No release for artifacts of steps that never ran.
	for _, step := range p.Steps[3:] {
		for _, out := range step.Produces {
			if out == p.OutputName {
				continue // final output name is shared with the concat step
			}
			if eng.unstaged[out] != 0 {
				t.Errorf("artifact %s of unreached step was released", out)
			}
		}
	}
}

func TestExecuteStageFailure(t *testing.T) {
	p := testPlan(t, plan.SegmentConcat)
	eng := newFakeEngine()
	eng.failStage = p.Inputs[0].Name

	_, err := testDriver(eng).Execute(context.Background(), p, []byte("video"), nil)

	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if exportErr.Stage != StageImages {
		t.Errorf("expected stage %s, got %s", StageImages, exportErr.Stage)
	}

	// The source was staged before the failure and must be released; the
	// artifact that failed to stage must not be.
	if eng.unstaged[p.SourceName] != 1 {
		t.Errorf("source released %d times, want 1", eng.unstaged[p.SourceName])
	}
	if eng.unstaged[p.Inputs[0].Name] != 0 {
		t.Error("release attempted for artifact that was never staged")
	}
	if len(eng.runArgs) != 0 {
		t.Error("no step should run after a staging failure")
	}
}

func TestExecuteCancellationBetweenSteps(t *testing.T) {
	p := testPlan(t, plan.SegmentConcat)
	eng := newFakeEngine()

	ctx, cancel := context.WithCancel(context.Background())
	eng.cancelOn = 1
	eng.cancelFunc = cancel

	_, err := testDriver(eng).Execute(ctx, p, []byte("video"), nil)

	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}

	// Cancellation takes effect at the next engine call boundary.
	if len(eng.runArgs) != 2 {
		t.Errorf("expected 2 runs before cancellation landed, got %d", len(eng.runArgs))
	}

	// Cleanup still ran for staged inputs.
	if eng.unstaged[p.SourceName] != 1 {
		t.Errorf("source released %d times, want 1", eng.unstaged[p.SourceName])
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	eng := newFakeEngine()
	_, err := testDriver(eng).Execute(context.Background(), &plan.Plan{}, nil, nil)

	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if exportErr.Stage != StageInit {
		t.Errorf("expected stage %s, got %s", StageInit, exportErr.Stage)
	}
}

func TestExecuteFilterGraphPlan(t *testing.T) {
	p := testPlan(t, plan.FilterGraph)
	eng := newFakeEngine()
	eng.emitFrac = true

	out, err := testDriver(eng).Execute(context.Background(), p, []byte("video"), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected output bytes")
	}
	if len(eng.runArgs) != 1 {
		t.Errorf("filtergraph plan should issue one invocation, got %d", len(eng.runArgs))
	}
}
