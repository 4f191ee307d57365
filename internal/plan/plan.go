// Package plan compiles an edit decision list into an executable render
// plan for the transcoding engine. Two interchangeable strategies exist:
// a single filter-graph invocation, or one extraction per segment followed
// by a concat pass. Both produce the same output; they trade invocation
// count against expression fragility.
package plan

import (
	"fmt"
	"time"

	"github.com/jmadderra/stillsplice/internal/timeline"
)

// Strategy selects how the EDL is compiled.
type Strategy string

const (
	// FilterGraph renders the whole EDL in one engine invocation with a
	// filter_complex expression enumerating every segment.
	FilterGraph Strategy = "filtergraph"

	// SegmentConcat renders each segment to its own temporary artifact and
	// merges them with the concat demuxer. More invocations, but each is
	// small and easy to diagnose.
	SegmentConcat Strategy = "concat"
)

// ParseStrategy maps a config/CLI string onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case FilterGraph:
		return FilterGraph, nil
	case SegmentConcat, Strategy("segmentconcat"):
		return SegmentConcat, nil
	default:
		return "", fmt.Errorf("unknown render strategy %q (expected %q or %q)", s, FilterGraph, SegmentConcat)
	}
}

// Staged artifact names. Derived from segment index so they cannot collide
// within one export.
const (
	SourceName     = "source.mp4"
	OutputName     = "output.mp4"
	ConcatListName = "concat.txt"
)

func insertName(segIdx int) string {
	return fmt.Sprintf("insert_%03d.png", segIdx)
}

func segmentName(segIdx int) string {
	return fmt.Sprintf("seg_%03d.mp4", segIdx)
}

// Artifact is a byte payload staged into the engine before execution.
type Artifact struct {
	Name string
	Data []byte
}

// Step is one engine invocation. Steps execute in plan order, exactly
// once each.
type Step struct {
	// Name tags the step in logs and error messages.
	Name string

	// Args is the full engine argument vector.
	Args []string

	// Produces lists artifact names the step writes. They are registered
	// for cleanup before the step runs, so a partial write from a failed
	// step is still released.
	Produces []string

	// Span is the expected output duration, used to derive a [0,1]
	// progress fraction from the engine's time signal. Zero when the span
	// is unknown (open-ended cuts).
	Span time.Duration

	// Weight is the step's share of the execution progress window.
	Weight float64
}

// Plan is the compiled, engine-executable form of an EDL.
type Plan struct {
	Strategy Strategy

	// Inputs are the per-segment byte payloads (insert stills and, for
	// SegmentConcat, the concat list) staged before any step runs, in
	// EDL order.
	Inputs []Artifact

	Steps []Step

	// SourceName is the staged name the plan expects the source media
	// under; OutputName is where the final artifact lands.
	SourceName string
	OutputName string
}

// TotalWeight sums the step weights.
func (p *Plan) TotalWeight() float64 {
	var total float64
	for _, s := range p.Steps {
		total += s.Weight
	}
	return total
}

// Options carries the encode parameters shared by both strategies.
type Options struct {
	FPS    float64
	Preset string
	CRF    int
}

func (o Options) withDefaults() Options {
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.Preset == "" {
		o.Preset = "medium"
	}
	if o.CRF <= 0 {
		o.CRF = 23
	}
	return o
}

// stepWeight maps a segment span onto a progress weight. Open-ended cuts
// have no known span; they still need a nonzero share of the bar.
func stepWeight(span time.Duration) float64 {
	if span <= 0 {
		return 1
	}
	return span.Seconds()
}

// Compile builds a render plan from an EDL under the chosen strategy.
func Compile(edl *timeline.EDL, strategy Strategy, opts Options) (*Plan, error) {
	if edl == nil || len(edl.Segments) == 0 {
		return nil, fmt.Errorf("plan: empty EDL")
	}

	opts = opts.withDefaults()

	switch strategy {
	case FilterGraph:
		return compileFilterGraph(edl, opts)
	case SegmentConcat:
		return compileSegmentConcat(edl, opts)
	default:
		return nil, fmt.Errorf("plan: unknown strategy %q", strategy)
	}
}
