package render

import "sync"

// ProgressEvent is one caller-visible progress sample.
type ProgressEvent struct {
	Percent float64
	Stage   Stage
	Message string
}

// ProgressSink receives progress events. It is an injected observer, not a
// polled value, so monotonicity survives the driver's suspension points.
type ProgressSink func(ProgressEvent)

// stageWindow maps a stage onto its fixed share of the 0-100 scale.
type stageWindow struct {
	start float64
	end   float64
}

var stageWindows = map[Stage]stageWindow{
	StageInit:     {0, 5},
	StageInput:    {5, 15},
	StageImages:   {15, 20},
	StageExecute:  {20, 90},
	StageFinalize: {90, 100},
}

// Tracker maps stage-local fractions onto the overall 0-100 scale and
// guarantees the reported percentage never moves backward within one
// export. Safe for the engine's progress goroutine to call into.
type Tracker struct {
	mu   sync.Mutex
	sink ProgressSink
	last float64
}

// NewTracker wraps a sink. A nil sink is allowed and discards events.
func NewTracker(sink ProgressSink) *Tracker {
	return &Tracker{sink: sink}
}

// Report maps frac in [0,1] within the stage's window and emits it.
// Values are clamped to the window and never regress.
func (t *Tracker) Report(stage Stage, frac float64, message string) {
	w, ok := stageWindows[stage]
	if !ok {
		return
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	percent := w.start + frac*(w.end-w.start)

	t.mu.Lock()
	if percent < t.last {
		percent = t.last
	}
	t.last = percent
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(ProgressEvent{Percent: percent, Stage: stage, Message: message})
	}
}

// Done reports the terminal 100% event.
func (t *Tracker) Done(message string) {
	t.Report(StageFinalize, 1, message)
}
