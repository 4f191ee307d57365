// Package timeline models timestamped still-image insertions against a
// source video and derives the edit decision list that partitions the
// output timeline into source cuts and inserted stills.
//
// The model is replace-and-resume: an insertion halts source playback,
// shows the still for its hold duration, then the next source cut resumes
// exactly where playback left off. The output is therefore longer than the
// source by the sum of all hold durations.
package timeline

import (
	"errors"
	"fmt"
	"time"
)

// Fallback frame size used when neither the event nor the source metadata
// carries dimensions.
const (
	FallbackWidth  = 1280
	FallbackHeight = 720
)

// DefaultHold is applied to events that do not specify a hold duration.
const DefaultHold = 2 * time.Second

// ErrEmptyTimeline is returned when normalization receives no events.
var ErrEmptyTimeline = errors.New("timeline: no insertion events")

// NegativeTimestampError reports an event placed before the start of the
// source. This is a caller error, not something normalization repairs.
type NegativeTimestampError struct {
	Index int
	At    time.Duration
}

func (e *NegativeTimestampError) Error() string {
	return fmt.Sprintf("timeline: event %d has negative timestamp %v", e.Index, e.At)
}

// SourceDuration is the possibly-unknown duration of the source media.
// The zero value is "unknown"; there is no sentinel numeric.
type SourceDuration struct {
	d     time.Duration
	known bool
}

// KnownDuration wraps a probed duration.
func KnownDuration(d time.Duration) SourceDuration {
	return SourceDuration{d: d, known: true}
}

// UnknownDuration marks the duration as not probed.
func UnknownDuration() SourceDuration {
	return SourceDuration{}
}

// Known reports whether the duration was probed.
func (s SourceDuration) Known() bool { return s.known }

// Value returns the probed duration. Only meaningful when Known.
func (s SourceDuration) Value() time.Duration { return s.d }

func (s SourceDuration) String() string {
	if !s.known {
		return "unknown"
	}
	return s.d.String()
}

// SourceMeta describes the source video. Width/Height may be zero when the
// source was not probed; dimension resolution then falls through to the
// fallback frame size. FallbackWidth/FallbackHeight override the package
// defaults when set, so callers can carry a configured fallback.
type SourceMeta struct {
	Duration       SourceDuration
	Width          int
	Height         int
	HasAudio       bool
	FallbackWidth  int
	FallbackHeight int
}

// InsertionEvent is one captured cue: at timestamp At, show Image
// full-frame for Hold, then resume the source.
type InsertionEvent struct {
	At     time.Duration
	Hold   time.Duration
	Image  []byte
	Width  int
	Height int
}

// NormalizedTimeline is an event sequence ordered non-decreasing by
// timestamp with unreachable events removed. Events sharing a timestamp
// keep their original relative order and each becomes its own insert.
type NormalizedTimeline []InsertionEvent

// Segment is one atomic unit of an EDL: either a cut of source media or an
// inserted still clip.
type Segment interface {
	segment()
}

// SourceSegment is a cut [Start, End) of the original media. When OpenEnd
// is set the source duration was unknown and End is unset; the cut runs to
// end-of-source, with the exact bound resolved by the engine.
type SourceSegment struct {
	Start   time.Duration
	End     time.Duration
	OpenEnd bool
}

func (SourceSegment) segment() {}

// Span returns the source time consumed by the cut. Zero when open-ended.
func (s SourceSegment) Span() time.Duration {
	if s.OpenEnd {
		return 0
	}
	return s.End - s.Start
}

// InsertSegment is a synthetic clip showing one still, scaled and padded to
// Width x Height, held for Hold. It consumes no source time.
type InsertSegment struct {
	Image  []byte
	Hold   time.Duration
	Width  int
	Height int
}

func (InsertSegment) segment() {}

// EDL is the ordered partition of the output timeline. Built once per
// export and never mutated afterward.
type EDL struct {
	Segments []Segment
	Source   SourceMeta
}

// SourceSpan sums the source time consumed by all closed source cuts.
func (e *EDL) SourceSpan() time.Duration {
	var total time.Duration
	for _, seg := range e.Segments {
		if src, ok := seg.(SourceSegment); ok {
			total += src.Span()
		}
	}
	return total
}

// InsertHold sums the hold durations of all inserted stills.
func (e *EDL) InsertHold() time.Duration {
	var total time.Duration
	for _, seg := range e.Segments {
		if ins, ok := seg.(InsertSegment); ok {
			total += ins.Hold
		}
	}
	return total
}

// TotalDuration is the output duration: source span plus inserted holds.
// Unknown when the source duration was unknown (open-ended trailing cut).
func (e *EDL) TotalDuration() SourceDuration {
	if !e.Source.Duration.Known() {
		return UnknownDuration()
	}
	return KnownDuration(e.SourceSpan() + e.InsertHold())
}
