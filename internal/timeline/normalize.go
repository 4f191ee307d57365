package timeline

import (
	"sort"

	"github.com/jmadderra/stillsplice/pkg/util"
)

// Normalize cleans and orders raw insertion events against the source.
//
// Events are snapped to millisecond precision, stably sorted by timestamp
// (equal timestamps keep their original relative order), and dropped when
// they fall at or beyond a known source duration. A negative timestamp is
// a caller error and rejects the whole batch; an empty batch returns
// ErrEmptyTimeline. Events without a hold duration get DefaultHold.
//
// Normalize is idempotent: normalizing its own output is a no-op.
func Normalize(events []InsertionEvent, src SourceMeta) (NormalizedTimeline, error) {
	if len(events) == 0 {
		return nil, ErrEmptyTimeline
	}

	out := make(NormalizedTimeline, 0, len(events))
	for i, ev := range events {
		if ev.At < 0 {
			return nil, &NegativeTimestampError{Index: i, At: ev.At}
		}
		ev.At = util.RoundToMillis(ev.At)
		ev.Hold = util.RoundToMillis(ev.Hold)
		if ev.Hold <= 0 {
			ev.Hold = DefaultHold
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At < out[j].At
	})

	// An event at or past the known end of the source can never be reached
	// during playback; drop it rather than fail.
	if src.Duration.Known() {
		end := util.RoundToMillis(src.Duration.Value())
		kept := out[:0]
		for _, ev := range out {
			if ev.At >= end {
				continue
			}
			kept = append(kept, ev)
		}
		out = kept
	}

	return out, nil
}
