package timeline

import (
	"time"

	"github.com/jmadderra/stillsplice/pkg/util"
)

// BoundaryTolerance is the slack applied when deciding whether the cursor
// has already reached the end of the source.
const BoundaryTolerance = time.Millisecond

// BuildEDL converts a normalized timeline into the segment partition.
//
// A cursor walks the source from zero. Each event first closes the source
// cut from the cursor to its timestamp (omitted when zero-length, i.e. the
// event sits exactly on the cursor), then emits its insert. Inserts do not
// advance the cursor: the next cut resumes source playback at the event's
// timestamp. After the last event a trailing cut covers the rest of the
// source; when the source duration is unknown the trailing cut is
// open-ended and its bound is resolved by the engine.
func BuildEDL(tl NormalizedTimeline, src SourceMeta) *EDL {
	edl := &EDL{
		Segments: make([]Segment, 0, 2*len(tl)+1),
		Source:   src,
	}

	var cursor time.Duration
	for _, ev := range tl {
		if ev.At > cursor {
			edl.Segments = append(edl.Segments, SourceSegment{Start: cursor, End: ev.At})
		}
		w, h := resolveDims(ev, src)
		edl.Segments = append(edl.Segments, InsertSegment{
			Image:  ev.Image,
			Hold:   ev.Hold,
			Width:  w,
			Height: h,
		})
		cursor = ev.At
	}

	if !src.Duration.Known() {
		edl.Segments = append(edl.Segments, SourceSegment{Start: cursor, OpenEnd: true})
		return edl
	}

	end := util.RoundToMillis(src.Duration.Value())
	if end-cursor > BoundaryTolerance {
		edl.Segments = append(edl.Segments, SourceSegment{Start: cursor, End: end})
	}

	return edl
}

// resolveDims picks the insert frame size: the event's own dimensions when
// present, else the probed source dimensions, else the configured fallback,
// else the package defaults.
func resolveDims(ev InsertionEvent, src SourceMeta) (int, int) {
	if ev.Width > 0 && ev.Height > 0 {
		return ev.Width, ev.Height
	}
	if src.Width > 0 && src.Height > 0 {
		return src.Width, src.Height
	}
	if src.FallbackWidth > 0 && src.FallbackHeight > 0 {
		return src.FallbackWidth, src.FallbackHeight
	}
	return FallbackWidth, FallbackHeight
}
