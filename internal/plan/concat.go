package plan

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jmadderra/stillsplice/internal/timeline"
	"github.com/jmadderra/stillsplice/pkg/util"
)

// compileSegmentConcat emits one extraction step per segment plus a final
// concat-demuxer pass. Every intermediate is re-encoded with the same
// codec parameters so the concat step can stream-copy.
//
// The concat list is written inside the same single in-order walk that
// emits the steps. Ordering is the correctness property here: a scrambled
// list still concatenates cleanly and silently yields a wrong video, so
// no sorting or regrouping happens after this loop.
func compileSegmentConcat(edl *timeline.EDL, opts Options) (*Plan, error) {
	hasAudio := edl.Source.HasAudio

	var steps []Step
	var inputs []Artifact
	var list bytes.Buffer

	crf := strconv.Itoa(opts.CRF)
	fps := formatFPS(opts.FPS)

	for i, seg := range edl.Segments {
		out := segmentName(i)

		switch s := seg.(type) {
		case timeline.SourceSegment:
			args := []string{
				"-i", SourceName,
				"-ss", util.FormatDuration(s.Start),
			}
			if !s.OpenEnd {
				args = append(args, "-t", util.FormatDuration(s.Span()))
			}
			args = append(args,
				"-c:v", "libx264",
				"-preset", opts.Preset,
				"-crf", crf,
				"-r", fps,
			)
			if hasAudio {
				args = append(args, "-c:a", "aac", "-ar", "44100", "-ac", "2")
			} else {
				args = append(args, "-an")
			}
			args = append(args, out)

			steps = append(steps, Step{
				Name:     fmt.Sprintf("extract %s", out),
				Args:     args,
				Produces: []string{out},
				Span:     s.Span(),
				Weight:   stepWeight(s.Span()),
			})

		case timeline.InsertSegment:
			still := insertName(i)
			inputs = append(inputs, Artifact{Name: still, Data: s.Image})

			args := []string{
				"-loop", "1",
				"-t", util.Seconds(s.Hold),
				"-i", still,
			}
			if hasAudio {
				args = append(args,
					"-f", "lavfi",
					"-t", util.Seconds(s.Hold),
					"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
				)
			}
			args = append(args,
				"-vf", fmt.Sprintf(
					"scale=%d:%d:force_original_aspect_ratio=decrease,"+
						"pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,format=yuv420p",
					s.Width, s.Height, s.Width, s.Height),
				"-r", fps,
				"-c:v", "libx264",
				"-preset", opts.Preset,
				"-crf", crf,
			)
			if hasAudio {
				args = append(args, "-c:a", "aac", "-shortest")
			}
			args = append(args, out)

			steps = append(steps, Step{
				Name:     fmt.Sprintf("still %s", out),
				Args:     args,
				Produces: []string{out},
				Span:     s.Hold,
				Weight:   stepWeight(s.Hold),
			})
		}

		fmt.Fprintf(&list, "file '%s'\n", out)
	}

	inputs = append(inputs, Artifact{Name: ConcatListName, Data: list.Bytes()})

	concatSpan := edl.SourceSpan() + edl.InsertHold()
	steps = append(steps, Step{
		Name: "concat",
		Args: []string{
			"-f", "concat",
			"-safe", "0",
			"-i", ConcatListName,
			"-c", "copy",
			OutputName,
		},
		Produces: []string{OutputName},
		Span:     concatSpan,
		Weight:   stepWeight(concatSpan),
	})

	return &Plan{
		Strategy:   SegmentConcat,
		Inputs:     inputs,
		SourceName: SourceName,
		OutputName: OutputName,
		Steps:      steps,
	}, nil
}
