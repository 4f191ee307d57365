package plan

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmadderra/stillsplice/internal/timeline"
	"github.com/jmadderra/stillsplice/pkg/util"
)

// compileFilterGraph emits one engine invocation. Every segment becomes a
// labeled filter chain; a final concat expression references every label
// in EDL order. Labels are numbered by segment index, so they stay unique
// no matter how many inserts repeat.
func compileFilterGraph(edl *timeline.EDL, opts Options) (*Plan, error) {
	hasAudio := edl.Source.HasAudio

	args := []string{"-i", SourceName}
	var inputs []Artifact
	var chains []string
	var concatRefs strings.Builder

	// Input 0 is the source; each insert still gets the next input slot.
	inputIdx := 1
	var planSpan time.Duration
	spanKnown := true

	for i, seg := range edl.Segments {
		switch s := seg.(type) {
		case timeline.SourceSegment:
			if s.OpenEnd {
				spanKnown = false
				chains = append(chains, fmt.Sprintf(
					"[0:v]trim=start=%s,setpts=PTS-STARTPTS[v%d]",
					util.Seconds(s.Start), i))
				if hasAudio {
					chains = append(chains, fmt.Sprintf(
						"[0:a]atrim=start=%s,asetpts=PTS-STARTPTS[a%d]",
						util.Seconds(s.Start), i))
				}
			} else {
				planSpan += s.Span()
				chains = append(chains, fmt.Sprintf(
					"[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d]",
					util.Seconds(s.Start), util.Seconds(s.End), i))
				if hasAudio {
					chains = append(chains, fmt.Sprintf(
						"[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d]",
						util.Seconds(s.Start), util.Seconds(s.End), i))
				}
			}

		case timeline.InsertSegment:
			name := insertName(i)
			inputs = append(inputs, Artifact{Name: name, Data: s.Image})
			args = append(args, "-loop", "1", "-t", util.Seconds(s.Hold), "-i", name)
			planSpan += s.Hold

			chains = append(chains, fmt.Sprintf(
				"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,"+
					"pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%s,format=yuv420p,"+
					"setpts=PTS-STARTPTS[v%d]",
				inputIdx, s.Width, s.Height, s.Width, s.Height, formatFPS(opts.FPS), i))
			if hasAudio {
				// Inserted stills carry generated silence so the audio
				// stream stays continuous across the concat.
				chains = append(chains, fmt.Sprintf(
					"anullsrc=channel_layout=stereo:sample_rate=44100,"+
						"atrim=0:%s,asetpts=PTS-STARTPTS[a%d]",
					util.Seconds(s.Hold), i))
			}
			inputIdx++
		}

		concatRefs.WriteString(fmt.Sprintf("[v%d]", i))
		if hasAudio {
			concatRefs.WriteString(fmt.Sprintf("[a%d]", i))
		}
	}

	audioStreams := 0
	if hasAudio {
		audioStreams = 1
	}
	concat := fmt.Sprintf("%sconcat=n=%d:v=1:a=%d[outv]",
		concatRefs.String(), len(edl.Segments), audioStreams)
	if hasAudio {
		concat += "[outa]"
	}
	chains = append(chains, concat)

	args = append(args, "-filter_complex", strings.Join(chains, ";"))
	args = append(args, "-map", "[outv]")
	if hasAudio {
		args = append(args, "-map", "[outa]")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-crf", strconv.Itoa(opts.CRF),
	)
	if hasAudio {
		args = append(args, "-c:a", "aac", "-ar", "44100")
	}
	args = append(args, OutputName)

	span := planSpan
	if !spanKnown {
		span = 0
	}

	return &Plan{
		Strategy:   FilterGraph,
		Inputs:     inputs,
		SourceName: SourceName,
		OutputName: OutputName,
		Steps: []Step{{
			Name:     "filtergraph",
			Args:     args,
			Produces: []string{OutputName},
			Span:     span,
			Weight:   stepWeight(span),
		}},
	}, nil
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
