package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/jmadderra/stillsplice/internal/timeline"
	"github.com/jmadderra/stillsplice/pkg/util"
)

// MediaInfo contains metadata about a media file.
type MediaInfo struct {
	FilePath   string
	Duration   time.Duration
	HasVideo   bool
	Width      int
	Height     int
	FPS        float64
	VideoCodec string
	Bitrate    int64
	HasAudio   bool
	AudioCodec string
}

// SourceMeta converts probed metadata into the timeline's source view.
func (m *MediaInfo) SourceMeta() timeline.SourceMeta {
	meta := timeline.SourceMeta{
		Width:    m.Width,
		Height:   m.Height,
		HasAudio: m.HasAudio,
	}
	if m.Duration > 0 {
		meta.Duration = timeline.KnownDuration(util.RoundToMillis(m.Duration))
	} else {
		meta.Duration = timeline.UnknownDuration()
	}
	return meta
}

// Probe extracts metadata from a media file via ffprobe.
func (e *FFmpeg) Probe(ctx context.Context, filePath string) (*MediaInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{FilePath: filePath}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.HasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
			if stream.RFrameRate != "" {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}
