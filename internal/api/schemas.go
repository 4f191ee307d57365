package api

import (
	"time"

	"github.com/jmadderra/stillsplice/internal/timeline"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StylesResponse struct {
	Styles map[string]string `json:"styles"`
}

type SourceInput struct {
	DurationMS *int64 `json:"duration_ms,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	HasAudio   bool   `json:"has_audio,omitempty"`
}

type EventInput struct {
	TimestampMS int64  `json:"timestamp_ms"`
	HoldMS      int64  `json:"hold_ms,omitempty"`
	Image       []byte `json:"image,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

type PlanRequest struct {
	Source SourceInput  `json:"source"`
	Events []EventInput `json:"events"`
}

type SegmentResponse struct {
	Type    string `json:"type"` // "source" | "insert"
	StartMS int64  `json:"start_ms,omitempty"`
	EndMS   int64  `json:"end_ms,omitempty"`
	OpenEnd bool   `json:"open_end,omitempty"`
	HoldMS  int64  `json:"hold_ms,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type PlanResponse struct {
	Segments []SegmentResponse `json:"segments"`
	TotalMS  *int64            `json:"total_ms,omitempty"`
}

type RenderRequest struct {
	PlanRequest
	Strategy    string `json:"strategy,omitempty"`
	SourceMedia []byte `json:"source_media"`
	OutputPath  string `json:"output_path"`
}

// ProgressFrame is one NDJSON line of a render stream. The final frame
// has Done set, plus either the output location or the error.
type ProgressFrame struct {
	Percent    float64 `json:"percent"`
	Stage      string  `json:"stage,omitempty"`
	Message    string  `json:"message,omitempty"`
	Done       bool    `json:"done,omitempty"`
	Error      string  `json:"error,omitempty"`
	ErrorStage string  `json:"error_stage,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
}

func (s SourceInput) toMeta() timeline.SourceMeta {
	meta := timeline.SourceMeta{
		Width:    s.Width,
		Height:   s.Height,
		HasAudio: s.HasAudio,
		Duration: timeline.UnknownDuration(),
	}
	if s.DurationMS != nil {
		meta.Duration = timeline.KnownDuration(time.Duration(*s.DurationMS) * time.Millisecond)
	}
	return meta
}

func toEvents(inputs []EventInput) []timeline.InsertionEvent {
	events := make([]timeline.InsertionEvent, len(inputs))
	for i, in := range inputs {
		events[i] = timeline.InsertionEvent{
			At:     time.Duration(in.TimestampMS) * time.Millisecond,
			Hold:   time.Duration(in.HoldMS) * time.Millisecond,
			Image:  in.Image,
			Width:  in.Width,
			Height: in.Height,
		}
	}
	return events
}

func toPlanResponse(edl *timeline.EDL) PlanResponse {
	resp := PlanResponse{Segments: make([]SegmentResponse, 0, len(edl.Segments))}
	for _, seg := range edl.Segments {
		switch s := seg.(type) {
		case timeline.SourceSegment:
			resp.Segments = append(resp.Segments, SegmentResponse{
				Type:    "source",
				StartMS: s.Start.Milliseconds(),
				EndMS:   s.End.Milliseconds(),
				OpenEnd: s.OpenEnd,
			})
		case timeline.InsertSegment:
			resp.Segments = append(resp.Segments, SegmentResponse{
				Type:   "insert",
				HoldMS: s.Hold.Milliseconds(),
				Width:  s.Width,
				Height: s.Height,
			})
		}
	}
	if total := edl.TotalDuration(); total.Known() {
		ms := total.Value().Milliseconds()
		resp.TotalMS = &ms
	}
	return resp
}
