package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jmadderra/stillsplice/internal/plan"
	"github.com/jmadderra/stillsplice/internal/render"
	"github.com/jmadderra/stillsplice/internal/timeline"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version,
		UptimeS: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) stylesHandler(w http.ResponseWriter, r *http.Request) {
	styles := make(map[string]string)
	for _, name := range s.styles.List() {
		desc, _ := s.styles.Get(name)
		styles[name] = desc
	}
	WriteJSON(w, http.StatusOK, StylesResponse{Styles: styles})
}

// planHandler normalizes the submitted events and returns the resulting
// edit decision list without touching ffmpeg.
func (s *Server) planHandler(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "INVALID_REQUEST")
		return
	}

	edl, code, err := s.compileEDL(req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), code)
		return
	}
	WriteJSON(w, http.StatusOK, toPlanResponse(edl))
}

// renderHandler runs a full export, streaming progress frames as NDJSON.
// The terminal frame carries either the output path or the error.
func (s *Server) renderHandler(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "INVALID_REQUEST")
		return
	}
	if len(req.SourceMedia) == 0 {
		WriteError(w, http.StatusBadRequest, "source_media is required", "MISSING_SOURCE")
		return
	}
	if req.OutputPath == "" {
		WriteError(w, http.StatusBadRequest, "output_path is required", "MISSING_OUTPUT")
		return
	}

	strategy := plan.Strategy(s.cfg.Render.Strategy)
	if req.Strategy != "" {
		parsed, err := plan.ParseStrategy(req.Strategy)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_STRATEGY")
			return
		}
		strategy = parsed
	}

	edl, code, err := s.compileEDL(req.PlanRequest)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), code)
		return
	}

	p, err := plan.Compile(edl, strategy, plan.Options{
		FPS:    s.cfg.Render.FPS,
		Preset: s.cfg.FFmpeg.Preset,
		CRF:    s.cfg.FFmpeg.CRF,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "PLAN_FAILED")
		return
	}

	if !s.exportMu.TryLock() {
		WriteError(w, http.StatusConflict, "an export is already running", "EXPORT_IN_PROGRESS")
		return
	}
	defer s.exportMu.Unlock()

	eng, err := s.newEngine()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "ENGINE_UNAVAILABLE")
		return
	}
	defer eng.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	sink := func(ev render.ProgressEvent) {
		enc.Encode(ProgressFrame{
			Percent: ev.Percent,
			Stage:   string(ev.Stage),
			Message: ev.Message,
		})
		if flusher != nil {
			flusher.Flush()
		}
	}

	output, err := render.NewDriver(s.logger, eng).Execute(r.Context(), p, req.SourceMedia, sink)
	if err != nil {
		frame := ProgressFrame{Done: true, Error: err.Error()}
		var exportErr *render.ExportError
		if errors.As(err, &exportErr) {
			frame.ErrorStage = string(exportErr.Stage)
		}
		enc.Encode(frame)
		return
	}

	if err := os.WriteFile(req.OutputPath, output, 0o644); err != nil {
		enc.Encode(ProgressFrame{Done: true, Error: err.Error(), ErrorStage: string(render.StageFinalize)})
		return
	}

	enc.Encode(ProgressFrame{Percent: 100, Done: true, OutputPath: req.OutputPath})
}

// compileEDL maps validation failures to stable error codes.
func (s *Server) compileEDL(req PlanRequest) (*timeline.EDL, string, error) {
	meta := req.Source.toMeta()
	meta.FallbackWidth = s.cfg.Render.FallbackWidth
	meta.FallbackHeight = s.cfg.Render.FallbackHeight
	normalized, err := timeline.Normalize(toEvents(req.Events), meta)
	if err != nil {
		var negErr *timeline.NegativeTimestampError
		switch {
		case errors.Is(err, timeline.ErrEmptyTimeline):
			return nil, "EMPTY_TIMELINE", err
		case errors.As(err, &negErr):
			return nil, "NEGATIVE_TIMESTAMP", err
		default:
			return nil, "INVALID_TIMELINE", err
		}
	}
	return timeline.BuildEDL(normalized, meta), "", nil
}
