package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmadderra/stillsplice/internal/stylize"
	"github.com/jmadderra/stillsplice/internal/timeline"
	"github.com/jmadderra/stillsplice/pkg/util"
)

// cueFile is the on-disk cue sheet format:
//
//	cues:
//	  - at: "1:23.500"
//	    hold: 3s
//	    image: stills/diagram.png
type cueFile struct {
	Cues []cueEntry `yaml:"cues"`
}

type cueEntry struct {
	At    string `yaml:"at"`
	Hold  string `yaml:"hold"`
	Image string `yaml:"image"`
}

// loadCues parses a cue sheet and resolves it into insertion events.
// Image paths are relative to the cue file's directory.
func loadCues(path string) ([]timeline.InsertionEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cue file: %w", err)
	}

	var file cueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing cue file: %w", err)
	}
	if len(file.Cues) == 0 {
		return nil, fmt.Errorf("cue file %s has no cues", path)
	}

	baseDir := filepath.Dir(path)
	events := make([]timeline.InsertionEvent, 0, len(file.Cues))
	for i, cue := range file.Cues {
		at, err := util.ParseTimestamp(cue.At)
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", i, err)
		}

		var hold time.Duration
		if cue.Hold != "" {
			hold, err = time.ParseDuration(cue.Hold)
			if err != nil {
				return nil, fmt.Errorf("cue %d: invalid hold %q: %w", i, cue.Hold, err)
			}
		}

		if cue.Image == "" {
			return nil, fmt.Errorf("cue %d: image is required", i)
		}
		imagePath := cue.Image
		if !filepath.IsAbs(imagePath) {
			imagePath = filepath.Join(baseDir, imagePath)
		}
		img, err := os.ReadFile(imagePath)
		if err != nil {
			return nil, fmt.Errorf("cue %d: reading image: %w", i, err)
		}

		event := timeline.InsertionEvent{At: at, Hold: hold, Image: img}
		if w, h, err := stylize.Dimensions(img); err == nil {
			event.Width = w
			event.Height = h
		}
		events = append(events, event)
	}

	return events, nil
}
