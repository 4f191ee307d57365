package engine

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func stagingOnly(t *testing.T) *FFmpeg {
	t.Helper()
	return &FFmpeg{
		logger: zerolog.New(os.Stderr),
		dir:    t.TempDir(),
	}
}

func TestNew(t *testing.T) {
	skipIfNoFFmpeg(t)

	logger := zerolog.New(os.Stderr)
	eng, err := New(logger, Options{})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer eng.Close()

	if eng.ffmpegPath == "" || eng.ffprobePath == "" {
		t.Error("binary paths not resolved")
	}
	if _, err := os.Stat(eng.WorkDir()); err != nil {
		t.Errorf("staging dir missing: %v", err)
	}
}

func TestStageReadUnstage(t *testing.T) {
	eng := stagingOnly(t)

	payload := []byte("still bytes")
	if err := eng.Stage("insert_000.png", payload); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	got, err := eng.Read("insert_000.png")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("round trip mismatch: %q", got)
	}

	if err := eng.Unstage("insert_000.png"); err != nil {
		t.Fatalf("Unstage failed: %v", err)
	}
	if _, err := eng.Read("insert_000.png"); err == nil {
		t.Error("expected read of unstaged artifact to fail")
	}
}

func TestUnstageMissingArtifact(t *testing.T) {
	eng := stagingOnly(t)
	if err := eng.Unstage("never_staged.mp4"); err == nil {
		t.Error("expected error for missing artifact")
	}
}

func TestArtifactNamesCannotEscapeStaging(t *testing.T) {
	eng := stagingOnly(t)

	bad := []string{"", ".", "..", "../escape.mp4", "a/b.mp4", "/etc/passwd"}
	for _, name := range bad {
		if err := eng.Stage(name, []byte("x")); err == nil {
			t.Errorf("Stage(%q) should have been rejected", name)
		}
	}
}

func TestParseProgress(t *testing.T) {
	input := strings.Join([]string{
		"fps=25.0",
		"out_time_us=2500000",
		"speed=1.2x",
		"progress=continue",
		"out_time_us=5000000",
		"progress=end",
	}, "\n")

	var samples []Progress
	parseProgress(strings.NewReader(input), 5*time.Second, func(p Progress) {
		samples = append(samples, p)
	})

	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].OutTime != 2500*time.Millisecond {
		t.Errorf("expected 2.5s out time, got %v", samples[0].OutTime)
	}
	if samples[0].Fraction < 0.49 || samples[0].Fraction > 0.51 {
		t.Errorf("expected ~0.5 fraction, got %f", samples[0].Fraction)
	}
	if samples[0].Speed != "1.2x" {
		t.Errorf("expected speed 1.2x, got %q", samples[0].Speed)
	}
	if samples[1].Fraction != 1 {
		t.Errorf("final sample should report fraction 1, got %f", samples[1].Fraction)
	}
}

func TestParseProgressUnknownSpan(t *testing.T) {
	input := "out_time_us=1000000\nprogress=continue\n"

	var samples []Progress
	parseProgress(strings.NewReader(input), 0, func(p Progress) {
		samples = append(samples, p)
	})

	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0].Fraction != -1 {
		t.Errorf("fraction should stay -1 when span is unknown, got %f", samples[0].Fraction)
	}
}
