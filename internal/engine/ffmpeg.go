package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmadderra/stillsplice/pkg/util"
)

// FFmpeg runs commands against local ffmpeg/ffprobe binaries. Its staging
// area is a scoped working directory; artifact names resolve inside it and
// never escape.
type FFmpeg struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
	dir         string
}

// Options configures the ffmpeg engine.
type Options struct {
	BinaryPath string
	ProbePath  string
	Threads    int

	// WorkDir is the parent for the scoped staging directory. Empty means
	// the system temp dir.
	WorkDir string
}

// New locates the binaries and creates the staging directory.
func New(logger zerolog.Logger, opts Options) (*FFmpeg, error) {
	bin := opts.BinaryPath
	if bin == "" {
		bin = "ffmpeg"
	}
	probe := opts.ProbePath
	if probe == "" {
		probe = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w (install ffmpeg or set ffmpeg.binary_path)", err)
	}

	ffprobePath, err := exec.LookPath(probe)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w (install ffmpeg or set ffmpeg.probe_path)", err)
	}

	if opts.WorkDir != "" {
		if err := util.EnsureDir(opts.WorkDir); err != nil {
			return nil, fmt.Errorf("failed to create work dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(opts.WorkDir, "stillsplice-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}

	return &FFmpeg{
		logger:      logger.With().Str("component", "engine").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
		dir:         dir,
	}, nil
}

// WorkDir returns the staging directory path.
func (e *FFmpeg) WorkDir() string { return e.dir }

func (e *FFmpeg) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(e.dir, name), nil
}

// Stage writes data into the staging directory under name.
func (e *FFmpeg) Stage(name string, data []byte) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to stage %s: %w", name, err)
	}
	e.logger.Debug().Str("artifact", name).Int("bytes", len(data)).Msg("staged artifact")
	return nil
}

// Read returns the bytes of an artifact in the staging directory.
func (e *FFmpeg) Read(name string) ([]byte, error) {
	path, err := e.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Unstage removes one artifact from the staging directory.
func (e *FFmpeg) Unstage(name string) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to unstage %s: %w", name, err)
	}
	e.logger.Debug().Str("artifact", name).Msg("unstaged artifact")
	return nil
}

// Close removes the staging directory and everything still in it.
func (e *FFmpeg) Close() error {
	return os.RemoveAll(e.dir)
}

// Run executes ffmpeg with the given arguments and streams progress.
// Artifact names in args resolve relative to the staging directory.
func (e *FFmpeg) Run(ctx context.Context, args []string, span time.Duration, onProgress ProgressFunc) error {
	if len(args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "error", "-nostats", "-progress", "pipe:1"}
	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", strconv.Itoa(e.threads))
	}
	full := append(baseArgs, args...)

	e.logger.Debug().Strs("args", full).Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, full...)
	cmd.Dir = e.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Progress is the only stdout stream; stderr goes to a buffer, so
	// draining stdout inline cannot deadlock.
	parseProgress(stdout, span, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", err, lastLines(detail, 4))
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// parseProgress reads ffmpeg -progress key=value blocks and dispatches one
// sample per block boundary.
func parseProgress(r io.Reader, span time.Duration, onProgress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	cur := Progress{Fraction: -1}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "out_time_us="):
			if us, err := strconv.ParseInt(strings.TrimPrefix(line, "out_time_us="), 10, 64); err == nil && us >= 0 {
				cur.OutTime = time.Duration(us) * time.Microsecond
			}
		case strings.HasPrefix(line, "fps="):
			cur.FPS, _ = strconv.ParseFloat(strings.TrimPrefix(line, "fps="), 64)
		case strings.HasPrefix(line, "speed="):
			cur.Speed = strings.TrimPrefix(line, "speed=")
		case strings.HasPrefix(line, "progress="):
			// End of one key=value block.
			if span > 0 {
				frac := cur.OutTime.Seconds() / span.Seconds()
				if frac > 1 {
					frac = 1
				}
				if frac < 0 {
					frac = 0
				}
				if strings.TrimPrefix(line, "progress=") == "end" {
					frac = 1
				}
				cur.Fraction = frac
			}
			if onProgress != nil {
				onProgress(cur)
			}
		}
	}
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
