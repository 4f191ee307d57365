package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jmadderra/stillsplice/internal/api"
	"github.com/jmadderra/stillsplice/internal/config"
	"github.com/jmadderra/stillsplice/internal/engine"
	"github.com/jmadderra/stillsplice/internal/logging"
	"github.com/jmadderra/stillsplice/internal/plan"
	"github.com/jmadderra/stillsplice/internal/render"
	"github.com/jmadderra/stillsplice/internal/stylize"
	"github.com/jmadderra/stillsplice/internal/timeline"
	"github.com/jmadderra/stillsplice/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stillsplice",
	Short: "stillsplice - timeline recomposition for annotated video",
	Long:  "Marks timestamps on a source video, attaches still images, and renders a new video where each still replaces playback for a hold duration before the source resumes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./stillsplice.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(stylesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	planCmd.Flags().StringVar(&cuesPath, "cues", "", "cue sheet YAML file")
	planCmd.MarkFlagRequired("cues")

	renderCmd.Flags().StringVar(&cuesPath, "cues", "", "cue sheet YAML file")
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "output.mp4", "output video path")
	renderCmd.Flags().StringVar(&strategyFlag, "strategy", "", "render strategy: filtergraph or concat")
	renderCmd.Flags().StringVar(&styleFlag, "style", "", "style preset applied to stills before rendering")
	renderCmd.MarkFlagRequired("cues")
}

var (
	cuesPath     string
	outPath      string
	strategyFlag string
	styleFlag    string
)

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Inspect a source video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		info, err := eng.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("file:     %s\n", info.FilePath)
		fmt.Printf("duration: %s\n", util.FormatDuration(info.Duration))
		if info.HasVideo {
			fmt.Printf("video:    %s %dx%d %.3g fps\n", info.VideoCodec, info.Width, info.Height, info.FPS)
		}
		if info.HasAudio {
			fmt.Printf("audio:    %s\n", info.AudioCodec)
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [input video]",
	Short: "Show the edit decision list for a cue sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		info, err := eng.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		meta := sourceMeta(cfg, info)

		events, err := loadCues(cuesPath)
		if err != nil {
			return err
		}
		applyDefaultHold(events, cfg.Render.DefaultHold())

		normalized, err := timeline.Normalize(events, meta)
		if err != nil {
			return err
		}
		edl := timeline.BuildEDL(normalized, meta)

		for i, seg := range edl.Segments {
			switch s := seg.(type) {
			case timeline.SourceSegment:
				if s.OpenEnd {
					fmt.Printf("%2d  source  %s -> end\n", i, util.FormatDuration(s.Start))
				} else {
					fmt.Printf("%2d  source  %s -> %s\n", i, util.FormatDuration(s.Start), util.FormatDuration(s.End))
				}
			case timeline.InsertSegment:
				fmt.Printf("%2d  insert  hold %s  %dx%d\n", i, util.FormatDuration(s.Hold), s.Width, s.Height)
			}
		}
		if total := edl.TotalDuration(); total.Known() {
			fmt.Printf("total: %s\n", util.FormatDuration(total.Value()))
		}
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [input video]",
	Short: "Render the recomposed video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		source, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading source video: %w", err)
		}

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		info, err := eng.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		meta := sourceMeta(cfg, info)

		events, err := loadCues(cuesPath)
		if err != nil {
			return err
		}
		applyDefaultHold(events, cfg.Render.DefaultHold())

		if styleFlag != "" {
			if err := stylizeEvents(cmd.Context(), cfg, events, styleFlag); err != nil {
				return err
			}
		}

		normalized, err := timeline.Normalize(events, meta)
		if err != nil {
			return err
		}
		edl := timeline.BuildEDL(normalized, meta)

		strategyName := cfg.Render.Strategy
		if strategyFlag != "" {
			strategyName = strategyFlag
		}
		strategy, err := plan.ParseStrategy(strategyName)
		if err != nil {
			return err
		}

		p, err := plan.Compile(edl, strategy, plan.Options{
			FPS:    cfg.Render.FPS,
			Preset: cfg.FFmpeg.Preset,
			CRF:    cfg.FFmpeg.CRF,
		})
		if err != nil {
			return err
		}

		driver := render.NewDriver(log.Logger, eng)
		start := time.Now()
		output, err := driver.Execute(cmd.Context(), p, source, func(ev render.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "\r%5.1f%%  %-12s", ev.Percent, ev.Stage)
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		if err := os.WriteFile(outPath, output, 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		log.Info().
			Str("output", outPath).
			Int("segments", len(edl.Segments)).
			Dur("elapsed", time.Since(start)).
			Msg("render complete")
		return nil
	},
}

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List available style presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		registry := stylize.NewRegistry(cfg.Style.Presets)
		for _, name := range registry.List() {
			desc, _ := registry.Get(name)
			fmt.Printf("%-12s %s\n", name, desc)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to ./stillsplice.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if err := cfg.Save("stillsplice.yaml"); err != nil {
			return err
		}
		fmt.Println("wrote stillsplice.yaml")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP export API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		srv := api.NewServer(log.Logger, cfg)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func newEngine(cfg *config.Config) (*engine.FFmpeg, error) {
	return engine.New(logging.WithComponent("engine"), engine.Options{
		BinaryPath: cfg.FFmpeg.BinaryPath,
		ProbePath:  cfg.FFmpeg.ProbePath,
		Threads:    cfg.FFmpeg.Threads,
		WorkDir:    cfg.WorkDir,
	})
}

// sourceMeta combines probed metadata with the configured fallback frame
// size for inserts whose dimensions cannot be resolved otherwise.
func sourceMeta(cfg *config.Config, info *engine.MediaInfo) timeline.SourceMeta {
	meta := info.SourceMeta()
	meta.FallbackWidth = cfg.Render.FallbackWidth
	meta.FallbackHeight = cfg.Render.FallbackHeight
	return meta
}

// applyDefaultHold fills in the configured hold for cues that omit one.
func applyDefaultHold(events []timeline.InsertionEvent, hold time.Duration) {
	for i := range events {
		if events[i].Hold <= 0 {
			events[i].Hold = hold
		}
	}
}

// stylizeEvents runs every still through the style backend, replacing the
// image payloads in place.
func stylizeEvents(ctx context.Context, cfg *config.Config, events []timeline.InsertionEvent, preset string) error {
	registry := stylize.NewRegistry(cfg.Style.Presets)
	style, ok := registry.Get(preset)
	if !ok {
		return fmt.Errorf("unknown style preset %q", preset)
	}

	client := stylize.NewClient(logging.WithComponent("stylize"), cfg.Style.Endpoint, cfg.Style.Timeout(), cfg.Style.MaxEdge)
	for i := range events {
		styled, err := client.Transform(ctx, events[i].Image, style, true)
		if err != nil {
			return fmt.Errorf("stylizing cue %d: %w", i, err)
		}
		events[i].Image = styled
		if w, h, err := stylize.Dimensions(styled); err == nil {
			events[i].Width = w
			events[i].Height = h
		}
	}
	return nil
}
