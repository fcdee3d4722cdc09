package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fairytale-pipeline/config"
	"fairytale-pipeline/pipeline"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	limit      int
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "fairytale",
	Short: "Turn traditional fairy tales into narrated, illustrated videos",
	Long: `fairytale adapts crawled fairy tales into scene scripts, synthesizes the
narration, draws one illustration per scene, lays out subtitles on the audio
timeline and renders the final video. Finished assets are reused across runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is for local development; CI passes secrets as env vars
		_ = godotenv.Load()
		return setupLogging(logLevel)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Config file")
	rootCmd.PersistentFlags().IntVarP(&limit, "limit", "n", 0, "Process at most this many stories (0 = config value, then all)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(adaptCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, dir := range []string{cfg.Paths.Assets, cfg.Paths.Output, cfg.Paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return cfg, nil
}

func storyLimit(cfg *config.Config) int {
	if limit > 0 {
		return limit
	}
	return cfg.Stories.Limit
}

// execute loads the stories and runs steps over them with a fresh run ID.
func execute(ctx context.Context, steps pipeline.Steps) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, closeStore, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	processedExists := fileExists(cfg.Paths.ProcessedStories)
	stages, err := pipeline.NewStages(cfg, st, steps, !processedExists)
	if err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(cfg.Paths.Output, runID)
	log.Info().Str("run", runID).Str("dir", runDir).Msg("fairy tale pipeline starting")

	runner := pipeline.New(cfg, st, stages, runID, runDir)
	batch, err := runner.Stories(ctx, storyLimit(cfg), false)
	if err != nil {
		return err
	}

	state, err := runner.Run(ctx, batch, steps)
	if err != nil {
		return err
	}

	failed := 0
	for _, s := range state.Stories {
		if s.Error != "" {
			failed++
			continue
		}
		if s.VideoFile != "" {
			log.Info().Str("story", s.StoryID).Str("video", s.VideoFile).Str("url", s.YouTubeURL).Msg("done")
		}
	}
	if failed == len(state.Stories) && failed > 0 {
		return fmt.Errorf("all %d stories failed", failed)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
