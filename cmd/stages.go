package cmd

import (
	"fairytale-pipeline/pipeline"
	"fairytale-pipeline/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var force bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long:  "Adapt tales if needed, generate audio and images, render every story and publish it when upload is enabled.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), pipeline.All)
	},
}

var adaptCmd = &cobra.Command{
	Use:   "adapt",
	Short: "Adapt crawled tales into scene scripts",
	Long:  "Read the crawled tales, ask the language model for scene scripts and write the processed stories file.",
	Args:  cobra.NoArgs,
	RunE:  runAdapt,
}

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Generate narration and illustrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), pipeline.Steps{Assets: true})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Assemble and render videos from existing assets",
	Long:  "Lay out the timeline from the assets already in the store and render each story. Missing assets are skipped.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), pipeline.Steps{Render: true})
	},
}

func init() {
	adaptCmd.Flags().BoolVarP(&force, "force", "f", false, "Adapt again even if the processed stories file exists")
}

func runAdapt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.NewFileStore(cfg.Paths.Assets)
	if err != nil {
		return err
	}
	stages, err := pipeline.NewStages(cfg, st, pipeline.Steps{}, true)
	if err != nil {
		return err
	}

	runner := pipeline.New(cfg, st, stages, "", cfg.Paths.Output)
	stories, err := runner.Stories(cmd.Context(), storyLimit(cfg), force)
	if err != nil {
		return err
	}
	log.Info().Str("stage", "stories").Int("stories", len(stories)).Str("file", cfg.Paths.ProcessedStories).Msg("adaptation complete")
	return nil
}
