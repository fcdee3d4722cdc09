package cmd

import (
	"sync"

	"fairytale-pipeline/config"
	"fairytale-pipeline/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cronSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the full pipeline on a cron schedule",
	Long:  "Keep running and start the full pipeline at every tick of schedule.cron. Overlapping ticks are skipped.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		spec := cronSpec
		if spec == "" {
			spec = cfg.Schedule.Cron
		}

		ctx := cmd.Context()
		var mu sync.Mutex
		c := cron.New()
		_, err = c.AddFunc(spec, func() {
			if !mu.TryLock() {
				log.Warn().Msg("previous run still in progress, skipping tick")
				return
			}
			defer mu.Unlock()
			if err := execute(ctx, pipeline.All); err != nil {
				log.Error().Err(err).Msg("scheduled run failed")
			}
		})
		if err != nil {
			return err
		}

		c.Start()
		log.Info().Str("cron", spec).Msg("scheduler started, waiting for ticks")
		<-ctx.Done()

		// wait for a running job to finish
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "", "Cron expression (defaults to schedule.cron)")
}
