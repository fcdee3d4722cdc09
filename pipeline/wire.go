package pipeline

import (
	"context"
	"fmt"

	"fairytale-pipeline/01_stories"
	"fairytale-pipeline/02_audio"
	"fairytale-pipeline/03_images"
	"fairytale-pipeline/06_render"
	"fairytale-pipeline/07_metadata"
	"fairytale-pipeline/08_upload"
	"fairytale-pipeline/config"
	"fairytale-pipeline/llm"
	"fairytale-pipeline/store"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// OpenStore returns the asset store selected by cfg.Store.Backend and a
// function that releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		rdb, err := store.NewRedisClient(ctx, cfg.Store.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		st, err := store.NewRedisStore(cfg.Paths.Assets, rdb, cfg.Store.Namespace)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return st, func() { closeRedis(rdb) }, nil
	default:
		st, err := store.NewFileStore(cfg.Paths.Assets)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	}
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("closing redis")
	}
}

// NewStages builds the production collaborators for the requested steps.
// adapt asks for a story adapter as well.
func NewStages(cfg *config.Config, st store.Store, steps Steps, adapt bool) (Stages, error) {
	stages := Stages{
		Prober: audio.FFprobe{},
		Render: render.New(cfg),
	}

	var storyLLM *llm.Client
	if adapt || (steps.Assets && cfg.Images.Provider == "openai") {
		c, err := llm.New(cfg.Stories.Model, cfg.Stories.BaseURL, cfg.Stories.Temperature)
		if err != nil {
			return stages, err
		}
		storyLLM = c
	}
	if adapt {
		stages.Adapter = stories.New(cfg, storyLLM)
	}

	if steps.Assets {
		tts, err := audio.NewSynthesizer(cfg)
		if err != nil {
			return stages, err
		}
		stages.Audio = audio.New(cfg, tts, st)

		var painter images.Painter
		switch cfg.Images.Provider {
		case "pollinations":
			painter = images.NewPollinationsPainter(cfg.Video.Width, cfg.Video.Height)
		default:
			painter = images.NewOpenAIPainter(storyLLM.API(), cfg.Images.Model, cfg.Images.Size, cfg.Images.Quality)
		}
		stages.Images = images.New(cfg, painter, st)
	}

	if steps.Publish {
		var metaLLM *llm.Client
		if cfg.Metadata.Enabled {
			c, err := llm.New(cfg.Metadata.Model, cfg.Stories.BaseURL, 0.8)
			if err != nil {
				log.Warn().Str("stage", "metadata").Err(err).Msg("no model for metadata, using template")
			} else {
				metaLLM = c
			}
		}
		stages.Metadata = metadata.New(cfg, metaLLM)
		stages.Upload = upload.New(cfg)
	}
	return stages, nil
}

// Validate checks that the stages cover steps.
func (s Stages) Validate(steps Steps) error {
	if steps.Assets && (s.Audio == nil || s.Images == nil) {
		return fmt.Errorf("asset steps need audio and image stages")
	}
	if steps.Render && (s.Render == nil || s.Prober == nil) {
		return fmt.Errorf("render step needs a renderer and a prober")
	}
	return nil
}
