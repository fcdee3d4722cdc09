package images

import (
	"context"
	"fmt"
	"time"

	"fairytale-pipeline/config"
	"fairytale-pipeline/store"
	"fairytale-pipeline/types"

	"github.com/rs/zerolog/log"
)

// Painter renders one image for a prompt.
type Painter interface {
	Paint(ctx context.Context, prompt string, seed int) ([]byte, error)
}

// Generator draws one illustration per scene
type Generator struct {
	cfg      *config.Config
	painter  Painter
	store    store.Store
	cooldown time.Duration
	backoff  time.Duration
}

// New creates a new image Generator
func New(cfg *config.Config, painter Painter, st store.Store) *Generator {
	return &Generator{
		cfg:      cfg,
		painter:  painter,
		store:    st,
		cooldown: time.Duration(cfg.Images.Cooldown) * time.Second,
		backoff:  3 * time.Second,
	}
}

// Run draws every scene of story in style that is not in the store yet.
// Scenes whose image cannot be produced are logged and left missing; the
// assembler skips them.
func (g *Generator) Run(ctx context.Context, story *types.Story, style Style) error {
	id := story.ID()
	log.Info().Str("stage", "images").Str("story", id).Str("style", style.Name).
		Int("scenes", len(story.Scenes)).Msg("generating illustrations")

	drawn, failed := 0, 0
	for i, scene := range story.Scenes {
		key := store.ImageKey(id, scene.SceneNum)
		ok, err := g.store.Exists(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		log.Info().Str("stage", "images").Str("style", style.Name).
			Msgf("drawing scene %d/%d", i+1, len(story.Scenes))

		data, err := g.paint(ctx, BuildPrompt(style, scene.VisualPrompt), scene.SceneNum*42+7)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			log.Warn().Str("stage", "images").Err(err).Int("scene", scene.SceneNum).Msg("illustration failed")
			continue
		}
		if err := store.WriteFile(ctx, g.store, key, data); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		drawn++

		if err := g.sleep(ctx, g.cooldown); err != nil {
			return err
		}
	}

	log.Info().Str("stage", "images").Str("story", id).Int("drawn", drawn).Int("failed", failed).Msg("illustrations complete")
	return nil
}

func (g *Generator) paint(ctx context.Context, prompt string, seed int) ([]byte, error) {
	retries := max(g.cfg.Images.Retries, 1)
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		var data []byte
		data, err = g.painter.Paint(ctx, prompt, seed)
		if err == nil {
			return data, nil
		}
		log.Warn().Str("stage", "images").Err(err).Msgf("attempt %d failed", attempt)
		if attempt < retries {
			if serr := g.sleep(ctx, time.Duration(attempt)*g.backoff); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, fmt.Errorf("image failed after %d attempts: %w", retries, err)
}

func (g *Generator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
