// Package pipeline runs the stages for a batch of stories.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fairytale-pipeline/01_stories"
	"fairytale-pipeline/02_audio"
	"fairytale-pipeline/03_images"
	"fairytale-pipeline/04_timeline"
	"fairytale-pipeline/05_assemble"
	"fairytale-pipeline/08_upload"
	"fairytale-pipeline/config"
	"fairytale-pipeline/store"
	"fairytale-pipeline/types"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StoryAdapter turns crawled tales into scene scripts.
type StoryAdapter interface {
	Run(ctx context.Context, tales []types.Tale, limit int) ([]types.Story, error)
}

// AudioStage synthesizes the speech of a story.
type AudioStage interface {
	Run(ctx context.Context, story *types.Story) error
}

// ImageStage draws the scene illustrations of a story.
type ImageStage interface {
	Run(ctx context.Context, story *types.Story, style images.Style) error
}

// RenderStage encodes an assembled plan into a video file.
type RenderStage interface {
	Run(ctx context.Context, plan *assemble.Plan, workDir, outFile string) (string, error)
}

// MetadataStage writes the YouTube metadata of a finished video.
type MetadataStage interface {
	Run(ctx context.Context, story *types.Story, duration float64) (*types.VideoMetadata, error)
}

// UploadStage publishes a video and returns its ID and URL.
type UploadStage interface {
	Run(ctx context.Context, videoFile string, metadata *types.VideoMetadata) (string, string, error)
}

// Stages are the collaborators of a Runner. Adapter, Metadata and Upload
// may be nil when the matching step is never requested.
type Stages struct {
	Adapter  StoryAdapter
	Audio    AudioStage
	Images   ImageStage
	Prober   audio.Prober
	Render   RenderStage
	Metadata MetadataStage
	Upload   UploadStage
}

// Steps selects which parts of the pipeline a run performs.
type Steps struct {
	Assets  bool // TTS and illustrations
	Render  bool // assemble and encode
	Publish bool // metadata and upload
}

// All is the full pipeline.
var All = Steps{Assets: true, Render: true, Publish: true}

// Runner drives stories through the stages
type Runner struct {
	cfg    *config.Config
	store  store.Store
	stages Stages
	runID  string
	runDir string
}

// New creates a new Runner writing run artifacts to runDir
func New(cfg *config.Config, st store.Store, stages Stages, runID, runDir string) *Runner {
	return &Runner{cfg: cfg, store: st, stages: stages, runID: runID, runDir: runDir}
}

// Stories returns the adapted stories, adapting crawled tales first when
// the processed file is missing or force is set. limit bounds the count
// (0 = all).
func (r *Runner) Stories(ctx context.Context, limit int, force bool) ([]types.Story, error) {
	path := r.cfg.Paths.ProcessedStories
	if _, err := os.Stat(path); err == nil && !force {
		all, err := stories.LoadStories(path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("stage", "stories").Str("file", path).Int("stories", len(all)).Msg("using processed stories")
		if limit > 0 && limit < len(all) {
			all = all[:limit]
		}
		return all, nil
	}

	if r.stages.Adapter == nil {
		return nil, fmt.Errorf("%s not found and no story adapter configured", path)
	}
	tales, err := stories.LoadTales(r.cfg.Paths.CrawledTales)
	if err != nil {
		return nil, err
	}
	adapted, err := r.stages.Adapter.Run(ctx, tales, limit)
	if err != nil {
		return nil, fmt.Errorf("adapt stories: %w", err)
	}
	if err := stories.SaveStories(path, adapted); err != nil {
		return nil, err
	}
	log.Info().Str("stage", "stories").Str("file", path).Int("stories", len(adapted)).Msg("processed stories saved")
	return adapted, nil
}

// Run processes every story in a bounded worker pool and records the
// outcome in the run state. A failing story never stops the others; only
// cancellation does.
func (r *Runner) Run(ctx context.Context, batch []types.Story, steps Steps) (*types.PipelineState, error) {
	if err := r.stages.Validate(steps); err != nil {
		return nil, err
	}
	state := &types.PipelineState{
		RunID:     r.runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Stories:   make([]types.StoryResult, len(batch)),
	}
	if err := os.MkdirAll(r.runDir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	log.Info().Str("run", r.runID).Int("stories", len(batch)).Int("workers", r.cfg.Workers).Msg("pipeline starting")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Workers, 1))
	for i := range batch {
		story := &batch[i]
		g.Go(func() error {
			state.Stories[i] = r.process(gctx, story, steps)
			return gctx.Err()
		})
	}
	err := g.Wait()

	state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		state.Error = err.Error()
	}
	saveJSON(filepath.Join(r.runDir, "pipeline_state.json"), state)

	failed := 0
	for _, s := range state.Stories {
		if s.Error != "" {
			failed++
		}
	}
	log.Info().Str("run", r.runID).Int("ok", len(batch)-failed).Int("failed", failed).Msg("pipeline complete")
	return state, err
}

func (r *Runner) process(ctx context.Context, story *types.Story, steps Steps) types.StoryResult {
	id := story.ID()
	style := images.StyleFor(id, r.cfg.Images.StyleSeed)
	res := types.StoryResult{StoryID: id, Title: story.Title, Style: style.Name}

	fail := func(stage string, err error) types.StoryResult {
		res.Error = fmt.Sprintf("%s: %v", stage, err)
		log.Error().Str("stage", stage).Str("story", id).Err(err).Msg("story failed")
		return res
	}

	if steps.Assets {
		if err := r.stages.Audio.Run(ctx, story); err != nil {
			return fail("audio", err)
		}
		if err := r.stages.Images.Run(ctx, story, style); err != nil {
			return fail("images", err)
		}
	}
	if !steps.Render {
		return res
	}

	in, err := assemble.Resolve(ctx, story, style.Name, r.store, r.stages.Prober, r.cfg.Audio.OutputFormat)
	if err != nil {
		return fail("assemble", err)
	}
	plan, err := assemble.Assemble(in, AssembleOptions(r.cfg))
	if err != nil {
		var ae *assemble.AssemblyError
		if errors.As(err, &ae) {
			res.Skipped = ae.Reasons
		}
		return fail("assemble", err)
	}
	res.Skipped = plan.Skipped
	res.Duration = plan.Duration
	saveJSON(filepath.Join(r.runDir, id, "plan.json"), plan)
	r.saveSubtitles(filepath.Join(r.runDir, id, "subtitles.ass"), plan)

	videoKey := store.VideoKey(id)
	done, err := r.store.Exists(ctx, videoKey)
	if err != nil {
		return fail("render", err)
	}
	res.VideoFile = r.store.Path(videoKey)
	if done {
		log.Info().Str("stage", "render").Str("story", id).Msg("video already rendered, skipping")
	} else {
		if _, err := r.stages.Render.Run(ctx, plan, filepath.Join(r.runDir, id), res.VideoFile); err != nil {
			_ = os.Remove(res.VideoFile)
			return fail("render", err)
		}
		if err := r.store.Commit(ctx, videoKey); err != nil {
			return fail("render", err)
		}
	}

	if !steps.Publish {
		return res
	}

	if r.stages.Metadata != nil && r.cfg.Metadata.Enabled {
		md, err := r.stages.Metadata.Run(ctx, story, plan.Duration)
		if err != nil {
			return fail("metadata", err)
		}
		res.Metadata = md
		saveJSON(filepath.Join(r.runDir, id, "metadata.json"), md)
	}

	if r.stages.Upload != nil && r.cfg.Upload.Enabled {
		if res.Metadata == nil {
			return fail("upload", fmt.Errorf("no metadata to upload with"))
		}
		videoID, videoURL, err := r.stages.Upload.Run(ctx, res.VideoFile, res.Metadata)
		if err != nil {
			return fail("upload", err)
		}
		res.YouTubeID, res.YouTubeURL = videoID, videoURL
		if _, err := upload.LogUpload(videoID, videoURL, res.VideoFile, r.cfg.Paths.Logs, res.Metadata); err != nil {
			log.Warn().Str("stage", "upload").Err(err).Msg("could not write upload log")
		}
	}
	return res
}

// AssembleOptions maps the configuration onto assembly settings.
func AssembleOptions(cfg *config.Config) assemble.Options {
	return assemble.Options{
		Timeline: timeline.Options{
			MaxChars:         cfg.Subtitles.MaxCharsPerScreen,
			MinChunkDuration: cfg.Subtitles.MinChunkDuration,
			TrailingPad:      cfg.Video.TrailingScenePad,
		},
		IntroPad:    cfg.Video.IntroPad,
		IntroFadeIn: cfg.Video.IntroFadeIn,
		CrossFade:   cfg.Video.CrossFade,
	}
}

// saveSubtitles writes the whole video's subtitles on the video clock, for
// review and for players that take a sidecar track.
func (r *Runner) saveSubtitles(path string, plan *assemble.Plan) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not create directory")
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not save subtitles")
		return
	}
	defer f.Close()

	style := assemble.NewSubtitleStyle(r.cfg.Subtitles, r.cfg.Video.Width, r.cfg.Video.Height)
	if err := assemble.WriteASS(f, plan.AbsoluteSubtitles(), style); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not save subtitles")
	}
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not marshal JSON")
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not create directory")
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not save JSON")
	}
}
