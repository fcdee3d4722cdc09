package assemble

import (
	"errors"
	"fmt"
	"strings"

	"fairytale-pipeline/04_timeline"

	"github.com/rs/zerolog/log"
)

// ErrAssemblyFailure is returned when a story has nothing left to render.
var ErrAssemblyFailure = errors.New("assembly failure")

// AssemblyError explains why a story produced no composable scene.
type AssemblyError struct {
	StoryID string
	Reasons []string
}

func (e *AssemblyError) Error() string {
	msg := fmt.Sprintf("story %q: no composable scenes", e.StoryID)
	if len(e.Reasons) > 0 {
		msg += " (" + strings.Join(e.Reasons, "; ") + ")"
	}
	return msg + ": " + ErrAssemblyFailure.Error()
}

func (e *AssemblyError) Unwrap() error { return ErrAssemblyFailure }

// SceneInput is one scene with its assets already looked up.
// ImageRef is empty when no illustration exists.
type SceneInput struct {
	Index    int
	ImageRef string
	Lines    []timeline.SceneLine
}

// Input is everything needed to lay out one story.
type Input struct {
	StoryID       string
	Title         string
	Style         string
	TitleAudioRef string
	TitleDuration float64
	Scenes        []SceneInput
}

// Options are the assembly knobs on top of the timeline settings.
type Options struct {
	Timeline    timeline.Options
	IntroPad    float64
	IntroFadeIn float64
	CrossFade   float64
}

// Overlay is one subtitle shown at Start (relative to its scene) for Duration.
type Overlay struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Intro is the title card that opens the video.
type Intro struct {
	Title    string  `json:"title"`
	AudioRef string  `json:"audio_ref"`
	Duration float64 `json:"duration"`
	FadeIn   float64 `json:"fade_in"`
}

// ScenePlan is the render instruction set for one scene.
type ScenePlan struct {
	Index     int       `json:"index"`
	ImageRef  string    `json:"image_ref"`
	AudioRefs []string  `json:"audio_refs"`
	Start     float64   `json:"start"`
	Duration  float64   `json:"duration"`
	CrossFade float64   `json:"cross_fade"`
	Subtitles []Overlay `json:"subtitles"`
}

// Plan is the full layout of one video. Intro, when present, starts at 0 and
// scenes follow back to back.
type Plan struct {
	StoryID  string      `json:"story_id"`
	Title    string      `json:"title"`
	Style    string      `json:"style"`
	Intro    *Intro      `json:"intro,omitempty"`
	Scenes   []ScenePlan `json:"scenes"`
	Duration float64     `json:"duration"`
	Skipped  []string    `json:"skipped,omitempty"`
}

// DefaultOptions returns the production assembly settings.
func DefaultOptions() Options {
	return Options{
		Timeline:    timeline.DefaultOptions(),
		IntroPad:    2.0,
		IntroFadeIn: 1.5,
		CrossFade:   0.5,
	}
}

// Assemble lays out the intro and every composable scene of in.
//
// Scenes without an image or without a single voiced line are left out and
// recorded in Plan.Skipped. If nothing remains, an *AssemblyError is returned.
func Assemble(in Input, opts Options) (*Plan, error) {
	plan := &Plan{StoryID: in.StoryID, Title: in.Title, Style: in.Style}
	cursor := 0.0

	if in.TitleAudioRef != "" {
		plan.Intro = &Intro{
			Title:    in.Title,
			AudioRef: in.TitleAudioRef,
			Duration: in.TitleDuration + opts.IntroPad,
			FadeIn:   opts.IntroFadeIn,
		}
		cursor = plan.Intro.Duration
	} else {
		plan.Skipped = append(plan.Skipped, "intro: no title audio")
		log.Warn().Str("stage", "assemble").Str("story", in.StoryID).Msg("no title audio, rendering without intro")
	}

	for _, si := range in.Scenes {
		if si.ImageRef == "" {
			err := &timeline.MissingAssetError{Kind: "image", Scene: si.Index, Line: -1, Key: fmt.Sprintf("S%02d", si.Index)}
			plan.Skipped = append(plan.Skipped, err.Error())
			log.Warn().Str("stage", "assemble").Err(err).Msg("skipping scene")
			continue
		}

		scene := timeline.BuildScene(si.Index, si.Lines, opts.Timeline)
		for _, w := range scene.Warnings {
			plan.Skipped = append(plan.Skipped, w.Error())
			log.Warn().Str("stage", "assemble").Err(w).Msg("line skipped")
		}
		if scene.Empty() {
			reason := fmt.Sprintf("scene %d: no voiced lines", si.Index)
			plan.Skipped = append(plan.Skipped, reason)
			log.Warn().Str("stage", "assemble").Str("story", in.StoryID).Msg(reason)
			continue
		}

		sp := ScenePlan{
			Index:     si.Index,
			ImageRef:  si.ImageRef,
			AudioRefs: scene.AudioRefs(),
			Start:     cursor,
			Duration:  scene.Duration,
			CrossFade: min(opts.CrossFade, scene.Duration),
		}
		for _, c := range scene.Chunks() {
			sp.Subtitles = append(sp.Subtitles, Overlay{Text: c.Text, Start: c.Start, Duration: c.Duration})
		}
		plan.Scenes = append(plan.Scenes, sp)
		cursor += scene.Duration
	}

	if len(plan.Scenes) == 0 {
		return nil, &AssemblyError{StoryID: in.StoryID, Reasons: plan.Skipped}
	}

	plan.Duration = cursor
	log.Info().Str("stage", "assemble").Str("story", in.StoryID).Int("scenes", len(plan.Scenes)).
		Float64("duration", plan.Duration).Int("skipped", len(plan.Skipped)).Msg("plan ready")
	return plan, nil
}

// AbsoluteSubtitles returns every overlay shifted onto the video clock.
func (p *Plan) AbsoluteSubtitles() []Overlay {
	var out []Overlay
	for _, s := range p.Scenes {
		for _, o := range s.Subtitles {
			out = append(out, Overlay{Text: o.Text, Start: s.Start + o.Start, Duration: o.Duration})
		}
	}
	return out
}
