package timeline

import "fmt"

// Production defaults for Options.
const (
	DefaultMaxChars         = 40
	DefaultMinChunkDuration = 1.0
	DefaultTrailingPad      = 0.5
)

// Options controls subtitle chunking and scene padding.
type Options struct {
	MaxChars         int
	MinChunkDuration float64
	TrailingPad      float64
}

// DefaultOptions returns the settings used by the production pipeline.
func DefaultOptions() Options {
	return Options{
		MaxChars:         DefaultMaxChars,
		MinChunkDuration: DefaultMinChunkDuration,
		TrailingPad:      DefaultTrailingPad,
	}
}

// SceneLine is one spoken line together with its synthesized audio.
// AudioRef is empty when the speech collaborator produced nothing.
type SceneLine struct {
	Index         int
	Role          string
	Text          string
	AudioRef      string
	AudioDuration float64
}

// TimedLine is a line placed on the scene clock.
type TimedLine struct {
	Index    int          `json:"index"`
	Role     string       `json:"role"`
	AudioRef string       `json:"audio_ref"`
	Start    float64      `json:"start"`
	Duration float64      `json:"duration"`
	Chunks   []TimedChunk `json:"chunks"`
}

// Scene is the result of sequencing one scene's lines.
type Scene struct {
	Index    int         `json:"index"`
	Lines    []TimedLine `json:"lines"`
	Duration float64     `json:"duration"`
	Warnings []error     `json:"-"`
}

// Empty reports whether no line of the scene had audio.
func (s *Scene) Empty() bool {
	return len(s.Lines) == 0
}

// Chunks returns every subtitle chunk of the scene in playback order.
func (s *Scene) Chunks() []TimedChunk {
	var out []TimedChunk
	for _, l := range s.Lines {
		out = append(out, l.Chunks...)
	}
	return out
}

// AudioRefs returns the line audio files in playback order.
func (s *Scene) AudioRefs() []string {
	refs := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		refs = append(refs, l.AudioRef)
	}
	return refs
}

// BuildScene chunks every line, allocates its audio time across the chunks
// and places the chunks back to back on a scene-relative clock.
//
// Lines without audio are skipped and reported in Warnings. The scene lasts
// until the last chunk ends plus opts.TrailingPad; an empty scene lasts 0.
func BuildScene(index int, lines []SceneLine, opts Options) Scene {
	scene := Scene{Index: index}
	cursor := 0.0

	for _, line := range lines {
		if line.AudioRef == "" {
			scene.Warnings = append(scene.Warnings, &MissingAssetError{
				Kind:  "audio",
				Scene: index,
				Line:  line.Index,
				Key:   line.Role,
			})
			continue
		}

		chunks := Allocate(Chunk(line.Text, opts.MaxChars), line.AudioDuration, opts.MinChunkDuration)
		if len(chunks) == 0 || line.AudioDuration <= 0 {
			scene.Warnings = append(scene.Warnings,
				fmt.Errorf("scene %d line %d: no subtitle time (%d chunks, %.3fs): %w",
					index, line.Index, len(chunks), line.AudioDuration, ErrDegenerateInput))
		} else if last := chunks[len(chunks)-1]; last.Duration < 0 {
			// the floor took more than the line has; the last chunk paid for it
			scene.Warnings = append(scene.Warnings,
				fmt.Errorf("scene %d line %d: last subtitle has negative time %.3fs: %w",
					index, line.Index, last.Duration, ErrDegenerateInput))
		}

		timed := TimedLine{
			Index:    line.Index,
			Role:     line.Role,
			AudioRef: line.AudioRef,
			Start:    cursor,
			Duration: line.AudioDuration,
			Chunks:   chunks,
		}
		for i := range timed.Chunks {
			timed.Chunks[i].Start = cursor
			cursor += timed.Chunks[i].Duration
		}
		if len(chunks) == 0 {
			cursor += line.AudioDuration
		}

		scene.Lines = append(scene.Lines, timed)
	}

	if !scene.Empty() {
		scene.Duration = cursor + opts.TrailingPad
	}
	return scene
}
