package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"fairytale-pipeline/config"
	"fairytale-pipeline/store"
	"fairytale-pipeline/types"

	"github.com/rs/zerolog/log"
)

// Synthesizer turns text into a speech file using the given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, outFile string) error
}

// NewSynthesizer picks the TTS engine from config. TTS_COMMAND in the
// environment overrides the configured command.
func NewSynthesizer(cfg *config.Config) (Synthesizer, error) {
	cmd := os.Getenv("TTS_COMMAND")
	if cmd == "" {
		cmd = cfg.Audio.Command
	}
	if cmd != "" || cfg.Audio.Engine == "command" {
		if cmd == "" {
			return nil, fmt.Errorf("audio.engine is command but no TTS command is set")
		}
		return &CommandTTS{Command: strings.TrimSpace(cmd)}, nil
	}

	if _, err := exec.LookPath("edge-tts"); err != nil {
		return nil, fmt.Errorf("no TTS engine found. Set TTS_COMMAND in .env or install edge-tts: pip install edge-tts")
	}
	return EdgeTTS{}, nil
}

// EdgeTTS calls the edge-tts CLI (free Microsoft neural voices).
type EdgeTTS struct{}

func (EdgeTTS) Synthesize(ctx context.Context, text, voice, outFile string) error {
	cmd := exec.CommandContext(ctx,
		"edge-tts",
		"--voice", voice,
		"--text", text,
		"--write-media", outFile,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// CommandTTS runs a custom script that accepts --text, --voice and --output.
type CommandTTS struct {
	Command string
}

func (c *CommandTTS) Synthesize(ctx context.Context, text, voice, outFile string) error {
	args := []string{"--text", text, "--voice", voice, "--output", outFile}
	var cmd *exec.Cmd
	if strings.HasSuffix(c.Command, ".py") {
		cmd = exec.CommandContext(ctx, "python3", append([]string{c.Command}, args...)...)
	} else {
		cmd = exec.CommandContext(ctx, c.Command, args...)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Generator produces one audio file per script line plus the spoken title
type Generator struct {
	cfg     *config.Config
	tts     Synthesizer
	store   store.Store
	backoff time.Duration
}

// New creates a new Generator
func New(cfg *config.Config, tts Synthesizer, st store.Store) *Generator {
	return &Generator{cfg: cfg, tts: tts, store: st, backoff: 2 * time.Second}
}

// Run synthesizes every line of the story that is not in the store yet.
// A line that still fails after retries is logged and left missing; the
// timeline skips it later.
func (g *Generator) Run(ctx context.Context, story *types.Story) error {
	id := story.ID()
	total := 0
	for _, scene := range story.Scenes {
		total += len(scene.Scripts)
	}
	log.Info().Str("stage", "audio").Str("story", id).Int("lines", total).Msg("generating TTS audio")

	if _, err := g.ensure(ctx, store.TitleAudioKey(id, g.cfg.Audio.OutputFormat), story.Title, g.cfg.Audio.TitleVoice); err != nil {
		log.Warn().Str("stage", "audio").Err(err).Msg("title audio failed, intro will be skipped")
	}

	done, failed := 0, 0
	for _, scene := range story.Scenes {
		for idx, line := range scene.Scripts {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := store.AudioKey(id, scene.SceneNum, idx, line.Role, g.cfg.Audio.OutputFormat)
			created, err := g.ensure(ctx, key, line.Text, g.Voice(line.Role))
			if err != nil {
				failed++
				log.Warn().Str("stage", "audio").Err(err).Str("key", string(key)).Msg("line audio failed")
				continue
			}
			done++
			if created {
				log.Debug().Str("stage", "audio").Msgf("[%d/%d] %s (%s)", done, total, key, line.Role)
			}
		}
	}

	log.Info().Str("stage", "audio").Str("story", id).Int("ok", done).Int("failed", failed).Msg("audio complete")
	if done == 0 && total > 0 {
		return fmt.Errorf("no line audio could be generated for %s", id)
	}
	return nil
}

// Voice returns the configured voice for role, or the default voice.
func (g *Generator) Voice(role string) string {
	if v, ok := g.cfg.Audio.Voices[role]; ok && v != "" {
		return v
	}
	return g.cfg.Audio.DefaultVoice
}

// ensure synthesizes key unless it already exists. Speech is written to the
// part file of key and only promoted once synthesis succeeded. It reports
// whether a new file was written.
func (g *Generator) ensure(ctx context.Context, key store.Key, text, voice string) (bool, error) {
	ok, err := g.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	partFile := store.PartPath(g.store, key)
	if err := os.MkdirAll(filepath.Dir(partFile), 0755); err != nil {
		return false, fmt.Errorf("create audio dir: %w", err)
	}

	retries := max(g.cfg.Audio.Retries, 1)
	for attempt := 1; attempt <= retries; attempt++ {
		err = g.tts.Synthesize(ctx, text, voice, partFile)
		if err == nil {
			break
		}
		log.Warn().Str("stage", "audio").Err(err).Msgf("TTS attempt %d failed, retrying", attempt)
		if attempt < retries {
			select {
			case <-ctx.Done():
				_ = os.Remove(partFile)
				return false, ctx.Err()
			case <-time.After(time.Duration(attempt) * g.backoff):
			}
		}
	}
	if err != nil {
		_ = os.Remove(partFile)
		return false, fmt.Errorf("tts %s: %w", key, err)
	}

	if err := store.Promote(ctx, g.store, key); err != nil {
		_ = os.Remove(partFile)
		return false, err
	}
	return true, nil
}
