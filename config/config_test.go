package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Subtitles.MaxCharsPerScreen != 40 {
		t.Errorf("max_chars_per_screen = %d, want 40", cfg.Subtitles.MaxCharsPerScreen)
	}
	if cfg.Subtitles.MinChunkDuration != 1.0 {
		t.Errorf("min_chunk_duration = %v, want 1.0", cfg.Subtitles.MinChunkDuration)
	}
	if cfg.Video.TrailingScenePad != 0.5 || cfg.Video.IntroPad != 2.0 {
		t.Errorf("pads = %v/%v, want 0.5/2.0", cfg.Video.TrailingScenePad, cfg.Video.IntroPad)
	}
	if cfg.Workers <= 0 {
		t.Errorf("workers = %d, want positive", cfg.Workers)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
subtitles:
  max_chars_per_screen: 24
video:
  intro_pad: 3.5
store:
  backend: redis
images:
  provider: pollinations
  style_seed: 7
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Subtitles.MaxCharsPerScreen != 24 {
		t.Errorf("max_chars_per_screen = %d, want 24", cfg.Subtitles.MaxCharsPerScreen)
	}
	if cfg.Video.IntroPad != 3.5 {
		t.Errorf("intro_pad = %v, want 3.5", cfg.Video.IntroPad)
	}
	if cfg.Video.TrailingScenePad != 0.5 {
		t.Errorf("trailing_scene_pad = %v, want default 0.5", cfg.Video.TrailingScenePad)
	}
	if cfg.Store.Backend != "redis" || cfg.Images.Provider != "pollinations" || cfg.Images.StyleSeed != 7 {
		t.Errorf("unexpected store/images config: %+v %+v", cfg.Store, cfg.Images)
	}
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
subtitles:
  min_chunk_duration: 0
  box_opacity: 0
video:
  trailing_scene_pad: 0
  intro_pad: 0
  cross_fade: 0
workers: 0
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Subtitles.MinChunkDuration != 0 || cfg.Subtitles.BoxOpacity != 0 {
		t.Errorf("min_chunk=%v box=%v, want 0/0", cfg.Subtitles.MinChunkDuration, cfg.Subtitles.BoxOpacity)
	}
	if cfg.Video.TrailingScenePad != 0 || cfg.Video.IntroPad != 0 || cfg.Video.CrossFade != 0 {
		t.Errorf("trailing=%v intro=%v cross=%v, want zeros",
			cfg.Video.TrailingScenePad, cfg.Video.IntroPad, cfg.Video.CrossFade)
	}
	// untouched keys keep their defaults
	if cfg.Subtitles.MaxCharsPerScreen != 40 || cfg.Video.IntroFadeIn != 1.5 {
		t.Errorf("defaults lost: chars=%d fade=%v", cfg.Subtitles.MaxCharsPerScreen, cfg.Video.IntroFadeIn)
	}
	if cfg.Workers <= 0 {
		t.Errorf("workers = %d, want one per CPU", cfg.Workers)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"negative chars": "subtitles:\n  max_chars_per_screen: -3\n",
		"negative pad":   "video:\n  trailing_scene_pad: -1\n",
		"bad backend":    "store:\n  backend: s3\n",
		"box opacity":    "subtitles:\n  box_opacity: 1.5\n",
		"zero chars":     "subtitles:\n  max_chars_per_screen: 0\n",
		"bad yaml":       "subtitles: [",
	}
	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}
