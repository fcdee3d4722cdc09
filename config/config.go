package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Stories   StoriesConfig   `yaml:"stories"`
	Audio     AudioConfig     `yaml:"audio"`
	Images    ImagesConfig    `yaml:"images"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Video     VideoConfig     `yaml:"video"`
	Store     StoreConfig     `yaml:"store"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Upload    UploadConfig    `yaml:"upload"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Paths     PathsConfig     `yaml:"paths"`
	Workers   int             `yaml:"workers"`
}

type StoriesConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MinScenes   int     `yaml:"min_scenes"`
	MaxScenes   int     `yaml:"max_scenes"`
	Limit       int     `yaml:"limit"`
}

type AudioConfig struct {
	Engine       string            `yaml:"engine"` // edge-tts | command
	Command      string            `yaml:"command"`
	OutputFormat string            `yaml:"output_format"`
	DefaultVoice string            `yaml:"default_voice"`
	TitleVoice   string            `yaml:"title_voice"`
	Voices       map[string]string `yaml:"voices"`
	Retries      int               `yaml:"retries"`
}

type ImagesConfig struct {
	Provider  string `yaml:"provider"` // openai | pollinations
	Model     string `yaml:"model"`
	Size      string `yaml:"size"`
	Quality   string `yaml:"quality"`
	StyleSeed int64  `yaml:"style_seed"`
	Cooldown  int    `yaml:"cooldown_sec"`
	Retries   int    `yaml:"retries"`
}

type SubtitlesConfig struct {
	MaxCharsPerScreen int     `yaml:"max_chars_per_screen"`
	MinChunkDuration  float64 `yaml:"min_chunk_duration"`
	Font              string  `yaml:"font"`
	FontFile          string  `yaml:"font_file"`
	FontSize          int     `yaml:"font_size"`
	TitleFontSize     int     `yaml:"title_font_size"`
	Color             string  `yaml:"color"`
	StrokeWidth       float64 `yaml:"stroke_width"`
	BoxOpacity        float64 `yaml:"box_opacity"`
	MarginBottom      int     `yaml:"margin_bottom"`
}

type VideoConfig struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	FPS              int     `yaml:"fps"`
	Preset           string  `yaml:"preset"`
	TrailingScenePad float64 `yaml:"trailing_scene_pad"`
	IntroPad         float64 `yaml:"intro_pad"`
	IntroFadeIn      float64 `yaml:"intro_fade_in"`
	CrossFade        float64 `yaml:"cross_fade"`
}

type StoreConfig struct {
	Backend   string `yaml:"backend"` // file | redis
	RedisAddr string `yaml:"redis_addr"`
	Namespace string `yaml:"namespace"`
}

type MetadataConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Model             string `yaml:"model"`
	TitleMaxChars     int    `yaml:"title_max_chars"`
	TagsCount         int    `yaml:"tags_count"`
	YouTubeCategoryID string `yaml:"youtube_category_id"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	DefaultLanguage   string `yaml:"default_language"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

type PathsConfig struct {
	CrawledTales     string `yaml:"crawled_tales"`
	ProcessedStories string `yaml:"processed_stories"`
	Assets           string `yaml:"assets"`
	Output           string `yaml:"output"`
	Logs             string `yaml:"logs"`
}

// Load reads config.yaml on top of the defaults, so keys missing from the
// file keep their default and explicit zeros are kept as written.
// A missing file is not an error: the defaults describe a working local setup.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	// workers: 0 means one per CPU
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	setString(&c.Stories.Model, "gpt-4o-mini")
	setFloat(&c.Stories.Temperature, 0.7)
	setInt(&c.Stories.MinScenes, 6)
	setInt(&c.Stories.MaxScenes, 10)

	setString(&c.Audio.Engine, "edge-tts")
	setString(&c.Audio.OutputFormat, "mp3")
	setString(&c.Audio.DefaultVoice, "ko-KR-SunHiNeural")
	setString(&c.Audio.TitleVoice, "ko-KR-HyunsuMultilingualNeural")
	setInt(&c.Audio.Retries, 3)

	setString(&c.Images.Provider, "openai")
	setString(&c.Images.Model, "gpt-image-1")
	setString(&c.Images.Size, "1536x1024")
	setString(&c.Images.Quality, "high")
	setInt(&c.Images.Cooldown, 5)
	setInt(&c.Images.Retries, 3)

	setInt(&c.Subtitles.MaxCharsPerScreen, 40)
	setFloat(&c.Subtitles.MinChunkDuration, 1.0)
	setString(&c.Subtitles.Font, "Malgun Gothic")
	setInt(&c.Subtitles.FontSize, 45)
	setInt(&c.Subtitles.TitleFontSize, 80)
	setString(&c.Subtitles.Color, "white")
	setFloat(&c.Subtitles.StrokeWidth, 2)
	setFloat(&c.Subtitles.BoxOpacity, 0.63)
	setInt(&c.Subtitles.MarginBottom, 100)

	setInt(&c.Video.Width, 1536)
	setInt(&c.Video.Height, 1024)
	setInt(&c.Video.FPS, 24)
	setString(&c.Video.Preset, "ultrafast")
	setFloat(&c.Video.TrailingScenePad, 0.5)
	setFloat(&c.Video.IntroPad, 2.0)
	setFloat(&c.Video.IntroFadeIn, 1.5)
	setFloat(&c.Video.CrossFade, 0.5)

	setString(&c.Store.Backend, "file")
	setString(&c.Store.RedisAddr, "localhost:6379")
	setString(&c.Store.Namespace, "fairytale")

	setString(&c.Metadata.Model, "gpt-4o-mini")
	setInt(&c.Metadata.TitleMaxChars, 70)
	setInt(&c.Metadata.TagsCount, 20)
	setString(&c.Metadata.YouTubeCategoryID, "1")

	setString(&c.Upload.Visibility, "private")
	setString(&c.Upload.DefaultLanguage, "ko")

	setString(&c.Schedule.Cron, "0 9 * * 2,5")

	setString(&c.Paths.CrawledTales, "fairy_tales.json")
	setString(&c.Paths.ProcessedStories, "processed_stories.json")
	setString(&c.Paths.Assets, "output_assets")
	setString(&c.Paths.Output, "output")
	setString(&c.Paths.Logs, "logs")

	setInt(&c.Workers, runtime.NumCPU())
}

// Validate rejects settings the timeline cannot work with.
func (c *Config) Validate() error {
	if c.Subtitles.MaxCharsPerScreen <= 0 {
		return fmt.Errorf("subtitles.max_chars_per_screen must be positive, got %d", c.Subtitles.MaxCharsPerScreen)
	}
	if c.Subtitles.MinChunkDuration < 0 {
		return fmt.Errorf("subtitles.min_chunk_duration must not be negative, got %v", c.Subtitles.MinChunkDuration)
	}
	if c.Video.TrailingScenePad < 0 || c.Video.IntroPad < 0 || c.Video.IntroFadeIn < 0 || c.Video.CrossFade < 0 {
		return fmt.Errorf("video pads and fades must not be negative")
	}
	if c.Subtitles.BoxOpacity < 0 || c.Subtitles.BoxOpacity > 1 {
		return fmt.Errorf("subtitles.box_opacity must be between 0 and 1, got %v", c.Subtitles.BoxOpacity)
	}
	switch c.Store.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("store.backend must be file or redis, got %q", c.Store.Backend)
	}
	switch c.Images.Provider {
	case "openai", "pollinations":
	default:
		return fmt.Errorf("images.provider must be openai or pollinations, got %q", c.Images.Provider)
	}
	return nil
}

func setString(p *string, v string) {
	if *p == "" {
		*p = v
	}
}

func setInt(p *int, v int) {
	if *p == 0 {
		*p = v
	}
}

func setFloat(p *float64, v float64) {
	if *p == 0 {
		*p = v
	}
}
