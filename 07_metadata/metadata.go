package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fairytale-pipeline/config"
	"fairytale-pipeline/llm"
	"fairytale-pipeline/types"

	"github.com/rs/zerolog/log"
)

const metadataSystemPrompt = `You write YouTube metadata for a Korean children's channel that publishes narrated,
illustrated traditional fairy tales (전래동화).

Write everything in Korean. The audience is parents and young children, so keep it warm,
gentle and honest. No clickbait, no scary wording.

- "title": the story title plus a short inviting hook, at most %d characters.
- "description": 3 short paragraphs: what the story is about, the lesson it teaches, and an
  invitation to subscribe. End with a few hashtags.
- "tags": exactly %d search tags, a mix of broad (동화, 전래동화, 어린이) and story-specific ones.`

type metadataJSON struct {
	Title       string   `json:"title" jsonschema_description:"Video title in Korean."`
	Description string   `json:"description" jsonschema_description:"Video description in Korean."`
	Tags        []string `json:"tags" jsonschema_description:"Search tags."`
}

var metadataSchema = llm.GenerateSchema[metadataJSON]()

// Generator creates YouTube metadata for a finished story
type Generator struct {
	cfg    *config.Config
	client *llm.Client
	now    func() time.Time
}

// New creates a new metadata Generator. client may be nil, in which case
// metadata is built from the story alone.
func New(cfg *config.Config, client *llm.Client) *Generator {
	return &Generator{cfg: cfg, client: client, now: time.Now}
}

// Run generates the metadata for story. A failing model call falls back to
// template metadata so an upload is never blocked by it.
func (g *Generator) Run(ctx context.Context, story *types.Story, duration float64) (*types.VideoMetadata, error) {
	raw := g.fallback(story)

	if g.client != nil {
		log.Info().Str("stage", "metadata").Str("story", story.ID()).Msg("generating YouTube metadata")
		system := fmt.Sprintf(metadataSystemPrompt, g.cfg.Metadata.TitleMaxChars, g.cfg.Metadata.TagsCount)
		out, err := llm.Structured[metadataJSON](ctx, g.client, system, buildMetadataPrompt(story, duration), metadataSchema)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Str("stage", "metadata").Err(err).Msg("model metadata failed, using template")
		case strings.TrimSpace(out.Title) == "":
			log.Warn().Str("stage", "metadata").Msg("model returned an empty title, using template")
		default:
			raw = out
		}
	}

	metadata := &types.VideoMetadata{
		Title:            truncateRunes(strings.TrimSpace(raw.Title), g.cfg.Metadata.TitleMaxChars),
		Description:      strings.TrimSpace(raw.Description),
		Tags:             cleanTags(raw.Tags, g.cfg.Metadata.TagsCount),
		CategoryID:       g.cfg.Metadata.YouTubeCategoryID,
		Visibility:       g.cfg.Upload.Visibility,
		ScheduledTimeUTC: nextUploadTime(g.now()),
	}

	log.Info().Str("stage", "metadata").Str("title", metadata.Title).Int("tags", len(metadata.Tags)).Msg("metadata ready")
	return metadata, nil
}

func (g *Generator) fallback(story *types.Story) *metadataJSON {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("옛날 옛적 이야기 「%s」를 그림과 함께 들려드려요.\n\n", story.Title))
	if len(story.Scenes) > 0 && len(story.Scenes[0].Scripts) > 0 {
		sb.WriteString(truncateRunes(story.Scenes[0].Scripts[0].Text, 200))
		sb.WriteString("\n\n")
	}
	sb.WriteString("재미있게 보셨다면 구독과 좋아요 부탁드려요!\n\n#전래동화 #동화 #어린이동화")

	return &metadataJSON{
		Title:       fmt.Sprintf("[전래동화] %s", story.Title),
		Description: sb.String(),
		Tags:        []string{story.Title, "전래동화", "동화", "어린이동화", "잠자리동화", "한국동화", "옛날이야기"},
	}
}

func buildMetadataPrompt(story *types.Story, duration float64) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("STORY TITLE: %s\n", story.Title))
	sb.WriteString(fmt.Sprintf("VIDEO LENGTH: %.0f seconds (~%.1f minutes)\n\n", duration, duration/60))

	sb.WriteString("SCENES:\n")
	for _, s := range story.Scenes {
		line := s.VisualPrompt
		if line == "" && len(s.Scripts) > 0 {
			line = s.Scripts[0].Text
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", s.SceneNum, truncateRunes(line, 120)))
	}
	return sb.String()
}

// cleanTags drops blanks and duplicates and keeps at most n tags.
func cleanTags(tags []string, n int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimPrefix(t, "#"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// nextUploadTime returns the next Tuesday or Friday at 9AM KST in UTC
func nextUploadTime(now time.Time) string {
	loc := time.FixedZone("KST", 9*60*60)
	now = now.In(loc)

	for i := 1; i <= 7; i++ {
		candidate := now.AddDate(0, 0, i)
		wd := candidate.Weekday()
		if wd == time.Tuesday || wd == time.Friday {
			upload := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 9, 0, 0, 0, loc)
			return upload.UTC().Format(time.RFC3339)
		}
	}
	return now.UTC().Add(48 * time.Hour).Format(time.RFC3339)
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
