package stories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fairytale-pipeline/config"
	"fairytale-pipeline/llm"
	"fairytale-pipeline/types"

	"github.com/rs/zerolog/log"
)

const systemPrompt = `You adapt traditional Korean fairy tales into narrated video scripts for a children's YouTube channel.

Speaker roles MUST come from this list only. Never invent others (no "엄마", "행인", "호랑이"):
[해설, 남자아이, 여자아이, 소년, 소녀, 청년, 처녀, 아주머니, 할아버지, 할머니, 악당, 동물, 신요정]

Rules:
1. Rebuild the whole story as %d to %d key scenes.
2. "visual_prompt": a concrete, lyrical Korean description of the scene for an illustrator.
3. Expand the narrator (해설) lines well beyond the source: describe the setting, the weather and
   how the characters feel, the way a storyteller reads aloud to children.
4. Keep character dialogue true to the source but natural to say out loud.
5. Number scenes from 1 in "scene_num".`

// adaptation is the structured response the model must return
type adaptation struct {
	Title  string       `json:"title" jsonschema_description:"The story title in Korean."`
	Scenes []sceneAdapt `json:"scenes" jsonschema_description:"The scenes of the adapted story in order."`
}

type sceneAdapt struct {
	SceneNum     int           `json:"scene_num" jsonschema_description:"1-based scene number."`
	VisualPrompt string        `json:"visual_prompt" jsonschema_description:"Illustration prompt for the scene."`
	Scripts      []scriptAdapt `json:"scripts" jsonschema_description:"Spoken lines in order."`
}

type scriptAdapt struct {
	Role string `json:"role" jsonschema_description:"Speaker role from the allowed list."`
	Text string `json:"text" jsonschema_description:"What the speaker says."`
}

var adaptationSchema = llm.GenerateSchema[adaptation]()

// Adapter turns crawled tales into scene scripts with a language model
type Adapter struct {
	cfg    *config.Config
	client *llm.Client
	pause  time.Duration
}

// New creates a new Adapter
func New(cfg *config.Config, client *llm.Client) *Adapter {
	return &Adapter{cfg: cfg, client: client, pause: time.Second}
}

// Run adapts up to limit tales (0 = all). A tale that fails to adapt is
// logged and skipped; the rest continue.
func (a *Adapter) Run(ctx context.Context, tales []types.Tale, limit int) ([]types.Story, error) {
	if limit > 0 && limit < len(tales) {
		tales = tales[:limit]
	}
	log.Info().Str("stage", "stories").Int("tales", len(tales)).Msg("adapting tales")

	var out []types.Story
	for i, tale := range tales {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		log.Info().Str("stage", "stories").Msgf("[%d/%d] %s", i+1, len(tales), tale.Title)

		story, err := a.adapt(ctx, tale)
		if err != nil {
			log.Warn().Str("stage", "stories").Err(err).Str("title", tale.Title).Msg("adaptation failed, skipping")
			continue
		}
		out = append(out, *story)

		if i < len(tales)-1 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(a.pause):
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no tale could be adapted")
	}
	return out, nil
}

func (a *Adapter) adapt(ctx context.Context, tale types.Tale) (*types.Story, error) {
	text := tale.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("tale %s has no text", tale.Seq)
	}

	system := fmt.Sprintf(systemPrompt, a.cfg.Stories.MinScenes, a.cfg.Stories.MaxScenes)
	prompt := fmt.Sprintf("동화 제목: %s\n\n동화 내용:\n%s", tale.Title, text)

	raw, err := llm.Structured[adaptation](ctx, a.client, system, prompt, adaptationSchema)
	if err != nil {
		return nil, err
	}
	return convert(tale, raw), nil
}

// convert copies the model output into a Story, forcing every role into the
// closed role set, dropping empty lines and scenes and making scene numbers
// unique.
func convert(tale types.Tale, raw *adaptation) *types.Story {
	story := &types.Story{
		Title:       strings.TrimSpace(raw.Title),
		OriginalSeq: tale.Seq,
	}
	if story.Title == "" {
		story.Title = tale.Title
	}

	for _, s := range raw.Scenes {
		scene := types.Scene{
			SceneNum:     s.SceneNum,
			VisualPrompt: strings.TrimSpace(s.VisualPrompt),
		}

		for _, line := range s.Scripts {
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			role, known := types.NormalizeRole(line.Role)
			if !known {
				log.Warn().Str("stage", "stories").Str("role", line.Role).Int("scene", scene.SceneNum).
					Msg("unknown role, using narrator")
			}
			scene.Scripts = append(scene.Scripts, types.ScriptLine{Role: role, Text: text})
		}

		if len(scene.Scripts) == 0 {
			continue
		}
		story.Scenes = append(story.Scenes, scene)
	}

	renumberScenes(story.Scenes)
	return story
}

// renumberScenes numbers scenes 1..n in order when the model's numbers are
// unusable. Asset keys are per scene number, so numbers must be positive
// and unique.
func renumberScenes(scenes []types.Scene) {
	seen := make(map[int]bool, len(scenes))
	valid := true
	for _, sc := range scenes {
		if sc.SceneNum <= 0 || seen[sc.SceneNum] {
			valid = false
			break
		}
		seen[sc.SceneNum] = true
	}
	if valid {
		return
	}
	log.Warn().Str("stage", "stories").Int("scenes", len(scenes)).Msg("scene numbers missing or duplicated, renumbering")
	for i := range scenes {
		scenes[i].SceneNum = i + 1
	}
}
