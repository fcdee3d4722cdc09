package types

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Speaker roles the adaptation is allowed to use. Anything else is spoken by
// the narrator.
const (
	RoleNarrator = "해설"
	RoleBoy      = "남자아이"
	RoleGirl     = "여자아이"
	RoleLad      = "소년"
	RoleLass     = "소녀"
	RoleYoungMan = "청년"
	RoleMaiden   = "처녀"
	RoleAuntie   = "아주머니"
	RoleGrandpa  = "할아버지"
	RoleGrandma  = "할머니"
	RoleVillain  = "악당"
	RoleAnimal   = "동물"
	RoleFairy    = "신요정"
)

// Roles lists every allowed speaker role.
var Roles = []string{
	RoleNarrator, RoleBoy, RoleGirl, RoleLad, RoleLass, RoleYoungMan, RoleMaiden,
	RoleAuntie, RoleGrandpa, RoleGrandma, RoleVillain, RoleAnimal, RoleFairy,
}

// NormalizeRole maps a role onto the closed set. The second result is false
// when the role was unknown and the narrator was substituted.
func NormalizeRole(role string) (string, bool) {
	r := strings.ReplaceAll(strings.TrimSpace(role), "/", "")
	for _, known := range Roles {
		if r == known {
			return known, true
		}
	}
	return RoleNarrator, false
}

// Tale is one crawled fairy tale: a title and its numbered pages.
type Tale struct {
	Seq   string            `json:"-"`
	Title string            `json:"title"`
	Pages map[string]string `json:"pages"`
}

// Text joins the pages in page-number order.
func (t *Tale) Text() string {
	keys := make([]string, 0, len(t.Pages))
	for k := range t.Pages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, t.Pages[k])
	}
	return strings.Join(parts, " ")
}

// ScriptLine is one spoken line in a scene
type ScriptLine struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Scene is one illustrated scene of an adapted story
type Scene struct {
	SceneNum     int          `json:"scene_num"`
	VisualPrompt string       `json:"visual_prompt"`
	Scripts      []ScriptLine `json:"scripts"`
}

// Story is a fairy tale adapted into scenes ready for narration
type Story struct {
	Title       string  `json:"title"`
	Scenes      []Scene `json:"scenes"`
	OriginalSeq string  `json:"original_seq"`
}

// ID returns the directory-safe form of the title: letters, digits, spaces
// and underscores only.
func (s *Story) ID() string {
	var sb strings.Builder
	for _, r := range s.Title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			sb.WriteRune(r)
		}
	}
	id := strings.TrimSpace(sb.String())
	if id == "" {
		id = "untitled_" + s.OriginalSeq
	}
	return id
}

// VideoMetadata holds all YouTube upload metadata
type VideoMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	CategoryID       string   `json:"category_id"`
	Visibility       string   `json:"visibility"`
	ScheduledTimeUTC string   `json:"scheduled_time_utc"`
}

// StoryResult records what happened to one story in a run
type StoryResult struct {
	StoryID    string         `json:"story_id"`
	Title      string         `json:"title"`
	Style      string         `json:"style"`
	VideoFile  string         `json:"video_file"`
	Duration   float64        `json:"duration_sec"`
	Skipped    []string       `json:"skipped,omitempty"`
	Metadata   *VideoMetadata `json:"metadata,omitempty"`
	YouTubeURL string         `json:"youtube_url,omitempty"`
	YouTubeID  string         `json:"youtube_id,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string        `json:"run_id"`
	StartedAt   string        `json:"started_at"`
	CompletedAt string        `json:"completed_at"`
	Stories     []StoryResult `json:"stories"`
	Error       string        `json:"error,omitempty"`
}
