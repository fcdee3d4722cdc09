package images

import (
	"hash/fnv"
	"math/rand"
)

// Style is the art direction shared by every illustration of one story.
type Style struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// Styles are the art directions a story can be drawn in.
var Styles = []Style{
	{"Watercolor", "A warm, gentle watercolor illustration for a children's book. " +
		"Soft textures, pastel tones, dreamy atmosphere."},
	{"Korean_Ink", "Traditional Korean ink wash painting style (Sumukhwa) on Hanji paper. " +
		"Elegant brush strokes, oriental aesthetics, soft colors with black ink accents."},
	{"Claymation", "Cute 3D claymation style, isometric view, soft studio lighting. " +
		"Looks like a handmade clay toy, rounded edges, vibrant and cute colors."},
	{"Paper_Cutout", "Layered paper cut craft style, depth of field, shadowbox effect. " +
		"Intricate details, paper texture, warm lighting."},
	{"Colored_Pencil", "Soft colored pencil drawing, hand-drawn sketch texture. " +
		"Warm and cozy feeling, sketchbook style."},
}

// commonSuffix is appended to every prompt regardless of style.
const commonSuffix = "Do not include any text, letters, words, or characters in the image. " +
	"Pure illustration only. High quality, detailed."

// PickStyle draws one style from rng.
func PickStyle(rng *rand.Rand) Style {
	return Styles[rng.Intn(len(Styles))]
}

// StyleFor returns the style of a story. A non-zero seed is used as is;
// otherwise the seed is derived from the story ID so reruns keep the style.
func StyleFor(storyID string, seed int64) Style {
	if seed == 0 {
		h := fnv.New64a()
		h.Write([]byte(storyID))
		seed = int64(h.Sum64())
	}
	return PickStyle(rand.New(rand.NewSource(seed)))
}

// BuildPrompt combines style, scene description and the shared suffix.
func BuildPrompt(style Style, visual string) string {
	return style.Prompt + " " + visual + ". " + commonSuffix
}
