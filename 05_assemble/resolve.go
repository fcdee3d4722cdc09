package assemble

import (
	"context"

	"fairytale-pipeline/02_audio"
	"fairytale-pipeline/04_timeline"
	"fairytale-pipeline/store"
	"fairytale-pipeline/types"

	"github.com/rs/zerolog/log"
)

// Resolve looks up every asset of story in st and measures the audio.
// Missing or unreadable assets are left empty; Assemble decides what to skip.
func Resolve(ctx context.Context, story *types.Story, style string, st store.Store, prober audio.Prober, audioExt string) (Input, error) {
	id := story.ID()
	in := Input{StoryID: id, Title: story.Title, Style: style}

	titleKey := store.TitleAudioKey(id, audioExt)
	ref, dur, err := lookupAudio(ctx, st, prober, titleKey)
	if err != nil {
		return in, err
	}
	in.TitleAudioRef, in.TitleDuration = ref, dur

	for _, scene := range story.Scenes {
		si := SceneInput{Index: scene.SceneNum}

		imgKey := store.ImageKey(id, scene.SceneNum)
		ok, err := st.Exists(ctx, imgKey)
		if err != nil {
			return in, err
		}
		if ok {
			si.ImageRef = st.Path(imgKey)
		}

		for idx, line := range scene.Scripts {
			key := store.AudioKey(id, scene.SceneNum, idx, line.Role, audioExt)
			ref, dur, err := lookupAudio(ctx, st, prober, key)
			if err != nil {
				return in, err
			}
			si.Lines = append(si.Lines, timeline.SceneLine{
				Index:         idx,
				Role:          line.Role,
				Text:          line.Text,
				AudioRef:      ref,
				AudioDuration: dur,
			})
		}
		in.Scenes = append(in.Scenes, si)
	}
	return in, nil
}

// lookupAudio returns the file and length of key, or an empty ref when the
// asset is absent or cannot be measured. An unmeasurable asset is forgotten
// so the next asset run synthesizes it again. Only store errors are returned.
func lookupAudio(ctx context.Context, st store.Store, prober audio.Prober, key store.Key) (string, float64, error) {
	ok, err := st.Exists(ctx, key)
	if err != nil || !ok {
		return "", 0, err
	}
	p := st.Path(key)
	dur, err := prober.Duration(ctx, p)
	if err != nil {
		log.Warn().Str("stage", "assemble").Err(err).Str("key", string(key)).Msg("cannot measure audio, treating as missing")
		if ferr := st.Forget(ctx, key); ferr != nil {
			return "", 0, ferr
		}
		return "", 0, nil
	}
	return p, dur, nil
}
