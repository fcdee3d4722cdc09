// Package store tracks which generated assets already exist, so stages can
// skip work that a previous run finished.
package store

import (
	"context"
	"fmt"
	"path"
)

// Key names one asset of one story. Keys are slash-separated and double as
// relative file paths.
type Key string

// Store answers whether an asset is complete and where its bytes live.
type Store interface {
	// Exists reports whether key was committed by an earlier write.
	Exists(ctx context.Context, key Key) (bool, error)
	// Path is the local file an asset for key is written to and read from.
	Path(key Key) string
	// Commit marks key as complete once its file has been written.
	Commit(ctx context.Context, key Key) error
	// Forget discards key so the next run produces it again.
	Forget(ctx context.Context, key Key) error
}

// AudioKey is the speech for one line, keyed by scene, line and role.
func AudioKey(storyID string, scene, line int, role, ext string) Key {
	return Key(path.Join(storyID, "audio", fmt.Sprintf("S%02d_%03d_%s.%s", scene, line, role, ext)))
}

// TitleAudioKey is the spoken title used by the intro.
func TitleAudioKey(storyID, ext string) Key {
	return Key(path.Join(storyID, "audio", "00_intro_title."+ext))
}

// ImageKey is the illustration for one scene.
func ImageKey(storyID string, scene int) Key {
	return Key(path.Join(storyID, "images", fmt.Sprintf("S%02d.png", scene)))
}

// VideoKey is the final rendered video of a story.
func VideoKey(storyID string) Key {
	return Key(path.Join(storyID, storyID+"_final.mp4"))
}
