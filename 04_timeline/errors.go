package timeline

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAsset marks a line or scene whose audio or image was never produced.
	ErrMissingAsset = errors.New("missing asset")
	// ErrDegenerateInput marks input that yields an empty or zero-length allocation.
	ErrDegenerateInput = errors.New("degenerate input")
)

// MissingAssetError names the asset that could not be found.
type MissingAssetError struct {
	Kind  string // "audio" or "image"
	Scene int
	Line  int // -1 for scene-level assets
	Key   string
}

func (e *MissingAssetError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("scene %d: %s %s: %v", e.Scene, e.Kind, e.Key, ErrMissingAsset)
	}
	return fmt.Sprintf("scene %d line %d: %s %s: %v", e.Scene, e.Line, e.Kind, e.Key, ErrMissingAsset)
}

func (e *MissingAssetError) Unwrap() error { return ErrMissingAsset }
