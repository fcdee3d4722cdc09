package timeline

import (
	"errors"
	"math"
	"testing"
)

func TestBuildSceneBackToBack(t *testing.T) {
	opts := DefaultOptions()
	scene := BuildScene(1, []SceneLine{
		{Index: 0, Role: "해설", Text: "옛날 옛적에", AudioRef: "a.mp3", AudioDuration: 3.0},
		{Index: 1, Role: "소년", Text: "형님", AudioRef: "b.mp3", AudioDuration: 2.0},
	}, opts)

	chunks := scene.Chunks()
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Start != 0.0 || chunks[1].Start != 3.0 {
		t.Errorf("starts = [%v %v], want [0 3]", chunks[0].Start, chunks[1].Start)
	}
	if want := 5.0 + opts.TrailingPad; math.Abs(scene.Duration-want) > epsilon {
		t.Errorf("duration = %v, want %v", scene.Duration, want)
	}
	if len(scene.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", scene.Warnings)
	}
	if got := scene.AudioRefs(); len(got) != 2 || got[0] != "a.mp3" || got[1] != "b.mp3" {
		t.Errorf("AudioRefs() = %v", got)
	}
}

func TestBuildSceneChunksAreContiguous(t *testing.T) {
	opts := Options{MaxChars: 12, MinChunkDuration: 1.0, TrailingPad: 0.5}
	scene := BuildScene(0, []SceneLine{
		{Index: 0, Role: "해설", Text: "the quick brown fox jumps over the lazy dog", AudioRef: "a", AudioDuration: 4.7},
		{Index: 1, Role: "소녀", Text: "pack my box with five dozen liquor jugs", AudioRef: "b", AudioDuration: 3.1},
	}, opts)

	chunks := scene.Chunks()
	for i := 1; i < len(chunks); i++ {
		if math.Abs(chunks[i].Start-chunks[i-1].End()) > epsilon {
			t.Errorf("chunk %d starts at %v, previous ends at %v", i, chunks[i].Start, chunks[i-1].End())
		}
	}
	if math.Abs(scene.Lines[1].Start-4.7) > epsilon {
		t.Errorf("second line starts at %v, want 4.7", scene.Lines[1].Start)
	}
	last := chunks[len(chunks)-1]
	if math.Abs(last.End()+opts.TrailingPad-scene.Duration) > epsilon {
		t.Errorf("scene duration %v does not match last chunk end %v + pad", scene.Duration, last.End())
	}
}

func TestBuildSceneSkipsMissingAudio(t *testing.T) {
	scene := BuildScene(2, []SceneLine{
		{Index: 0, Role: "해설", Text: "first", AudioRef: "a", AudioDuration: 2.0},
		{Index: 1, Role: "악당", Text: "missing", AudioRef: ""},
		{Index: 2, Role: "해설", Text: "third", AudioRef: "c", AudioDuration: 1.5},
	}, DefaultOptions())

	if len(scene.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(scene.Lines))
	}
	if scene.Lines[1].Index != 2 || scene.Lines[1].Start != 2.0 {
		t.Errorf("third line = index %d start %v, want index 2 start 2", scene.Lines[1].Index, scene.Lines[1].Start)
	}
	if len(scene.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(scene.Warnings))
	}
	var missing *MissingAssetError
	if !errors.As(scene.Warnings[0], &missing) || missing.Line != 1 {
		t.Errorf("warning = %v, want missing audio for line 1", scene.Warnings[0])
	}
	if !errors.Is(scene.Warnings[0], ErrMissingAsset) {
		t.Errorf("warning does not wrap ErrMissingAsset")
	}
}

func TestBuildSceneEmpty(t *testing.T) {
	scene := BuildScene(0, []SceneLine{
		{Index: 0, Role: "해설", Text: "nobody spoke"},
	}, DefaultOptions())

	if !scene.Empty() {
		t.Error("scene should be empty")
	}
	if scene.Duration != 0 {
		t.Errorf("duration = %v, want 0", scene.Duration)
	}
}

func TestBuildSceneAudioWithoutText(t *testing.T) {
	scene := BuildScene(0, []SceneLine{
		{Index: 0, Role: "해설", Text: "   ", AudioRef: "a", AudioDuration: 1.2},
		{Index: 1, Role: "해설", Text: "after", AudioRef: "b", AudioDuration: 1.0},
	}, DefaultOptions())

	if len(scene.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(scene.Lines))
	}
	if math.Abs(scene.Lines[1].Chunks[0].Start-1.2) > epsilon {
		t.Errorf("second line chunk starts at %v, want 1.2", scene.Lines[1].Chunks[0].Start)
	}
	if len(scene.Warnings) != 1 || !errors.Is(scene.Warnings[0], ErrDegenerateInput) {
		t.Errorf("warnings = %v, want one degenerate input warning", scene.Warnings)
	}
}

func TestBuildSceneWarnsWhenFloorOverrunsLine(t *testing.T) {
	opts := Options{MaxChars: 3, MinChunkDuration: 3, TrailingPad: 0.5}
	scene := BuildScene(1, []SceneLine{
		{Index: 0, Role: "해설", Text: "aaa bbb ccc", AudioRef: "a", AudioDuration: 4},
	}, opts)

	chunks := scene.Chunks()
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if math.Abs(chunks[2].Duration+2) > epsilon {
		t.Errorf("last chunk duration = %v, want -2", chunks[2].Duration)
	}
	if math.Abs(scene.Duration-4.5) > epsilon {
		t.Errorf("scene duration = %v, want 4.5 (line audio still wins)", scene.Duration)
	}
	if len(scene.Warnings) != 1 || !errors.Is(scene.Warnings[0], ErrDegenerateInput) {
		t.Errorf("warnings = %v, want one degenerate input warning", scene.Warnings)
	}
}
