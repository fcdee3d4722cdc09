package assemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"fairytale-pipeline/04_timeline"
	"fairytale-pipeline/store"
	"fairytale-pipeline/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func voiced(idx int, text string, dur float64) timeline.SceneLine {
	return timeline.SceneLine{
		Index:         idx,
		Role:          types.RoleNarrator,
		Text:          text,
		AudioRef:      fmt.Sprintf("line_%d.mp3", idx),
		AudioDuration: dur,
	}
}

func TestAssembleIntroAndBackToBackScenes(t *testing.T) {
	in := Input{
		StoryID:       "흥부전",
		Title:         "흥부전",
		TitleAudioRef: "title.mp3",
		TitleDuration: 1.5,
		Scenes: []SceneInput{
			{Index: 1, ImageRef: "S01.png", Lines: []timeline.SceneLine{voiced(0, "옛날 옛적에", 3.0), voiced(1, "흥부가 살았어요", 2.0)}},
			{Index: 2, ImageRef: "S02.png", Lines: []timeline.SceneLine{voiced(0, "제비가 날아왔어요", 4.0)}},
		},
	}

	plan, err := Assemble(in, DefaultOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if plan.Intro == nil {
		t.Fatal("expected an intro")
	}
	if !almostEqual(plan.Intro.Duration, 3.5) {
		t.Errorf("intro duration = %v, want 3.5", plan.Intro.Duration)
	}
	if len(plan.Scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(plan.Scenes))
	}

	first, second := plan.Scenes[0], plan.Scenes[1]
	if !almostEqual(first.Start, 3.5) {
		t.Errorf("first scene start = %v, want 3.5", first.Start)
	}
	if !almostEqual(first.Duration, 5.5) {
		t.Errorf("first scene duration = %v, want 5.5", first.Duration)
	}
	if !almostEqual(second.Start, first.Start+first.Duration) {
		t.Errorf("second scene start = %v, want %v", second.Start, first.Start+first.Duration)
	}
	if !almostEqual(plan.Duration, second.Start+second.Duration) {
		t.Errorf("plan duration = %v, want %v", plan.Duration, second.Start+second.Duration)
	}

	if len(first.Subtitles) != 2 {
		t.Fatalf("first scene has %d subtitles, want 2", len(first.Subtitles))
	}
	if !almostEqual(first.Subtitles[0].Start, 0) || !almostEqual(first.Subtitles[1].Start, 3.0) {
		t.Errorf("subtitle starts = [%v %v], want [0 3]", first.Subtitles[0].Start, first.Subtitles[1].Start)
	}
	if got := strings.Join(first.AudioRefs, ","); got != "line_0.mp3,line_1.mp3" {
		t.Errorf("audio refs = %s", got)
	}
	if first.CrossFade != 0.5 {
		t.Errorf("cross fade = %v, want 0.5", first.CrossFade)
	}

	abs := plan.AbsoluteSubtitles()
	if len(abs) != 3 {
		t.Fatalf("got %d absolute subtitles, want 3", len(abs))
	}
	if !almostEqual(abs[1].Start, 6.5) || !almostEqual(abs[2].Start, second.Start) {
		t.Errorf("absolute starts = %v, %v", abs[1].Start, abs[2].Start)
	}
	for i := 1; i < len(abs); i++ {
		if abs[i].Start < abs[i-1].Start {
			t.Errorf("absolute subtitles out of order at %d", i)
		}
	}
}

func TestAssembleSkipsScenesWithoutImageOrAudio(t *testing.T) {
	in := Input{
		StoryID:       "s",
		TitleAudioRef: "title.mp3",
		TitleDuration: 1,
		Scenes: []SceneInput{
			{Index: 1, ImageRef: "", Lines: []timeline.SceneLine{voiced(0, "그림이 없어요", 2)}},
			{Index: 2, ImageRef: "S02.png", Lines: []timeline.SceneLine{{Index: 0, Text: "소리가 없어요"}}},
			{Index: 3, ImageRef: "S03.png", Lines: []timeline.SceneLine{voiced(0, "남은 장면", 2)}},
		},
	}

	plan, err := Assemble(in, DefaultOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(plan.Scenes) != 1 || plan.Scenes[0].Index != 3 {
		t.Fatalf("expected only scene 3, got %+v", plan.Scenes)
	}
	if !almostEqual(plan.Scenes[0].Start, 3.0) {
		t.Errorf("scene 3 start = %v, want 3.0", plan.Scenes[0].Start)
	}
	if len(plan.Skipped) < 2 {
		t.Errorf("expected skip reasons for scenes 1 and 2, got %v", plan.Skipped)
	}
}

func TestAssembleWithoutTitleAudio(t *testing.T) {
	in := Input{
		StoryID: "s",
		Scenes:  []SceneInput{{Index: 1, ImageRef: "S01.png", Lines: []timeline.SceneLine{voiced(0, "하나", 2)}}},
	}
	plan, err := Assemble(in, DefaultOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if plan.Intro != nil {
		t.Errorf("expected no intro, got %+v", plan.Intro)
	}
	if plan.Scenes[0].Start != 0 {
		t.Errorf("scene start = %v, want 0", plan.Scenes[0].Start)
	}
}

func TestAssembleFailsWithoutComposableScenes(t *testing.T) {
	in := Input{
		StoryID:       "s",
		TitleAudioRef: "title.mp3",
		TitleDuration: 1,
		Scenes: []SceneInput{
			{Index: 1, ImageRef: "S01.png", Lines: []timeline.SceneLine{{Index: 0, Text: "무음"}}},
			{Index: 2, ImageRef: "S02.png"},
		},
	}

	plan, err := Assemble(in, DefaultOptions())
	if plan != nil {
		t.Errorf("expected nil plan, got %+v", plan)
	}
	if !errors.Is(err, ErrAssemblyFailure) {
		t.Fatalf("expected ErrAssemblyFailure, got %v", err)
	}
	var ae *AssemblyError
	if !errors.As(err, &ae) || ae.StoryID != "s" {
		t.Errorf("expected *AssemblyError for story s, got %v", err)
	}
}

func TestFormatASSTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.00"},
		{3.5, "0:00:03.50"},
		{61.239, "0:01:01.24"},
		{3725.0, "1:02:05.00"},
		{-1, "0:00:00.00"},
	}
	for _, tt := range tests {
		if got := FormatASSTime(tt.in); got != tt.want {
			t.Errorf("FormatASSTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteASS(t *testing.T) {
	var sb strings.Builder
	overlays := []Overlay{
		{Text: "옛날 옛적에", Start: 0, Duration: 1.25},
		{Text: "{흥부}", Start: 1.25, Duration: 2},
	}
	style := SubtitleStyle{Font: "Malgun Gothic", FontSize: 45, Color: "#FF8000", StrokeWidth: 2, BoxOpacity: 1, MarginBottom: 100, Width: 1536, Height: 1024}
	if err := WriteASS(&sb, overlays, style); err != nil {
		t.Fatalf("WriteASS: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"PlayResX: 1536",
		"Style: Default,Malgun Gothic,45,&H000080FF,",
		",0,0,3,2,0,2,20,20,100,1",
		"Dialogue: 0,0:00:00.00,0:00:01.25,Default,,0,0,0,,옛날 옛적에",
		"Dialogue: 0,0:00:01.25,0:00:03.25,Default,,0,0,0,,(흥부)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteASSNeverEndsBeforeStart(t *testing.T) {
	var sb strings.Builder
	overlays := []Overlay{{Text: "끝", Start: 2, Duration: -1}}
	if err := WriteASS(&sb, overlays, SubtitleStyle{Width: 1536, Height: 1024}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "Dialogue: 0,0:00:02.00,0:00:02.00,Default,,0,0,0,,끝") {
		t.Errorf("negative overlay not clamped:\n%s", sb.String())
	}
}

type fakeProber map[string]float64

func (f fakeProber) Duration(_ context.Context, path string) (float64, error) {
	for suffix, d := range f {
		if strings.HasSuffix(path, suffix) {
			return d, nil
		}
	}
	return 0, errors.New("unreadable")
}

func TestResolveLooksUpStoreAndProbes(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	story := &types.Story{
		Title: "흥부전",
		Scenes: []types.Scene{
			{SceneNum: 1, Scripts: []types.ScriptLine{
				{Role: types.RoleNarrator, Text: "옛날 옛적에"},
				{Role: types.RoleNarrator, Text: "깨진 파일"},
				{Role: types.RoleNarrator, Text: "없는 파일"},
			}},
			{SceneNum: 2, Scripts: []types.ScriptLine{{Role: types.RoleNarrator, Text: "그림 없음"}}},
		},
	}
	id := story.ID()
	for _, k := range []store.Key{
		store.TitleAudioKey(id, "mp3"),
		store.AudioKey(id, 1, 0, types.RoleNarrator, "mp3"),
		store.AudioKey(id, 1, 1, types.RoleNarrator, "mp3"),
		store.ImageKey(id, 1),
	} {
		if err := store.WriteFile(ctx, st, k, []byte("data")); err != nil {
			t.Fatal(err)
		}
	}

	prober := fakeProber{
		"00_intro_title.mp3": 1.5,
		"S01_000_" + types.RoleNarrator + ".mp3": 3.0,
	}
	in, err := Resolve(ctx, story, "Watercolor", st, prober, "mp3")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if in.TitleDuration != 1.5 || in.TitleAudioRef == "" {
		t.Errorf("title = %q %v", in.TitleAudioRef, in.TitleDuration)
	}
	if len(in.Scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(in.Scenes))
	}
	s1 := in.Scenes[0]
	if s1.ImageRef == "" {
		t.Error("scene 1 image not found")
	}
	if s1.Lines[0].AudioRef == "" || s1.Lines[0].AudioDuration != 3.0 {
		t.Errorf("line 0 = %+v", s1.Lines[0])
	}
	if s1.Lines[1].AudioRef != "" {
		t.Errorf("unprobeable line should be treated as missing, got %+v", s1.Lines[1])
	}
	if ok, _ := st.Exists(ctx, store.AudioKey(id, 1, 1, types.RoleNarrator, "mp3")); ok {
		t.Error("unprobeable audio should be forgotten so it is synthesized again")
	}
	if ok, _ := st.Exists(ctx, store.AudioKey(id, 1, 0, types.RoleNarrator, "mp3")); !ok {
		t.Error("measurable audio must stay in the store")
	}
	if s1.Lines[2].AudioRef != "" {
		t.Errorf("absent line should be missing, got %+v", s1.Lines[2])
	}
	if in.Scenes[1].ImageRef != "" {
		t.Errorf("scene 2 should have no image")
	}

	plan, err := Assemble(in, DefaultOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(plan.Scenes) != 1 || !almostEqual(plan.Scenes[0].Duration, 3.5) {
		t.Errorf("unexpected plan scenes %+v", plan.Scenes)
	}
}
