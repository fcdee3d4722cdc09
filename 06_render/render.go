package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"fairytale-pipeline/05_assemble"
	"fairytale-pipeline/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Runner executes one ffmpeg invocation.
type Runner func(ctx context.Context, args ...string) error

// Renderer turns an assembled plan into the final video
type Renderer struct {
	cfg *config.Config
	run Runner
}

// New creates a new Renderer that shells out to ffmpeg
func New(cfg *config.Config) *Renderer {
	return &Renderer{cfg: cfg, run: ffmpeg}
}

// Run renders the intro and every scene clip of plan in workDir, then joins
// them into outFile. Scene clips are rendered in parallel.
func (r *Renderer) Run(ctx context.Context, plan *assemble.Plan, workDir, outFile string) (string, error) {
	log.Info().Str("stage", "render").Str("story", plan.StoryID).Int("scenes", len(plan.Scenes)).
		Float64("duration", plan.Duration).Msg("rendering video")

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	clips := make([]string, 0, len(plan.Scenes)+1)
	if plan.Intro != nil {
		intro, err := r.renderIntro(ctx, plan.Intro, workDir)
		if err != nil {
			return "", fmt.Errorf("render intro: %w", err)
		}
		clips = append(clips, intro)
	}

	sceneClips := make([]string, len(plan.Scenes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Workers, 1))
	for i, sp := range plan.Scenes {
		g.Go(func() error {
			clip, err := r.renderScene(gctx, sp, workDir)
			if err != nil {
				return fmt.Errorf("render scene %d: %w", sp.Index, err)
			}
			sceneClips[i] = clip
			log.Debug().Str("stage", "render").Int("scene", sp.Index).Str("clip", clip).Msg("scene rendered")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	clips = append(clips, sceneClips...)

	if err := r.concat(ctx, clips, workDir, outFile); err != nil {
		return "", fmt.Errorf("concatenate clips: %w", err)
	}

	log.Info().Str("stage", "render").Str("file", outFile).Msg("final video ready")
	return outFile, nil
}

func (r *Renderer) renderIntro(ctx context.Context, intro *assemble.Intro, workDir string) (string, error) {
	titleFile := filepath.Join(workDir, "intro_title.txt")
	if err := os.WriteFile(titleFile, []byte(intro.Title), 0644); err != nil {
		return "", err
	}
	outFile := filepath.Join(workDir, "intro.mp4")
	return outFile, r.run(ctx, r.introArgs(intro, titleFile, outFile)...)
}

func (r *Renderer) renderScene(ctx context.Context, sp assemble.ScenePlan, workDir string) (string, error) {
	assFile := filepath.Join(workDir, fmt.Sprintf("scene_%02d.ass", sp.Index))
	f, err := os.Create(assFile)
	if err != nil {
		return "", err
	}
	err = assemble.WriteASS(f, sp.Subtitles, r.subtitleStyle())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}

	outFile := filepath.Join(workDir, fmt.Sprintf("scene_%02d.mp4", sp.Index))
	return outFile, r.run(ctx, r.sceneArgs(sp, assFile, outFile)...)
}

func (r *Renderer) concat(ctx context.Context, clips []string, workDir, outFile string) error {
	listFile := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(listFile, []byte(concatList(clips)), 0644); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return err
	}
	return r.run(ctx, r.finalArgs(listFile, outFile)...)
}

// introArgs renders a black title card with the spoken title, fading in.
func (r *Renderer) introArgs(intro *assemble.Intro, titleFile, outFile string) []string {
	v := r.cfg.Video
	drawtext := fmt.Sprintf("drawtext=textfile='%s':%s:fontsize=%d:fontcolor=white:x=(w-text_w)/2:y=(h-text_h)/2",
		assemble.EscapeFilterPath(titleFile), r.fontOption(), r.cfg.Subtitles.TitleFontSize)
	filter := fmt.Sprintf("[0:v]%s,fade=t=in:st=0:d=%.3f[v];[1:a]apad=whole_dur=%.3f[a]",
		drawtext, intro.FadeIn, intro.Duration)

	return []string{"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%.3f", v.Width, v.Height, v.FPS, intro.Duration),
		"-i", intro.AudioRef,
		"-filter_complex", filter,
		"-map", "[v]", "-map", "[a]",
		"-t", fmt.Sprintf("%.3f", intro.Duration),
		"-c:v", "libx264", "-preset", v.Preset, "-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k", "-ar", "44100",
		outFile,
	}
}

// sceneArgs loops the scene image for the scene duration, fades it in,
// burns the subtitles and plays the line audio back to back.
func (r *Renderer) sceneArgs(sp assemble.ScenePlan, assFile, outFile string) []string {
	v := r.cfg.Video
	dur := fmt.Sprintf("%.3f", sp.Duration)

	args := []string{"-y",
		"-loop", "1", "-framerate", fmt.Sprintf("%d", v.FPS), "-t", dur, "-i", sp.ImageRef,
	}
	for _, a := range sp.AudioRefs {
		args = append(args, "-i", a)
	}

	video := fmt.Sprintf("[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		v.Width, v.Height, v.Width, v.Height)
	if sp.CrossFade > 0 {
		video += fmt.Sprintf(",fade=t=in:st=0:d=%.3f", sp.CrossFade)
	}
	video += fmt.Sprintf(",subtitles='%s'", assemble.EscapeFilterPath(assFile))
	if dir := r.fontsDir(); dir != "" {
		video += fmt.Sprintf(":fontsdir='%s'", assemble.EscapeFilterPath(dir))
	}
	video += "[v]"

	var audio strings.Builder
	for i := range sp.AudioRefs {
		audio.WriteString(fmt.Sprintf("[%d:a]", i+1))
	}
	audio.WriteString(fmt.Sprintf("concat=n=%d:v=0:a=1,apad=whole_dur=%s[a]", len(sp.AudioRefs), dur))

	return append(args,
		"-filter_complex", video+";"+audio.String(),
		"-map", "[v]", "-map", "[a]",
		"-t", dur,
		"-r", fmt.Sprintf("%d", v.FPS),
		"-c:v", "libx264", "-preset", v.Preset, "-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k", "-ar", "44100",
		outFile,
	)
}

// finalArgs joins the clips and encodes the result with every core.
func (r *Renderer) finalArgs(listFile, outFile string) []string {
	v := r.cfg.Video
	return []string{"-y",
		"-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c:v", "libx264", "-preset", v.Preset, "-tune", "stillimage",
		"-threads", fmt.Sprintf("%d", runtime.NumCPU()),
		"-r", fmt.Sprintf("%d", v.FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		outFile,
	}
}

func (r *Renderer) subtitleStyle() assemble.SubtitleStyle {
	return assemble.NewSubtitleStyle(r.cfg.Subtitles, r.cfg.Video.Width, r.cfg.Video.Height)
}

func (r *Renderer) fontOption() string {
	if r.cfg.Subtitles.FontFile != "" {
		return fmt.Sprintf("fontfile='%s'", assemble.EscapeFilterPath(r.cfg.Subtitles.FontFile))
	}
	return fmt.Sprintf("font='%s'", r.cfg.Subtitles.Font)
}

func (r *Renderer) fontsDir() string {
	if r.cfg.Subtitles.FontFile == "" {
		return ""
	}
	return filepath.Dir(r.cfg.Subtitles.FontFile)
}

// concatList is the input file of ffmpeg's concat demuxer.
func concatList(clips []string) string {
	var sb strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			abs = c
		}
		sb.WriteString(fmt.Sprintf("file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`)))
	}
	return sb.String()
}

func ffmpeg(ctx context.Context, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}
