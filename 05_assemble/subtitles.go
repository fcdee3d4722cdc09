package assemble

import (
	"fmt"
	"io"
	"math"
	"strings"

	"fairytale-pipeline/config"
)

// SubtitleStyle is how overlays look on screen.
type SubtitleStyle struct {
	Font         string
	FontSize     int
	Color        string // "white" or "#RRGGBB"
	StrokeWidth  float64
	BoxOpacity   float64 // 0 = no box, 1 = opaque black
	MarginBottom int
	Width        int
	Height       int
}

// NewSubtitleStyle builds the overlay style for a width x height video.
func NewSubtitleStyle(cfg config.SubtitlesConfig, width, height int) SubtitleStyle {
	return SubtitleStyle{
		Font:         cfg.Font,
		FontSize:     cfg.FontSize,
		Color:        cfg.Color,
		StrokeWidth:  cfg.StrokeWidth,
		BoxOpacity:   cfg.BoxOpacity,
		MarginBottom: cfg.MarginBottom,
		Width:        width,
		Height:       height,
	}
}

// WriteASS writes overlays as an Advanced SubStation Alpha script. Times are
// taken as is, so scene-relative overlays make a scene-relative script.
func WriteASS(w io.Writer, overlays []Overlay, style SubtitleStyle) error {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("Title: Generated Subtitles\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString(fmt.Sprintf("PlayResX: %d\n", style.Width))
	sb.WriteString(fmt.Sprintf("PlayResY: %d\n", style.Height))
	sb.WriteString("WrapStyle: 0\n")
	sb.WriteString("\n")

	// BorderStyle 3 draws an opaque box behind the text in BackColour.
	borderStyle := 1
	if style.BoxOpacity > 0 {
		borderStyle = 3
	}
	back := fmt.Sprintf("&H%02X000000", alphaByte(style.BoxOpacity))

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf("Style: Default,%s,%d,%s,%s,&H00000000,%s,0,0,0,0,100,100,0,0,%d,%.0f,0,2,20,20,%d,1\n",
		style.Font, style.FontSize, toASSColor(style.Color), toASSColor(style.Color), back,
		borderStyle, style.StrokeWidth, style.MarginBottom))
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, o := range overlays {
		// a chunk can end up with negative time after drift correction
		end := max(o.Start+o.Duration, o.Start)
		sb.WriteString(fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			FormatASSTime(o.Start), FormatASSTime(end), escapeASSText(o.Text)))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatASSTime renders seconds as H:MM:SS.cc.
func FormatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

// EscapeFilterPath escapes a path for use inside an ffmpeg filter argument.
func EscapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}

func escapeASSText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return s
}

// alphaByte converts an opacity into ASS alpha, where 00 is opaque.
func alphaByte(opacity float64) int {
	opacity = math.Max(0, math.Min(1, opacity))
	return int(math.Round((1 - opacity) * 255))
}

func toASSColor(color string) string {
	switch strings.ToLower(color) {
	case "", "white":
		return "&H00FFFFFF"
	case "black":
		return "&H00000000"
	case "yellow":
		return "&H0000FFFF"
	}
	if strings.HasPrefix(color, "&H") {
		return color
	}
	color = strings.TrimPrefix(color, "#")
	if len(color) == 6 {
		return fmt.Sprintf("&H00%s%s%s", color[4:6], color[2:4], color[0:2])
	}
	return "&H00FFFFFF"
}
