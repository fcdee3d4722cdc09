package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fairytale-pipeline/config"
	"fairytale-pipeline/types"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	cfg *config.Config
	// clientOptions replaces the OAuth client when set.
	clientOptions []option.ClientOption
}

// New creates a new Uploader
func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// Run uploads the final video to YouTube and returns its ID and URL.
func (u *Uploader) Run(ctx context.Context, videoFile string, metadata *types.VideoMetadata) (string, string, error) {
	opts := u.clientOptions
	if opts == nil {
		log.Info().Str("stage", "upload").Msg("authenticating with YouTube API")
		ts, err := tokenSource(ctx)
		if err != nil {
			return "", "", fmt.Errorf("youtube auth: %w", err)
		}
		opts = []option.ClientOption{option.WithTokenSource(ts)}
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Info().Str("stage", "upload").Str("title", metadata.Title).
			Msgf("uploading %.1f MB", float64(fi.Size())/1024/1024)
	}

	video := buildVideo(u.cfg.Upload, metadata)
	if video.Status.PublishAt != "" {
		log.Info().Str("stage", "upload").Msgf("scheduled for %s UTC", video.Status.PublishAt)
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Info().Str("stage", "upload").Str("id", uploaded.Id).Str("url", videoURL).Msg("uploaded")
	return uploaded.Id, videoURL, nil
}

// buildVideo maps metadata onto the API resource. A public video with a
// schedule is uploaded private and published at the scheduled time.
func buildVideo(cfg config.UploadConfig, metadata *types.VideoMetadata) *youtube.Video {
	visibility := metadata.Visibility
	if visibility == "" {
		visibility = cfg.Visibility
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           visibility,
		SelfDeclaredMadeForKids: cfg.MadeForKids,
		ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
	}
	if metadata.ScheduledTimeUTC != "" && visibility == "public" {
		status.PrivacyStatus = "private"
		status.PublishAt = metadata.ScheduledTimeUTC
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                metadata.Title,
			Description:          metadata.Description,
			Tags:                 metadata.Tags,
			CategoryId:           metadata.CategoryID,
			DefaultLanguage:      cfg.DefaultLanguage,
			DefaultAudioLanguage: cfg.DefaultLanguage,
		},
		Status: status,
	}
}

// tokenSource builds a refreshing token source from env credentials
func tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.TokenSource(ctx, token), nil
}

// LogUpload saves the upload result to dir and returns the log file path
func LogUpload(videoID, videoURL, videoFile, dir string, metadata *types.VideoMetadata) (string, error) {
	entry := map[string]interface{}{
		"video_id":      videoID,
		"video_url":     videoURL,
		"title":         metadata.Title,
		"scheduled_utc": metadata.ScheduledTimeUTC,
		"uploaded_at":   time.Now().UTC().Format(time.RFC3339),
		"video_file":    videoFile,
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	logFile := filepath.Join(dir, fmt.Sprintf("upload_%s_%s.json", videoID, time.Now().Format("20060102_150405")))
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(logFile, data, 0644); err != nil {
		return "", err
	}

	log.Info().Str("stage", "upload").Str("file", logFile).Msg("upload log saved")
	return logFile, nil
}
