package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const pollinationsBaseURL = "https://image.pollinations.ai"

// PollinationsPainter generates images via Pollinations.ai (free, no key needed)
type PollinationsPainter struct {
	httpClient *http.Client
	baseURL    string
	width      int
	height     int
}

// NewPollinationsPainter creates a painter for images of the given size.
func NewPollinationsPainter(width, height int) *PollinationsPainter {
	return &PollinationsPainter{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    pollinationsBaseURL,
		width:      width,
		height:     height,
	}
}

// Paint downloads one image. seed keeps a scene's image stable across retries.
func (p *PollinationsPainter) Paint(ctx context.Context, prompt string, seed int) ([]byte, error) {
	// Format: {base}/prompt/{encoded_prompt}?params
	imageURL := fmt.Sprintf(
		"%s/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		p.baseURL, url.PathEscape(prompt), p.width, p.height, seed,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; FairytalePipeline/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from Pollinations", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Validate it's actually an image (not an error HTML page)
	if len(data) < 100 {
		return nil, fmt.Errorf("response too small (%d bytes) , likely an error", len(data))
	}
	return data, nil
}
