package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
)

// OpenAIPainter generates images with the OpenAI image API.
type OpenAIPainter struct {
	api        openai.Client
	model      string
	size       string
	quality    string
	httpClient *http.Client
}

// NewOpenAIPainter creates a painter on top of an existing SDK client.
func NewOpenAIPainter(api openai.Client, model, size, quality string) *OpenAIPainter {
	return &OpenAIPainter{
		api:        api,
		model:      model,
		size:       size,
		quality:    quality,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OpenAIPainter) Paint(ctx context.Context, prompt string, _ int) ([]byte, error) {
	resp, err := p.api.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:  prompt,
		Model:   openai.ImageModel(p.model),
		N:       openai.Int(1),
		Size:    openai.ImageGenerateParamsSize(p.size),
		Quality: openai.ImageGenerateParamsQuality(p.quality),
	})
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image generation returned no data")
	}

	item := resp.Data[0]
	switch {
	case item.B64JSON != "":
		return base64.StdEncoding.DecodeString(item.B64JSON)
	case item.URL != "":
		return p.download(ctx, item.URL)
	default:
		return nil, fmt.Errorf("image response has neither b64_json nor url")
	}
}

func (p *OpenAIPainter) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d downloading generated image", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
