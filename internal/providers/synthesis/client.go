package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("synthesis: api key is required")

// Options configures the image synthesis client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the external image synthesis API. One call,
// one attempt; retry policy lives in the decorator, not here.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type synthesizeRequest struct {
	Model          string       `json:"model"`
	Prompt         string       `json:"prompt"`
	NegativePrompt string       `json:"negative_prompt,omitempty"`
	AspectRatio    string       `json:"aspect_ratio,omitempty"`
	Images         []inputImage `json:"images,omitempty"`
	NewPose        bool         `json:"new_pose,omitempty"`
}

type inputImage struct {
	URL        string `json:"url,omitempty"`
	DataBase64 string `json:"data_base64,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
}

type synthesizeResponse struct {
	Image struct {
		DataBase64 string `json:"data_base64"`
		MIMEType   string `json:"mime_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
	} `json:"image"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.synthesis.example.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "composite-v2"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate invokes the synthesis API once and materializes the inline
// base64 payload into bytes.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("synthesis: prompt is required")
	}

	payload := synthesizeRequest{
		Model:          c.model,
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		AspectRatio:    strings.TrimSpace(req.AspectRatio),
		NewPose:        req.NewPose,
	}
	for _, ref := range req.ImageRefs {
		img := inputImage{URL: strings.TrimSpace(ref.URL), MIMEType: ref.MIME}
		if len(ref.Data) > 0 {
			img.URL = ""
			img.DataBase64 = base64.StdEncoding.EncodeToString(ref.Data)
		}
		payload.Images = append(payload.Images, img)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("synthesis: encode request: %w", err)
	}
	endpoint := c.baseURL + "/images/compose"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("synthesis: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("synthesis: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("synthesis: status 429: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, fmt.Errorf("synthesis: %s (%s)", detail.Message, detail.Code)
		}
		return nil, fmt.Errorf("synthesis: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded synthesizeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("synthesis: decode response: %w", err)
	}
	if decoded.Code != "" {
		return nil, fmt.Errorf("synthesis: %s (%s)", decoded.Message, decoded.Code)
	}
	if decoded.Image.DataBase64 == "" {
		return nil, errors.New("synthesis: empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(decoded.Image.DataBase64)
	if err != nil {
		return nil, fmt.Errorf("synthesis: decode image payload: %w", err)
	}

	mime := decoded.Image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	width, height := decoded.Image.Width, decoded.Image.Height
	if width == 0 || height == 0 {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			width, height = cfg.Width, cfg.Height
		}
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("request_id", decoded.RequestID).
		Int("bytes", len(data)).
		Msg("synthesis: generated composite")
	return &Result{Data: data, MIME: mime, Width: width, Height: height}, nil
}

var _ Generator = (*Client)(nil)
