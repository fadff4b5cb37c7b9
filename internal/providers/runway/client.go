package runway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"runwayproxy/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("runway: api key is required")

const (
	defaultBaseURL    = "https://api.dev.runwayml.com/v1"
	defaultAPIVersion = "2024-11-06"

	defaultImageModel = "gen4_image"
	defaultVideoModel = "gen4_turbo"

	defaultImageRatio   = "1920:1080"
	defaultVideoRatio   = "1280:720"
	defaultDurationSecs = 5
)

// Options configures the Runway generation API client.
type Options struct {
	APIKey         string
	BaseURL        string
	APIVersion     string
	ImageModel     string
	VideoModel     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the Runway generation API. All calls
// are blocking and never retried; the caller decides what a failure means.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
	seedFn     func() uint32
}

// TextToImageRequest captures the inputs for a text-to-image submission.
type TextToImageRequest struct {
	PromptText        string
	Ratio             string
	StructureStrength *float64
}

// ImageToVideoRequest captures the inputs for an image-to-video submission.
// PromptImage may be a public URL or a base64 data URL.
type ImageToVideoRequest struct {
	PromptImage string
	PromptText  string
	Duration    int
	Ratio       string
}

// TaskStatus is the normalized result of a status poll.
type TaskStatus struct {
	ID       string
	Status   string
	State    TaskState
	Progress float64
	Output   []string
	Failure  string
}

type textToImagePayload struct {
	Model             string   `json:"model"`
	PromptText        string   `json:"promptText"`
	Ratio             string   `json:"ratio"`
	Seed              uint32   `json:"seed"`
	StructureStrength *float64 `json:"structureStrength,omitempty"`
}

type imageToVideoPayload struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText,omitempty"`
	Duration    int    `json:"duration"`
	Ratio       string `json:"ratio"`
	Watermark   bool   `json:"watermark"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type taskResponse struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Progress    float64  `json:"progress"`
	Output      []string `json:"output"`
	Failure     string   `json:"failure"`
	FailureCode string   `json:"failureCode"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	videoModel := strings.TrimSpace(opts.VideoModel)
	if videoModel == "" {
		videoModel = defaultVideoModel
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
		apiVersion: apiVersion,
		imageModel: imageModel,
		videoModel: videoModel,
		httpClient: httpClient,
		logger:     logger,
		seedFn:     rand.Uint32,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// SubmitTextToImage starts a text-to-image task and returns the task id.
// The seed diversifies output between otherwise identical prompts; it is
// not security-sensitive.
func (c *Client) SubmitTextToImage(ctx context.Context, req TextToImageRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.PromptText)
	if prompt == "" {
		return "", errors.New("runway: prompt is required")
	}
	ratio := strings.TrimSpace(req.Ratio)
	if ratio == "" {
		ratio = defaultImageRatio
	}
	payload := textToImagePayload{
		Model:             c.imageModel,
		PromptText:        prompt,
		Ratio:             ratio,
		Seed:              c.seedFn(),
		StructureStrength: req.StructureStrength,
	}
	return c.submit(ctx, "/text_to_image", payload)
}

// SubmitImageToVideo starts an image-to-video task and returns the task id.
// Watermarking is always disabled on the submitted task.
func (c *Client) SubmitImageToVideo(ctx context.Context, req ImageToVideoRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(req.PromptImage) == "" {
		return "", errors.New("runway: prompt image is required")
	}
	duration := req.Duration
	if duration <= 0 {
		duration = defaultDurationSecs
	}
	ratio := strings.TrimSpace(req.Ratio)
	if ratio == "" {
		ratio = defaultVideoRatio
	}
	payload := imageToVideoPayload{
		Model:       c.videoModel,
		PromptImage: req.PromptImage,
		PromptText:  strings.TrimSpace(req.PromptText),
		Duration:    duration,
		Ratio:       ratio,
		Watermark:   false,
	}
	return c.submit(ctx, "/image_to_video", payload)
}

// TaskStatus fetches the current state of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("runway: task id is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("runway: build request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("runway: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("runway: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if msg := upstreamMessage(raw); msg != "" {
			return nil, fmt.Errorf("runway: %s", msg)
		}
		return nil, fmt.Errorf("runway: %s", http.StatusText(resp.StatusCode))
	}

	var decoded taskResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("runway: decode response: %w", err)
	}
	failure := decoded.Failure
	if failure == "" {
		failure = decoded.FailureCode
	}
	status := &TaskStatus{
		ID:       decoded.ID,
		Status:   decoded.Status,
		State:    ParseState(decoded.Status),
		Progress: decoded.Progress,
		Output:   decoded.Output,
		Failure:  failure,
	}
	c.logger.Debug().
		Str("task_id", status.ID).
		Str("status", status.Status).
		Float64("progress", status.Progress).
		Msg("runway: task status")
	return status, nil
}

func (c *Client) submit(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("runway: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("runway: build request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("runway: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("runway: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if msg := upstreamMessage(raw); msg != "" {
			return "", fmt.Errorf("runway: %s", msg)
		}
		return "", fmt.Errorf("runway: status %d", resp.StatusCode)
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("runway: decode response: %w", err)
	}
	if decoded.ID == "" {
		return "", errors.New("runway: response missing task id")
	}
	c.logger.Debug().
		Str("task_id", decoded.ID).
		Str("path", path).
		Msg("runway: task submitted")
	return decoded.ID, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", c.apiVersion)
}

func upstreamMessage(raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err != nil {
		return ""
	}
	if detail.Error != "" {
		return detail.Error
	}
	return detail.Message
}
