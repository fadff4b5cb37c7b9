package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPClient talks to the proxy's /ai endpoint: multipart for submissions,
// JSON actions for status polls.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPClient targets the given /ai endpoint URL.
func NewHTTPClient(endpoint string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{endpoint: endpoint, httpClient: httpClient}
}

type submitResult struct {
	Success bool   `json:"success"`
	TaskID  string `json:"taskId"`
	Error   string `json:"error"`
}

type statusResult struct {
	Success  bool    `json:"success"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	ImageURL string  `json:"imageUrl"`
	VideoURL string  `json:"videoUrl"`
	Error    string  `json:"error"`
}

// Submit uploads the image and prompt and returns the issued task id.
func (c *HTTPClient) Submit(ctx context.Context, prompt string, image []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("prompt", prompt); err != nil {
		return "", fmt.Errorf("poller: encode form: %w", err)
	}
	fw, err := mw.CreateFormFile("image", "image.png")
	if err != nil {
		return "", fmt.Errorf("poller: encode form: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", fmt.Errorf("poller: encode form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("poller: encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("poller: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result submitResult
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	if !result.Success || result.TaskID == "" {
		return "", relayError(result.Error, "submission rejected")
	}
	return result.TaskID, nil
}

// Status issues one status poll for the given task.
func (c *HTTPClient) Status(ctx context.Context, taskID string) (PollStatus, error) {
	body, err := json.Marshal(map[string]string{"action": "status", "taskId": taskID})
	if err != nil {
		return PollStatus{}, fmt.Errorf("poller: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return PollStatus{}, fmt.Errorf("poller: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result statusResult
	if err := c.do(req, &result); err != nil {
		return PollStatus{}, err
	}
	if !result.Success {
		return PollStatus{}, relayError(result.Error, "status request failed")
	}
	url := result.VideoURL
	if result.ImageURL != "" {
		url = result.ImageURL
	}
	return PollStatus{
		Status:   result.Status,
		Progress: result.Progress,
		URL:      url,
		Failure:  result.Error,
	}, nil
}

// do sends the request and decodes the JSON body regardless of status
// code; the proxy ships its error envelope with HTTP 500.
func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("poller: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("poller: read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("poller: decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func relayError(msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return errors.New(msg)
}

var _ Client = (*HTTPClient)(nil)
