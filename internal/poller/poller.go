// Package poller drives the submit-then-poll loop a UI runs against the
// proxy: upload once, then ask for status on a fixed interval until the
// task reaches a terminal state.
package poller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"runwayproxy/internal/providers/runway"
)

// DefaultInterval is the cadence between status requests.
const DefaultInterval = 4 * time.Second

// State is the controller's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

var (
	// ErrMissingPrompt rejects a submission locally, before any request.
	ErrMissingPrompt = errors.New("poller: prompt is required")
	// ErrMissingImage rejects a submission without a selected image.
	ErrMissingImage = errors.New("poller: image is required")

	errEmptyOutput      = errors.New("task succeeded but returned no output url")
	errGenerationFailed = errors.New("generation failed")
)

// PollStatus is one status response from the proxy.
type PollStatus struct {
	Status   string
	Progress float64
	URL      string
	Failure  string
}

// Client is what the controller needs from the proxy endpoint.
type Client interface {
	Submit(ctx context.Context, prompt string, image []byte) (taskID string, err error)
	Status(ctx context.Context, taskID string) (PollStatus, error)
}

// Controller is the polling state machine. Snapshots are safe for
// concurrent readers; only one poll loop is active at a time.
type Controller struct {
	client   Client
	interval time.Duration

	mu        sync.Mutex
	gen       int
	state     State
	taskID    string
	progress  float64
	resultURL string
	lastErr   error
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates an idle controller. A non-positive interval falls back to
// DefaultInterval.
func New(client Client, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		client:   client,
		interval: interval,
		state:    StateIdle,
	}
}

// Start validates the submission locally, uploads it, and begins polling.
// A prior in-flight poll loop is cancelled first so only one poller runs.
func (c *Controller) Start(ctx context.Context, prompt string, image []byte) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrMissingPrompt
	}
	if len(image) == 0 {
		return ErrMissingImage
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.state = StateUploading
	c.taskID = ""
	c.progress = 0
	c.resultURL = ""
	c.lastErr = nil
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	taskID, err := c.client.Submit(runCtx, prompt, image)
	if err != nil {
		c.finish(gen, StateFailed, "", err)
		cancel()
		close(done)
		return err
	}

	c.mu.Lock()
	if gen == c.gen {
		c.taskID = taskID
		c.state = StatePolling
	}
	c.mu.Unlock()

	go c.poll(runCtx, gen, taskID, done)
	return nil
}

// Stop cancels the active poll loop. Safe to call at any time; must be
// called on teardown so no tick fires afterwards.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done reports completion of the poll loop started by the last successful
// Start call. Nil before the first Start.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress returns the last reported progress as a percentage. The value
// is whatever the upstream reported, scaled by 100; no local clamping.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress * 100
}

// ResultURL returns the generated asset URL once the state is succeeded.
func (c *Controller) ResultURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultURL
}

// Err returns the failure reason once the state is failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// TaskID returns the upstream task id for the active or finished job.
func (c *Controller) TaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taskID
}

func (c *Controller) poll(ctx context.Context, gen int, taskID string, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st, err := c.client.Status(ctx, taskID)
			if err != nil {
				// Any polling error ends the loop immediately.
				c.finish(gen, StateFailed, "", err)
				return
			}
			switch state := runway.ParseState(st.Status); {
			case state == runway.StateSucceeded && st.URL != "":
				c.finish(gen, StateSucceeded, st.URL, nil)
				return
			case state == runway.StateSucceeded:
				c.finish(gen, StateFailed, "", errEmptyOutput)
				return
			case state == runway.StateFailed:
				reason := errGenerationFailed
				if st.Failure != "" {
					reason = errors.New(st.Failure)
				}
				c.finish(gen, StateFailed, "", reason)
				return
			default:
				c.setProgress(gen, st.Progress)
			}
		}
	}
}

// finish applies a terminal outcome unless a newer Start superseded this
// run; a stale loop draining its last request must not clobber fresh state.
func (c *Controller) finish(gen int, state State, url string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.state = state
	c.resultURL = url
	c.lastErr = err
	if state == StateSucceeded {
		c.progress = 1
	}
}

func (c *Controller) setProgress(gen int, p float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.progress = p
}
