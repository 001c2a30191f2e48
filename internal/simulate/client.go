package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/proctor/internal/adapters/detect"
	"github.com/okian/proctor/internal/domain/types"
)

// ErrUnexpectedStatus is returned when the server answers with a status the
// simulator does not expect.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the proctor HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want && !(want == http.StatusAccepted && resp.StatusCode == http.StatusOK) {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks that the service answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
	return err
}

// StartSession starts a session and returns its summary.
func (c *Client) StartSession(ctx context.Context, candidate string, frameHeight float64) (types.Summary, error) {
	var sum types.Summary
	body := map[string]any{"candidate": candidate, "frame_height": frameHeight}
	_, err := c.do(ctx, http.MethodPost, "/sessions", body, http.StatusCreated, &sum)
	return sum, err
}

// PushFaces sends one face detector result under tickID.
func (c *Client) PushFaces(ctx context.Context, id, tickID string, frameHeight float64, faces []detect.FaceWire) (Ack, error) {
	if faces == nil {
		faces = []detect.FaceWire{}
	}
	var ack Ack
	body := map[string]any{"tick_id": tickID, "frame_height": frameHeight, "faces": faces}
	_, err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/faces", body, http.StatusAccepted, &ack)
	return ack, err
}

// PushObjects sends one object detector result under tickID.
func (c *Client) PushObjects(ctx context.Context, id, tickID string, objects []detect.ObjectWire) (Ack, error) {
	if objects == nil {
		objects = []detect.ObjectWire{}
	}
	var ack Ack
	body := map[string]any{"tick_id": tickID, "objects": objects}
	_, err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/objects", body, http.StatusAccepted, &ack)
	return ack, err
}

// StopSession stops the session and returns its final summary.
func (c *Client) StopSession(ctx context.Context, id string) (types.Summary, error) {
	var sum types.Summary
	_, err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/stop", nil, http.StatusOK, &sum)
	return sum, err
}

// Report fetches the proctoring report of a session.
func (c *Client) Report(ctx context.Context, id string) (types.Report, error) {
	var rep types.Report
	_, err := c.do(ctx, http.MethodGet, "/sessions/"+id+"/report", nil, http.StatusOK, &rep)
	return rep, err
}

func newTickID() string {
	return uuid.NewString()
}
