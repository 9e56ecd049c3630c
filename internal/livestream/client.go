// Package livestream talks to the upstream streaming provider's REST API.
// The provider owns RTMP ingest, transcoding, and playback; this client only
// provisions streams and reads their live status.
package livestream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/crawd/crawd-server/internal/config"
)

// Sentinel errors for provider client failures.
var (
	ErrProviderUnreachable = errors.New("streaming provider unreachable")
	ErrProviderRequest     = errors.New("streaming provider request failed")
	ErrProviderTimeout     = errors.New("streaming provider timeout")
)

// LiveStream is the provider's view of a provisioned stream.
type LiveStream struct {
	ID         string
	StreamKey  string
	PlaybackID string
	Status     string
}

// Client is the interface for the streaming provider.
type Client interface {
	CreateLiveStream(ctx context.Context) (*LiveStream, error)
	GetStatus(ctx context.Context, providerStreamID string) (bool, error)
	DeleteLiveStream(ctx context.Context, providerStreamID string) error
	RTMPURL() string
}

// HTTPClient implements Client against a Mux-compatible HTTP API.
type HTTPClient struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	rtmpURL     string
	client      *http.Client
}

// NewHTTPClient creates a new provider client from config.
func NewHTTPClient(cfg config.ProviderConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		tokenID:     cfg.TokenID,
		tokenSecret: cfg.TokenSecret,
		rtmpURL:     cfg.RTMPURL,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// RTMPURL returns the ingest endpoint broadcasters point their encoder at.
func (c *HTTPClient) RTMPURL() string {
	return c.rtmpURL
}

// CreateLiveStream provisions a live stream with a public playback policy.
func (c *HTTPClient) CreateLiveStream(ctx context.Context) (*LiveStream, error) {
	body, err := json.Marshal(map[string]any{
		"playback_policy": []string{"public"},
		"new_asset_settings": map[string]any{
			"playback_policy": []string{"public"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/video/v1/live-streams", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuth(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderRequest, resp.StatusCode)
	}

	var created liveStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	return created.Data.toLiveStream(), nil
}

// GetStatus reports whether the stream is currently live. Absent or unknown
// status reads as not live.
func (c *HTTPClient) GetStatus(ctx context.Context, providerStreamID string) (bool, error) {
	u := fmt.Sprintf("%s/video/v1/live-streams/%s", c.baseURL, url.PathEscape(providerStreamID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return false, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrProviderRequest, resp.StatusCode)
	}

	var got liveStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		return false, fmt.Errorf("decoding provider response: %w", err)
	}

	return got.Data.Status == "active", nil
}

// DeleteLiveStream tears down the provider-side stream.
func (c *HTTPClient) DeleteLiveStream(ctx context.Context, providerStreamID string) error {
	u := fmt.Sprintf("%s/video/v1/live-streams/%s", c.baseURL, url.PathEscape(providerStreamID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderRequest, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.tokenID != "" && c.tokenSecret != "" {
		req.SetBasicAuth(c.tokenID, c.tokenSecret)
	}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
}

// --- Provider response types ---

type liveStreamResponse struct {
	Data liveStreamData `json:"data"`
}

type liveStreamData struct {
	ID          string       `json:"id"`
	StreamKey   string       `json:"stream_key"`
	Status      string       `json:"status"`
	PlaybackIDs []playbackID `json:"playback_ids"`
}

type playbackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

func (d liveStreamData) toLiveStream() *LiveStream {
	ls := &LiveStream{
		ID:        d.ID,
		StreamKey: d.StreamKey,
		Status:    d.Status,
	}
	if len(d.PlaybackIDs) > 0 {
		ls.PlaybackID = d.PlaybackIDs[0].ID
	}
	return ls
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
