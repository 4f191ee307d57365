// Package stylize is the boundary to the image-generation backend that
// turns a captured frame plus a style description into a styled still.
// The backend is opaque: bytes in, bytes out.
package stylize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Styler transforms a source still according to a style description.
type Styler interface {
	Transform(ctx context.Context, image []byte, style string, preserveLayout bool) ([]byte, error)
}

// Client talks to an HTTP style-transform backend.
type Client struct {
	logger     zerolog.Logger
	endpoint   string
	httpClient *http.Client
	maxEdge    int
}

// NewClient creates a backend client. maxEdge bounds the longest side of
// stills before upload; zero disables the bound.
func NewClient(logger zerolog.Logger, endpoint string, timeout time.Duration, maxEdge int) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		logger:     logger.With().Str("component", "stylize").Logger(),
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		maxEdge:    maxEdge,
	}
}

type transformRequest struct {
	Image          string `json:"image"`
	Style          string `json:"style"`
	PreserveLayout bool   `json:"preserve_layout"`
}

type transformResponse struct {
	Image string `json:"image"`
	Error string `json:"error,omitempty"`
}

// Transform ships the still to the backend and returns the styled bytes.
func (c *Client) Transform(ctx context.Context, image []byte, style string, preserveLayout bool) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("style backend endpoint not configured")
	}

	bounded, err := BoundStill(image, c.maxEdge)
	if err != nil {
		return nil, fmt.Errorf("failed to decode still: %w", err)
	}

	body, err := json.Marshal(transformRequest{
		Image:          base64.StdEncoding.EncodeToString(bounded),
		Style:          style,
		PreserveLayout: preserveLayout,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("style", style).
		Int("bytes", len(bounded)).
		Bool("preserve_layout", preserveLayout).
		Msg("requesting style transform")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("style backend request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read style backend response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("style backend returned %d: %s", resp.StatusCode, truncate(payload, 200))
	}

	var out transformResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to parse style backend response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("style backend error: %s", out.Error)
	}

	styled, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, fmt.Errorf("style backend returned invalid image payload: %w", err)
	}

	// The contract is image-in/image-out; anything that does not decode
	// as a still is a backend fault.
	if _, _, err := Dimensions(styled); err != nil {
		return nil, fmt.Errorf("style backend returned undecodable image: %w", err)
	}

	return styled, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
