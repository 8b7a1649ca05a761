package devicehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/pkg/errors"
)

// Client talks to a device gateway that exposes the handset location API over HTTP.
type Client struct {
	baseURL  string
	deviceID string
	httpc    *http.Client

	pollInterval time.Duration
}

func New(baseURL, deviceID string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL:  baseURL,
		deviceID: deviceID,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
		pollInterval: time.Second,
	}
}

func (c *Client) WithPollInterval(d time.Duration) *Client {
	if d > 0 {
		c.pollInterval = d
	}
	return c
}

type positionResp struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

type permissionResp struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (c *Client) CurrentPosition(ctx context.Context, opts geolocation.Options) (geolocation.Position, error) {
	q := url.Values{}
	q.Set("highAccuracy", strconv.FormatBool(opts.HighAccuracy))
	q.Set("timeoutMs", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
	q.Set("maximumAgeMs", strconv.FormatInt(opts.MaximumAge.Milliseconds(), 10))

	var rb positionResp
	if err := c.get(ctx, "position", q, &rb); err != nil {
		return geolocation.Position{}, err
	}
	if rb.Error != "" {
		return geolocation.Position{}, geolocation.FromCode(rb.Error)
	}
	ts := rb.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return geolocation.Position{
		Latitude:  rb.Latitude,
		Longitude: rb.Longitude,
		Accuracy:  rb.Accuracy,
		Timestamp: ts,
	}, nil
}

// WatchPosition polls the gateway; the gateway has no push channel.
func (c *Client) WatchPosition(ctx context.Context, opts geolocation.Options) (<-chan geolocation.Fix, error) {
	out := make(chan geolocation.Fix)
	go func() {
		defer close(out)
		t := time.NewTicker(c.pollInterval)
		defer t.Stop()
		for {
			pos, err := c.CurrentPosition(ctx, opts)
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case out <- geolocation.Fix{Position: pos, Err: err}:
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return out, nil
}

func (c *Client) QueryPermission(ctx context.Context) (models.Permission, error) {
	var rb permissionResp
	if err := c.get(ctx, "permission", nil, &rb); err != nil {
		return "", err
	}
	if rb.Error != "" {
		return "", geolocation.FromCode(rb.Error)
	}
	p, ok := models.ParsePermission(rb.State)
	if !ok {
		slog.Warn("device gateway returned unknown permission state", "state", rb.State)
		return models.PermissionPrompt, nil
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, resource string, q url.Values, dst any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = fmt.Sprintf("/v1/devices/%s/%s", url.PathEscape(c.deviceID), resource)
	if q != nil {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return geolocation.ErrTimeout
		}
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotImplemented:
		return geolocation.ErrUnsupported
	case resp.StatusCode == http.StatusForbidden:
		return geolocation.ErrPermissionDenied
	case resp.StatusCode == http.StatusGatewayTimeout:
		return geolocation.ErrTimeout
	case resp.StatusCode/100 != 2:
		return fmt.Errorf("device gateway http %d: %w", resp.StatusCode, geolocation.ErrPositionUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}
