package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/productsync"
)

const (
	maxFuse5ResponseSize = 10 * 1024 * 1024
	// fuse5DateLayout is the MM-DD-YYYY HH:MM:SS layout of the changedsince identifier
	fuse5DateLayout = "01-02-2006 15:04:05"
)

// Fuse5Location is one entry of location/all
type Fuse5Location struct {
	LocationID   json.Number `json:"location_id"`
	LocationName string      `json:"location_name"`
}

// Fuse5Client talks to the Fuse5 service endpoint.
// Every call is a form POST of data=<json envelope>.
type Fuse5Client struct {
	config     *Fuse5Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Fuse5Option configures a Fuse5Client
type Fuse5Option func(*Fuse5Client)

// WithFuse5HTTPClient replaces the HTTP client
func WithFuse5HTTPClient(c *http.Client) Fuse5Option {
	return func(f *Fuse5Client) {
		f.httpClient = c
	}
}

// WithFuse5Logger sets the logger
func WithFuse5Logger(logger *zap.Logger) Fuse5Option {
	return func(f *Fuse5Client) {
		f.logger = logger
	}
}

// NewFuse5Client creates a new Fuse5 client
func NewFuse5Client(config *Fuse5Config, opts ...Fuse5Option) (*Fuse5Client, error) {
	if config == nil {
		return nil, ErrFuse5ConfigMissingAPIKey
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Fuse5Client{
		config:     config,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type fuse5Service struct {
	Call       string         `json:"call"`
	Params     any            `json:"params,omitempty"`
	Identifier map[string]any `json:"identifier,omitempty"`
}

type fuse5Envelope struct {
	Authenticate struct {
		APIKey string `json:"apikey"`
	} `json:"authenticate"`
	Services []fuse5Service `json:"services"`
}

type fuse5Response struct {
	Services []struct {
		Response struct {
			Status bool              `json:"status"`
			Msg    []json.RawMessage `json:"msg"`
			Data   json.RawMessage   `json:"data"`
		} `json:"response"`
	} `json:"services"`
}

// ExportCatalog asks Fuse5 to export the given product fields and returns the CSV url.
// The export can take many minutes; it is bounded by ExportTimeout.
func (c *Fuse5Client) ExportCatalog(ctx context.Context, fields []string, changedSince *time.Time) (string, error) {
	var identifier map[string]any
	if changedSince != nil {
		identifier = map[string]any{"changedsince": changedSince.Format(fuse5DateLayout)}
	}

	data, err := c.request(ctx, c.config.ExportTimeout, fuse5Service{
		Call:       "product/export",
		Params:     fields,
		Identifier: identifier,
	})
	if err != nil {
		return "", err
	}

	var exportURL string
	if err := json.Unmarshal(data, &exportURL); err != nil || exportURL == "" {
		return "", fmt.Errorf("%w: product/export returned no url", productsync.ErrSupplierAPI)
	}
	return exportURL, nil
}

// Locations returns the supplier locations
func (c *Fuse5Client) Locations(ctx context.Context) ([]Fuse5Location, error) {
	data, err := c.request(ctx, c.config.Timeout, fuse5Service{Call: "location/all"})
	if err != nil {
		return nil, err
	}
	var locations []Fuse5Location
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, fmt.Errorf("fuse5: failed to decode locations: %w", err)
	}
	return locations, nil
}

// Download streams the file at url into w
func (c *Fuse5Client) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	ctx, cancel := withOptionalTimeout(ctx, c.config.ExportTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("fuse5: failed to create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: download: %v", productsync.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: download: HTTP %d", productsync.ErrCatalogUnavailable, resp.StatusCode)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("fuse5: download interrupted: %w", err)
	}
	return n, nil
}

func (c *Fuse5Client) request(ctx context.Context, timeout time.Duration, service fuse5Service) (json.RawMessage, error) {
	var envelope fuse5Envelope
	envelope.Authenticate.APIKey = c.config.APIKey
	envelope.Services = []fuse5Service{service}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("fuse5: failed to marshal request: %w", err)
	}
	form := url.Values{}
	form.Set("data", string(payload))

	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fuse5: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fuse5 request", zap.String("call", service.Call))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", productsync.ErrSupplierAPI, service.Call, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFuse5ResponseSize))
	if err != nil {
		return nil, fmt.Errorf("fuse5: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", productsync.ErrSupplierAPI, service.Call, resp.StatusCode)
	}

	var parsed fuse5Response
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Services) == 0 {
		return nil, fmt.Errorf("%w: unexpected response from the Fuse 5 server", productsync.ErrSupplierAPI)
	}
	res := parsed.Services[0].Response
	if !res.Status {
		return nil, fmt.Errorf("%w: %s", productsync.ErrSupplierAPI, joinMessages(res.Msg))
	}
	return res.Data, nil
}

// joinMessages renders the msg list; items may be strings or objects
func joinMessages(msgs []json.RawMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		var s string
		if json.Unmarshal(m, &s) == nil {
			parts = append(parts, s)
			continue
		}
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return "request failed"
	}
	return strings.Join(parts, "\n")
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

