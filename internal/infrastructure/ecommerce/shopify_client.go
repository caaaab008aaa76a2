package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stocksync/backend/internal/domain/productsync"
)

const maxShopifyResponseSize = 10 * 1024 * 1024

// ShopifyClient implements productsync.StorefrontClient over the REST Admin API.
// Every request waits on a shared token bucket. GET requests retry on 429 and 5xx;
// writes surface productsync.ErrRateLimited so callers own their retry budget.
type ShopifyClient struct {
	config     *ShopifyConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ShopifyOption configures a ShopifyClient
type ShopifyOption func(*ShopifyClient)

// WithShopifyHTTPClient replaces the HTTP client
func WithShopifyHTTPClient(c *http.Client) ShopifyOption {
	return func(s *ShopifyClient) {
		s.httpClient = c
	}
}

// WithShopifyLogger sets the logger
func WithShopifyLogger(logger *zap.Logger) ShopifyOption {
	return func(s *ShopifyClient) {
		s.logger = logger
	}
}

// NewShopifyClient creates a new Shopify client
func NewShopifyClient(config *ShopifyConfig, opts ...ShopifyOption) (*ShopifyClient, error) {
	if config == nil {
		return nil, ErrShopifyConfigMissingToken
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	c := &ShopifyClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// StorefrontClient
// ---------------------------------------------------------------------------

// Variants returns a lazy iterator over every variant of the store
func (c *ShopifyClient) Variants(_ context.Context) productsync.VariantIterator {
	return &shopifyVariantIterator{client: c}
}

// Locations lists the store locations
func (c *ShopifyClient) Locations(ctx context.Context) ([]productsync.Location, error) {
	var resp shopifyLocationsResponse
	if _, err := c.get(ctx, "/locations.json", nil, &resp); err != nil {
		return nil, err
	}
	locations := make([]productsync.Location, 0, len(resp.Locations))
	for _, l := range resp.Locations {
		locations = append(locations, productsync.Location{ID: l.ID, Name: l.Name})
	}
	return locations, nil
}

// InventoryLevels fetches every level for the item and location sets, following pagination
func (c *ShopifyClient) InventoryLevels(ctx context.Context, inventoryItemIDs, locationIDs []int64) ([]productsync.InventoryLevel, error) {
	if len(inventoryItemIDs) == 0 || len(locationIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("inventory_item_ids", joinIDs(inventoryItemIDs))
	query.Set("location_ids", joinIDs(locationIDs))
	query.Set("limit", strconv.Itoa(c.config.PageSize))

	var levels []productsync.InventoryLevel
	for {
		var resp shopifyInventoryLevelsResponse
		header, err := c.get(ctx, "/inventory_levels.json", query, &resp)
		if err != nil {
			return nil, err
		}
		for _, l := range resp.InventoryLevels {
			levels = append(levels, l.toDomain())
		}

		pageInfo := nextPageInfo(header.Get("Link"))
		if pageInfo == "" {
			return levels, nil
		}
		// page_info requests may not repeat the original filters
		query = url.Values{}
		query.Set("page_info", pageInfo)
		query.Set("limit", strconv.Itoa(c.config.PageSize))
	}
}

// SetInventoryLevel sets the available quantity of an item at a location
func (c *ShopifyClient) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) (*productsync.InventoryLevel, error) {
	body := shopifyInventorySetRequest{
		LocationID:      locationID,
		InventoryItemID: inventoryItemID,
		Available:       available,
	}
	var resp shopifyInventoryLevelResponse
	if err := c.write(ctx, http.MethodPost, "/inventory_levels/set.json", body, &resp); err != nil {
		return nil, err
	}
	level := resp.InventoryLevel.toDomain()
	return &level, nil
}

// SaveVariant persists the variant price
func (c *ShopifyClient) SaveVariant(ctx context.Context, variant productsync.StorefrontVariant) error {
	var body shopifyVariantPriceUpdate
	body.Variant.ID = variant.ID
	body.Variant.Price = variant.Price.StringFixed(2)

	path := fmt.Sprintf("/variants/%d.json", variant.ID)
	return c.write(ctx, http.MethodPut, path, body, nil)
}

// GetVariant returns one variant or productsync.ErrVariantNotFound
func (c *ShopifyClient) GetVariant(ctx context.Context, id int64) (*productsync.StorefrontVariant, error) {
	var resp shopifyVariantResponse
	if _, err := c.get(ctx, fmt.Sprintf("/variants/%d.json", id), nil, &resp); err != nil {
		var httpErr *httpStatusError
		if errors.As(err, &httpErr) && httpErr.statusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d", productsync.ErrVariantNotFound, id)
		}
		return nil, err
	}
	v := resp.Variant.toDomain()
	return &v, nil
}

// ProductTitles returns product titles keyed by id, one request per page of ids
func (c *ShopifyClient) ProductTitles(ctx context.Context, productIDs []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(productIDs))
	for start := 0; start < len(productIDs); start += c.config.PageSize {
		end := min(start+c.config.PageSize, len(productIDs))

		query := url.Values{}
		query.Set("ids", joinIDs(productIDs[start:end]))
		query.Set("fields", "id,title")
		query.Set("limit", strconv.Itoa(c.config.PageSize))

		var resp shopifyProductsResponse
		if _, err := c.get(ctx, "/products.json", query, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Products {
			titles[p.ID] = p.Title
		}
	}
	return titles, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// get performs a GET with bounded retries and decodes the JSON body into out
func (c *ShopifyClient) get(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	target := c.config.APIURL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		header, body, err := c.do(ctx, http.MethodGet, target, nil)
		if err == nil {
			if out != nil {
				if err := json.Unmarshal(body, out); err != nil {
					return nil, fmt.Errorf("shopify: failed to decode %s: %w", path, err)
				}
			}
			return header, nil
		}
		lastErr = err
		if !isRetryableHTTPError(err) || attempt == c.config.MaxRetries {
			break
		}

		delay := c.retryDelay(attempt, err)
		c.logger.Debug("shopify request throttled, retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, c.classify(lastErr)
}

// write performs a single POST or PUT; 429 maps to productsync.ErrRateLimited
func (c *ShopifyClient) write(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("shopify: failed to marshal request: %w", err)
	}
	_, body, err := c.do(ctx, method, c.config.APIURL(path), payload)
	if err != nil {
		return c.classify(err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("shopify: failed to decode %s: %w", path, err)
		}
	}
	return nil
}

func (c *ShopifyClient) do(ctx context.Context, method, target string, payload []byte) (http.Header, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %v", productsync.ErrStorefrontUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxShopifyResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("shopify: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, newHTTPStatusError(resp, body)
	}
	return resp.Header, body, nil
}

// classify wraps HTTP status errors with the matching domain sentinel
func (c *ShopifyClient) classify(err error) error {
	var httpErr *httpStatusError
	if !errors.As(err, &httpErr) {
		return err
	}
	switch {
	case httpErr.statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", productsync.ErrRateLimited, httpErr)
	case httpErr.statusCode >= 500:
		return fmt.Errorf("%w: %w", productsync.ErrStorefrontUnavailable, httpErr)
	}
	return fmt.Errorf("%w: %w", productsync.ErrStorefrontRequestFailed, httpErr)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Ensure ShopifyClient implements StorefrontClient
var _ productsync.StorefrontClient = (*ShopifyClient)(nil)
