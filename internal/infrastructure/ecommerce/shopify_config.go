package ecommerce

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ShopifyAPIVersion is the REST Admin API version the client speaks
	ShopifyAPIVersion = "2023-04"
	// ShopifyMaxPageSize is the largest page the REST Admin API serves
	ShopifyMaxPageSize = 250
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingShop     = errors.New("shopify: shop name or base URL is required")
	ErrShopifyConfigMissingToken    = errors.New("shopify: access token is required")
	ErrShopifyConfigInvalidPageSize = errors.New("shopify: page size must be between 1 and 250")
	ErrShopifyConfigInvalidRate     = errors.New("shopify: requests per second must be positive")
)

// ShopifyConfig holds configuration for the Shopify REST Admin API
type ShopifyConfig struct {
	// ShopName is the myshopify.com subdomain
	ShopName string
	// AccessToken is the private app token sent as X-Shopify-Access-Token
	AccessToken string
	APIVersion  string
	// BaseURL overrides https://<shop>.myshopify.com
	BaseURL  string
	PageSize int
	// RequestsPerSecond and Burst pace every request through a token bucket
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	// MaxRetries bounds the retries of idempotent GET requests
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// NewShopifyConfig creates a configuration with defaults
func NewShopifyConfig(shopName, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		ShopName:          shopName,
		AccessToken:       accessToken,
		APIVersion:        ShopifyAPIVersion,
		PageSize:          ShopifyMaxPageSize,
		RequestsPerSecond: 2,
		Burst:             40,
		Timeout:           30 * time.Second,
		MaxRetries:        5,
		RetryBaseDelay:    500 * time.Millisecond,
		RetryMaxDelay:     10 * time.Second,
	}
}

// Validate validates the Shopify configuration
func (c *ShopifyConfig) Validate() error {
	if c.ShopName == "" && c.BaseURL == "" {
		return ErrShopifyConfigMissingShop
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingToken
	}
	if c.PageSize < 1 || c.PageSize > ShopifyMaxPageSize {
		return ErrShopifyConfigInvalidPageSize
	}
	if c.RequestsPerSecond <= 0 {
		return ErrShopifyConfigInvalidRate
	}
	return nil
}

// APIURL returns the absolute URL of an Admin API path such as "/variants.json"
func (c *ShopifyConfig) APIURL(path string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.myshopify.com", c.ShopName)
	}
	version := c.APIVersion
	if version == "" {
		version = ShopifyAPIVersion
	}
	return base + "/admin/api/" + version + path
}
