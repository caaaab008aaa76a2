package supplier

import (
	"errors"
	"time"
)

// Errors for Fuse5 configuration
var (
	ErrFuse5ConfigMissingAPIKey = errors.New("fuse5: api key is required")
	ErrFuse5ConfigMissingAPIURL = errors.New("fuse5: api url is required")
)

// Fuse5Config holds configuration for the Fuse5 ERP API
type Fuse5Config struct {
	APIKey string
	// APIURL is the single service endpoint every call is posted to
	APIURL string
	// PriceField is the export column used as the supplier price (m1..m6)
	PriceField string
	// CachePath is where the last product export is kept
	CachePath string
	// Timeout bounds ordinary calls; ExportTimeout bounds product/export and the download
	Timeout       time.Duration
	ExportTimeout time.Duration
}

// NewFuse5Config creates a configuration with defaults
func NewFuse5Config(apiKey, apiURL string) *Fuse5Config {
	return &Fuse5Config{
		APIKey:        apiKey,
		APIURL:        apiURL,
		PriceField:    "m1",
		CachePath:     "data/fuse5_export.csv",
		Timeout:       30 * time.Second,
		ExportTimeout: time.Hour,
	}
}

// Validate validates the Fuse5 configuration
func (c *Fuse5Config) Validate() error {
	if c.APIKey == "" {
		return ErrFuse5ConfigMissingAPIKey
	}
	if c.APIURL == "" {
		return ErrFuse5ConfigMissingAPIURL
	}
	return nil
}

// withCredentials returns a copy using the given key and url where set
func (c Fuse5Config) withCredentials(apiKey, apiURL string) *Fuse5Config {
	if apiKey != "" {
		c.APIKey = apiKey
	}
	if apiURL != "" {
		c.APIURL = apiURL
	}
	return &c
}
