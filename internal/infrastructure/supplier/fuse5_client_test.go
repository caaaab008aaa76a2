package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// decodeEnvelope reads the data= form field of a Fuse5 call
func decodeEnvelope(t *testing.T, r *http.Request) fuse5Envelope {
	t.Helper()
	require.NoError(t, r.ParseForm())
	var env fuse5Envelope
	require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &env))
	return env
}

func fuse5OK(data string) string {
	return fmt.Sprintf(`{"services":[{"response":{"status":true,"msg":[],"data":%s}}]}`, data)
}

func TestFuse5Config_Validate(t *testing.T) {
	assert.ErrorIs(t, NewFuse5Config("", "http://x").Validate(), ErrFuse5ConfigMissingAPIKey)
	assert.ErrorIs(t, NewFuse5Config("k", "").Validate(), ErrFuse5ConfigMissingAPIURL)
	assert.NoError(t, NewFuse5Config("k", "http://x").Validate())

	cfg := NewFuse5Config("k", "http://x").withCredentials("", "http://y")
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "http://y", cfg.APIURL)
}

func TestFuse5Client_ExportCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		env := decodeEnvelope(t, r)
		assert.Equal(t, "secret", env.Authenticate.APIKey)
		require.Len(t, env.Services, 1)
		assert.Equal(t, "product/export", env.Services[0].Call)
		assert.Equal(t, []any{"unit_barcode", "m1"}, env.Services[0].Params)
		assert.Equal(t, map[string]any{"changedsince": "03-07-2024 15:04:05"}, env.Services[0].Identifier)

		fmt.Fprint(w, fuse5OK(`"https://files.example.com/export.csv"`))
	}))
	defer server.Close()

	client, err := NewFuse5Client(NewFuse5Config("secret", server.URL))
	require.NoError(t, err)

	since := time.Date(2024, 3, 7, 15, 4, 5, 0, time.UTC)
	url, err := client.ExportCatalog(context.Background(), []string{"unit_barcode", "m1"}, &since)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/export.csv", url)
}

func TestFuse5Client_ExportCatalogWithoutChangedSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := decodeEnvelope(t, r)
		assert.Nil(t, env.Services[0].Identifier)
		fmt.Fprint(w, fuse5OK(`"u"`))
	}))
	defer server.Close()

	client, err := NewFuse5Client(NewFuse5Config("secret", server.URL))
	require.NoError(t, err)
	_, err = client.ExportCatalog(context.Background(), []string{"unit_barcode"}, nil)
	require.NoError(t, err)
}

func TestFuse5Client_APIFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"status false joins messages", http.StatusOK, `{"services":[{"response":{"status":false,"msg":["E001 invalid key","E002 denied"],"data":null}}]}`, "E001 invalid key\nE002 denied"},
		{"object messages", http.StatusOK, `{"services":[{"response":{"status":false,"msg":[{"code":"E013"}]}}]}`, `{"code":"E013"}`},
		{"unexpected body", http.StatusOK, `<html>`, "unexpected response"},
		{"empty services", http.StatusOK, `{"services":[]}`, "unexpected response"},
		{"http error", http.StatusBadGateway, ``, "HTTP 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client, err := NewFuse5Client(NewFuse5Config("secret", server.URL))
			require.NoError(t, err)

			_, err = client.ExportCatalog(context.Background(), nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, productsync.ErrSupplierAPI)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFuse5Client_Locations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := decodeEnvelope(t, r)
		assert.Equal(t, "location/all", env.Services[0].Call)
		assert.Nil(t, env.Services[0].Params)
		fmt.Fprint(w, fuse5OK(`[{"location_id":"1","location_name":"Main"},{"location_id":2,"location_name":"Annex"}]`))
	}))
	defer server.Close()

	client, err := NewFuse5Client(NewFuse5Config("secret", server.URL))
	require.NoError(t, err)

	locations, err := client.Locations(context.Background())
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "Main", locations[0].LocationName)
	assert.Equal(t, "2", locations[1].LocationID.String())
}

func TestFuse5Feed_FetchCatalog(t *testing.T) {
	const exportCSV = "unit_barcode,m1,quantity_onhand,product_number,line_code,product_name,location_name\n" +
		"012345,9.99,3,A1,LC,Nuts &amp; Bolts,L1\n" +
		"999999,oops,1,X,,,\n"

	var exports int
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		exports++
		env := decodeEnvelope(t, r)
		assert.Equal(t, "source-key", env.Authenticate.APIKey)
		fmt.Fprint(w, fuse5OK(fmt.Sprintf("%q", serverURL+"/files/export.csv")))
	})
	mux.HandleFunc("/files/export.csv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, exportCSV)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	serverURL = server.URL

	cachePath := filepath.Join(t.TempDir(), "cache", "fuse5.csv")
	cfg := NewFuse5Config("", "")
	cfg.CachePath = cachePath
	feed := NewFuse5Feed(cfg)

	t.Run("missing cache without refresh", func(t *testing.T) {
		_, err := feed.FetchCatalog(context.Background(), productsync.FeedRequest{})
		assert.ErrorIs(t, err, productsync.ErrCatalogUnavailable)
	})

	t.Run("refresh needs credentials", func(t *testing.T) {
		_, err := feed.FetchCatalog(context.Background(), productsync.FeedRequest{Refresh: true})
		assert.ErrorIs(t, err, productsync.ErrInvalidSourceParams)
	})

	t.Run("refresh downloads and caches", func(t *testing.T) {
		products, err := feed.FetchCatalog(context.Background(), productsync.FeedRequest{
			APIKey:  "source-key",
			APIURL:  server.URL + "/api",
			Refresh: true,
		})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Nuts & Bolts", products[0].ProductName)
		assert.Equal(t, 1, exports)

		raw, err := os.ReadFile(cachePath)
		require.NoError(t, err)
		assert.Equal(t, exportCSV, string(raw))
	})

	t.Run("reads cache without calling the api", func(t *testing.T) {
		products, err := feed.FetchCatalog(context.Background(), productsync.FeedRequest{})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "A1", products[0].SKU)
		assert.Equal(t, 1, exports)
	})
}
