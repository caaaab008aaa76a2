package productsync

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/stocksync/backend/internal/domain/productsync"
	csvimport "github.com/stocksync/backend/internal/infrastructure/import"
)

const feedCSV = "barcode,sku,price,quantity,location_name,product_name,line_code\n" +
	"012345678905,A-1,12.50,5,Main Warehouse,Brake &amp; pad,BRK\n" +
	"400638133393,B-2,abc,3,Main Warehouse,Filter,FLT\n" +
	"999999999999,C-3,4.00,1,,Wiper,WPR\n"

func TestCSVFeedService_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("stores valid rows", func(t *testing.T) {
		repo := new(MockCustomCSVRepository)
		repo.On("Create", mock.Anything, "weekly", mock.MatchedBy(func(rows []productsync.SupplierProduct) bool {
			return len(rows) == 2 && rows[0].ProductName == "Brake & pad" && rows[1].SKU == "C-3"
		})).Return(&productsync.CustomCSV{ID: 4, Name: "weekly", ProductCount: 2}, nil)

		result, err := NewCSVFeedService(repo, 30).Import(ctx, " weekly ", strings.NewReader(feedCSV), csvimport.ColumnMapping{}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(4), result.Feed.ID)
		assert.Equal(t, 2, result.ImportedRows)
		assert.Equal(t, 1, result.ErrorRows)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "price", result.Errors[0].Column)
		repo.AssertExpectations(t)
	})

	t.Run("decodes windows-1252", func(t *testing.T) {
		raw, err := charmap.Windows1252.NewEncoder().String("barcode,sku,price,quantity,location_name,product_name,line_code\n" +
			"012345678905,A-1,12.50,5,Main,Café filter,X\n")
		require.NoError(t, err)

		repo := new(MockCustomCSVRepository)
		repo.On("Create", mock.Anything, "latin", mock.MatchedBy(func(rows []productsync.SupplierProduct) bool {
			return len(rows) == 1 && rows[0].ProductName == "Café filter"
		})).Return(&productsync.CustomCSV{ID: 5}, nil)

		_, err = NewCSVFeedService(repo, 30).Import(ctx, "latin", bytes.NewReader([]byte(raw)), csvimport.ColumnMapping{}, "windows-1252")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects a feed without valid rows", func(t *testing.T) {
		repo := new(MockCustomCSVRepository)
		data := "barcode,sku,price,quantity,location_name,product_name,line_code\n1,A,x,y,L,N,C\n"

		_, err := NewCSVFeedService(repo, 30).Import(ctx, "bad", strings.NewReader(data), csvimport.ColumnMapping{}, "")
		assert.ErrorIs(t, err, csvimport.ErrNoValidRows)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing mapped column", func(t *testing.T) {
		_, err := NewCSVFeedService(new(MockCustomCSVRepository), 30).
			Import(ctx, "bad", strings.NewReader("barcode,sku\n1,A\n"), csvimport.ColumnMapping{}, "")
		assert.ErrorIs(t, err, csvimport.ErrMissingColumns)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := NewCSVFeedService(new(MockCustomCSVRepository), 30).
			Import(ctx, "bad", strings.NewReader(feedCSV), csvimport.ColumnMapping{}, "ebcdic")
		assert.ErrorIs(t, err, csvimport.ErrUnsupportedEncoding)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := NewCSVFeedService(new(MockCustomCSVRepository), 30).
			Import(ctx, " ", strings.NewReader(feedCSV), csvimport.ColumnMapping{}, "")
		assert.ErrorIs(t, err, productsync.ErrInvalidSourceParams)
	})
}

func TestCSVFeedService_Prune(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	repo := new(MockCustomCSVRepository)
	repo.On("PruneOlderThan", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(2), nil).Once()
	repo.On("PruneOlderThan", mock.Anything, now.AddDate(0, 0, -7)).Return(int64(5), nil).Once()

	svc := NewCSVFeedService(repo, 30)
	svc.now = func() time.Time { return now }

	n, err := svc.Prune(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.Prune(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	repo.AssertExpectations(t)
}

func TestMaintenanceService_Run(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	ledger := &memLedger{}
	repo := new(MockCustomCSVRepository)
	repo.On("PruneOlderThan", mock.Anything, now.AddDate(0, 0, -14)).Return(int64(0), nil).Once()

	feeds := NewCSVFeedService(repo, 14)
	feeds.now = func() time.Time { return now }
	svc := NewMaintenanceService(ledger, feeds, 30)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, []time.Time{now.AddDate(0, 0, -30)}, ledger.pruned)
	repo.AssertExpectations(t)
}
