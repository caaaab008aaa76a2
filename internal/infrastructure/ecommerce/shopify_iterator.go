package ecommerce

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// shopifyVariantIterator walks /variants.json one page at a time using cursor pagination
type shopifyVariantIterator struct {
	client   *ShopifyClient
	page     []ShopifyVariant
	idx      int
	pageInfo string
	pageNum  int
	last     bool
	current  productsync.StorefrontVariant
	err      error
}

func (it *shopifyVariantIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for it.idx >= len(it.page) {
		if it.last {
			return false
		}
		if err := ctx.Err(); err != nil {
			it.err = err
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			return false
		}
	}
	it.current = it.page[it.idx].toDomain()
	it.idx++
	return true
}

func (it *shopifyVariantIterator) fetch(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(it.client.config.PageSize))
	if it.pageInfo != "" {
		query.Set("page_info", it.pageInfo)
	}

	var resp shopifyVariantsResponse
	header, err := it.client.get(ctx, "/variants.json", query, &resp)
	if err != nil {
		return err
	}

	it.pageNum++
	it.page = resp.Variants
	it.idx = 0
	it.pageInfo = nextPageInfo(header.Get("Link"))
	it.last = it.pageInfo == ""

	logger.L(ctx).Info(fmt.Sprintf("Page %d containing %d variants has been received from the Shopify store", it.pageNum, len(resp.Variants)))
	return nil
}

func (it *shopifyVariantIterator) Variant() productsync.StorefrontVariant {
	return it.current
}

func (it *shopifyVariantIterator) Err() error {
	return it.err
}
