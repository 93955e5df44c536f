package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBatchSize  = 5
	defaultBatchDelay = 200 * time.Millisecond
)

// ProductBundleView mirrors the storefront endpoint's bundle payload.
type ProductBundleView struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	ImageURL          string         `json:"imageUrl"`
	ImageAlt          string         `json:"imageAlt"`
	OriginalPrice     float64        `json:"originalPrice"`
	DiscountedPrice   float64        `json:"discountedPrice"`
	SavingsAmount     float64        `json:"savingsAmount"`
	SavingsPercentage int            `json:"savingsPercentage"`
	IsActive          bool           `json:"isActive"`
	TargetProduct     *TargetRef     `json:"targetProduct"`
	BundleProducts    []CompanionRef `json:"bundleProducts"`
}

// TargetRef references the bundle's target product.
type TargetRef struct {
	ProductID string `json:"productId"`
}

// CompanionRef references one companion product and its quantity.
type CompanionRef struct {
	ID        uint   `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type bundlesAPIResponse struct {
	Success bool                `json:"success"`
	Bundles []ProductBundleView `json:"bundles"`
}

// ProductDetail is the storefront's public product JSON. Prices are integer
// cents, unlike the admin catalog's decimal dollars.
type ProductDetail struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Handle        string `json:"handle"`
	Price         int64  `json:"price"`
	FeaturedImage string `json:"featured_image"`
}

// Doer is the HTTP transport, substitutable in tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches bundle and product data on behalf of the widget. Bundles
// come from the app's own storefront API at baseURL; product details come
// from the shop's public product JSON. Every fetch degrades to an empty
// result instead of surfacing an error; the widget never shows a failure
// state to the shopper.
type Client struct {
	baseURL    string
	http       Doer
	batchSize  int
	batchDelay time.Duration
	logger     *zap.Logger
}

func NewClient(baseURL string, doer Doer, batchSize int, batchDelay time.Duration, logger *zap.Logger) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	if batchDelay <= 0 {
		batchDelay = defaultBatchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		http:       doer,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger,
	}
}

// FetchBundles returns the active bundles for a product. Any failure
// (transport, non-2xx, malformed payload) yields an empty slice.
func (c *Client) FetchBundles(ctx context.Context, shop, productID string) []ProductBundleView {
	endpoint := fmt.Sprintf("%s/api/bundles/product/%s?shop=%s",
		c.baseURL, url.PathEscape(productID), url.QueryEscape(shop))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("bundle fetch failed", zap.String("product_id", productID), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("bundle fetch returned non-2xx status",
			zap.String("product_id", productID),
			zap.Int("status", resp.StatusCode),
		)
		return nil
	}

	var decoded bundlesAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Warn("bundle payload decode failed", zap.Error(err))
		return nil
	}
	if !decoded.Success {
		return nil
	}

	// The endpoint only returns active bundles; filter again defensively.
	active := decoded.Bundles[:0]
	for _, bundle := range decoded.Bundles {
		if bundle.IsActive {
			active = append(active, bundle)
		}
	}
	return active
}

// ProductIDs collects the distinct product ids referenced by a set of
// bundles (targets and companions), preserving first-seen order.
func ProductIDs(bundles []ProductBundleView) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, bundle := range bundles {
		if bundle.TargetProduct != nil {
			add(bundle.TargetProduct.ProductID)
		}
		for _, companion := range bundle.BundleProducts {
			add(companion.ProductID)
		}
	}
	return ids
}

// FetchProductDetails fetches the public product JSON for each id from the
// shop's own storefront, in batches of batchSize with a fixed delay between
// batches to stay under the storefront's rate limits. Failed fetches are
// dropped; callers render placeholders for missing entries.
func (c *Client) FetchProductDetails(ctx context.Context, shop string, ids []string) map[string]ProductDetail {
	shopBase := shop
	if !strings.Contains(shopBase, "://") {
		shopBase = "https://" + shopBase
	}

	details := make(map[string]ProductDetail, len(ids))
	var mu sync.Mutex

	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		var wg sync.WaitGroup
		for _, id := range ids[start:end] {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				detail, err := c.fetchSingleProduct(ctx, shopBase, id)
				if err != nil {
					c.logger.Warn("product detail fetch failed",
						zap.String("product_id", id),
						zap.Error(err),
					)
					return
				}
				mu.Lock()
				details[id] = *detail
				mu.Unlock()
			}(id)
		}
		wg.Wait()

		if end < len(ids) {
			select {
			case <-ctx.Done():
				return details
			case <-time.After(c.batchDelay):
			}
		}
	}

	return details
}

func (c *Client) fetchSingleProduct(ctx context.Context, shopBase, id string) (*ProductDetail, error) {
	endpoint := fmt.Sprintf("%s/products/%s.js", shopBase, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var detail ProductDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
