// Package catalog looks up product display data (title, handle, image,
// first-variant price) from the platform's admin GraphQL API. Lookups are
// failure-tolerant: a failed lookup surfaces as an error to the caller but
// must never abort a batch of sibling lookups.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/app/middleware"
)

const productIDPrefix = "gid://shopify/Product/"

var (
	// ErrInvalidProductID is returned for product ids that do not match the
	// catalog's global-id format. No network call is made for these.
	ErrInvalidProductID = errors.New("invalid product id")

	// ErrProductNotFound is returned when the catalog has no product for a
	// syntactically valid id.
	ErrProductNotFound = errors.New("product not found")

	// ErrUpstream is returned when the catalog call itself fails
	// (network error, non-2xx response, GraphQL error).
	ErrUpstream = errors.New("failed to fetch product")
)

// IsValidProductID reports whether id is a well-formed catalog product
// global id, e.g. "gid://shopify/Product/123456".
func IsValidProductID(id string) bool {
	rest, ok := strings.CutPrefix(id, productIDPrefix)
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ProductSnapshot is the normalized result of a catalog lookup. Missing
// nested fields (no media, no variant) degrade to zero values.
type ProductSnapshot struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Handle       string          `json:"handle"`
	ImageURL     string          `json:"imageUrl"`
	ImageAlt     string          `json:"imageAlt"`
	VariantID    string          `json:"variantId"`
	VariantTitle string          `json:"variantTitle"`
	Price        decimal.Decimal `json:"price"`
}

// Client looks up a single product by its catalog global id.
type Client interface {
	LookupProduct(ctx context.Context, productID string) (*ProductSnapshot, error)
}

// Doer is the transport used to reach the catalog. Satisfied by
// *http.Client and substitutable with a test double.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const productQuery = `query getProduct($id: ID!) {
  product(id: $id) {
    id
    title
    handle
    media(first: 1) {
      edges {
        node {
          id
          ... on MediaImage {
            image {
              id
              url
              altText
            }
          }
        }
      }
    }
    variants(first: 1) {
      edges {
        node {
          id
          title
          price
        }
      }
    }
  }
}`

// GraphQLClient implements Client against the admin GraphQL endpoint.
type GraphQLClient struct {
	endpoint string
	token    string
	http     Doer
	logger   *zap.Logger
}

func NewGraphQLClient(endpoint, token string, doer Doer, logger *zap.Logger) *GraphQLClient {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphQLClient{
		endpoint: endpoint,
		token:    token,
		http:     doer,
		logger:   logger,
	}
}

type gqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		Product *struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Handle string `json:"handle"`
			Media  struct {
				Edges []struct {
					Node struct {
						ID    string `json:"id"`
						Image struct {
							ID      string `json:"id"`
							URL     string `json:"url"`
							AltText string `json:"altText"`
						} `json:"image"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"media"`
			Variants struct {
				Edges []struct {
					Node struct {
						ID    string `json:"id"`
						Title string `json:"title"`
						Price string `json:"price"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"variants"`
		} `json:"product"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// LookupProduct issues one product query. Ids that fail the global-id format
// check short-circuit without a network round-trip. Transport and service
// failures are logged and wrapped in ErrUpstream so that callers can degrade
// per item instead of failing a whole batch.
func (c *GraphQLClient) LookupProduct(ctx context.Context, productID string) (*ProductSnapshot, error) {
	if !IsValidProductID(productID) {
		middleware.CatalogLookupsTotal.WithLabelValues("invalid_id").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidProductID, productID)
	}

	body, err := json.Marshal(gqlRequest{
		Query:     productQuery,
		Variables: map[string]string{"id": productID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Shopify-Access-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("catalog request failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)
		middleware.CatalogLookupsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("catalog returned non-2xx status",
			zap.String("product_id", productID),
			zap.Int("status", resp.StatusCode),
		)
		middleware.CatalogLookupsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var decoded gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Warn("catalog response decode failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)
		middleware.CatalogLookupsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	if len(decoded.Errors) > 0 {
		c.logger.Warn("catalog query returned errors",
			zap.String("product_id", productID),
			zap.String("message", decoded.Errors[0].Message),
		)
		middleware.CatalogLookupsTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUpstream, decoded.Errors[0].Message)
	}

	product := decoded.Data.Product
	if product == nil {
		middleware.CatalogLookupsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, productID)
	}

	snapshot := &ProductSnapshot{
		ID:     product.ID,
		Title:  product.Title,
		Handle: product.Handle,
	}
	if len(product.Media.Edges) > 0 {
		img := product.Media.Edges[0].Node.Image
		snapshot.ImageURL = img.URL
		snapshot.ImageAlt = img.AltText
	}
	if len(product.Variants.Edges) > 0 {
		variant := product.Variants.Edges[0].Node
		snapshot.VariantID = variant.ID
		snapshot.VariantTitle = variant.Title
		if variant.Price != "" {
			price, err := decimal.NewFromString(variant.Price)
			if err != nil {
				c.logger.Warn("catalog variant price unparseable",
					zap.String("product_id", productID),
					zap.String("price", variant.Price),
				)
			} else {
				snapshot.Price = price
			}
		}
	}

	middleware.CatalogLookupsTotal.WithLabelValues("ok").Inc()
	return snapshot, nil
}
