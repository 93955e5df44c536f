// Package storefront serves the public bundle read path consumed by the
// shopper-facing widget. Responses carry only previously persisted snapshot
// fields, never live catalog data, to keep the endpoint cheap and
// catalog-independent.
package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/app/middleware"
	"github.com/bundlewise/bundle-service/models"
)

// BundleProvider is the persistence read path the handler depends on.
type BundleProvider interface {
	ListActiveForProduct(ctx context.Context, shop, productID string) ([]models.Bundle, error)
}

type Handler struct {
	repo   BundleProvider
	logger *zap.Logger
}

func NewHandler(repo BundleProvider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Routes returns the storefront sub-router. The widget is served from shop
// domains, so every response carries permissive CORS headers, preflights are
// answered directly and unknown methods get a 405.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/product/{productID}", h.HandleGetBundles)
	r.Options("/product/{productID}", h.HandleOptions)
	r.MethodNotAllowed(h.handleMethodNotAllowed)
	return r
}

type TargetProductView struct {
	ProductID string `json:"productId"`
}

type BundleProductView struct {
	ID        uint   `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// BundleView is the minimal public projection of a persisted bundle.
type BundleView struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	ImageURL          string              `json:"imageUrl"`
	ImageAlt          string              `json:"imageAlt"`
	OriginalPrice     float64             `json:"originalPrice"`
	DiscountedPrice   float64             `json:"discountedPrice"`
	SavingsAmount     float64             `json:"savingsAmount"`
	SavingsPercentage int                 `json:"savingsPercentage"`
	IsActive          bool                `json:"isActive"`
	TargetProduct     *TargetProductView  `json:"targetProduct,omitempty"`
	BundleProducts    []BundleProductView `json:"bundleProducts"`
}

type bundlesResponse struct {
	Success   bool         `json:"success"`
	Bundles   []BundleView `json:"bundles"`
	ProductID string       `json:"productId"`
	Shop      string       `json:"shop"`
}

type errorResponse struct {
	Error     string       `json:"error"`
	Bundles   []BundleView `json:"bundles"`
	ProductID string       `json:"productId,omitempty"`
	Shop      string       `json:"shop,omitempty"`
}

// HandleGetBundles handles GET /api/bundles/product/{productID}?shop={shop}.
func (h *Handler) HandleGetBundles(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	// The widget URL-encodes gid-form product ids into the path segment.
	productID := chi.URLParam(r, "productID")
	if decoded, err := url.PathUnescape(productID); err == nil {
		productID = decoded
	}
	shop := r.URL.Query().Get("shop")

	if productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Product ID is required"})
		middleware.StorefrontQueriesTotal.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		return
	}
	if shop == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Shop parameter is required"})
		middleware.StorefrontQueriesTotal.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		return
	}

	bundles, err := h.repo.ListActiveForProduct(r.Context(), shop, productID)
	if err != nil {
		h.logger.Error("storefront bundle query failed",
			zap.String("shop", shop),
			zap.String("product_id", productID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "Failed to fetch bundles",
			Bundles:   []BundleView{},
			ProductID: productID,
			Shop:      shop,
		})
		middleware.StorefrontQueriesTotal.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		return
	}

	views := make([]BundleView, len(bundles))
	for i, bundle := range bundles {
		views[i] = toBundleView(bundle)
	}

	writeJSON(w, http.StatusOK, bundlesResponse{
		Success:   true,
		Bundles:   views,
		ProductID: productID,
		Shop:      shop,
	})
	middleware.StorefrontQueriesTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
}

// HandleOptions answers CORS preflight requests with an empty body.
func (h *Handler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}

func toBundleView(bundle models.Bundle) BundleView {
	view := BundleView{
		ID:                bundle.ID,
		Title:             bundle.Title,
		Description:       bundle.Description,
		ImageURL:          bundle.ImageURL,
		ImageAlt:          bundle.ImageAlt,
		OriginalPrice:     bundle.OriginalPrice.InexactFloat64(),
		DiscountedPrice:   bundle.DiscountedPrice.InexactFloat64(),
		SavingsAmount:     bundle.SavingsAmount.InexactFloat64(),
		SavingsPercentage: bundle.SavingsPercentage,
		IsActive:          bundle.IsActive,
		BundleProducts:    make([]BundleProductView, len(bundle.BundleProducts)),
	}
	if bundle.TargetProduct != nil {
		view.TargetProduct = &TargetProductView{ProductID: bundle.TargetProduct.ProductID}
	}
	for i, companion := range bundle.BundleProducts {
		view.BundleProducts[i] = BundleProductView{
			ID:        companion.ID,
			ProductID: companion.ProductID,
			Quantity:  companion.Quantity,
		}
	}
	return view
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
