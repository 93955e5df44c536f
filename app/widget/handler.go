// Package widget serves the storefront widget markup. The theme's script tag
// requests it with the page context and swaps the returned HTML into the
// product page.
package widget

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/widget"
)

type Handler struct {
	client *widget.Client
	logger *zap.Logger
}

func NewHandler(client *widget.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		client: client,
		logger: logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleRender)
	return r
}

// HandleRender resolves the shop and product from the request, fetches the
// applicable bundles and their product details, and renders the accordion.
// An unresolvable product or a fetch failure renders the empty state rather
// than an error; the shopper never sees a broken widget.
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := widget.PageData{
		URL:        query.Get("page_url"),
		ShopDomain: query.Get("shop"),
	}

	shop := page.Shop()
	if shop == "" {
		http.Error(w, "shop is required", http.StatusBadRequest)
		return
	}

	productID := query.Get("product_id")
	if productID == "" {
		productID = page.ProductID()
	}
	if productID == "" {
		http.Error(w, "product could not be resolved", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	bundles := h.client.FetchBundles(ctx, shop, productID)

	var details map[string]widget.ProductDetail
	if ids := widget.ProductIDs(bundles); len(ids) > 0 {
		details = h.client.FetchProductDetails(ctx, shop, ids)
	}

	accordion := widget.NewAccordion(widget.BuildViews(bundles, details))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := accordion.Render(w); err != nil {
		h.logger.Error("widget render failed",
			zap.String("shop", shop),
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
}
