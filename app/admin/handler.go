// Package admin serves the merchant-facing bundle CRUD API. Authentication
// is handled upstream; the shop identity arrives on the X-Shop-Domain
// header.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/bundles"
	"github.com/bundlewise/bundle-service/catalog"
	"github.com/bundlewise/bundle-service/models"
)

const shopHeader = "X-Shop-Domain"

// BundleService is the service surface the handler depends on.
type BundleService interface {
	Create(ctx context.Context, shop string, input bundles.BundleInput) (*bundles.EnrichedBundle, map[string]string, error)
	Update(ctx context.Context, shop, id string, input bundles.BundleInput) (*bundles.EnrichedBundle, map[string]string, error)
	Get(ctx context.Context, shop, id string) (*bundles.EnrichedBundle, error)
	List(ctx context.Context, shop string) ([]*bundles.EnrichedBundle, error)
	Delete(ctx context.Context, shop, id string) error
}

type Handler struct {
	svc    BundleService
	logger *zap.Logger
}

func NewHandler(svc BundleService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{bundleID}", h.HandleGet)
	r.Put("/{bundleID}", h.HandleUpdate)
	r.Delete("/{bundleID}", h.HandleDelete)
	return r
}

// --- Response shapes ---

type ProductResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Handle    string  `json:"handle"`
	ImageURL  string  `json:"imageUrl"`
	ImageAlt  string  `json:"imageAlt"`
	VariantID string  `json:"variantId"`
	Price     float64 `json:"price"`
}

type TargetProductResponse struct {
	ProductID string `json:"productId"`
	Handle    string `json:"handle"`
	Title     string `json:"title"`
	ImageURL  string `json:"imageUrl"`
	ImageAlt  string `json:"imageAlt"`
	VariantID string `json:"variantId"`
}

type BundleProductResponse struct {
	ID        uint             `json:"id"`
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *ProductResponse `json:"product,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type BundleResponse struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	ImageURL          string                  `json:"imageUrl"`
	ImageAlt          string                  `json:"imageAlt"`
	ImageSource       string                  `json:"imageSource"`
	SourceID          string                  `json:"sourceId"`
	OriginalPrice     float64                 `json:"originalPrice"`
	DiscountedPrice   float64                 `json:"discountedPrice"`
	SavingsAmount     float64                 `json:"savingsAmount"`
	SavingsPercentage int                     `json:"savingsPercentage"`
	IsActive          bool                    `json:"isActive"`
	CreatedAt         time.Time               `json:"createdAt"`
	TargetProduct     *TargetProductResponse  `json:"targetProduct,omitempty"`
	EnrichedProduct   *ProductResponse        `json:"enrichedProduct,omitempty"`
	BundleProducts    []BundleProductResponse `json:"bundleProducts"`
}

type ListResponse struct {
	Bundles []BundleResponse `json:"bundles"`
}

// --- Handlers ---

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shopFrom(w, r)
	if !ok {
		return
	}

	enriched, err := h.svc.List(r.Context(), shop)
	if err != nil {
		h.logger.Error("list bundles failed", zap.String("shop", shop), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch bundles")
		return
	}

	response := ListResponse{Bundles: make([]BundleResponse, len(enriched))}
	for i, bundle := range enriched {
		response.Bundles[i] = toBundleResponse(bundle)
	}
	respondWithJSON(w, http.StatusOK, response)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shopFrom(w, r)
	if !ok {
		return
	}

	enriched, err := h.svc.Get(r.Context(), shop, chi.URLParam(r, "bundleID"))
	if err != nil {
		if errors.Is(err, models.ErrBundleNotFound) {
			respondWithError(w, http.StatusNotFound, "Bundle not found")
			return
		}
		h.logger.Error("get bundle failed", zap.String("shop", shop), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch bundle")
		return
	}
	respondWithJSON(w, http.StatusOK, toBundleResponse(enriched))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shopFrom(w, r)
	if !ok {
		return
	}

	var input bundles.BundleInput
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created, fieldErrs, err := h.svc.Create(r.Context(), shop, input)
	if err != nil {
		h.logger.Error("create bundle failed", zap.String("shop", shop), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to save bundle")
		return
	}
	if len(fieldErrs) > 0 {
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": fieldErrs})
		return
	}
	respondWithJSON(w, http.StatusCreated, toBundleResponse(created))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shopFrom(w, r)
	if !ok {
		return
	}

	var input bundles.BundleInput
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, fieldErrs, err := h.svc.Update(r.Context(), shop, chi.URLParam(r, "bundleID"), input)
	if err != nil {
		if errors.Is(err, models.ErrBundleNotFound) {
			respondWithError(w, http.StatusNotFound, "Bundle not found")
			return
		}
		h.logger.Error("update bundle failed", zap.String("shop", shop), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to save bundle")
		return
	}
	if len(fieldErrs) > 0 {
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": fieldErrs})
		return
	}
	respondWithJSON(w, http.StatusOK, toBundleResponse(updated))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shopFrom(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), shop, chi.URLParam(r, "bundleID")); err != nil {
		if errors.Is(err, models.ErrBundleNotFound) {
			respondWithError(w, http.StatusNotFound, "Bundle not found")
			return
		}
		h.logger.Error("delete bundle failed", zap.String("shop", shop), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to delete bundle")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Bundle deleted"})
}

func (h *Handler) shopFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	shop := r.Header.Get(shopHeader)
	if shop == "" {
		respondWithError(w, http.StatusBadRequest, "Missing "+shopHeader+" header")
		return "", false
	}
	return shop, true
}

// --- Mapping ---

func toBundleResponse(bundle *bundles.EnrichedBundle) BundleResponse {
	response := BundleResponse{
		ID:                bundle.ID,
		Title:             bundle.Title,
		Description:       bundle.Description,
		ImageURL:          bundle.ImageURL,
		ImageAlt:          bundle.ImageAlt,
		ImageSource:       bundle.ImageSource,
		SourceID:          bundle.SourceID,
		OriginalPrice:     bundle.OriginalPrice.InexactFloat64(),
		DiscountedPrice:   bundle.DiscountedPrice.InexactFloat64(),
		SavingsAmount:     bundle.SavingsAmount.InexactFloat64(),
		SavingsPercentage: bundle.SavingsPercentage,
		IsActive:          bundle.IsActive,
		CreatedAt:         bundle.CreatedAt,
		EnrichedProduct:   toProductResponse(bundle.EnrichedProduct),
		BundleProducts:    make([]BundleProductResponse, len(bundle.Companions)),
	}
	if bundle.TargetProduct != nil {
		response.TargetProduct = &TargetProductResponse{
			ProductID: bundle.TargetProduct.ProductID,
			Handle:    bundle.TargetProduct.Handle,
			Title:     bundle.TargetProduct.Title,
			ImageURL:  bundle.TargetProduct.ImageURL,
			ImageAlt:  bundle.TargetProduct.ImageAlt,
			VariantID: bundle.TargetProduct.VariantID,
		}
	}
	for i, companion := range bundle.Companions {
		response.BundleProducts[i] = BundleProductResponse{
			ID:        companion.ID,
			ProductID: companion.ProductID,
			Quantity:  companion.Quantity,
			Product:   toProductResponse(companion.Product),
			Error:     companion.Error,
		}
	}
	return response
}

func toProductResponse(snapshot *catalog.ProductSnapshot) *ProductResponse {
	if snapshot == nil {
		return nil
	}
	return &ProductResponse{
		ID:        snapshot.ID,
		Title:     snapshot.Title,
		Handle:    snapshot.Handle,
		ImageURL:  snapshot.ImageURL,
		ImageAlt:  snapshot.ImageAlt,
		VariantID: snapshot.VariantID,
		Price:     snapshot.Price.InexactFloat64(),
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
