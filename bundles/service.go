// Package bundles is the service layer around bundle persistence: input
// validation, catalog enrichment and save-time price computation.
package bundles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/app/middleware"
	"github.com/bundlewise/bundle-service/catalog"
	"github.com/bundlewise/bundle-service/models"
	"github.com/bundlewise/bundle-service/pricing"
)

// Per-product enrichment failure reasons, carried as data on the enriched
// record instead of failing the surrounding request.
const (
	ReasonInvalidProductID = "Invalid product ID"
	ReasonProductNotFound  = "Product not found"
	ReasonFetchFailed      = "Failed to fetch product"
)

// Repository is the persistence surface the service depends on.
type Repository interface {
	Create(ctx context.Context, bundle *models.Bundle) error
	GetByID(ctx context.Context, id string) (*models.Bundle, error)
	ListByShop(ctx context.Context, shop string) ([]models.Bundle, error)
	Update(ctx context.Context, bundle *models.Bundle) error
	Delete(ctx context.Context, id string) error
}

// TargetProductInput is the admin-selected target product with its snapshot
// fields captured at selection time.
type TargetProductInput struct {
	ProductID string `json:"productId"`
	Handle    string `json:"handle"`
	Title     string `json:"title"`
	ImageURL  string `json:"imageUrl"`
	ImageAlt  string `json:"imageAlt"`
	VariantID string `json:"variantId"`
}

// CompanionInput is one companion product pick.
type CompanionInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// BundleInput is the payload for creating or updating a bundle. Pricing
// fields other than the discounted price are computed, never accepted.
type BundleInput struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	ImageURL        string              `json:"imageUrl"`
	ImageAlt        string              `json:"imageAlt"`
	ImageSource     string              `json:"imageSource"`
	SourceID        string              `json:"sourceId"`
	DiscountedPrice decimal.Decimal     `json:"discountedPrice"`
	IsActive        *bool               `json:"isActive"`
	TargetProduct   *TargetProductInput `json:"targetProduct"`
	BundleProducts  []CompanionInput    `json:"bundleProducts"`
}

// EnrichedCompanion is a companion product with its transient catalog data
// attached: Product on success, Error on failure. Never persisted.
type EnrichedCompanion struct {
	models.BundleProduct
	Product *catalog.ProductSnapshot
	Error   string
}

// EnrichedBundle is a bundle with transient catalog display data attached.
type EnrichedBundle struct {
	models.Bundle
	EnrichedProduct *catalog.ProductSnapshot
	Companions      []EnrichedCompanion
}

// Validate checks a bundle payload and returns a field-keyed error map.
// An empty map means the input is valid.
func Validate(input BundleInput) map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(input.Title) == "" {
		errs["title"] = "Title is required"
	}

	if input.TargetProduct == nil || input.TargetProduct.ProductID == "" {
		errs["targetProductId"] = "Target product is required"
	} else if !catalog.IsValidProductID(input.TargetProduct.ProductID) {
		errs["targetProductId"] = "Target product ID is invalid"
	}

	return errs
}

type Service struct {
	repo    Repository
	catalog catalog.Client
	logger  *zap.Logger
}

func NewService(repo Repository, catalogClient catalog.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		catalog: catalogClient,
		logger:  logger,
	}
}

// Enrich attaches live catalog data to a stored bundle. The target lookup
// degrades to the stored snapshot when it fails; companion lookups run
// concurrently and settle independently, each carrying either a product
// snapshot or an error reason.
func (s *Service) Enrich(ctx context.Context, bundle *models.Bundle) *EnrichedBundle {
	enriched := &EnrichedBundle{Bundle: *bundle}

	if target := bundle.TargetProduct; target != nil && catalog.IsValidProductID(target.ProductID) {
		snapshot, err := s.catalog.LookupProduct(ctx, target.ProductID)
		if err != nil {
			s.logger.Warn("target product lookup failed, keeping stored snapshot",
				zap.String("bundle_id", bundle.ID),
				zap.String("product_id", target.ProductID),
				zap.Error(err),
			)
		} else {
			enriched.EnrichedProduct = snapshot
		}
	}

	enriched.Companions = s.enrichCompanions(ctx, bundle.BundleProducts)
	return enriched
}

// EnrichAll enriches each bundle of a shop listing. Enrichment failures stay
// contained per bundle and per product; the list itself always comes back
// complete.
func (s *Service) EnrichAll(ctx context.Context, bundles []models.Bundle) []*EnrichedBundle {
	enriched := make([]*EnrichedBundle, len(bundles))

	var wg sync.WaitGroup
	for i := range bundles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			enriched[i] = s.Enrich(ctx, &bundles[i])
		}(i)
	}
	wg.Wait()

	return enriched
}

// enrichCompanions fans out one lookup per companion and joins once all of
// them have settled. A failing lookup marks its own slot and nothing else.
func (s *Service) enrichCompanions(ctx context.Context, companions []models.BundleProduct) []EnrichedCompanion {
	enriched := make([]EnrichedCompanion, len(companions))

	var wg sync.WaitGroup
	for i, companion := range companions {
		enriched[i] = EnrichedCompanion{BundleProduct: companion}

		if !catalog.IsValidProductID(companion.ProductID) {
			enriched[i].Error = ReasonInvalidProductID
			middleware.EnrichmentErrorsTotal.WithLabelValues("invalid_id").Inc()
			continue
		}

		wg.Add(1)
		go func(i int, productID string) {
			defer wg.Done()
			snapshot, err := s.catalog.LookupProduct(ctx, productID)
			if err != nil {
				enriched[i].Error = reasonFor(err)
				middleware.EnrichmentErrorsTotal.WithLabelValues(outcomeFor(err)).Inc()
				s.logger.Warn("companion product lookup failed",
					zap.String("product_id", productID),
					zap.Error(err),
				)
				return
			}
			enriched[i].Product = snapshot
		}(i, companion.ProductID)
	}
	wg.Wait()

	return enriched
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, catalog.ErrInvalidProductID):
		return ReasonInvalidProductID
	case errors.Is(err, catalog.ErrProductNotFound):
		return ReasonProductNotFound
	default:
		return ReasonFetchFailed
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, catalog.ErrInvalidProductID):
		return "invalid_id"
	case errors.Is(err, catalog.ErrProductNotFound):
		return "not_found"
	default:
		return "fetch_failed"
	}
}

// Create validates the payload, computes pricing from live catalog prices
// and persists the new bundle. A non-empty field error map means the input
// was rejected before any persistence call.
func (s *Service) Create(ctx context.Context, shop string, input BundleInput) (*EnrichedBundle, map[string]string, error) {
	if fieldErrs := Validate(input); len(fieldErrs) > 0 {
		return nil, fieldErrs, nil
	}

	bundle := s.buildBundle(ctx, shop, input)
	bundle.ShopDomain = shop

	if err := s.repo.Create(ctx, bundle); err != nil {
		return nil, nil, fmt.Errorf("create bundle: %w", err)
	}

	return s.Enrich(ctx, bundle), nil, nil
}

// Update validates the payload, recomputes pricing and overwrites the stored
// bundle, replacing the whole companion set.
func (s *Service) Update(ctx context.Context, shop, id string, input BundleInput) (*EnrichedBundle, map[string]string, error) {
	if fieldErrs := Validate(input); len(fieldErrs) > 0 {
		return nil, fieldErrs, nil
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if existing.ShopDomain != shop {
		return nil, nil, models.ErrBundleNotFound
	}

	bundle := s.buildBundle(ctx, shop, input)
	bundle.ID = id
	bundle.ShopDomain = shop

	if err := s.repo.Update(ctx, bundle); err != nil {
		return nil, nil, fmt.Errorf("update bundle: %w", err)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.Enrich(ctx, updated), nil, nil
}

// Get returns one enriched bundle owned by the shop.
func (s *Service) Get(ctx context.Context, shop, id string) (*EnrichedBundle, error) {
	bundle, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bundle.ShopDomain != shop {
		return nil, models.ErrBundleNotFound
	}
	return s.Enrich(ctx, bundle), nil
}

// List returns all of a shop's bundles, enriched, newest first.
func (s *Service) List(ctx context.Context, shop string) ([]*EnrichedBundle, error) {
	bundles, err := s.repo.ListByShop(ctx, shop)
	if err != nil {
		return nil, err
	}
	return s.EnrichAll(ctx, bundles), nil
}

// Delete removes a bundle owned by the shop.
func (s *Service) Delete(ctx context.Context, shop, id string) error {
	bundle, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bundle.ShopDomain != shop {
		return models.ErrBundleNotFound
	}
	return s.repo.Delete(ctx, id)
}

// buildBundle assembles the persistable bundle from a validated payload:
// looks up live prices for the target and every companion, computes the
// price breakdown and fills the target snapshot, preferring the
// admin-supplied selection-time fields over freshly fetched ones.
func (s *Service) buildBundle(ctx context.Context, shop string, input BundleInput) *models.Bundle {
	companions := make([]models.BundleProduct, len(input.BundleProducts))
	for i, pick := range input.BundleProducts {
		quantity := pick.Quantity
		if quantity < 1 {
			quantity = 1
		}
		companions[i] = models.BundleProduct{
			ProductID: pick.ProductID,
			Quantity:  quantity,
		}
	}

	enrichedCompanions := s.enrichCompanions(ctx, companions)
	lines := make([]pricing.Line, len(enrichedCompanions))
	for i, companion := range enrichedCompanions {
		line := pricing.Line{Quantity: companion.Quantity}
		if companion.Product != nil {
			line.Price = companion.Product.Price
		}
		lines[i] = line
	}

	var targetPrice decimal.Decimal
	var targetSnapshot *catalog.ProductSnapshot
	snapshot, err := s.catalog.LookupProduct(ctx, input.TargetProduct.ProductID)
	if err != nil {
		s.logger.Warn("target product price lookup failed, pricing without it",
			zap.String("shop", shop),
			zap.String("product_id", input.TargetProduct.ProductID),
			zap.Error(err),
		)
	} else {
		targetSnapshot = snapshot
		targetPrice = snapshot.Price
	}

	breakdown := pricing.Compute(targetPrice, lines, input.DiscountedPrice)

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	return &models.Bundle{
		Title:             input.Title,
		Description:       input.Description,
		ImageURL:          input.ImageURL,
		ImageAlt:          input.ImageAlt,
		ImageSource:       input.ImageSource,
		SourceID:          input.SourceID,
		OriginalPrice:     breakdown.OriginalPrice,
		DiscountedPrice:   breakdown.DiscountedPrice,
		SavingsAmount:     breakdown.SavingsAmount,
		SavingsPercentage: breakdown.SavingsPercentage,
		IsActive:          isActive,
		TargetProduct:     targetFromInput(input.TargetProduct, targetSnapshot),
		BundleProducts:    companions,
	}
}

// targetFromInput builds the stored target snapshot. Admin-supplied fields
// win; blanks are filled from the live lookup when one succeeded.
func targetFromInput(input *TargetProductInput, snapshot *catalog.ProductSnapshot) *models.TargetProduct {
	target := &models.TargetProduct{
		ProductID: input.ProductID,
		Handle:    input.Handle,
		Title:     input.Title,
		ImageURL:  input.ImageURL,
		ImageAlt:  input.ImageAlt,
		VariantID: input.VariantID,
	}
	if snapshot != nil {
		if target.Handle == "" {
			target.Handle = snapshot.Handle
		}
		if target.Title == "" {
			target.Title = snapshot.Title
		}
		if target.ImageURL == "" {
			target.ImageURL = snapshot.ImageURL
		}
		if target.ImageAlt == "" {
			target.ImageAlt = snapshot.ImageAlt
		}
		if target.VariantID == "" {
			target.VariantID = snapshot.VariantID
		}
	}
	return target
}
