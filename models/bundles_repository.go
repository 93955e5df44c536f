package models

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrBundleNotFound is returned when a bundle is not found.
var ErrBundleNotFound = errors.New("bundle not found")

const gidProductPrefix = "gid://shopify/Product/"

type BundlesRepository struct {
	db *gorm.DB
}

func NewBundlesRepository(db *gorm.DB) *BundlesRepository {
	return &BundlesRepository{
		db: db,
	}
}

// Create persists a bundle together with its target product snapshot and
// companion products. The caller is expected to have validated the input.
func (r *BundlesRepository) Create(ctx context.Context, bundle *Bundle) error {
	return r.db.WithContext(ctx).Create(bundle).Error
}

// GetByID loads a bundle with its target product and companion products.
func (r *BundlesRepository) GetByID(ctx context.Context, id string) (*Bundle, error) {
	var bundle Bundle
	if err := r.db.WithContext(ctx).
		Preload("TargetProduct").
		Preload("BundleProducts").
		Where("id = ?", id).
		First(&bundle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBundleNotFound
		}
		return nil, err
	}
	return &bundle, nil
}

// ListByShop returns all bundles owned by a shop, newest first.
func (r *BundlesRepository) ListByShop(ctx context.Context, shop string) ([]Bundle, error) {
	var bundles []Bundle
	if err := r.db.WithContext(ctx).
		Preload("TargetProduct").
		Preload("BundleProducts").
		Where("shop_domain = ?", shop).
		Order("created_at DESC").
		Find(&bundles).Error; err != nil {
		return nil, err
	}
	return bundles, nil
}

// Update overwrites the bundle row and replaces its children: the companion
// product set is deleted and recreated, and the target product snapshot is
// replaced in place. Runs in a single transaction.
func (r *BundlesRepository) Update(ctx context.Context, bundle *Bundle) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Bundle{}).Where("id = ?", bundle.ID).Updates(map[string]interface{}{
			"title":              bundle.Title,
			"description":        bundle.Description,
			"image_url":          bundle.ImageURL,
			"image_alt":          bundle.ImageAlt,
			"image_source":       bundle.ImageSource,
			"source_id":          bundle.SourceID,
			"original_price":     bundle.OriginalPrice,
			"discounted_price":   bundle.DiscountedPrice,
			"savings_amount":     bundle.SavingsAmount,
			"savings_percentage": bundle.SavingsPercentage,
			"is_active":          bundle.IsActive,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBundleNotFound
		}

		if bundle.TargetProduct != nil {
			if err := tx.Where("bundle_id = ?", bundle.ID).Delete(&TargetProduct{}).Error; err != nil {
				return err
			}
			bundle.TargetProduct.ID = 0
			bundle.TargetProduct.BundleID = bundle.ID
			if err := tx.Create(bundle.TargetProduct).Error; err != nil {
				return err
			}
		}

		// Companion products are replaced wholesale, no per-item diffing.
		if err := tx.Where("bundle_id = ?", bundle.ID).Delete(&BundleProduct{}).Error; err != nil {
			return err
		}
		for i := range bundle.BundleProducts {
			bundle.BundleProducts[i].ID = 0
			bundle.BundleProducts[i].BundleID = bundle.ID
		}
		if len(bundle.BundleProducts) > 0 {
			if err := tx.Create(&bundle.BundleProducts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a bundle and its children. Hard delete, no tombstone.
func (r *BundlesRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bundle_id = ?", id).Delete(&TargetProduct{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bundle_id = ?", id).Delete(&BundleProduct{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Bundle{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBundleNotFound
		}
		return nil
	})
}

// ListActiveForProduct is the storefront read path: active bundles owned by
// the shop whose target product matches the given identifier, newest first.
// Storefront pages know products by their bare numeric id, while the admin
// stores the full gid form, so a numeric id matches either representation.
func (r *BundlesRepository) ListActiveForProduct(ctx context.Context, shop, productID string) ([]Bundle, error) {
	candidates := []string{productID}
	if isAllDigits(productID) {
		candidates = append(candidates, gidProductPrefix+productID)
	} else if rest, ok := strings.CutPrefix(productID, gidProductPrefix); ok {
		candidates = append(candidates, rest)
	}

	var bundles []Bundle
	if err := r.db.WithContext(ctx).
		Joins("JOIN target_products ON target_products.bundle_id = bundles.id").
		Preload("TargetProduct").
		Preload("BundleProducts").
		Where("bundles.shop_domain = ?", shop).
		Where("bundles.is_active = ?", true).
		Where("target_products.product_id IN ?", candidates).
		Order("bundles.created_at DESC").
		Find(&bundles).Error; err != nil {
		return nil, err
	}
	return bundles, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
