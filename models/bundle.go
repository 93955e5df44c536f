package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bundle represents a merchandising configuration: one target product sold
// together with a set of companion products at a combined discounted price.
// OriginalPrice, SavingsAmount and SavingsPercentage are computed at save
// time from live catalog prices and are never user-supplied.
type Bundle struct {
	ID                string          `gorm:"type:uuid;primaryKey"`
	ShopDomain        string          `gorm:"index;not null"`
	Title             string          `gorm:"not null"`
	Description       string
	ImageURL          string
	ImageAlt          string
	ImageSource       string
	SourceID          string
	OriginalPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	DiscountedPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SavingsAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SavingsPercentage int             `gorm:"not null"`
	IsActive          bool            `gorm:"not null;default:true"`
	CreatedAt         time.Time

	TargetProduct  *TargetProduct  `gorm:"foreignKey:BundleID;constraint:OnDelete:CASCADE"`
	BundleProducts []BundleProduct `gorm:"foreignKey:BundleID;constraint:OnDelete:CASCADE"`
}

func (b *Bundle) TableName() string {
	return "bundles"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (b *Bundle) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// TargetProduct is the anchor product a bundle is attached to. The display
// fields are a snapshot captured at selection time, not live catalog data.
type TargetProduct struct {
	ID        uint   `gorm:"primaryKey"`
	BundleID  string `gorm:"type:uuid;uniqueIndex;not null"`
	ProductID string `gorm:"index;not null"`
	Handle    string
	Title     string
	ImageURL  string
	ImageAlt  string
	VariantID string
}

func (t *TargetProduct) TableName() string {
	return "target_products"
}

// BundleProduct is one companion line item inside a bundle.
type BundleProduct struct {
	ID        uint   `gorm:"primaryKey"`
	BundleID  string `gorm:"type:uuid;index;not null"`
	ProductID string `gorm:"not null"`
	Quantity  int    `gorm:"not null;default:1"`
}

func (p *BundleProduct) TableName() string {
	return "bundle_products"
}
