package widget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bundlewise/bundle-service/pricing"
)

const placeholderImage = "/assets/no-image.png"

// ItemView is one product row inside the rendered bundle.
type ItemView struct {
	ProductID string
	Title     string
	ImageURL  string
	Quantity  int
	Price     string
}

// BundleView is a display-ready bundle. Prices are recomputed from the
// freshly fetched storefront prices rather than trusted from the stored
// bundle, so the widget stays correct when catalog prices drift.
type BundleView struct {
	ID                string
	Title             string
	Description       string
	ImageURL          string
	ImageAlt          string
	Items             []ItemView
	OriginalPrice     string
	DiscountedPrice   string
	SavingsAmount     string
	SavingsPercentage int
}

// BuildViews turns fetched bundles and product details into display views.
// Products missing from details get a placeholder image and generated title,
// and contribute zero to the recomputed original price.
func BuildViews(bundleList []ProductBundleView, details map[string]ProductDetail) []BundleView {
	views := make([]BundleView, 0, len(bundleList))
	for _, bundle := range bundleList {
		views = append(views, buildView(bundle, details))
	}
	return views
}

func buildView(bundle ProductBundleView, details map[string]ProductDetail) BundleView {
	view := BundleView{
		ID:          bundle.ID,
		Title:       bundle.Title,
		Description: bundle.Description,
		ImageURL:    bundle.ImageURL,
		ImageAlt:    bundle.ImageAlt,
	}
	if view.ImageURL == "" {
		view.ImageURL = placeholderImage
	}

	targetPrice := decimal.Zero
	if bundle.TargetProduct != nil {
		item, price := buildItem(bundle.TargetProduct.ProductID, 1, details)
		targetPrice = price
		view.Items = append(view.Items, item)
	}

	lines := make([]pricing.Line, 0, len(bundle.BundleProducts))
	for _, companion := range bundle.BundleProducts {
		item, price := buildItem(companion.ProductID, companion.Quantity, details)
		lines = append(lines, pricing.Line{Price: price, Quantity: companion.Quantity})
		view.Items = append(view.Items, item)
	}

	breakdown := pricing.Compute(targetPrice, lines, decimal.NewFromFloat(bundle.DiscountedPrice))
	view.OriginalPrice = formatPrice(breakdown.OriginalPrice)
	view.DiscountedPrice = formatPrice(breakdown.DiscountedPrice)
	view.SavingsAmount = formatPrice(breakdown.SavingsAmount)
	view.SavingsPercentage = breakdown.SavingsPercentage

	return view
}

func buildItem(productID string, quantity int, details map[string]ProductDetail) (ItemView, decimal.Decimal) {
	if quantity < 1 {
		quantity = 1
	}

	detail, ok := details[productID]
	if !ok {
		return ItemView{
			ProductID: productID,
			Title:     placeholderTitle(productID),
			ImageURL:  placeholderImage,
			Quantity:  quantity,
			Price:     formatPrice(decimal.Zero),
		}, decimal.Zero
	}

	price := pricing.FromCents(detail.Price)
	image := detail.FeaturedImage
	if image == "" {
		image = placeholderImage
	}
	return ItemView{
		ProductID: productID,
		Title:     detail.Title,
		ImageURL:  image,
		Quantity:  quantity,
		Price:     formatPrice(price),
	}, price
}

func placeholderTitle(productID string) string {
	id := productID
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	return fmt.Sprintf("Product %s", id)
}

func formatPrice(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
