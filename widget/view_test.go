package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kitBundle() ProductBundleView {
	return ProductBundleView{
		ID:              "b1",
		Title:           "Starter Kit",
		Description:     "Everything you need",
		ImageURL:        "https://cdn/bundle.png",
		DiscountedPrice: 25.00,
		IsActive:        true,
		TargetProduct:   &TargetRef{ProductID: "gid://shopify/Product/1"},
		BundleProducts: []CompanionRef{
			{ID: 1, ProductID: "gid://shopify/Product/2", Quantity: 2},
			{ID: 2, ProductID: "gid://shopify/Product/3", Quantity: 1},
		},
	}
}

func kitDetails() map[string]ProductDetail {
	return map[string]ProductDetail{
		"gid://shopify/Product/1": {ID: 1, Title: "Camera", Price: 2000, FeaturedImage: "https://cdn/camera.png"},
		"gid://shopify/Product/2": {ID: 2, Title: "Battery", Price: 500, FeaturedImage: "https://cdn/battery.png"},
		"gid://shopify/Product/3": {ID: 3, Title: "Strap", Price: 350, FeaturedImage: "https://cdn/strap.png"},
	}
}

func TestBuildViewsRecomputesPricing(t *testing.T) {
	views := BuildViews([]ProductBundleView{kitBundle()}, kitDetails())

	require.Len(t, views, 1)
	view := views[0]
	assert.Equal(t, "b1", view.ID)
	assert.Equal(t, "Starter Kit", view.Title)

	// 20.00 target + 2 x 5.00 + 3.50 = 33.50 original against 25.00.
	assert.Equal(t, "$33.50", view.OriginalPrice)
	assert.Equal(t, "$25.00", view.DiscountedPrice)
	assert.Equal(t, "$8.50", view.SavingsAmount)
	assert.Equal(t, 25, view.SavingsPercentage)

	require.Len(t, view.Items, 3)
	assert.Equal(t, "Camera", view.Items[0].Title)
	assert.Equal(t, "$20.00", view.Items[0].Price)
	assert.Equal(t, 2, view.Items[1].Quantity)
	assert.Equal(t, "$5.00", view.Items[1].Price)
}

func TestBuildViewsMissingDetailGetsPlaceholder(t *testing.T) {
	details := kitDetails()
	delete(details, "gid://shopify/Product/3")

	views := BuildViews([]ProductBundleView{kitBundle()}, details)

	require.Len(t, views, 1)
	view := views[0]

	// The strap is unresolvable: zero contribution to the original price.
	assert.Equal(t, "$30.00", view.OriginalPrice)

	strap := view.Items[2]
	assert.Equal(t, "Product 3", strap.Title)
	assert.Equal(t, placeholderImage, strap.ImageURL)
	assert.Equal(t, "$0.00", strap.Price)
}

func TestBuildViewsBundleImageFallsBackToPlaceholder(t *testing.T) {
	bundle := kitBundle()
	bundle.ImageURL = ""

	views := BuildViews([]ProductBundleView{bundle}, kitDetails())

	require.Len(t, views, 1)
	assert.Equal(t, placeholderImage, views[0].ImageURL)
}

func TestBuildViewsZeroQuantityCountsAsOne(t *testing.T) {
	bundle := ProductBundleView{
		ID:              "b2",
		DiscountedPrice: 4.00,
		TargetProduct:   &TargetRef{ProductID: "gid://shopify/Product/1"},
		BundleProducts: []CompanionRef{
			{ProductID: "gid://shopify/Product/2", Quantity: 0},
		},
	}
	details := map[string]ProductDetail{
		"gid://shopify/Product/1": {Price: 100},
		"gid://shopify/Product/2": {Price: 400},
	}

	views := BuildViews([]ProductBundleView{bundle}, details)

	require.Len(t, views, 1)
	assert.Equal(t, "$5.00", views[0].OriginalPrice)
	assert.Equal(t, 1, views[0].Items[1].Quantity)
}
