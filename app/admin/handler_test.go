package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlewise/bundle-service/bundles"
	"github.com/bundlewise/bundle-service/catalog"
	"github.com/bundlewise/bundle-service/models"
)

// --- Mock service ---

type MockBundleService struct {
	Enriched  *bundles.EnrichedBundle
	ListOut   []*bundles.EnrichedBundle
	FieldErrs map[string]string
	Err       error

	lastShop  string
	lastID    string
	lastInput bundles.BundleInput
}

func (m *MockBundleService) Create(ctx context.Context, shop string, input bundles.BundleInput) (*bundles.EnrichedBundle, map[string]string, error) {
	m.lastShop = shop
	m.lastInput = input
	if m.Err != nil {
		return nil, nil, m.Err
	}
	if len(m.FieldErrs) > 0 {
		return nil, m.FieldErrs, nil
	}
	return m.Enriched, nil, nil
}

func (m *MockBundleService) Update(ctx context.Context, shop, id string, input bundles.BundleInput) (*bundles.EnrichedBundle, map[string]string, error) {
	m.lastShop = shop
	m.lastID = id
	m.lastInput = input
	if m.Err != nil {
		return nil, nil, m.Err
	}
	if len(m.FieldErrs) > 0 {
		return nil, m.FieldErrs, nil
	}
	return m.Enriched, nil, nil
}

func (m *MockBundleService) Get(ctx context.Context, shop, id string) (*bundles.EnrichedBundle, error) {
	m.lastShop = shop
	m.lastID = id
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Enriched, nil
}

func (m *MockBundleService) List(ctx context.Context, shop string) ([]*bundles.EnrichedBundle, error) {
	m.lastShop = shop
	if m.Err != nil {
		return nil, m.Err
	}
	return m.ListOut, nil
}

func (m *MockBundleService) Delete(ctx context.Context, shop, id string) error {
	m.lastShop = shop
	m.lastID = id
	return m.Err
}

// --- Helpers ---

func enrichedFixture() *bundles.EnrichedBundle {
	return &bundles.EnrichedBundle{
		Bundle: models.Bundle{
			ID:                "b1",
			ShopDomain:        "demo.myshopify.com",
			Title:             "Starter Kit",
			OriginalPrice:     decimal.NewFromFloat(33.50),
			DiscountedPrice:   decimal.NewFromFloat(25.00),
			SavingsAmount:     decimal.NewFromFloat(8.50),
			SavingsPercentage: 25,
			IsActive:          true,
			TargetProduct: &models.TargetProduct{
				ProductID: "gid://shopify/Product/1",
				Title:     "Target",
			},
		},
		EnrichedProduct: &catalog.ProductSnapshot{
			ID:    "gid://shopify/Product/1",
			Title: "Target",
			Price: decimal.NewFromFloat(20.00),
		},
		Companions: []bundles.EnrichedCompanion{
			{
				BundleProduct: models.BundleProduct{ID: 1, ProductID: "gid://shopify/Product/2", Quantity: 2},
				Product:       &catalog.ProductSnapshot{ID: "gid://shopify/Product/2", Title: "Companion", Price: decimal.NewFromFloat(5.00)},
			},
			{
				BundleProduct: models.BundleProduct{ID: 2, ProductID: "gid://shopify/Product/3", Quantity: 1},
				Error:         bundles.ReasonProductNotFound,
			},
		},
	}
}

func serveAdmin(svc BundleService, method, target string, body []byte, withShop bool) *httptest.ResponseRecorder {
	handler := NewHandler(svc, nil)
	router := chi.NewRouter()
	router.Mount("/api/v1/bundles", handler.Routes())

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if withShop {
		req.Header.Set("X-Shop-Domain", "demo.myshopify.com")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"title":           "Starter Kit",
		"discountedPrice": 25.00,
		"targetProduct":   map[string]string{"productId": "gid://shopify/Product/1"},
		"bundleProducts": []map[string]interface{}{
			{"productId": "gid://shopify/Product/2", "quantity": 2},
		},
	})
	require.NoError(t, err)
	return payload
}

// --- Tests ---

func TestHandleCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockBundleService{Enriched: enrichedFixture()}
		rec := serveAdmin(svc, http.MethodPost, "/api/v1/bundles", validPayload(t), true)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "demo.myshopify.com", svc.lastShop)
		assert.Equal(t, "Starter Kit", svc.lastInput.Title)
		require.NotNil(t, svc.lastInput.TargetProduct)
		assert.Equal(t, "gid://shopify/Product/1", svc.lastInput.TargetProduct.ProductID)

		var resp BundleResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "b1", resp.ID)
		assert.Equal(t, 33.50, resp.OriginalPrice)
		assert.Equal(t, 25, resp.SavingsPercentage)
		require.NotNil(t, resp.EnrichedProduct)
		assert.Equal(t, 20.00, resp.EnrichedProduct.Price)
		require.Len(t, resp.BundleProducts, 2)
		assert.NotNil(t, resp.BundleProducts[0].Product)
		assert.Empty(t, resp.BundleProducts[0].Error)
		assert.Nil(t, resp.BundleProducts[1].Product)
		assert.Equal(t, bundles.ReasonProductNotFound, resp.BundleProducts[1].Error)
	})

	t.Run("validation errors", func(t *testing.T) {
		svc := &MockBundleService{FieldErrs: map[string]string{"title": "Title is required"}}
		rec := serveAdmin(svc, http.MethodPost, "/api/v1/bundles", []byte(`{}`), true)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Title is required", resp.Errors["title"])
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		svc := &MockBundleService{}
		rec := serveAdmin(svc, http.MethodPost, "/api/v1/bundles", []byte(`{nope`), true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing shop header", func(t *testing.T) {
		svc := &MockBundleService{}
		rec := serveAdmin(svc, http.MethodPost, "/api/v1/bundles", validPayload(t), false)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("persistence failure", func(t *testing.T) {
		svc := &MockBundleService{Err: errors.New("db down")}
		rec := serveAdmin(svc, http.MethodPost, "/api/v1/bundles", validPayload(t), true)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Failed to save bundle", resp["error"])
	})
}

func TestHandleGet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockBundleService{Enriched: enrichedFixture()}
		rec := serveAdmin(svc, http.MethodGet, "/api/v1/bundles/b1", nil, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "b1", svc.lastID)

		var resp BundleResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Starter Kit", resp.Title)
		require.NotNil(t, resp.TargetProduct)
		assert.Equal(t, "gid://shopify/Product/1", resp.TargetProduct.ProductID)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &MockBundleService{Err: models.ErrBundleNotFound}
		rec := serveAdmin(svc, http.MethodGet, "/api/v1/bundles/missing", nil, true)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleList(t *testing.T) {
	svc := &MockBundleService{ListOut: []*bundles.EnrichedBundle{enrichedFixture()}}
	rec := serveAdmin(svc, http.MethodGet, "/api/v1/bundles", nil, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo.myshopify.com", svc.lastShop)

	var resp ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Bundles, 1)
	assert.Equal(t, "b1", resp.Bundles[0].ID)
}

func TestHandleUpdate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockBundleService{Enriched: enrichedFixture()}
		rec := serveAdmin(svc, http.MethodPut, "/api/v1/bundles/b1", validPayload(t), true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "b1", svc.lastID)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &MockBundleService{Err: models.ErrBundleNotFound}
		rec := serveAdmin(svc, http.MethodPut, "/api/v1/bundles/missing", validPayload(t), true)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockBundleService{}
		rec := serveAdmin(svc, http.MethodDelete, "/api/v1/bundles/b1", nil, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "b1", svc.lastID)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &MockBundleService{Err: models.ErrBundleNotFound}
		rec := serveAdmin(svc, http.MethodDelete, "/api/v1/bundles/missing", nil, true)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
