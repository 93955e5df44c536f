package widget

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/bundlewise/bundle-service/widget"
)

// backend serves both the app's bundle API and the shop's product JSON, so
// a single httptest server can stand in for both hosts.
func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bundles/product/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "bundles": [{
			"id": "b1",
			"title": "Starter Kit",
			"discountedPrice": 25.00,
			"isActive": true,
			"targetProduct": {"productId": "1"},
			"bundleProducts": [{"id": 1, "productId": "2", "quantity": 2}]
		}]}`))
	})
	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/1.js"):
			_, _ = w.Write([]byte(`{"id": 1, "title": "Camera", "price": 2000}`))
		case strings.HasSuffix(r.URL.Path, "/2.js"):
			_, _ = w.Write([]byte(`{"id": 2, "title": "Battery", "price": 500}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return httptest.NewServer(mux)
}

func serveWidget(client *widget.Client, target string) *httptest.ResponseRecorder {
	handler := NewHandler(client, nil)
	router := chi.NewRouter()
	router.Mount("/widget", handler.Routes())

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleRender(t *testing.T) {
	server := backend(t)
	defer server.Close()

	client := widget.NewClient(server.URL, nil, 5, time.Millisecond, nil)
	rec := serveWidget(client, "/widget?shop="+server.URL+"&product_id=1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	html := rec.Body.String()
	assert.Contains(t, html, "Starter Kit")
	assert.Contains(t, html, "Camera")
	assert.Contains(t, html, "Battery")
	// 20.00 + 2 x 5.00 = 30.00 original against the 25.00 bundle price.
	assert.Contains(t, html, "$30.00")
	assert.Contains(t, html, "$25.00")
}

func TestHandleRenderResolvesProductFromPageURL(t *testing.T) {
	server := backend(t)
	defer server.Close()

	client := widget.NewClient(server.URL, nil, 5, time.Millisecond, nil)
	rec := serveWidget(client, "/widget?shop="+server.URL+"&page_url=https://demo.myshopify.com/products/1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Starter Kit")
}

func TestHandleRenderMissingShop(t *testing.T) {
	client := widget.NewClient("http://app.invalid", nil, 5, time.Millisecond, nil)
	rec := serveWidget(client, "/widget?product_id=1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRenderUnresolvableProduct(t *testing.T) {
	client := widget.NewClient("http://app.invalid", nil, 5, time.Millisecond, nil)
	rec := serveWidget(client, "/widget?shop=demo.myshopify.com&page_url=https://demo.myshopify.com/collections/all")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRenderBackendFailureShowsEmptyState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := widget.NewClient(server.URL, nil, 5, time.Millisecond, nil)
	rec := serveWidget(client, "/widget?shop="+server.URL+"&product_id=1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "bundle-panel")
}
