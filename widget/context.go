// Package widget is the server-side engine behind the storefront bundle
// selector: it resolves the current shop and product from page context,
// fetches applicable bundles and public product data, recomputes pricing
// with the canonical formula and renders the bundle accordion.
package widget

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
)

var productPathPattern = regexp.MustCompile(`/products/([^/?#]+)`)

// PageData carries the raw signals available on a storefront product page.
type PageData struct {
	// URL is the full page URL, including query parameters.
	URL string
	// MetaTags maps meta property names (e.g. "og:url") to their content.
	MetaTags map[string]string
	// ProductJSON is the embedded product JSON blob, when the theme ships one.
	ProductJSON []byte
	// ShopDomain is the storefront-provided shop domain, when present.
	ShopDomain string
}

// Shop resolves the shop domain: the storefront-provided value when present,
// otherwise the page URL's host.
func (p PageData) Shop() string {
	if p.ShopDomain != "" {
		return p.ShopDomain
	}
	if u, err := url.Parse(p.URL); err == nil {
		return u.Hostname()
	}
	return ""
}

// ProductID resolves the current product identifier. Sources are tried in
// priority order: URL query parameters, then the URL path, then meta tags,
// then the embedded product JSON. First non-empty wins.
func (p PageData) ProductID() string {
	if id := p.productIDFromURL(); id != "" {
		return id
	}
	if id := p.productIDFromMeta(); id != "" {
		return id
	}
	return p.productIDFromJSON()
}

func (p PageData) productIDFromURL() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	if id := u.Query().Get("product_id"); id != "" {
		return id
	}
	return productHandleFromPath(u.Path)
}

func (p PageData) productIDFromMeta() string {
	content, ok := p.MetaTags["og:url"]
	if !ok {
		return ""
	}
	u, err := url.Parse(content)
	if err != nil {
		return ""
	}
	return productHandleFromPath(u.Path)
}

func (p PageData) productIDFromJSON() string {
	if len(p.ProductJSON) == 0 {
		return ""
	}
	var product struct {
		ID     any    `json:"id"`
		Handle string `json:"handle"`
	}
	if err := json.Unmarshal(p.ProductJSON, &product); err != nil {
		return ""
	}
	switch id := product.ID.(type) {
	case float64:
		if id > 0 {
			return strconv.FormatInt(int64(id), 10)
		}
	case string:
		if id != "" {
			return id
		}
	}
	return product.Handle
}

func productHandleFromPath(path string) string {
	match := productPathPattern.FindStringSubmatch(path)
	if match == nil {
		return ""
	}
	return match[1]
}
