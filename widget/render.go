package widget

import (
	"html/template"
	"io"
)

var accordionTemplate = template.Must(template.New("accordion").Parse(`
<div class="bundle-widget">
{{- if not .Bundles}}
  <!-- no bundles for this product -->
{{- else}}
  <h3 class="bundle-widget__heading">Bundle &amp; Save</h3>
  {{- range .Bundles}}
  <div class="bundle-panel{{if $.IsSelected .ID}} bundle-panel--selected{{end}}" data-bundle-id="{{.ID}}">
    <button class="bundle-panel__header" aria-expanded="{{$.IsExpanded .ID}}">
      <img class="bundle-panel__image" src="{{.ImageURL}}" alt="{{.ImageAlt}}">
      <span class="bundle-panel__title">{{.Title}}</span>
      <span class="bundle-panel__price">
        <s>{{.OriginalPrice}}</s> {{.DiscountedPrice}}
        {{- if gt .SavingsPercentage 0}} <em>Save {{.SavingsPercentage}}%</em>{{end}}
      </span>
    </button>
    {{- if $.IsExpanded .ID}}
    <div class="bundle-panel__body">
      {{- if .Description}}
      <p class="bundle-panel__description">{{.Description}}</p>
      {{- end}}
      <ul class="bundle-panel__items">
        {{- range .Items}}
        <li class="bundle-item" data-product-id="{{.ProductID}}">
          <img class="bundle-item__image" src="{{.ImageURL}}" alt="{{.Title}}">
          <span class="bundle-item__title">{{.Title}}</span>
          <span class="bundle-item__quantity">&times;{{.Quantity}}</span>
          <span class="bundle-item__price">{{.Price}}</span>
        </li>
        {{- end}}
      </ul>
      <button class="bundle-panel__select">
        {{- if $.IsSelected .ID}}Selected{{else}}Add bundle to cart{{end -}}
      </button>
    </div>
    {{- end}}
  </div>
  {{- end}}
{{- end}}
</div>
`))

// Render writes the accordion markup. All dynamic values go through
// html/template's contextual escaping, so merchant-entered titles and
// descriptions cannot inject markup.
func (a *Accordion) Render(w io.Writer) error {
	return accordionTemplate.Execute(w, a)
}
