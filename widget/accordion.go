package widget

// Accordion tracks which bundle panel is expanded and which bundle the
// shopper has selected. At most one panel is open and at most one bundle is
// selected at a time.
type Accordion struct {
	Bundles    []BundleView
	expandedID string
	selectedID string
}

func NewAccordion(bundles []BundleView) *Accordion {
	a := &Accordion{Bundles: bundles}
	if len(bundles) > 0 {
		a.expandedID = bundles[0].ID
	}
	return a
}

// Toggle expands the given panel, or collapses it if it is already open.
func (a *Accordion) Toggle(bundleID string) {
	if a.expandedID == bundleID {
		a.expandedID = ""
		return
	}
	a.expandedID = bundleID
}

// Select marks a bundle as the shopper's choice and expands its panel.
// Selecting the already-selected bundle clears the selection.
func (a *Accordion) Select(bundleID string) {
	if a.selectedID == bundleID {
		a.selectedID = ""
		return
	}
	a.selectedID = bundleID
	a.expandedID = bundleID
}

// Selected returns the currently selected bundle, or nil.
func (a *Accordion) Selected() *BundleView {
	for i := range a.Bundles {
		if a.Bundles[i].ID == a.selectedID {
			return &a.Bundles[i]
		}
	}
	return nil
}

// IsExpanded reports whether the panel for the given bundle is open.
func (a *Accordion) IsExpanded(bundleID string) bool {
	return a.expandedID == bundleID
}

// IsSelected reports whether the given bundle is the shopper's choice.
func (a *Accordion) IsSelected(bundleID string) bool {
	return a.selectedID == bundleID
}
