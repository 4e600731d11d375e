package authz

// Visible reports whether the page should appear in navigation: any one of
// the page's required permissions qualifies. This is deliberately OR
// semantics; the Guard still checks the single specific permission for each
// mutating action behind the page.
func Visible(set EffectiveSet, page Page) bool {
	for _, p := range page.Required {
		if set.Has(p) {
			return true
		}
	}
	return false
}

// VisiblePages filters pages for navigation, preserving registry order.
func VisiblePages(set EffectiveSet, pages []Page) []Page {
	out := make([]Page, 0, len(pages))
	for _, page := range pages {
		if Visible(set, page) {
			out = append(out, page)
		}
	}
	return out
}
