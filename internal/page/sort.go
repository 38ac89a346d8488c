package page

import (
	"cmp"
	"slices"
)

// Compare orders pages by declared order ascending, pages without an order
// last, ties broken by path.
func Compare(a, b *Page) int {
	switch {
	case a.HasOrder() && b.HasOrder():
		if c := cmp.Compare(a.OrderValue(), b.OrderValue()); c != 0 {
			return c
		}
	case a.HasOrder():
		return -1
	case b.HasOrder():
		return 1
	}
	return cmp.Compare(a.Path, b.Path)
}

// Sort sorts pages in place with Compare. The result depends only on the
// pages' orders and paths, never on input order.
func Sort(pages []*Page) {
	slices.SortStableFunc(pages, Compare)
}
