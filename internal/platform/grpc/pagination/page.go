// Package pagination bounds the page sizes list RPCs accept.
package pagination

// Limits is the default and ceiling for one list RPC. A zero Max means no
// ceiling.
type Limits struct {
	Default int
	Max     int
}

// Size resolves a requested page size: non-positive requests take Default,
// larger ones are capped at Max, and the result is never below one.
func (l Limits) Size(requested int) int {
	size := requested
	if size <= 0 {
		size = l.Default
	}
	if l.Max > 0 {
		size = min(size, l.Max)
	}
	return max(size, 1)
}
