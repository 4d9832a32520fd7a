package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datallboy/modfetch/internal/domain"
)

// Comparator reports whether a should be admitted before b. Ties keep
// input order.
type Comparator func(a, b *domain.Request) bool

// Ascending admits lower priority values first.
func Ascending(a, b *domain.Request) bool { return a.Priority < b.Priority }

// Descending admits higher priority values first.
func Descending(a, b *domain.Request) bool { return a.Priority > b.Priority }

// ParseOrder maps "asc"/"desc" onto a Comparator.
func ParseOrder(order string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return nil, fmt.Errorf("unknown priority order %q", order)
}

// schedule splits request indices into two phases and sorts each. Archive
// references run after everything else so their targets exist.
func schedule(reqs []domain.Request, less Comparator) (first, second []int) {
	for i := range reqs {
		if _, ok := reqs[i].Source.(domain.ArchiveRefSource); ok {
			second = append(second, i)
		} else {
			first = append(first, i)
		}
	}

	sortPhase := func(idx []int) {
		sort.SliceStable(idx, func(a, b int) bool {
			return less(&reqs[idx[a]], &reqs[idx[b]])
		})
	}
	sortPhase(first)
	sortPhase(second)
	return first, second
}
