package analytics

import (
	"sort"

	"github.com/betbot/wfmtrader/internal/domain"
)

// SelectItems returns the per-cycle work set: the sorted, de-duplicated union
// of the overlap names, the owned inventory and the whitelist, without "".
func SelectItems(rows []domain.OverlapRow, inventory, whitelist []string) []string {
	set := make(map[string]struct{}, len(rows)+len(inventory)+len(whitelist))
	for _, r := range rows {
		set[r.Name] = struct{}{}
	}
	for _, n := range inventory {
		set[n] = struct{}{}
	}
	for _, n := range whitelist {
		set[n] = struct{}{}
	}
	delete(set, "")

	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// RowsByName indexes the overlap set for per-item lookups.
func RowsByName(rows []domain.OverlapRow) map[string]*domain.OverlapRow {
	m := make(map[string]*domain.OverlapRow, len(rows))
	for i := range rows {
		m[rows[i].Name] = &rows[i]
	}
	return m
}

// Names returns the overlap names in row order.
func Names(rows []domain.OverlapRow) []string {
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = rows[i].Name
	}
	return out
}
