package waterfall

import (
	"sort"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// Sort orders candidates into the fixed group order pdf_direct ->
// html_fulltext -> landing_page -> doi_resolver -> unknown, and within
// each group by effective priority ascending. This is the download
// attempt order.
func Sort(candidates []store.URLCandidate) []store.URLCandidate {
	sorted := make([]store.URLCandidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		gi, gj := groupRank(sorted[i].URLType), groupRank(sorted[j].URLType)
		if gi != gj {
			return gi < gj
		}
		return sorted[i].EffectivePriority() < sorted[j].EffectivePriority()
	})
	return sorted
}
