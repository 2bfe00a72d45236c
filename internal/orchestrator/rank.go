package orchestrator

import (
	"sort"
	"strings"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// RankedDataset pairs a GEODataset with the score rankDatasets
// assigned it.
type RankedDataset struct {
	Dataset store.GEODataset
	Score   float64
}

// rankDatasets scores each dataset by a weighted sum of term-overlap
// count (title + summary against the expanded query terms) and
// recency, then returns them sorted by score descending, ties broken
// by GEO accession for determinism. See DESIGN.md for why this
// particular formula was chosen.
func rankDatasets(datasets []store.GEODataset, terms []string) []RankedDataset {
	ranked := make([]RankedDataset, len(datasets))
	for i, ds := range datasets {
		ranked[i] = RankedDataset{Dataset: ds, Score: scoreDataset(ds, terms)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Dataset.GEOID < ranked[j].Dataset.GEOID
	})
	return ranked
}

const (
	termHitWeight = 1.0
	recencyWeight = 0.1
	recencyWindow = 365 * 24 * time.Hour
)

func scoreDataset(ds store.GEODataset, terms []string) float64 {
	haystack := strings.ToLower(ds.Title + " " + ds.Summary)
	hits := 0
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		hits += strings.Count(haystack, t)
	}

	recency := 0.0
	if !ds.UpdatedAt.IsZero() {
		age := time.Since(ds.UpdatedAt)
		if age < recencyWindow {
			recency = 1 - float64(age)/float64(recencyWindow)
		}
	}

	return termHitWeight*float64(hits) + recencyWeight*recency
}
