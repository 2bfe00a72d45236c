// Package geo builds store.GEODataset values from NCBI's gds database,
// on top of the generic E-utilities operations in pkg/ncbi.
package geo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
	"github.com/omicsoracle/omicsoracle/internal/store"
	"github.com/omicsoracle/omicsoracle/pkg/ncbi"
)

// Fetcher builds GEO dataset metadata using an ncbi.Client.
type Fetcher struct {
	ncbi *ncbi.Client
}

// NewFetcher wraps an already-configured NCBI client.
func NewFetcher(client *ncbi.Client) *Fetcher {
	return &Fetcher{ncbi: client}
}

// GetDataset resolves accession (e.g. "GSE12345") to its gds UID via
// esearch, then builds a GEODataset from the esummary DocSum.
func (f *Fetcher) GetDataset(ctx context.Context, accession string) (*store.GEODataset, error) {
	uid, err := f.resolveUID(ctx, accession)
	if err != nil {
		return nil, err
	}

	summaries, err := f.ncbi.ESummary(ctx, "gds", []string{uid})
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, oerrors.New(oerrors.NotFound, "geo", fmt.Sprintf("no gds summary for %s", accession))
	}

	ds := docSumToDataset(accession, summaries[0])

	pmids, err := f.LinkedPubMedIDs(ctx, uid)
	if err == nil {
		ds.OriginalPMIDs = pmids
	}

	return ds, nil
}

func (f *Fetcher) resolveUID(ctx context.Context, accession string) (string, error) {
	result, err := f.ncbi.ESearch(ctx, "gds", accession+"[ACCN]", 1)
	if err != nil {
		return "", err
	}
	if len(result.IDList.IDs) == 0 {
		return "", oerrors.New(oerrors.NotFound, "geo", fmt.Sprintf("accession %s not found", accession))
	}
	return result.IDList.IDs[0], nil
}

// LinkedPubMedIDs resolves the original publications associated with a
// GEO series via elink, the GDS->PubMed link.
func (f *Fetcher) LinkedPubMedIDs(ctx context.Context, uid string) ([]string, error) {
	return f.ncbi.ELink(ctx, "gds", "pubmed", uid, "gds_pubmed")
}

func docSumToDataset(accession string, doc ncbi.DocSum) *store.GEODataset {
	ds := &store.GEODataset{
		GEOID:    accession,
		Metadata: make(map[string]any),
	}

	var sampleInfo string
	for _, item := range doc.Items {
		switch item.Name {
		case "title":
			ds.Title = item.Content
		case "summary":
			ds.Summary = item.Content
		case "taxon":
			ds.Organism = item.Content
		case "GPL":
			ds.Platform = item.Content
		case "gdsType":
			ds.Metadata["dataset_type"] = item.Content
		case "PDAT":
			if t, err := time.Parse("2006/01/02", item.Content); err == nil {
				ds.CreatedAt = t
			}
		case "SSInfo":
			sampleInfo = item.Content
		case "Accession":
			if item.Content != "" && item.Content != accession {
				ds.Metadata["canonical_accession"] = item.Content
			}
		}
	}

	if sampleInfo != "" {
		ds.SampleCount = countSamples(sampleInfo)
	}

	return ds
}

// countSamples derives a sample count from the SSInfo field: it splits
// on ',' and ';' and counts the tokens that are bare numbers or GSM
// sample accessions (e.g. "GSM123"); any other token is not counted.
func countSamples(ssInfo string) int {
	parts := strings.FieldsFunc(ssInfo, func(r rune) bool { return r == ',' || r == ';' })
	count := 0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 3 && strings.EqualFold(p[:3], "GSM") {
			p = p[3:]
		}
		if _, err := strconv.Atoi(p); err == nil {
			count++
		}
	}
	return count
}
