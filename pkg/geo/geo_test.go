package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/omicsoracle/omicsoracle/pkg/ncbi"
)

func TestDocSumToDatasetMapsKnownFields(t *testing.T) {
	doc := ncbi.DocSum{
		ID: "200001",
		Items: []ncbi.Item{
			{Name: "title", Content: "Expression profiling of things"},
			{Name: "summary", Content: "A summary of the study."},
			{Name: "taxon", Content: "Homo sapiens"},
			{Name: "GPL", Content: "GPL570"},
			{Name: "gdsType", Content: "Expression profiling by array"},
			{Name: "PDAT", Content: "2021/05/14"},
			{Name: "SSInfo", Content: "GSM1,GSM2,GSM3"},
			{Name: "Accession", Content: "GSE99999"},
		},
	}

	ds := docSumToDataset("GSE12345", doc)
	assert.Equal(t, "GSE12345", ds.GEOID)
	assert.Equal(t, "Expression profiling of things", ds.Title)
	assert.Equal(t, "A summary of the study.", ds.Summary)
	assert.Equal(t, "Homo sapiens", ds.Organism)
	assert.Equal(t, "GPL570", ds.Platform)
	assert.Equal(t, "Expression profiling by array", ds.Metadata["dataset_type"])
	assert.Equal(t, "GSE99999", ds.Metadata["canonical_accession"])
	assert.Equal(t, 3, ds.SampleCount)
	assert.Equal(t, time.Date(2021, 5, 14, 0, 0, 0, 0, time.UTC), ds.CreatedAt)
}

func TestDocSumToDatasetOmitsCanonicalAccessionWhenUnchanged(t *testing.T) {
	doc := ncbi.DocSum{Items: []ncbi.Item{{Name: "Accession", Content: "GSE12345"}}}
	ds := docSumToDataset("GSE12345", doc)
	_, ok := ds.Metadata["canonical_accession"]
	assert.False(t, ok)
}

func TestDocSumToDatasetIgnoresUnparseablePubDate(t *testing.T) {
	doc := ncbi.DocSum{Items: []ncbi.Item{{Name: "PDAT", Content: "not-a-date"}}}
	ds := docSumToDataset("GSE1", doc)
	assert.True(t, ds.CreatedAt.IsZero())
}

func TestCountSamplesCountsNumericTokensAndGSMAccessions(t *testing.T) {
	assert.Equal(t, 3, countSamples("1,2,3"))
	assert.Equal(t, 4, countSamples("1;2;3;4"))
	assert.Equal(t, 0, countSamples(""))
	assert.Equal(t, 2, countSamples("GSM1, GSM2")) // GSM sample accessions count too
}
