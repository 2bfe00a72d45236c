package openalex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkToPublicationMapsCoreFields(t *testing.T) {
	w := &workResult{
		ID:              "https://openalex.org/W123",
		DOI:             "https://doi.org/10.1234/abc",
		Title:           "A study of things",
		PublicationYear: 2022,
		CitedByCount:    7,
		Authorships: []authorship{
			{Author: struct {
				DisplayName string `json:"display_name"`
			}{DisplayName: "Jane Smith"}},
		},
		PrimaryLocation: &location{PDFURL: "https://example.org/paper.pdf", Source: &source{DisplayName: "Journal X"}},
		IDs: map[string]interface{}{
			"pmid":  "https://pubmed.ncbi.nlm.nih.gov/12345678",
			"pmcid": "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC999999/",
		},
	}

	pub := workToPublication(w)
	assert.NotNil(t, pub)
	assert.Equal(t, "A study of things", pub.Title)
	assert.Equal(t, "10.1234/abc", pub.DOI)
	assert.Equal(t, "12345678", pub.PMID)
	assert.Equal(t, "PMC999999", pub.PMCID)
	assert.Equal(t, 2022, pub.Year)
	assert.Equal(t, []string{"Jane Smith"}, pub.Authors)
	assert.Equal(t, "https://example.org/paper.pdf", pub.Metadata["pdf_url"])
	assert.Equal(t, "Journal X", pub.Metadata["venue"])
	assert.Equal(t, 7, pub.Metadata["citation_count"])
}

func TestWorkToPublicationFallsBackToDisplayNameAndOAURL(t *testing.T) {
	w := &workResult{
		DisplayName: "Fallback title",
		OpenAccess:  &openAccess{IsOA: true, OAURL: "https://example.org/oa.pdf"},
	}
	pub := workToPublication(w)
	assert.NotNil(t, pub)
	assert.Equal(t, "Fallback title", pub.Title)
	assert.Equal(t, "https://example.org/oa.pdf", pub.Metadata["pdf_url"])
}

func TestWorkToPublicationReturnsNilWithoutAnyTitle(t *testing.T) {
	assert.Nil(t, workToPublication(&workResult{}))
}

func TestExtractArXivIDFromDOI(t *testing.T) {
	w := &workResult{DOI: "https://doi.org/10.48550/arxiv.2301.12345"}
	assert.Equal(t, "2301.12345", extractArXivID(w))
}

func TestExtractArXivIDFromLandingPage(t *testing.T) {
	w := &workResult{
		PrimaryLocation: &location{
			Source:         &source{DisplayName: "arXiv.org"},
			LandingPageURL: "https://arxiv.org/abs/2301.12345",
		},
	}
	assert.Equal(t, "2301.12345", extractArXivID(w))
}

func TestExtractArXivIDEmptyWhenAbsent(t *testing.T) {
	assert.Equal(t, "", extractArXivID(&workResult{}))
}

func TestExtractPMIDAndPMCIDStripPrefixesAndSlashes(t *testing.T) {
	w := &workResult{IDs: map[string]interface{}{
		"pmid":  "https://pubmed.ncbi.nlm.nih.gov/555/",
		"pmcid": "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC555/",
	}}
	assert.Equal(t, "555", extractPMID(w))
	assert.Equal(t, "PMC555", extractPMCID(w))
}

func TestExtractPMIDAndPMCIDEmptyWhenMissing(t *testing.T) {
	w := &workResult{IDs: map[string]interface{}{}}
	assert.Equal(t, "", extractPMID(w))
	assert.Equal(t, "", extractPMCID(w))
}

func TestReconstructAbstractRebuildsOrderFromInvertedIndex(t *testing.T) {
	idx := map[string][]int{
		"Results": {2},
		"are":     {1},
		"clear":   {3},
	}
	assert.Equal(t, "are Results clear", reconstructAbstract(idx))
}

func TestReconstructAbstractEmptyForEmptyIndex(t *testing.T) {
	assert.Equal(t, "", reconstructAbstract(nil))
	assert.Equal(t, "", reconstructAbstract(map[string][]int{}))
}
