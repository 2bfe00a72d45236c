package semanticscholar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultToPublicationMapsFields(t *testing.T) {
	r := &paperResult{
		PaperID:       "abc123",
		Title:         "A study of things",
		Abstract:      " has an abstract ",
		Year:          2020,
		CitationCount: 5,
		Authors:       []authorInfo{{Name: "Jane Smith"}, {Name: ""}},
		ExternalIDs:   externalIDs{ArXiv: "2301.12345", DOI: "10.1234/abc", PubMed: "12345", PMCID: "PMC999"},
		OpenAccessPDF: &openAccessPDF{URL: "https://example.org/p.pdf"},
	}

	pub := resultToPublication(r)
	assert.NotNil(t, pub)
	assert.Equal(t, "A study of things", pub.Title)
	assert.Equal(t, "10.1234/abc", pub.DOI)
	assert.Equal(t, "12345", pub.PMID)
	assert.Equal(t, "PMC999", pub.PMCID)
	assert.Equal(t, "2301.12345", pub.ArXivID)
	assert.Equal(t, []string{"Jane Smith"}, pub.Authors)
	assert.Equal(t, "has an abstract", pub.Metadata["abstract"])
	assert.Equal(t, "https://example.org/p.pdf", pub.Metadata["pdf_url"])
	assert.Equal(t, 5, pub.Metadata["citation_count"])
}

func TestResultToPublicationReturnsNilWithoutTitle(t *testing.T) {
	assert.Nil(t, resultToPublication(&paperResult{}))
}

func TestResultToPublicationOmitsPDFURLWhenAbsent(t *testing.T) {
	r := &paperResult{Title: "t"}
	pub := resultToPublication(r)
	_, ok := pub.Metadata["pdf_url"]
	assert.False(t, ok)
}

func TestPaperIDForPrefersPMIDOverDOI(t *testing.T) {
	assert.Equal(t, "PMID:12345", paperIDFor("12345", "10.1234/abc"))
}

func TestPaperIDForFallsBackToDOI(t *testing.T) {
	assert.Equal(t, "DOI:10.1234%2Fabc", paperIDFor("", "10.1234/abc"))
}

func TestPaperIDForEmptyWhenBothMissing(t *testing.T) {
	assert.Equal(t, "", paperIDFor("", ""))
}
