package ncbi

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArticleSet = `<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation>
			<PMID>12345678</PMID>
			<Article>
				<Journal>
					<Title>Journal of Examples</Title>
					<JournalIssue><PubDate><Year>2023</Year><Month>Jun</Month></PubDate></JournalIssue>
				</Journal>
				<ArticleTitle>A study of example things</ArticleTitle>
				<Abstract>
					<AbstractText Label="BACKGROUND">Examples are common.</AbstractText>
					<AbstractText>Results follow.</AbstractText>
				</Abstract>
				<AuthorList>
					<Author><LastName>Smith</LastName><ForeName>Jane</ForeName></Author>
					<Author><LastName>Doe</LastName><ForeName>John</ForeName></Author>
				</AuthorList>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="doi">10.1234/abc.5678</ArticleId>
				<ArticleId IdType="pmc">PMC9999999</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
	<PubmedArticle>
		<MedlineCitation>
			<PMID></PMID>
			<Article><ArticleTitle>Should be skipped</ArticleTitle></Article>
		</MedlineCitation>
	</PubmedArticle>
</PubmedArticleSet>`

func TestArticleToPublicationParsesFullRecord(t *testing.T) {
	var set pubmedArticleSet
	require.NoError(t, xml.Unmarshal([]byte(sampleArticleSet), &set))
	require.Len(t, set.Articles, 2)

	pub := articleToPublication(set.Articles[0])
	require.NotNil(t, pub)
	assert.Equal(t, "12345678", pub.PMID)
	assert.Equal(t, "10.1234/abc.5678", pub.DOI)
	assert.Equal(t, "PMC9999999", pub.PMCID)
	assert.Equal(t, "A study of example things", pub.Title)
	assert.Equal(t, "Journal of Examples", pub.Journal)
	assert.Equal(t, 2023, pub.Year)
	assert.Equal(t, []string{"Jane Smith", "John Doe"}, pub.Authors)
	assert.Contains(t, pub.Metadata["abstract"], "BACKGROUND: Examples are common.")
	assert.Contains(t, pub.Metadata["abstract"], "Results follow.")
}

func TestArticleToPublicationSkipsRecordsWithoutPMID(t *testing.T) {
	var set pubmedArticleSet
	require.NoError(t, xml.Unmarshal([]byte(sampleArticleSet), &set))
	require.Len(t, set.Articles, 2)

	pub := articleToPublication(set.Articles[1])
	assert.Nil(t, pub)
}

func TestArticleToPublicationHandlesMissingYearAndAuthors(t *testing.T) {
	var a pubmedArticle
	raw := `<PubmedArticle>
		<MedlineCitation>
			<PMID>1</PMID>
			<Article><ArticleTitle>No date no authors</ArticleTitle></Article>
		</MedlineCitation>
	</PubmedArticle>`
	require.NoError(t, xml.Unmarshal([]byte(raw), &a))

	pub := articleToPublication(a)
	require.NotNil(t, pub)
	assert.Equal(t, 0, pub.Year)
	assert.Empty(t, pub.Authors)
}
