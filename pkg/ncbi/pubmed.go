package ncbi

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation medlineCitation `xml:"MedlineCitation"`
	PubmedData      pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID    string  `xml:"PMID"`
	Article article `xml:"Article"`
}

type article struct {
	Journal      journal    `xml:"Journal"`
	ArticleTitle string     `xml:"ArticleTitle"`
	Abstract     abstract   `xml:"Abstract"`
	AuthorList   authorList `xml:"AuthorList"`
}

type journal struct {
	Title   string      `xml:"Title"`
	PubDate journalDate `xml:"JournalIssue>PubDate"`
}

type journalDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type abstract struct {
	AbstractTexts []abstractText `xml:"AbstractText"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type authorList struct {
	Authors []pubmedAuthor `xml:"Author"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedData struct {
	ArticleIDList struct {
		ArticleIDs []struct {
			IDType string `xml:"IdType,attr"`
			Value  string `xml:",chardata"`
		} `xml:"ArticleId"`
	} `xml:"ArticleIdList"`
}

// SearchPubMed runs esearch against the pubmed database and returns
// matching PMIDs.
func (c *Client) SearchPubMed(ctx context.Context, term string, limit int) ([]string, error) {
	result, err := c.ESearch(ctx, "pubmed", term, limit)
	if err != nil {
		return nil, err
	}
	return result.IDList.IDs, nil
}

// FetchPubMedArticles runs efetch for the given PMIDs and returns each as
// a store.Publication. Articles that lack a PMID in the response are
// skipped rather than erroring the whole batch.
func (c *Client) FetchPubMedArticles(ctx context.Context, pmids []string) ([]store.Publication, error) {
	if len(pmids) == 0 {
		return nil, nil
	}
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", joinIDs(pmids))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "ncbi", "parse efetch response", err)
	}

	pubs := make([]store.Publication, 0, len(set.Articles))
	for _, a := range set.Articles {
		pub := articleToPublication(a)
		if pub == nil {
			continue
		}
		pubs = append(pubs, *pub)
	}
	return pubs, nil
}

// GetPubMedArticle fetches a single PMID.
func (c *Client) GetPubMedArticle(ctx context.Context, pmid string) (*store.Publication, error) {
	pubs, err := c.FetchPubMedArticles(ctx, []string{pmid})
	if err != nil {
		return nil, err
	}
	if len(pubs) == 0 {
		return nil, nil
	}
	return &pubs[0], nil
}

func articleToPublication(a pubmedArticle) *store.Publication {
	pmid := strings.TrimSpace(a.MedlineCitation.PMID)
	if pmid == "" {
		return nil
	}

	var abstractParts []string
	for _, t := range a.MedlineCitation.Article.Abstract.AbstractTexts {
		if t.Label != "" {
			abstractParts = append(abstractParts, fmt.Sprintf("%s: %s", t.Label, t.Text))
		} else {
			abstractParts = append(abstractParts, t.Text)
		}
	}

	authors := make([]string, 0, len(a.MedlineCitation.Article.AuthorList.Authors))
	for _, au := range a.MedlineCitation.Article.AuthorList.Authors {
		name := strings.TrimSpace(au.ForeName + " " + au.LastName)
		if name != "" {
			authors = append(authors, name)
		}
	}

	var doi, pmcID string
	for _, id := range a.PubmedData.ArticleIDList.ArticleIDs {
		switch id.IDType {
		case "doi":
			doi = id.Value
		case "pmc":
			pmcID = id.Value
		}
	}

	year := 0
	pd := a.MedlineCitation.Article.Journal.PubDate
	if pd.Year != "" {
		fmt.Sscanf(pd.Year, "%d", &year)
	}

	return &store.Publication{
		PMID:     pmid,
		DOI:      doi,
		PMCID:    pmcID,
		Title:    strings.TrimSpace(a.MedlineCitation.Article.ArticleTitle),
		Authors:  authors,
		Journal:  a.MedlineCitation.Article.Journal.Title,
		Year:     year,
		Metadata: map[string]any{"abstract": strings.Join(abstractParts, "\n\n")},
	}
}
