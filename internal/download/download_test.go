package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

func validPDFBody() []byte {
	body := []byte("%PDF-1.4\n")
	padding := bytes.Repeat([]byte("x"), minPDFSize-len(body)+1)
	return append(body, padding...)
}

func TestDownloadWithFallbackSucceedsOnFirstValidCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(validPDFBody())
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(dir, 1, time.Millisecond, nil, nil)

	pub := store.Publication{IdentifierKey: "pmid:1", PMID: "1", Title: "t"}
	candidates := []store.URLCandidate{{URL: srv.URL, Source: "test"}}

	result, err := d.DownloadWithFallback(context.Background(), pub, candidates, "GSE1", "original")
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Artifact)
	assert.FileExists(t, result.Artifact.FilePath)

	raw, err := os.ReadFile(result.Artifact.FilePath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte(pdfMagic)))
}

func TestDownloadWithFallbackFallsThroughOnInvalidBody(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a pdf"))
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(validPDFBody())
	}))
	defer good.Close()

	dir := t.TempDir()
	d := New(dir, 0, time.Millisecond, nil, nil)

	pub := store.Publication{IdentifierKey: "pmid:1", PMID: "1", Title: "t"}
	candidates := []store.URLCandidate{
		{URL: bad.URL, Source: "bad"},
		{URL: good.URL, Source: "good"},
	}

	result, err := d.DownloadWithFallback(context.Background(), pub, candidates, "GSE1", "original")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "good", result.Artifact.Source)
	assert.GreaterOrEqual(t, len(result.Attempts), 2)
}

func TestDownloadWithFallbackReturnsUnsuccessfulWhenAllCandidatesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(dir, 0, time.Millisecond, nil, nil)

	pub := store.Publication{IdentifierKey: "pmid:1", PMID: "1", Title: "t"}
	candidates := []store.URLCandidate{{URL: srv.URL, Source: "test"}}

	result, err := d.DownloadWithFallback(context.Background(), pub, candidates, "GSE1", "original")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Nil(t, result.Artifact)
	assert.NotEmpty(t, result.Attempts)
}

func TestValidatePDFRejectsMissingMagicAndBadSizes(t *testing.T) {
	assert.Error(t, validatePDF([]byte("plain text")))
	assert.Error(t, validatePDF(append([]byte(pdfMagic), byte(0))))
	assert.NoError(t, validatePDF(validPDFBody()))
}
