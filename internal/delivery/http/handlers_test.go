package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsoracle/omicsoracle/internal/orchestrator"
)

func TestSearchRejectsMissingQueryParam(t *testing.T) {
	h := NewHandler(orchestrator.New(orchestrator.Orchestrator{}))
	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "q")
}

func TestSearchReturnsEmptyResultWhenNoSourcesConfigured(t *testing.T) {
	h := NewHandler(orchestrator.New(orchestrator.Orchestrator{}))
	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=GSE12345", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result orchestrator.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "GSE12345", result.Query)
	assert.Equal(t, orchestrator.QueryGEOID, result.Kind)
	assert.Empty(t, result.Datasets)
}

func TestIntParamFallsBackToDefaultOnInvalidOrNonPositiveValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/search?max_geo=abc&max_pubs=-5", nil)
	assert.Equal(t, 10, intParam(req, "max_geo", 10))
	assert.Equal(t, 20, intParam(req, "max_pubs", 20))
}

func TestIntParamParsesValidValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/search?max_geo=3", nil)
	assert.Equal(t, 3, intParam(req, "max_geo", 10))
}
