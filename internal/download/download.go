// Package download implements download-with-fallback: one
// publication's sorted URL candidates are attempted sequentially, each
// retried with linear backoff, validated by PDF magic bytes and size
// bounds, and deduplicated by SHA-256 against already-stored artifacts.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/identifier"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

const (
	minPDFSize = 10 * 1024
	maxPDFSize = 200 * 1024 * 1024
	pdfMagic   = "%PDF-"
)

// Result is the outcome of one DownloadWithFallback call.
type Result struct {
	Success  bool
	Artifact *store.PDFArtifact
	Attempts []store.DownloadAttempt
}

// Downloader attempts a publication's candidate URLs in order until
// one validates, recording every attempt to history.
type Downloader struct {
	httpClient       *http.Client
	outputDir        string
	maxRetriesPerURL int
	retryDelay       time.Duration
	history          store.DownloadHistoryStore
	pdfs             store.PDFArtifactStore
}

// New builds a Downloader writing files under outputDir, grouped as
// {output_dir}/{geo_id}/{relationship}/{filename}.
func New(outputDir string, maxRetriesPerURL int, retryDelay time.Duration, history store.DownloadHistoryStore, pdfs store.PDFArtifactStore) *Downloader {
	if maxRetriesPerURL <= 0 {
		maxRetriesPerURL = 2
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Downloader{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		outputDir:        outputDir,
		maxRetriesPerURL: maxRetriesPerURL,
		retryDelay:       retryDelay,
		history:          history,
		pdfs:             pdfs,
	}
}

// DownloadWithFallback walks candidates in the order given (callers
// pass waterfall.Sort's output) and stops at the first one that
// validates as a PDF.
func (d *Downloader) DownloadWithFallback(ctx context.Context, pub store.Publication, candidates []store.URLCandidate, geoID, relationship string) (*Result, error) {
	result := &Result{}

	for _, cand := range candidates {
		attempt, body, ok := d.tryCandidate(ctx, pub, cand)
		result.Attempts = append(result.Attempts, attempt...)
		if d.history != nil {
			for _, a := range attempt {
				_ = d.history.AppendDownloadAttempt(ctx, a)
			}
		}
		if !ok {
			continue
		}

		artifact, err := d.store(ctx, pub, cand, geoID, relationship, body)
		if err != nil {
			continue
		}
		result.Success = true
		result.Artifact = artifact
		return result, nil
	}

	return result, nil
}

// tryCandidate attempts one URL up to maxRetriesPerURL+1 times,
// returning the recorded attempts and, on success, the validated body.
func (d *Downloader) tryCandidate(ctx context.Context, pub store.Publication, cand store.URLCandidate) ([]store.DownloadAttempt, []byte, bool) {
	var attempts []store.DownloadAttempt

	for i := 0; i <= d.maxRetriesPerURL; i++ {
		attemptNum := i + 1
		body, httpStatus, err := d.fetch(ctx, cand.URL)

		if err == nil {
			if verr := validatePDF(body); verr == nil {
				attempts = append(attempts, store.DownloadAttempt{
					IdentifierKey: pub.IdentifierKey,
					URL:           cand.URL,
					Source:        cand.Source,
					Status:        store.DownloadSuccess,
					AttemptNumber: attemptNum,
					FileSize:      int64(len(body)),
					DownloadedAt:  time.Now(),
				})
				return attempts, body, true
			}
			attempts = append(attempts, store.DownloadAttempt{
				IdentifierKey: pub.IdentifierKey,
				URL:           cand.URL,
				Source:        cand.Source,
				Status:        store.DownloadFailed,
				ErrorMessage:  verr.Error(),
				AttemptNumber: attemptNum,
				DownloadedAt:  time.Now(),
			})
			return attempts, nil, false
		}

		transient := httpStatus == 0 || httpStatus == http.StatusTooManyRequests || httpStatus >= 500
		downloadStatus := store.DownloadFailed
		if transient && i < d.maxRetriesPerURL {
			downloadStatus = store.DownloadRetry
		}
		attempts = append(attempts, store.DownloadAttempt{
			IdentifierKey: pub.IdentifierKey,
			URL:           cand.URL,
			Source:        cand.Source,
			Status:        downloadStatus,
			ErrorMessage:  err.Error(),
			AttemptNumber: attemptNum,
			DownloadedAt:  time.Now(),
		})
		if !transient {
			return attempts, nil, false
		}
		if i < d.maxRetriesPerURL {
			select {
			case <-ctx.Done():
				return attempts, nil, false
			case <-time.After(d.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return attempts, nil, false
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "omicsoracle/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func validatePDF(body []byte) error {
	if len(body) < len(pdfMagic) || string(body[:len(pdfMagic)]) != pdfMagic {
		return fmt.Errorf("missing PDF magic header")
	}
	if len(body) < minPDFSize {
		return fmt.Errorf("body too small: %d bytes", len(body))
	}
	if len(body) > maxPDFSize {
		return fmt.Errorf("body too large: %d bytes", len(body))
	}
	return nil
}

func (d *Downloader) store(ctx context.Context, pub store.Publication, cand store.URLCandidate, geoID, relationship string, body []byte) (*store.PDFArtifact, error) {
	hash := sha256.Sum256(body)
	fileHash := hex.EncodeToString(hash[:])

	filename, err := identifier.Filename(identifier.Publication{
		PMID: pub.PMID, DOI: pub.DOI, PMCID: pub.PMCID, ArXiv: pub.ArXivID, Title: pub.Title,
	})
	if err != nil {
		return nil, err
	}
	fullPath := filepath.Join(d.outputDir, geoID, relationship, filename)

	candidate := store.PDFArtifact{
		IdentifierKey: pub.IdentifierKey,
		FilePath:      fullPath,
		FileHash:      fileHash,
		FileSize:      int64(len(body)),
		Source:        cand.Source,
		DownloadedAt:  time.Now(),
		LastAccessed:  time.Now(),
		AccessCount:   1,
	}
	if d.pdfs == nil {
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(fullPath, body, 0o644); err != nil {
			return nil, err
		}
		return &candidate, nil
	}

	artifact, isNew, err := d.pdfs.CreateOrGetByHash(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if !isNew {
		_ = d.pdfs.TouchAccess(ctx, artifact.IdentifierKey)
		return artifact, nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(fullPath, body, 0o644); err != nil {
		return nil, err
	}
	return artifact, nil
}
