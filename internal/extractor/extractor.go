// Package extractor defines the pluggable PDF-to-structured-content
// interface and a bounded worker pool for running it across
// many downloaded PDFs concurrently. The core records extraction
// results through store.ExtractedContentStore but does not prescribe
// the parser — callers supply an Extractor implementation.
package extractor

import (
	"context"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// Extractor parses a PDF file into the fields persisted in
// parsed_content. The core ships no concrete implementation; a real
// deployment wires in a PDF-text/table/figure parser here.
type Extractor interface {
	Extract(ctx context.Context, pdfPath string) (store.ExtractedContent, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, pdfPath string) (store.ExtractedContent, error)

func (f ExtractorFunc) Extract(ctx context.Context, pdfPath string) (store.ExtractedContent, error) {
	return f(ctx, pdfPath)
}

// Task is one unit of extraction work.
type Task struct {
	IdentifierKey string
	PDFPath       string
}

// TaskResult pairs a Task with its outcome.
type TaskResult struct {
	Task    Task
	Content store.ExtractedContent
	Err     error
}

// WorkerPool runs Extract calls across a bounded set of goroutines, so
// a large backlog of newly downloaded PDFs doesn't spawn one goroutine
// per file.
type WorkerPool struct {
	extractor  Extractor
	numWorkers int
	tasks      chan Task
	results    chan TaskResult
}

// NewWorkerPool builds a pool of numWorkers goroutines, all sharing one
// Extractor implementation.
func NewWorkerPool(extractor Extractor, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &WorkerPool{
		extractor:  extractor,
		numWorkers: numWorkers,
		tasks:      make(chan Task, numWorkers*2),
		results:    make(chan TaskResult, numWorkers*2),
	}
}

// Run processes every task in the given slice and returns once all
// results are collected, preserving no particular order.
func (p *WorkerPool) Run(ctx context.Context, tasks []Task) []TaskResult {
	done := make(chan struct{})
	results := make([]TaskResult, 0, len(tasks))

	go func() {
		defer close(done)
		for i := 0; i < len(tasks); i++ {
			results = append(results, <-p.results)
		}
	}()

	for i := 0; i < p.numWorkers; i++ {
		go p.worker(ctx)
	}

	for _, t := range tasks {
		p.tasks <- t
	}
	close(p.tasks)

	<-done
	return results
}

func (p *WorkerPool) worker(ctx context.Context) {
	for task := range p.tasks {
		start := time.Now()
		content, err := p.extractor.Extract(ctx, task.PDFPath)
		if err == nil {
			content.IdentifierKey = task.IdentifierKey
			content.ParsedAt = start
		}
		p.results <- TaskResult{Task: task, Content: content, Err: err}
	}
}
