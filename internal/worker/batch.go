package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/casewright/casewright/internal/ingest"
	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/pipeline"
)

// Extractor runs one extraction request. Satisfied by pipeline.Orchestrator.
type Extractor interface {
	Extract(ctx context.Context, req pipeline.ExtractRequest) (*model.ExtractionReport, error)
}

// ExtractJob extracts use cases from one requirements document.
type ExtractJob struct {
	Path      string
	SessionID string
	Extractor Extractor
}

// Execute reads the document, converts it to text, and runs extraction.
func (j *ExtractJob) Execute(ctx context.Context) Result {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return &FileResult{Path: j.Path, Error: fmt.Errorf("reading file: %w", err)}
	}

	text, err := ingest.ExtractText(filepath.Base(j.Path), data)
	if err != nil {
		return &FileResult{Path: j.Path, Error: err}
	}

	report, err := j.Extractor.Extract(ctx, pipeline.ExtractRequest{
		SessionID: j.SessionID,
		Text:      text,
	})
	if err != nil {
		return &FileResult{Path: j.Path, Error: err}
	}
	return &FileResult{Path: j.Path, Report: report}
}

// FileResult is the outcome of one document extraction.
type FileResult struct {
	Path   string
	Report *model.ExtractionReport
	Error  error
}

// GetError returns the error from the result.
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchProcessor extracts from multiple documents concurrently. All documents
// of one batch feed the same session, so cross-document deduplication applies.
type BatchProcessor struct {
	extractor   Extractor
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(extractor Extractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// ProcessFiles extracts from the given documents concurrently.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, sessionID string, paths []string) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Drain results while submitting so a batch larger than the pool's
	// channel buffers cannot wedge Submit.
	var fileResults []*FileResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			fileResults = append(fileResults, result.(*FileResult))
		}
	}()

	for _, path := range paths {
		pool.Submit(&ExtractJob{
			Path:      path,
			SessionID: sessionID,
			Extractor: b.extractor,
		})
	}

	pool.Finish()
	<-done
	return fileResults
}

// ProcessManifest reads document paths from a manifest file and processes
// them.
func (b *BatchProcessor) ProcessManifest(ctx context.Context, sessionID, manifestPath string) ([]*FileResult, error) {
	paths, err := ReadPathsFromFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return b.ProcessFiles(ctx, sessionID, paths), nil
}

// ReadPathsFromFile reads document paths from a file, one per line. Blank
// lines and #-comments are skipped; duplicates are dropped.
func ReadPathsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return paths, nil
}
