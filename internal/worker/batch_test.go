package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/pipeline"
)

// mockExtractor implements Extractor.
type mockExtractor struct {
	shouldError bool
	calls       int32
}

func (m *mockExtractor) Extract(ctx context.Context, req pipeline.ExtractRequest) (*model.ExtractionReport, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.shouldError {
		return nil, errors.New("extraction error")
	}
	return &model.ExtractionReport{
		SessionID:      req.SessionID,
		Method:         model.MethodGeneration,
		ExtractedCount: 1,
		StoredCount:    1,
	}, nil
}

func writeTempDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessFiles(t *testing.T) {
	extractor := &mockExtractor{}
	processor := NewBatchProcessor(extractor, 2)

	paths := []string{
		writeTempDoc(t, "a.txt", "Users can place orders."),
		writeTempDoc(t, "b.md", "Users can track orders."),
		writeTempDoc(t, "c.txt", "Admins can manage menus."),
	}

	results := processor.ProcessFiles(context.Background(), "sess-1", paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Path, res.Error)
		}
		if res.Report == nil || res.Report.SessionID != "sess-1" {
			t.Errorf("expected report for session sess-1, got %+v", res.Report)
		}
	}
	if atomic.LoadInt32(&extractor.calls) != 3 {
		t.Errorf("expected 3 extraction calls, got %d", extractor.calls)
	}
}

func TestBatchProcessor_ProcessFiles_LargeBatchSingleWorker(t *testing.T) {
	extractor := &mockExtractor{}
	processor := NewBatchProcessor(extractor, 1)

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 20; i++ {
		path := filepath.Join(dir, "doc"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(path, []byte("Users can place orders."), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	results := processor.ProcessFiles(context.Background(), "sess-1", paths)

	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	if atomic.LoadInt32(&extractor.calls) != 20 {
		t.Errorf("expected 20 extraction calls, got %d", extractor.calls)
	}
}

// ctxExtractor fails when the request context is already done.
type ctxExtractor struct{}

func (ctxExtractor) Extract(ctx context.Context, req pipeline.ExtractRequest) (*model.ExtractionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.ExtractionReport{SessionID: req.SessionID, StoredCount: 1}, nil
}

func TestBatchProcessor_ProcessFiles_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "doc"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(path, []byte("Users can place orders."), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(ctxExtractor{}, 2)
	results := processor.ProcessFiles(ctx, "sess-1", paths)

	// With the caller's context already canceled, nothing may extract
	// successfully: jobs either never run or observe the cancellation.
	for _, res := range results {
		if res.Error == nil {
			t.Errorf("expected canceled extraction for %s, got report %+v", res.Path, res.Report)
		} else if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", res.Path, res.Error)
		}
	}
}

func TestBatchProcessor_ProcessFiles_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2)

	results := processor.ProcessFiles(context.Background(), "sess-1", nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestExtractJob_MissingFile(t *testing.T) {
	job := &ExtractJob{Path: "no_such_file.txt", SessionID: "s", Extractor: &mockExtractor{}}

	result := job.Execute(context.Background())
	if result.GetError() == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractJob_UnsupportedFormat(t *testing.T) {
	path := writeTempDoc(t, "spec.pdf", "binary")
	job := &ExtractJob{Path: path, SessionID: "s", Extractor: &mockExtractor{}}

	result := job.Execute(context.Background())
	if result.GetError() == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestExtractJob_ExtractionError(t *testing.T) {
	path := writeTempDoc(t, "a.txt", "Users can place orders.")
	job := &ExtractJob{Path: path, SessionID: "s", Extractor: &mockExtractor{shouldError: true}}

	result := job.Execute(context.Background())
	fileResult := result.(*FileResult)
	if fileResult.Error == nil {
		t.Error("expected error, got nil")
	}
	if fileResult.Report != nil {
		t.Error("expected nil report on error")
	}
}

func TestReadPathsFromFile(t *testing.T) {
	manifest := writeTempDoc(t, "manifest.txt", `docs/a.txt
# comment
docs/b.md

docs/a.txt
docs/c.txt   `)

	paths, err := ReadPathsFromFile(manifest)
	if err != nil {
		t.Fatalf("ReadPathsFromFile failed: %v", err)
	}

	expected := []string{"docs/a.txt", "docs/b.md", "docs/c.txt"}
	if len(paths) != len(expected) {
		t.Fatalf("expected %d paths, got %d: %v", len(expected), len(paths), paths)
	}
	for i, p := range paths {
		if p != expected[i] {
			t.Errorf("expected %s at index %d, got %s", expected[i], i, p)
		}
	}
}

func TestReadPathsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadPathsFromFile("no_such_manifest.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessManifest(t *testing.T) {
	doc := writeTempDoc(t, "a.txt", "Users can place orders.")
	manifest := writeTempDoc(t, "manifest.txt", doc+"\n")

	processor := NewBatchProcessor(&mockExtractor{}, 2)

	results, err := processor.ProcessManifest(context.Background(), "sess-1", manifest)
	if err != nil {
		t.Fatalf("ProcessManifest failed: %v", err)
	}
	if len(results) != 1 || results[0].Error != nil {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestBatchProcessor_ProcessManifest_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2)

	if _, err := processor.ProcessManifest(context.Background(), "s", "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent manifest, got nil")
	}
}
