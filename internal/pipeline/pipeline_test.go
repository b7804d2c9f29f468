package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ltnam/categorize/internal/checkpoint"
	"github.com/ltnam/categorize/internal/core/domain"
	"github.com/ltnam/categorize/internal/dataset"
	"github.com/ltnam/categorize/internal/standardize"
)

// =============================================================================
// Stubs
// =============================================================================

// stubClassifier returns canned labels keyed by contributor name.
type stubClassifier struct {
	labels map[string]string
	calls  int
}

func (s *stubClassifier) Classify(ctx context.Context, rec domain.Record) domain.Result {
	s.calls++
	return domain.Result{Label: s.labels[rec.Name], Attempts: 1}
}

type stubSink struct {
	runID      string
	records    []domain.Record
	categories []string
	err        error
}

func (s *stubSink) StoreFinal(ctx context.Context, runID string, records []domain.Record, categories []string) error {
	s.runID = runID
	s.records = records
	s.categories = categories
	return s.err
}

const inputCSV = `Contributor Name,Contributor Employer,Contributor Occupation
John Doe,Law Firm LLC,Attorney
Jane Smith,Tech Corp,Engineer
ACME Corp,,
`

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "contribs.csv")
	if err := os.WriteFile(path, []byte(inputCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testPipeline(t *testing.T, classifier Classifier, sink Sink) (*Pipeline, Config) {
	t.Helper()
	cfg := Config{
		InterimDir:   filepath.Join(t.TempDir(), "interim"),
		ProcessedDir: filepath.Join(t.TempDir(), "processed"),
		SaveInterval: 1,
	}
	std := standardize.New([]string{"Lawyers", "Other"}, 80)
	return New(classifier, std, sink, cfg, "test-run"), cfg
}

func categoryColumn(t *testing.T, path string) []string {
	t.Helper()
	ds, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	col, err := ds.Column(dataset.ColumnCategory)
	if err != nil {
		t.Fatalf("category column in %s: %v", path, err)
	}
	return col
}

// =============================================================================
// Run Tests
// =============================================================================

func TestRunEndToEnd(t *testing.T) {
	classifier := &stubClassifier{labels: map[string]string{
		"John Doe":   "Category: Lawyers",
		"Jane Smith": "Engineer",
		"ACME Corp":  "Business",
	}}
	// Labels not on the taxonomy and below the fuzzy threshold fall back.
	p, cfg := testPipeline(t, classifier, nil)

	input := writeInput(t, t.TempDir())
	paths, err := p.Run(context.Background(), input, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantInterim := filepath.Join(cfg.InterimDir, "contribs_categorized.csv")
	if paths.Interim != wantInterim {
		t.Errorf("interim path = %q, want %q", paths.Interim, wantInterim)
	}
	wantFinal := filepath.Join(cfg.ProcessedDir, "contribs_standardized.csv")
	if paths.Final != wantFinal {
		t.Errorf("final path = %q, want %q", paths.Final, wantFinal)
	}

	interim := categoryColumn(t, paths.Interim)
	for i, want := range []string{"Lawyers", "Engineer", "Business"} {
		if interim[i] != want {
			t.Errorf("interim row %d = %q, want %q", i, interim[i], want)
		}
	}

	final := categoryColumn(t, paths.Final)
	for i, want := range []string{"Lawyers", "Other", "Other"} {
		if final[i] != want {
			t.Errorf("final row %d = %q, want %q", i, final[i], want)
		}
	}

	if classifier.calls != 3 {
		t.Errorf("expected 3 classifier calls, got %d", classifier.calls)
	}

	// The checkpoint must not survive a completed stage.
	if _, err := os.Stat(checkpoint.PathFor(paths.Interim)); !os.IsNotExist(err) {
		t.Error("expected checkpoint removed after classification completed")
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	classifier := &stubClassifier{labels: map[string]string{
		"Jane Smith": "Engineer",
		"ACME Corp":  "Business",
	}}
	p, cfg := testPipeline(t, classifier, nil)

	input := writeInput(t, t.TempDir())

	// Row 0 already classified in a previous interrupted run.
	interimPath := filepath.Join(cfg.InterimDir, "contribs_categorized.csv")
	store := checkpoint.NewStore(checkpoint.PathFor(interimPath))
	store.Save(0, "Lawyers", 3)

	paths, err := p.Run(context.Background(), input, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if classifier.calls != 2 {
		t.Errorf("expected 2 classifier calls after resume, got %d", classifier.calls)
	}

	interim := categoryColumn(t, paths.Interim)
	if interim[0] != "Lawyers" {
		t.Errorf("expected checkpointed label preserved, got %q", interim[0])
	}
	if interim[1] != "Engineer" || interim[2] != "Business" {
		t.Errorf("unexpected resumed labels: %v", interim)
	}
}

func TestRunHonorsExplicitFinalPath(t *testing.T) {
	classifier := &stubClassifier{labels: map[string]string{
		"John Doe": "Lawyers", "Jane Smith": "Other", "ACME Corp": "Other",
	}}
	p, _ := testPipeline(t, classifier, nil)

	input := writeInput(t, t.TempDir())
	finalPath := filepath.Join(t.TempDir(), "custom", "out.csv")

	paths, err := p.Run(context.Background(), input, finalPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if paths.Final != finalPath {
		t.Errorf("final path = %q, want %q", paths.Final, finalPath)
	}
	if _, err := os.Stat(finalPath); err != nil {
		t.Errorf("expected final artifact at explicit path: %v", err)
	}
}

func TestRunRejectsMissingNameColumn(t *testing.T) {
	p, _ := testPipeline(t, &stubClassifier{}, nil)

	path := filepath.Join(t.TempDir(), "bad.csv")
	os.WriteFile(path, []byte("Donor,Amount\nx,1\n"), 0o644)

	_, err := p.Run(context.Background(), path, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	classifier := &stubClassifier{labels: map[string]string{}}
	p, _ := testPipeline(t, classifier, nil)

	input := writeInput(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, input, "")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if classifier.calls != 0 {
		t.Errorf("expected no classifier calls after cancellation, got %d", classifier.calls)
	}
}

// =============================================================================
// StandardizeOnly Tests
// =============================================================================

func TestStandardizeOnly(t *testing.T) {
	p, cfg := testPipeline(t, &stubClassifier{}, nil)

	path := filepath.Join(t.TempDir(), "labeled.csv")
	content := "Contributor Name,Contributor Category\n" +
		"John Doe,Lawyers\nJane Smith,Engineer\nACME Corp,Business\n"
	os.WriteFile(path, []byte(content), 0o644)

	finalPath, err := p.StandardizeOnly(context.Background(), path, "")
	if err != nil {
		t.Fatalf("StandardizeOnly failed: %v", err)
	}

	want := filepath.Join(cfg.ProcessedDir, "labeled_standardized.csv")
	if finalPath != want {
		t.Errorf("final path = %q, want %q", finalPath, want)
	}

	final := categoryColumn(t, finalPath)
	for i, wantLabel := range []string{"Lawyers", "Other", "Other"} {
		if final[i] != wantLabel {
			t.Errorf("final row %d = %q, want %q", i, final[i], wantLabel)
		}
	}
}

func TestStandardizeOnlyStripsInterimSuffix(t *testing.T) {
	p, cfg := testPipeline(t, &stubClassifier{}, nil)

	path := filepath.Join(t.TempDir(), "contribs_categorized.csv")
	content := "Contributor Name,Contributor Category\nJohn Doe,Lawyers\n"
	os.WriteFile(path, []byte(content), 0o644)

	finalPath, err := p.StandardizeOnly(context.Background(), path, "")
	if err != nil {
		t.Fatalf("StandardizeOnly failed: %v", err)
	}

	want := filepath.Join(cfg.ProcessedDir, "contribs_standardized.csv")
	if finalPath != want {
		t.Errorf("final path = %q, want %q", finalPath, want)
	}
}

func TestStandardizeOnlyRequiresCategoryColumn(t *testing.T) {
	p, _ := testPipeline(t, &stubClassifier{}, nil)

	path := filepath.Join(t.TempDir(), "unlabeled.csv")
	os.WriteFile(path, []byte(inputCSV), 0o644)

	_, err := p.StandardizeOnly(context.Background(), path, "")
	if err == nil {
		t.Fatal("expected validation error for missing category column")
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %T: %v", err, err)
	}
}

// =============================================================================
// Sink Tests
// =============================================================================

func TestRunStoresFinalResultsInSink(t *testing.T) {
	classifier := &stubClassifier{labels: map[string]string{
		"John Doe": "Lawyers", "Jane Smith": "Engineer", "ACME Corp": "Business",
	}}
	sink := &stubSink{}
	p, _ := testPipeline(t, classifier, sink)

	input := writeInput(t, t.TempDir())
	if _, err := p.Run(context.Background(), input, ""); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sink.runID != "test-run" {
		t.Errorf("sink runID = %q, want test-run", sink.runID)
	}
	if len(sink.records) != 3 || len(sink.categories) != 3 {
		t.Fatalf("sink received %d records / %d categories, want 3 / 3",
			len(sink.records), len(sink.categories))
	}
	if sink.records[0].Name != "John Doe" {
		t.Errorf("sink record 0 name = %q", sink.records[0].Name)
	}
	if sink.categories[1] != "Other" {
		t.Errorf("sink category 1 = %q, want Other", sink.categories[1])
	}
}

func TestStandardizeOnlyWithSinkAndNoNameColumn(t *testing.T) {
	// Standalone standardization only requires the label column; the sink
	// must receive blank names rather than choking on the missing column.
	sink := &stubSink{}
	p, _ := testPipeline(t, &stubClassifier{}, sink)

	path := filepath.Join(t.TempDir(), "labels_only.csv")
	content := "Contributor Category\nLawyers\nEngineer\n"
	os.WriteFile(path, []byte(content), 0o644)

	finalPath, err := p.StandardizeOnly(context.Background(), path, "")
	if err != nil {
		t.Fatalf("StandardizeOnly failed: %v", err)
	}

	final := categoryColumn(t, finalPath)
	if final[0] != "Lawyers" || final[1] != "Other" {
		t.Errorf("unexpected final labels: %v", final)
	}

	if len(sink.records) != 2 {
		t.Fatalf("sink received %d records, want 2", len(sink.records))
	}
	if sink.records[0].Name != "" {
		t.Errorf("expected blank name for absent column, got %q", sink.records[0].Name)
	}
	if sink.categories[0] != "Lawyers" {
		t.Errorf("sink category 0 = %q, want Lawyers", sink.categories[0])
	}
}

func TestNewClampsSaveInterval(t *testing.T) {
	classifier := &stubClassifier{labels: map[string]string{
		"John Doe": "Lawyers", "Jane Smith": "Other", "ACME Corp": "Other",
	}}
	cfg := Config{
		InterimDir:   filepath.Join(t.TempDir(), "interim"),
		ProcessedDir: filepath.Join(t.TempDir(), "processed"),
		SaveInterval: 0,
	}
	std := standardize.New([]string{"Lawyers", "Other"}, 80)
	p := New(classifier, std, nil, cfg, "test-run")

	input := writeInput(t, t.TempDir())
	if _, err := p.Run(context.Background(), input, ""); err != nil {
		t.Fatalf("Run failed with zero save interval: %v", err)
	}
}

func TestRunSinkFailureIsNotFatal(t *testing.T) {
	classifier := &stubClassifier{labels: map[string]string{
		"John Doe": "Lawyers", "Jane Smith": "Other", "ACME Corp": "Other",
	}}
	sink := &stubSink{err: errors.New("connection refused")}
	p, _ := testPipeline(t, classifier, sink)

	input := writeInput(t, t.TempDir())
	paths, err := p.Run(context.Background(), input, "")
	if err != nil {
		t.Fatalf("expected sink failure swallowed, got %v", err)
	}
	if _, err := os.Stat(paths.Final); err != nil {
		t.Errorf("expected final artifact written despite sink failure: %v", err)
	}
}
