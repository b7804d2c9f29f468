// Package pipeline drives the two-stage categorization run: classify
// every record through the external service, persist the interim
// artifact, standardize the labels onto the canonical taxonomy, and
// persist the final artifact. Processing is strictly sequential, one
// record at a time, in input row order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ltnam/categorize/internal/checkpoint"
	"github.com/ltnam/categorize/internal/core/domain"
	"github.com/ltnam/categorize/internal/dataset"
	"github.com/ltnam/categorize/internal/pipeline/metrics"
)

// Classifier assigns a label to one record without ever failing.
type Classifier interface {
	Classify(ctx context.Context, rec domain.Record) domain.Result
}

// Standardizer maps a free-text label onto the canonical taxonomy.
type Standardizer interface {
	Standardize(label string) string
}

// Sink receives the standardized rows of a completed run.
type Sink interface {
	StoreFinal(ctx context.Context, runID string, records []domain.Record, categories []string) error
}

// Config holds pipeline settings.
type Config struct {
	InterimDir   string
	ProcessedDir string
	SaveInterval int
}

// Paths references the two persisted artifacts of a full run.
type Paths struct {
	Interim string
	Final   string
}

// Pipeline orchestrates one dataset through both stages.
type Pipeline struct {
	classifier   Classifier
	standardizer Standardizer
	sink         Sink // optional
	cfg          Config
	runID        string
	log          *slog.Logger
}

// New creates a pipeline. sink may be nil.
func New(classifier Classifier, standardizer Standardizer, sink Sink, cfg Config, runID string) *Pipeline {
	if cfg.SaveInterval < 1 {
		cfg.SaveInterval = 1
	}
	return &Pipeline{
		classifier:   classifier,
		standardizer: standardizer,
		sink:         sink,
		cfg:          cfg,
		runID:        runID,
		log:          slog.Default().With("run_id", runID),
	}
}

// Run executes the full two-stage pipeline over the input file. When
// finalPath is empty both artifact paths are derived from the input
// file's base name.
func (p *Pipeline) Run(ctx context.Context, inputPath, finalPath string) (Paths, error) {
	ds, err := dataset.Load(inputPath)
	if err != nil {
		return Paths{}, err
	}
	if err := dataset.ValidateInput(ds); err != nil {
		return Paths{}, err
	}

	p.log.Info("loaded input dataset", "path", inputPath, "rows", ds.Len())

	interimPath := p.derivePath(p.cfg.InterimDir, inputPath, "_categorized")
	if finalPath == "" {
		finalPath = p.derivePath(p.cfg.ProcessedDir, inputPath, "_standardized")
	}

	if err := p.classifyStage(ctx, ds, interimPath); err != nil {
		return Paths{}, err
	}
	if err := p.standardizeStage(ctx, ds, finalPath); err != nil {
		return Paths{}, err
	}

	return Paths{Interim: interimPath, Final: finalPath}, nil
}

// StandardizeOnly applies stage 2 to an already-labeled dataset.
func (p *Pipeline) StandardizeOnly(ctx context.Context, inputPath, finalPath string) (string, error) {
	ds, err := dataset.Load(inputPath)
	if err != nil {
		return "", err
	}
	if err := dataset.ValidateCategorized(ds); err != nil {
		return "", err
	}

	p.log.Info("loaded labeled dataset", "path", inputPath, "rows", ds.Len())

	raw, _ := ds.Column(dataset.ColumnCategory)
	p.logDistribution("original", raw)

	if finalPath == "" {
		// An interim artifact standardizes to the same final name a full
		// run would produce for its source file.
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		base = strings.TrimSuffix(base, "_categorized")
		finalPath = filepath.Join(p.cfg.ProcessedDir, base+"_standardized.csv")
	}
	if err := p.standardizeStage(ctx, ds, finalPath); err != nil {
		return "", err
	}
	return finalPath, nil
}

// classifyStage labels every record via the classifier, resuming from
// any valid checkpoint and saving progress every SaveInterval records.
// The interim artifact is written in full on completion and the
// checkpoint is then deleted.
func (p *Pipeline) classifyStage(ctx context.Context, ds *dataset.Dataset, interimPath string) error {
	store := checkpoint.NewStore(checkpoint.PathFor(interimPath))
	done := store.Load(ds.Len())
	if len(done) > 0 {
		p.log.Info("resuming from checkpoint",
			"path", store.Path(), "completed", len(done), "total", ds.Len())
	}

	records := buildRecords(ds)
	labels := make([]string, ds.Len())

	remaining := 0
	for _, rec := range records {
		if _, ok := done[rec.Index]; !ok {
			remaining++
		}
	}

	processed := 0
	for _, rec := range records {
		if label, ok := done[rec.Index]; ok {
			labels[rec.Index] = label
			continue
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("classification interrupted: %w", err)
		}

		res := p.classifier.Classify(ctx, rec)
		labels[rec.Index] = res.Label
		processed++
		metrics.RowsProcessed.WithLabelValues("classify").Inc()

		if processed%p.cfg.SaveInterval == 0 {
			store.Save(rec.Index, res.Label, ds.Len())
			metrics.CheckpointSavesTotal.Inc()
			p.log.Info("classification progress", "completed", processed, "total", remaining)
		}
	}

	if err := ds.SetColumn(dataset.ColumnCategory, labels); err != nil {
		return err
	}
	if err := ds.Write(interimPath); err != nil {
		return fmt.Errorf("write interim artifact: %w", err)
	}
	store.Cleanup()

	p.log.Info("saved interim results", "path", interimPath)
	p.logDistribution("raw", labels)
	return nil
}

// standardizeStage rewrites the label column onto the canonical
// taxonomy. Rows are independent; no state is shared between them.
func (p *Pipeline) standardizeStage(ctx context.Context, ds *dataset.Dataset, finalPath string) error {
	raw, err := ds.Column(dataset.ColumnCategory)
	if err != nil {
		return err
	}

	standardized := make([]string, len(raw))
	for i, label := range raw {
		standardized[i] = p.standardizer.Standardize(label)
		metrics.RowsProcessed.WithLabelValues("standardize").Inc()
	}

	if err := ds.SetColumn(dataset.ColumnCategory, standardized); err != nil {
		return err
	}
	if err := ds.Write(finalPath); err != nil {
		return fmt.Errorf("write final artifact: %w", err)
	}

	p.log.Info("saved final results", "path", finalPath)
	p.logDistribution("standardized", standardized)

	if p.sink != nil {
		if err := p.sink.StoreFinal(ctx, p.runID, buildRecords(ds), standardized); err != nil {
			// The file artifacts are the contract; the sink is advisory.
			p.log.Error("failed to store results in database", "error", err)
		} else {
			p.log.Info("stored results in database", "rows", len(standardized))
		}
	}
	return nil
}

// derivePath builds `<dir>/<base><suffix>.csv` from the input file name.
func (p *Pipeline) derivePath(dir, inputPath, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(dir, base+suffix+".csv")
}

// logDistribution reports the label frequency distribution, most common
// first. Observability only; never behavior-affecting.
func (p *Pipeline) logDistribution(stage string, labels []string) {
	counts := make(map[string]int)
	for _, label := range labels {
		counts[label]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	p.log.Info("category distribution", "stage", stage, "rows", len(labels))
	for _, k := range keys {
		p.log.Info("category count", "stage", stage, "category", k, "count", counts[k])
		metrics.CategoryDistribution.WithLabelValues(stage, k).Set(float64(counts[k]))
	}
}

// buildRecords derives fresh records from the dataset, trimming fields.
// Columns that are absent read as blank: standalone standardization only
// requires the label column, so even the name column is optional here.
func buildRecords(ds *dataset.Dataset) []domain.Record {
	names := optionalColumn(ds, dataset.ColumnName)
	employers := optionalColumn(ds, dataset.ColumnEmployer)
	occupations := optionalColumn(ds, dataset.ColumnOccupation)

	records := make([]domain.Record, ds.Len())
	for i := range records {
		records[i] = domain.Record{
			Index:      i,
			Name:       strings.TrimSpace(names[i]),
			Employer:   strings.TrimSpace(employers[i]),
			Occupation: strings.TrimSpace(occupations[i]),
		}
	}
	return records
}

func optionalColumn(ds *dataset.Dataset, name string) []string {
	if ds.HasColumn(name) {
		values, _ := ds.Column(name)
		return values
	}
	return make([]string, ds.Len())
}
