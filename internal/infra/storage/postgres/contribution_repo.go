package postgres

import (
	"context"
	"fmt"

	"github.com/ltnam/categorize/internal/core/domain"
)

// ContributionRepo persists standardized contributor rows.
type ContributionRepo struct {
	db *DB
}

// NewContributionRepo creates a contribution repository.
func NewContributionRepo(db *DB) *ContributionRepo {
	return &ContributionRepo{db: db}
}

type contributionRow struct {
	RunID      string `db:"run_id"`
	RowIndex   int    `db:"row_index"`
	Name       string `db:"name"`
	Employer   string `db:"employer"`
	Occupation string `db:"occupation"`
	Category   string `db:"category"`
}

const upsertContribution = `
INSERT INTO contributions (run_id, row_index, name, employer, occupation, category)
VALUES (:run_id, :row_index, :name, :employer, :occupation, :category)
ON CONFLICT (run_id, row_index) DO UPDATE SET category = EXCLUDED.category`

// StoreFinal upserts the standardized rows of one run.
func (r *ContributionRepo) StoreFinal(ctx context.Context, runID string, records []domain.Record, categories []string) error {
	if len(records) != len(categories) {
		return fmt.Errorf("got %d categories for %d records", len(categories), len(records))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, rec := range records {
		row := contributionRow{
			RunID:      runID,
			RowIndex:   rec.Index,
			Name:       rec.Name,
			Employer:   rec.Employer,
			Occupation: rec.Occupation,
			Category:   categories[i],
		}
		if _, err := tx.NamedExecContext(ctx, upsertContribution, row); err != nil {
			return fmt.Errorf("upsert contribution %d: %w", rec.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
