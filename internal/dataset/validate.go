package dataset

import (
	"os"
	"strings"

	"github.com/ltnam/categorize/internal/core/domain"
)

// validateFile checks that path names a readable CSV file.
func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Validationf("input file %q not found", path)
		}
		return domain.Validationf("cannot access input file %q: %v", path, err)
	}
	if info.IsDir() {
		return domain.Validationf("%q is not a file", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".csv") {
		return domain.Validationf("%q is not a CSV file", path)
	}
	return nil
}

// ValidateInput checks that the dataset carries a usable name column.
func ValidateInput(d *Dataset) error {
	return requireColumn(d, ColumnName)
}

// ValidateCategorized checks that an already-labeled dataset carries a
// usable category column, for standalone standardization.
func ValidateCategorized(d *Dataset) error {
	return requireColumn(d, ColumnCategory)
}

func requireColumn(d *Dataset, name string) error {
	if !d.HasColumn(name) {
		return domain.Validationf("missing required column: %s", name)
	}
	values, err := d.Column(name)
	if err != nil {
		return domain.Validationf("cannot read column %s: %v", name, err)
	}
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return nil
		}
	}
	return domain.Validationf("required column contains no data: %s", name)
}
