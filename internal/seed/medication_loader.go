package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farmacia/m/domain"
	"farmacia/m/internal/logger"
)

// Catalog is the part of the pharmacy service the loader writes through.
type Catalog interface {
	ListActiveMedications(ctx context.Context) ([]domain.Medication, error)
	ImportMedications(ctx context.Context, ins []domain.MedicationInput) ([]int64, error)
}

// LoadMedications registers the medications listed in the CSV at csvPath.
// The file has a header row followed by code,name,image,price rows. Rows
// whose code is already active are skipped, as are malformed rows.
func LoadMedications(ctx context.Context, cat Catalog, csvPath string, log *zap.Logger) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open medication catalog %s: %w", csvPath, err)
	}
	defer file.Close()
	return Load(ctx, cat, file, log)
}

// Load is LoadMedications over an arbitrary reader.
func Load(ctx context.Context, cat Catalog, r io.Reader, log *zap.Logger) (int, error) {
	log = logger.OrNop(log)

	existing, err := cat.ListActiveMedications(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[strings.ToUpper(m.Code)] = struct{}{}
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("read medication header: %w", err)
	}

	var batch []domain.MedicationInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return 0, fmt.Errorf("read medication row %d: %w", line, err)
			}
			log.Warn("unreadable medication row", zap.Int("line", line), zap.Error(err))
			continue
		}
		in, ok := parseRow(record)
		if !ok {
			log.Warn("skipping malformed medication row", zap.Int("line", line), zap.Strings("record", record))
			continue
		}
		key := strings.ToUpper(in.Code)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		batch = append(batch, in)
	}

	ids, err := cat.ImportMedications(ctx, batch)
	if err != nil {
		return 0, err
	}
	log.Info("seeded medication catalog", zap.Int("rows", len(ids)))
	return len(ids), nil
}

func parseRow(record []string) (domain.MedicationInput, bool) {
	if len(record) < 4 {
		return domain.MedicationInput{}, false
	}
	in := domain.MedicationInput{
		Code:  strings.TrimSpace(record[0]),
		Name:  strings.TrimSpace(record[1]),
		Image: strings.TrimSpace(record[2]),
	}
	price, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil || !price.IsPositive() {
		return domain.MedicationInput{}, false
	}
	in.Price = price
	if in.Code == "" || in.Name == "" || in.Image == "" {
		return domain.MedicationInput{}, false
	}
	return in, true
}
