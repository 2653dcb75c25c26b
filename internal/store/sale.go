package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"farmacia/m/domain"
)

// RecordSale stores a sale header and its detail lines and returns the new
// sale identity. The header total is stored as given.
func (s *Store) RecordSale(ctx context.Context, header domain.Sale, lines []domain.SaleLine) (int64, error) {
	if err := validateSale(header, lines); err != nil {
		return 0, err
	}
	if err := s.await(ctx); err != nil {
		return 0, err
	}

	header.ID = 0
	header.Status = domain.StatusActive

	if s.writeMode == SaleWriteTwoPhase {
		return s.recordSaleTwoPhase(ctx, header, lines)
	}
	return s.recordSaleAtomic(ctx, header, lines)
}

func validateSale(header domain.Sale, lines []domain.SaleLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalidSale)
	}
	if strings.TrimSpace(header.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidSale)
	}
	if strings.TrimSpace(header.DocumentNumber) == "" {
		return fmt.Errorf("%w: document number is required", ErrInvalidSale)
	}
	return nil
}

func stampLines(saleID int64, lines []domain.SaleLine) []domain.SaleLine {
	stamped := make([]domain.SaleLine, len(lines))
	for i, l := range lines {
		l.ID = 0
		l.SaleID = saleID
		stamped[i] = l
	}
	return stamped
}

func (s *Store) recordSaleAtomic(ctx context.Context, header domain.Sale, lines []domain.SaleLine) (int64, error) {
	start := time.Now()
	var saleID int64
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		id, err := s.sales.addTx(ctx, tx, header)
		if err != nil {
			return err
		}
		if _, err := s.lines.addBatchTx(ctx, tx, stampLines(id, lines)); err != nil {
			return err
		}
		saleID = id
		return nil
	})
	s.metrics.Observe("sales", "record_sale", start, err)
	if err != nil {
		s.log.Error("sale rolled back", zap.Int("lines", len(lines)), zap.Error(err))
		return 0, err
	}
	return saleID, nil
}

func (s *Store) recordSaleTwoPhase(ctx context.Context, header domain.Sale, lines []domain.SaleLine) (int64, error) {
	saleID, err := s.sales.Add(ctx, header)
	if err != nil {
		return 0, err
	}
	if _, err := s.lines.AddBatch(ctx, stampLines(saleID, lines)); err != nil {
		s.log.Error("sale header stored without lines",
			zap.Int64("sale_id", saleID), zap.Int("lines", len(lines)), zap.Error(err))
		return saleID, &PartialSaleError{SaleID: saleID, Lines: len(lines), Err: err}
	}
	return saleID, nil
}
