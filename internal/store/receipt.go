package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"farmacia/m/domain"
)

// SaleReceipt returns a sale with its lines in insertion order, each paired
// with the referenced medication's name. Names are looked up concurrently.
func (s *Store) SaleReceipt(ctx context.Context, saleID int64) (domain.Receipt, error) {
	sale, err := s.Sale(ctx, saleID)
	if err != nil {
		return domain.Receipt{}, err
	}
	lines, err := s.SaleLines(ctx, saleID)
	if err != nil {
		return domain.Receipt{}, err
	}

	out := make([]domain.ReceiptLine, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			med, found, err := s.medications.Get(gctx, line.MedicationID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: sale line %d references medication %d", ErrDanglingReference, line.ID, line.MedicationID)
			}
			out[i] = domain.ReceiptLine{SaleLine: line, MedicationName: med.Name}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Receipt{}, err
	}
	return domain.Receipt{Sale: sale, Lines: out}, nil
}
