package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"farmacia/m/domain"
)

type statusSetter[T any] interface {
	*T
	SetStatus(domain.Status)
}

func listActive[T any](ctx context.Context, c *Collection[T], orderBy string) ([]T, error) {
	return c.Where(ctx, `status = ? ORDER BY `+orderBy, domain.StatusActive)
}

// logicalDelete flips a row to inactive. Read and write share a transaction;
// an already inactive row is written back unchanged.
func logicalDelete[T any, PT statusSetter[T]](ctx context.Context, c *Collection[T], id int64) (err error) {
	defer c.observe("logical_delete", time.Now(), &err)
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		rec, err := c.getTx(ctx, tx, id)
		if err != nil {
			return err
		}
		PT(&rec).SetStatus(domain.StatusInactive)
		return c.putTx(ctx, tx, rec)
	})
}

// ActiveMedications lists catalog entries that have not been deleted.
func (s *Store) ActiveMedications(ctx context.Context) ([]domain.Medication, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	return listActive(ctx, s.medications, "id")
}

// ActiveSales lists non-deleted sales, most recent first.
func (s *Store) ActiveSales(ctx context.Context) ([]domain.Sale, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	return listActive(ctx, s.sales, "sold_at DESC, id DESC")
}

func (s *Store) DeleteMedication(ctx context.Context, id int64) error {
	if err := s.await(ctx); err != nil {
		return err
	}
	return logicalDelete(ctx, s.medications, id)
}

// DeleteSale hides a sale header. Its lines are left untouched.
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	if err := s.await(ctx); err != nil {
		return err
	}
	return logicalDelete(ctx, s.sales, id)
}
