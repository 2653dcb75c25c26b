package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"farmacia/m/domain"
	"farmacia/m/internal/logger"
	"farmacia/m/internal/metrics"
	"farmacia/m/internal/migrations"
)

// SaleWriteMode selects how RecordSale commits a header and its lines.
type SaleWriteMode int

const (
	// SaleWriteAtomic commits header and lines in one transaction.
	SaleWriteAtomic SaleWriteMode = iota
	// SaleWriteTwoPhase commits the header, then the lines, and reports a
	// PartialSaleError when only the first commit succeeded.
	SaleWriteTwoPhase
)

func (m SaleWriteMode) String() string {
	if m == SaleWriteTwoPhase {
		return "two-phase"
	}
	return "atomic"
}

var (
	medicationColumns = []string{"code", "name", "image", "price", "status"}
	saleColumns       = []string{"sold_at", "total", "document_number", "document_complement", "customer_name", "payment_method", "status"}
	saleLineColumns   = []string{"sale_id", "medication_id", "quantity", "unit_price", "line_total"}
)

// Store is the local persistence core: three collections over one SQLite
// handle, gated by a schema readiness barrier.
type Store struct {
	db        *sqlx.DB
	log       *zap.Logger
	metrics   *metrics.Recorder
	writeMode SaleWriteMode

	medications *Collection[domain.Medication]
	sales       *Collection[domain.Sale]
	lines       *Collection[domain.SaleLine]

	once    sync.Once
	ready   chan struct{}
	initErr error
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = logger.OrNop(l) }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

func WithSaleWriteMode(m SaleWriteMode) Option {
	return func(s *Store) { s.writeMode = m }
}

// New wraps an open database handle. The handle stays owned by the caller.
// No operation proceeds until Initialize has completed.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		log:   zap.NewNop(),
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.medications = newCollection[domain.Medication](db, "medications", medicationColumns, s.metrics)
	s.sales = newCollection[domain.Sale](db, "sales", saleColumns, s.metrics)
	s.lines = newCollection[domain.SaleLine](db, "sale_lines", saleLineColumns, s.metrics)
	return s
}

// Initialize runs schema setup once and releases every waiting operation.
// Later calls return the outcome of the first.
func (s *Store) Initialize(ctx context.Context) error {
	s.once.Do(func() {
		defer close(s.ready)
		if err := migrations.Run(ctx, s.db); err != nil {
			s.initErr = fmt.Errorf("%w: %w", ErrStorageInit, err)
			s.log.Error("schema setup failed", zap.Error(err))
			return
		}
		s.log.Info("storage ready",
			zap.Int("schema_version", migrations.Version),
			zap.Stringer("sale_write_mode", s.writeMode))
	})
	return s.initErr
}

// Ready is closed once Initialize has finished, successfully or not.
func (s *Store) Ready() <-chan struct{} { return s.ready }

func (s *Store) await(ctx context.Context) error {
	select {
	case <-s.ready:
		return s.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) AddMedication(ctx context.Context, m domain.Medication) (int64, error) {
	if err := s.await(ctx); err != nil {
		return 0, err
	}
	return s.medications.Add(ctx, m)
}

// AddMedications registers every medication in one transaction and returns
// their identities in input order.
func (s *Store) AddMedications(ctx context.Context, ms []domain.Medication) ([]int64, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	return s.medications.AddBatch(ctx, ms)
}

// Medication returns the medication with id whatever its status; found is
// false when no such row exists.
func (s *Store) Medication(ctx context.Context, id int64) (domain.Medication, bool, error) {
	if err := s.await(ctx); err != nil {
		return domain.Medication{}, false, err
	}
	return s.medications.Get(ctx, id)
}

// Medications returns every medication, active or not, in id order. Use
// ActiveMedications for what the catalog shows.
func (s *Store) Medications(ctx context.Context) ([]domain.Medication, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	return s.medications.All(ctx)
}

func (s *Store) PutMedication(ctx context.Context, m domain.Medication) error {
	if err := s.await(ctx); err != nil {
		return err
	}
	return s.medications.Put(ctx, m)
}

// EditMedication overwrites the catalog fields of an existing medication.
// An empty Status keeps the stored one, so editing a deleted medication does
// not bring it back.
func (s *Store) EditMedication(ctx context.Context, m domain.Medication) (err error) {
	if err := s.await(ctx); err != nil {
		return err
	}
	defer s.medications.observe("edit", time.Now(), &err)
	return s.medications.inTx(ctx, func(tx *sqlx.Tx) error {
		cur, err := s.medications.getTx(ctx, tx, m.ID)
		if err != nil {
			return err
		}
		if m.Status == "" {
			m.Status = cur.Status
		}
		if m.Status != cur.Status {
			s.log.Info("medication status changed",
				zap.Int64("medication_id", m.ID),
				zap.String("from", string(cur.Status)),
				zap.String("to", string(m.Status)))
		}
		return s.medications.putTx(ctx, tx, m)
	})
}

func (s *Store) Sale(ctx context.Context, id int64) (domain.Sale, error) {
	if err := s.await(ctx); err != nil {
		return domain.Sale{}, err
	}
	return s.sales.MustGet(ctx, id)
}

// SaleLines returns the detail lines of saleID in insertion order.
func (s *Store) SaleLines(ctx context.Context, saleID int64) ([]domain.SaleLine, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	return s.lines.Where(ctx, `sale_id = ? ORDER BY id`, saleID)
}
