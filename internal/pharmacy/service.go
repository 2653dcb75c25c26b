package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"farmacia/m/domain"
	"farmacia/m/internal/cart"
	"farmacia/m/internal/logger"
	"farmacia/m/internal/store"
)

var (
	ErrInvalidMedication = errors.New("invalid medication")
	ErrEmptyCart         = errors.New("cart is empty")
)

// Service is the catalog and sales contract used by the UI. It normalises
// input before handing it to the store.
type Service struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(st *store.Store, log *zap.Logger) *Service {
	return &Service{
		store: st,
		log:   logger.OrNop(log),
		now:   time.Now,
	}
}

// Initialize prepares the schema; every other call waits for it.
func (s *Service) Initialize(ctx context.Context) error {
	return s.store.Initialize(ctx)
}

// Ready is closed once initialization has finished.
func (s *Service) Ready() <-chan struct{} {
	return s.store.Ready()
}

func (s *Service) ListActiveMedications(ctx context.Context) ([]domain.Medication, error) {
	return s.store.ActiveMedications(ctx)
}

// SearchMedications filters active medications whose name or code contains
// term, ignoring case. An empty term returns every active medication.
func (s *Service) SearchMedications(ctx context.Context, term string) ([]domain.Medication, error) {
	meds, err := s.store.ActiveMedications(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return meds, nil
	}
	out := make([]domain.Medication, 0, len(meds))
	for _, m := range meds {
		if strings.Contains(strings.ToLower(m.Name), term) || strings.Contains(strings.ToLower(m.Code), term) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Medication returns a medication by id regardless of status.
func (s *Service) Medication(ctx context.Context, id int64) (domain.Medication, error) {
	m, found, err := s.store.Medication(ctx, id)
	if err != nil {
		return domain.Medication{}, err
	}
	if !found {
		return domain.Medication{}, fmt.Errorf("%w: medication %d", store.ErrNotFound, id)
	}
	return m, nil
}

func (s *Service) CreateMedication(ctx context.Context, in domain.MedicationInput) (int64, error) {
	m := normalizeMedication(domain.Medication{
		Code:   in.Code,
		Name:   in.Name,
		Image:  in.Image,
		Price:  in.Price,
		Status: domain.StatusActive,
	})
	if err := validateMedication(m); err != nil {
		return 0, err
	}

	id, err := s.store.AddMedication(ctx, m)
	if err != nil {
		s.log.Error("create medication failed", zap.String("code", m.Code), zap.Error(err))
		return 0, err
	}
	s.log.Info("medication created", zap.Int64("medication_id", id), zap.String("code", m.Code))
	return id, nil
}

// ImportMedications registers a batch of medications. Nothing is stored
// unless every input is valid and every row is written.
func (s *Service) ImportMedications(ctx context.Context, ins []domain.MedicationInput) ([]int64, error) {
	meds := make([]domain.Medication, 0, len(ins))
	for i, in := range ins {
		m := normalizeMedication(domain.Medication{
			Code:   in.Code,
			Name:   in.Name,
			Image:  in.Image,
			Price:  in.Price,
			Status: domain.StatusActive,
		})
		if err := validateMedication(m); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		meds = append(meds, m)
	}
	if len(meds) == 0 {
		return nil, nil
	}
	ids, err := s.store.AddMedications(ctx, meds)
	if err != nil {
		s.log.Error("import medications failed", zap.Int("count", len(meds)), zap.Error(err))
		return nil, err
	}
	s.log.Info("medications imported", zap.Int("count", len(ids)))
	return ids, nil
}

// UpdateMedication overwrites the fields of an existing medication. When
// m.Status is empty the stored status is kept.
func (s *Service) UpdateMedication(ctx context.Context, m domain.Medication) error {
	m = normalizeMedication(m)
	if err := validateMedication(m); err != nil {
		return err
	}
	write := s.store.EditMedication
	if m.Status != "" {
		write = s.store.PutMedication
	}
	if err := write(ctx, m); err != nil {
		s.log.Error("update medication failed", zap.Int64("medication_id", m.ID), zap.Error(err))
		return err
	}
	s.log.Info("medication updated", zap.Int64("medication_id", m.ID))
	return nil
}

// DeleteMedication marks a medication inactive. Repeating it is a no-op.
func (s *Service) DeleteMedication(ctx context.Context, id int64) error {
	if err := s.store.DeleteMedication(ctx, id); err != nil {
		s.log.Error("delete medication failed", zap.Int64("medication_id", id), zap.Error(err))
		return err
	}
	s.log.Info("medication deleted", zap.Int64("medication_id", id))
	return nil
}

func (s *Service) ListActiveSales(ctx context.Context) ([]domain.Sale, error) {
	return s.store.ActiveSales(ctx)
}

// RecordSale stores a sale exactly as totalled by the caller.
func (s *Service) RecordSale(ctx context.Context, header domain.Sale, lines []domain.SaleLine) (int64, error) {
	header = s.normalizeSale(header)
	id, err := s.store.RecordSale(ctx, header, lines)
	if err != nil {
		var partial *store.PartialSaleError
		if errors.As(err, &partial) {
			s.log.Error("sale recorded without lines", zap.Int64("sale_id", partial.SaleID), zap.Error(err))
		} else {
			s.log.Error("record sale failed", zap.Error(err))
		}
		return id, err
	}
	s.log.Info("sale recorded",
		zap.Int64("sale_id", id),
		zap.Int("lines", len(lines)),
		zap.String("total", header.Total.StringFixed(2)))
	return id, nil
}

// Checkout records the cart as a sale for customer, with the total taken
// from the cart. The cart is left untouched.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, customer domain.Customer) (int64, error) {
	if c == nil || c.Len() == 0 {
		return 0, ErrEmptyCart
	}
	header := domain.Sale{
		Total:              c.Total(),
		DocumentNumber:     customer.DocumentNumber,
		DocumentComplement: customer.DocumentComplement,
		CustomerName:       customer.Name,
		PaymentMethod:      customer.PaymentMethod,
	}
	return s.RecordSale(ctx, header, c.SaleLines())
}

func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if err := s.store.DeleteSale(ctx, id); err != nil {
		s.log.Error("delete sale failed", zap.Int64("sale_id", id), zap.Error(err))
		return err
	}
	s.log.Info("sale deleted", zap.Int64("sale_id", id))
	return nil
}

func (s *Service) SaleReceipt(ctx context.Context, id int64) (domain.Receipt, error) {
	r, err := s.store.SaleReceipt(ctx, id)
	if err != nil && errors.Is(err, store.ErrDanglingReference) {
		s.log.Error("receipt references a missing medication", zap.Int64("sale_id", id), zap.Error(err))
	}
	return r, err
}

func normalizeMedication(m domain.Medication) domain.Medication {
	m.Code = strings.TrimSpace(m.Code)
	m.Name = strings.ToUpper(strings.TrimSpace(m.Name))
	m.Image = strings.TrimSpace(m.Image)
	return m
}

func validateMedication(m domain.Medication) error {
	if m.Code == "" || m.Name == "" || m.Image == "" {
		return fmt.Errorf("%w: code, name and image are required", ErrInvalidMedication)
	}
	if !m.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidMedication)
	}
	if m.Status != "" && !m.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMedication, m.Status)
	}
	return nil
}

func (s *Service) normalizeSale(h domain.Sale) domain.Sale {
	h.DocumentNumber = strings.TrimSpace(h.DocumentNumber)
	h.DocumentComplement = strings.TrimSpace(h.DocumentComplement)
	h.CustomerName = strings.ToUpper(strings.TrimSpace(h.CustomerName))
	h.PaymentMethod = strings.TrimSpace(h.PaymentMethod)
	if h.PaymentMethod == "" {
		h.PaymentMethod = domain.PaymentCash
	}
	if h.SoldAt.IsZero() {
		h.SoldAt = domain.NewInstant(s.now())
	}
	return h
}
