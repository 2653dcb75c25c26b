package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCash is the payment method used when none is given.
const PaymentCash = "CASH"

// Instant is a point in time persisted as Unix nanoseconds, so the sold_at
// index orders rows chronologically.
type Instant struct {
	time.Time
}

func NewInstant(t time.Time) Instant {
	return Instant{Time: t.UTC()}
}

func (i Instant) Value() (driver.Value, error) {
	if i.IsZero() {
		return int64(0), nil
	}
	return i.UnixNano(), nil
}

func (i *Instant) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		if v == 0 {
			i.Time = time.Time{}
			return nil
		}
		i.Time = time.Unix(0, v).UTC()
	case nil:
		i.Time = time.Time{}
	default:
		return fmt.Errorf("instant: unsupported source type %T", src)
	}
	return nil
}

// Sale is a completed transaction header.
type Sale struct {
	ID                 int64           `db:"id" json:"id"`
	SoldAt             Instant         `db:"sold_at" json:"sold_at"`
	Total              decimal.Decimal `db:"total" json:"total"`
	DocumentNumber     string          `db:"document_number" json:"document_number"`
	DocumentComplement string          `db:"document_complement" json:"document_complement"`
	CustomerName       string          `db:"customer_name" json:"customer_name"`
	PaymentMethod      string          `db:"payment_method" json:"payment_method"`
	Status             Status          `db:"status" json:"status"`
}

func (s *Sale) SetStatus(st Status) { s.Status = st }

// SaleLine is one detail row of a sale. UnitPrice is captured at sale time.
type SaleLine struct {
	ID           int64           `db:"id" json:"id"`
	SaleID       int64           `db:"sale_id" json:"sale_id"`
	MedicationID int64           `db:"medication_id" json:"medication_id"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal    decimal.Decimal `db:"line_total" json:"line_total"`
}

// Customer identifies who a sale is issued to.
type Customer struct {
	DocumentNumber     string `json:"document_number"`
	DocumentComplement string `json:"document_complement"`
	Name               string `json:"name"`
	PaymentMethod      string `json:"payment_method"`
}

// ReceiptLine is a detail line with its medication's display name resolved.
type ReceiptLine struct {
	SaleLine
	MedicationName string `json:"medication_name"`
}

type Receipt struct {
	Sale  Sale          `json:"sale"`
	Lines []ReceiptLine `json:"lines"`
}
