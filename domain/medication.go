package domain

import "github.com/shopspring/decimal"

// Status is the logical visibility flag shared by catalog and sale records.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Medication is a catalog entry. Quantities belong to CartLine, never here.
type Medication struct {
	ID     int64           `db:"id" json:"id"`
	Code   string          `db:"code" json:"code"`
	Name   string          `db:"name" json:"name"`
	Image  string          `db:"image" json:"image"`
	Price  decimal.Decimal `db:"price" json:"price"`
	Status Status          `db:"status" json:"status"`
}

func (m *Medication) SetStatus(s Status) { m.Status = s }

// MedicationInput carries the fields of a medication being registered.
type MedicationInput struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Image string          `json:"image"`
	Price decimal.Decimal `json:"price"`
}
