package domain

import "github.com/shopspring/decimal"

// CartLine is a transient selling line. It references a medication by id and
// keeps its own quantity and captured price; it is never persisted.
type CartLine struct {
	MedicationID int64           `json:"medication_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int64           `json:"quantity"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}
