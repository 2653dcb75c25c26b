package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"farmacia/m/domain"
)

var (
	ErrAlreadyInCart      = errors.New("medication already in cart")
	ErrNotInCart          = errors.New("medication not in cart")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrInactiveMedication = errors.New("medication is not active")
)

// Cart collects the lines of a sale being built. Each medication appears at
// most once; its price is captured when it is added.
type Cart struct {
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) Add(m domain.Medication, qty int64) error {
	if m.Status != domain.StatusActive {
		return ErrInactiveMedication
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if c.Contains(m.ID) {
		return ErrAlreadyInCart
	}
	c.lines = append(c.lines, domain.CartLine{
		MedicationID: m.ID,
		Code:         m.Code,
		Name:         m.Name,
		UnitPrice:    m.Price,
		Quantity:     qty,
	})
	return nil
}

func (c *Cart) Contains(medicationID int64) bool {
	return c.index(medicationID) >= 0
}

func (c *Cart) SetQuantity(medicationID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	i := c.index(medicationID)
	if i < 0 {
		return ErrNotInCart
	}
	c.lines[i].Quantity = qty
	return nil
}

func (c *Cart) Remove(medicationID int64) {
	if i := c.index(medicationID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

// SaleLines converts the cart into detail lines ready to be recorded.
func (c *Cart) SaleLines() []domain.SaleLine {
	out := make([]domain.SaleLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = domain.SaleLine{
			MedicationID: l.MedicationID,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			LineTotal:    l.Total(),
		}
	}
	return out
}

func (c *Cart) Reset() {
	c.lines = nil
}

func (c *Cart) index(medicationID int64) int {
	for i, l := range c.lines {
		if l.MedicationID == medicationID {
			return i
		}
	}
	return -1
}
