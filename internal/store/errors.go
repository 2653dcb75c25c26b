package store

import (
	"errors"
	"fmt"
)

var (
	ErrStorageInit       = errors.New("storage init failed")
	ErrStorageWrite      = errors.New("storage write failed")
	ErrNotFound          = errors.New("not found")
	ErrDanglingReference = errors.New("dangling reference")
	ErrInvalidSale       = errors.New("invalid sale")
	ErrPartialSale       = errors.New("partial sale")
)

// PartialSaleError reports a sale header that was committed while its detail
// lines were not. The header is left in place for the caller to resolve.
type PartialSaleError struct {
	SaleID int64
	Lines  int
	Err    error
}

func (e *PartialSaleError) Error() string {
	return fmt.Sprintf("partial sale: header %d committed, %d lines not stored: %v", e.SaleID, e.Lines, e.Err)
}

func (e *PartialSaleError) Unwrap() error { return e.Err }

func (e *PartialSaleError) Is(target error) bool { return target == ErrPartialSale }
