package api

import (
	"errors"
	"fmt"
	"net/http"

	"farmacia/m/domain"
	"farmacia/m/internal/cart"
	"farmacia/m/internal/store"
)

type saleItemRequest struct {
	MedicationID int64 `json:"medication_id"`
	Quantity     int64 `json:"quantity"`
}

type saleRequest struct {
	DocumentNumber     string            `json:"document_number"`
	DocumentComplement string            `json:"document_complement"`
	CustomerName       string            `json:"customer_name"`
	PaymentMethod      string            `json:"payment_method"`
	Items              []saleItemRequest `json:"items"`
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.ListActiveSales(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if sales == nil {
		sales = []domain.Sale{}
	}
	respondJSON(w, http.StatusOK, sales)
}

// createSale prices every item from the catalog, so clients cannot set
// unit prices or totals.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	c := cart.New()
	for _, item := range req.Items {
		m, err := h.svc.Medication(r.Context(), item.MedicationID)
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown medication %d", item.MedicationID))
			return
		}
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		if err := c.Add(m, item.Quantity); err != nil {
			h.respondServiceError(w, fmt.Errorf("medication %d: %w", item.MedicationID, err))
			return
		}
	}

	id, err := h.svc.Checkout(r.Context(), c, domain.Customer{
		DocumentNumber:     req.DocumentNumber,
		DocumentComplement: req.DocumentComplement,
		Name:               req.CustomerName,
		PaymentMethod:      req.PaymentMethod,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"sale_id": id,
		"total":   c.Total().StringFixed(2),
	})
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	if err := h.svc.DeleteSale(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) saleReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	receipt, err := h.svc.SaleReceipt(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}
