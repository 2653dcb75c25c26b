package api

import (
	"net/http"

	"farmacia/m/domain"
)

func (h *Handler) listMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := h.svc.SearchMedications(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if meds == nil {
		meds = []domain.Medication{}
	}
	respondJSON(w, http.StatusOK, meds)
}

func (h *Handler) createMedication(w http.ResponseWriter, r *http.Request) {
	var req domain.MedicationInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.svc.CreateMedication(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	m, err := h.svc.Medication(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) getMedication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}
	m, err := h.svc.Medication(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) updateMedication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}
	var req domain.Medication
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ID = id
	if err := h.svc.UpdateMedication(r.Context(), req); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteMedication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}
	if err := h.svc.DeleteMedication(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
