package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gst-billing/internal/app"
)

// apiGetStock handles GET /api/companies/{code}/products/{productCode}/stock?limit=N.
func (h *Handler) apiGetStock(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		writeError(w, r, "limit must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.GetStock(r.Context(), companyCode(r), chi.URLParam(r, "productCode"), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAdjustStock handles POST /api/companies/{code}/stock/adjustments.
func (h *Handler) apiAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req app.AdjustStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyCode = companyCode(r)

	mv, err := h.svc.AdjustStock(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, mv)
}
