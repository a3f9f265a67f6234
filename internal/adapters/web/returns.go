package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"gst-billing/internal/core"
)

// apiGetReturnable handles GET /api/companies/{code}/vouchers/{number}/returnable.
func (h *Handler) apiGetReturnable(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetReturnable(r.Context(), companyCode(r), chi.URLParam(r, "number"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListReturns handles GET /api/companies/{code}/vouchers/{number}/returns.
func (h *Handler) apiListReturns(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListReturns(r.Context(), companyCode(r), chi.URLParam(r, "number"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPostReturn handles POST /api/companies/{code}/vouchers/{number}/returns.
// The body is a return request; the voucher comes from the URL.
func (h *Handler) apiPostReturn(w http.ResponseWriter, r *http.Request) {
	var req core.ReturnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Kind = core.ReturnKind(strings.ToUpper(string(req.Kind)))

	doc, err := h.svc.PostReturn(r.Context(), core.PostReturnInput{
		CompanyCode:   companyCode(r),
		VoucherNumber: chi.URLParam(r, "number"),
		ReturnRequest: req,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, doc)
}
