package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"gst-billing/internal/core"
)

// decodeVoucher reads a voucher body and pins it to the company in the URL.
func decodeVoucher(w http.ResponseWriter, r *http.Request) (core.PostVoucherInput, bool) {
	var in core.PostVoucherInput
	if !decodeJSON(w, r, &in) {
		return in, false
	}
	in.CompanyCode = companyCode(r)
	in.Kind = core.VoucherKind(strings.ToUpper(string(in.Kind)))
	return in, true
}

// apiQuoteVoucher handles POST /api/companies/{code}/vouchers/quote.
// The voucher is priced with live rates but nothing is stored.
func (h *Handler) apiQuoteVoucher(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeVoucher(w, r)
	if !ok {
		return
	}
	v, err := h.svc.QuoteVoucher(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, v)
}

// apiPostVoucher handles POST /api/companies/{code}/vouchers.
func (h *Handler) apiPostVoucher(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeVoucher(w, r)
	if !ok {
		return
	}
	v, err := h.svc.PostVoucher(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, v)
}

// apiListVouchers handles GET /api/companies/{code}/vouchers?kind=&party_id=&from=&to=.
func (h *Handler) apiListVouchers(w http.ResponseWriter, r *http.Request) {
	partyID, err := queryInt(r, "party_id")
	if err != nil {
		writeError(w, r, "party_id must be an integer", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	filter := core.VoucherFilter{
		Kind:     core.VoucherKind(strings.ToUpper(q.Get("kind"))),
		PartyID:  partyID,
		FromDate: q.Get("from"),
		ToDate:   q.Get("to"),
	}
	result, err := h.svc.ListVouchers(r.Context(), companyCode(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetVoucher handles GET /api/companies/{code}/vouchers/{number}.
func (h *Handler) apiGetVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVoucher(r.Context(), companyCode(r), chi.URLParam(r, "number"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, v)
}
