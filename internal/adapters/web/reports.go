package web

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gst-billing/internal/app"
)

// apiTrialBalance handles GET /api/companies/{code}/trial-balance.
func (h *Handler) apiTrialBalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetTrialBalance(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPostJournalEntry handles POST /api/companies/{code}/journal-entries.
func (h *Handler) apiPostJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req app.JournalEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyCode = companyCode(r)

	entry, err := h.svc.PostJournalEntry(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, entry)
}

// apiAccountStatement handles GET /api/companies/{code}/accounts/{accountCode}/statement.
// When format=csv, streams CSV instead of JSON.
func (h *Handler) apiAccountStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountCode := chi.URLParam(r, "accountCode")
	result, err := h.svc.GetAccountStatement(r.Context(), companyCode(r), accountCode, q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if q.Get("format") != "csv" {
		writeJSON(w, result)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.csv"`, accountCode))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Date", "Narration", "Reference", "Debit", "Credit", "Balance"})
	for _, l := range result.Lines {
		_ = cw.Write([]string{
			l.PostingDate,
			l.Narration,
			l.Reference,
			l.Debit.StringFixed(2),
			l.Credit.StringFixed(2),
			l.RunningBalance.StringFixed(2),
		})
	}
	cw.Flush()
}

// apiPartyStatement handles GET /api/companies/{code}/parties/{partyCode}/statement.
func (h *Handler) apiPartyStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.GetPartyStatement(r.Context(), companyCode(r), chi.URLParam(r, "partyCode"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGSTSummary handles GET /api/companies/{code}/reports/gst?from=&to=.
func (h *Handler) apiGSTSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.GetGSTSummary(r.Context(), companyCode(r), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiProfitAndLoss handles GET /api/companies/{code}/reports/pl?from=&to=.
func (h *Handler) apiProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.GetProfitAndLoss(r.Context(), companyCode(r), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
