package web

import (
	"net/http"
	"strings"

	"gst-billing/internal/app"
	"gst-billing/internal/core"
)

// apiListParties handles GET /api/companies/{code}/parties?type=CUSTOMER|SUPPLIER.
func (h *Handler) apiListParties(w http.ResponseWriter, r *http.Request) {
	partyType := core.PartyType(strings.ToUpper(r.URL.Query().Get("type")))
	result, err := h.svc.ListParties(r.Context(), companyCode(r), partyType)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateParty handles POST /api/companies/{code}/parties.
func (h *Handler) apiCreateParty(w http.ResponseWriter, r *http.Request) {
	var req app.CreatePartyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyCode = companyCode(r)

	party, err := h.svc.CreateParty(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, party)
}

// apiListProducts handles GET /api/companies/{code}/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateProduct handles POST /api/companies/{code}/products.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyCode = companyCode(r)

	product, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, product)
}
