package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gst-billing/internal/app"
)

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins is a comma-separated CORS allow list. Empty disables CORS.
	AllowedOrigins string
	// MaxBodyBytes caps request bodies. Zero means 1 MB.
	MaxBodyBytes int64
}

// Handler holds the ApplicationService, the chi router and the request schemas.
type Handler struct {
	svc     app.ApplicationService
	log     *zap.Logger
	router  chi.Router
	schemas map[string]json.RawMessage
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, log *zap.Logger, opts Options) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	h := &Handler{
		svc:     svc,
		log:     log,
		schemas: buildSchemas(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(RequestBodyLimit(opts.MaxBodyBytes, log))

	// ── Health and schemas ───────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Get("/api/schemas", h.apiListSchemas)
	r.Get("/api/schemas/{name}", h.apiGetSchema)

	r.Route("/api/companies/{code}", func(r chi.Router) {
		// ── Master data ──────────────────────────────────────────────────────
		r.Get("/parties", h.apiListParties)
		r.Post("/parties", h.apiCreateParty)
		r.Get("/products", h.apiListProducts)
		r.Post("/products", h.apiCreateProduct)

		// ── Stock ────────────────────────────────────────────────────────────
		r.Get("/products/{productCode}/stock", h.apiGetStock)
		r.Post("/stock/adjustments", h.apiAdjustStock)

		// ── Vouchers ─────────────────────────────────────────────────────────
		r.Post("/vouchers/quote", h.apiQuoteVoucher)
		r.Post("/vouchers", h.apiPostVoucher)
		r.Get("/vouchers", h.apiListVouchers)
		r.Get("/vouchers/{number}", h.apiGetVoucher)

		// ── Returns ──────────────────────────────────────────────────────────
		r.Get("/vouchers/{number}/returnable", h.apiGetReturnable)
		r.Get("/vouchers/{number}/returns", h.apiListReturns)
		r.Post("/vouchers/{number}/returns", h.apiPostReturn)

		// ── Ledger and reports ───────────────────────────────────────────────
		r.Get("/trial-balance", h.apiTrialBalance)
		r.Post("/journal-entries", h.apiPostJournalEntry)
		r.Get("/accounts/{accountCode}/statement", h.apiAccountStatement)
		r.Get("/parties/{partyCode}/statement", h.apiPartyStatement)
		r.Get("/reports/gst", h.apiGSTSummary)
		r.Get("/reports/pl", h.apiProfitAndLoss)
	})

	h.router = r
	return r
}

// health returns service status and the loaded company code.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.LoadDefaultCompany(r.Context())
	companyCode := ""
	if err == nil && company != nil {
		companyCode = company.CompanyCode
	}

	type response struct {
		Status  string `json:"status"`
		Company string `json:"company"`
	}

	writeJSON(w, response{Status: "ok", Company: companyCode})
}

// companyCode extracts the {code} URL parameter.
func companyCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
