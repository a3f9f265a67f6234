package web

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"

	"gst-billing/internal/app"
	"gst-billing/internal/core"
)

// schemaSources are the request bodies published under /api/schemas/{name}.
var schemaSources = map[string]any{
	"voucher":          core.PostVoucherInput{},
	"return":           core.ReturnRequest{},
	"party":            app.CreatePartyRequest{},
	"product":          app.CreateProductRequest{},
	"stock-adjustment": app.AdjustStockRequest{},
	"journal-entry":    app.JournalEntryRequest{},
}

func enumSchema[T ~string](values ...T) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "string"}
	for _, v := range values {
		s.Enum = append(s.Enum, string(v))
	}
	return s
}

var enumSchemas = map[reflect.Type]*jsonschema.Schema{
	reflect.TypeOf(core.VoucherKind("")): enumSchema(core.VoucherPurchase, core.VoucherSale),
	reflect.TypeOf(core.PaymentMethod("")): enumSchema(core.PaymentCash, core.PaymentCard, core.PaymentUPI,
		core.PaymentBankTransfer, core.PaymentCheque, core.PaymentCredit),
	reflect.TypeOf(core.RefundMethod("")): enumSchema(core.RefundCash, core.RefundBankTransfer, core.RefundCheque,
		core.RefundUPI, core.RefundCreditNote, core.RefundAdjustAgainstBalance),
	reflect.TypeOf(core.ReturnKind("")):       enumSchema(core.SalesReturn, core.PurchaseReturn),
	reflect.TypeOf(core.StockDisposition("")): enumSchema(core.DispositionResalable, core.DispositionDamaged, core.DispositionExpired),
	reflect.TypeOf(core.DiscountKind("")):     enumSchema(core.DiscountNone, core.DiscountPercent, core.DiscountAmount),
	reflect.TypeOf(core.PartyType("")):        enumSchema(core.PartyCustomer, core.PartySupplier),
}

// schemaMapper renders decimals as numeric strings or numbers, the two forms
// decimal.Decimal accepts, and closed string sets as enums.
func schemaMapper(t reflect.Type) *jsonschema.Schema {
	if t == reflect.TypeOf(decimal.Decimal{}) {
		return &jsonschema.Schema{OneOf: []*jsonschema.Schema{
			{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`},
			{Type: "number"},
		}}
	}
	if s, ok := enumSchemas[t]; ok {
		return s
	}
	return nil
}

func buildSchemas() map[string]json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper:                     schemaMapper,
	}
	out := make(map[string]json.RawMessage, len(schemaSources))
	for name, v := range schemaSources {
		b, err := json.Marshal(reflector.Reflect(v))
		if err != nil {
			panic("jsonschema marshal " + name + ": " + err.Error())
		}
		out[name] = b
	}
	return out
}

// apiListSchemas handles GET /api/schemas.
func (h *Handler) apiListSchemas(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.schemas))
	for name := range h.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, map[string][]string{"schemas": names})
}

// apiGetSchema handles GET /api/schemas/{name}.
func (h *Handler) apiGetSchema(w http.ResponseWriter, r *http.Request) {
	schema, ok := h.schemas[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, r, "unknown schema", "NOT_FOUND", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(schema)
}
