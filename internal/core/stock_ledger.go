package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// StockReason records why a product's stock moved.
type StockReason string

const (
	StockPurchaseReceived   StockReason = "PURCHASE_RECEIVED"
	StockSaleDispatched     StockReason = "SALE_DISPATCHED"
	StockSalesReturnRestock StockReason = "SALES_RETURN_RESTOCKED"
	StockPurchaseReturnSent StockReason = "PURCHASE_RETURN_SENT"
	StockManualAdjustment   StockReason = "MANUAL_ADJUSTMENT"
)

// StockDelta is a signed change to one product's stock.
type StockDelta struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    StockReason     `json:"reason"`
}

// StockLoss is returned goods that were accepted back but not restocked.
// Value is the pre-tax sale value of the goods; Cost is filled in at posting
// from the product's purchase rate.
type StockLoss struct {
	ProductID      int              `json:"product_id"`
	OriginalLineID int              `json:"original_line_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Disposition    StockDisposition `json:"disposition"`
	Value          decimal.Decimal  `json:"value"`
	Cost           decimal.Decimal  `json:"cost"`
}

// StockMovement is one applied delta with the levels either side of it.
type StockMovement struct {
	ID           int             `json:"id"`
	ProductID    int             `json:"product_id"`
	Delta        decimal.Decimal `json:"delta"`
	Before       decimal.Decimal `json:"before"`
	After        decimal.Decimal `json:"after"`
	Reason       StockReason     `json:"reason"`
	DocumentType string          `json:"document_type,omitempty"`
	DocumentID   int             `json:"document_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// StockLedger applies stock deltas. ApplyDeltas is all-or-nothing: if any delta
// would leave a product below zero, nothing is applied.
type StockLedger interface {
	ApplyDeltas(ctx context.Context, deltas []StockDelta) ([]StockMovement, error)
	ApplyDelta(ctx context.Context, productID int, delta decimal.Decimal, reason StockReason) (decimal.Decimal, error)
	Stock(ctx context.Context, productID int) (decimal.Decimal, error)
}

// PlanVoucherDeltas turns a voucher into one delta per product: purchases add,
// sales subtract. Deltas are ordered by product id.
func PlanVoucherDeltas(v *Voucher) []StockDelta {
	reason, sign := StockSaleDispatched, decimal.NewFromInt(-1)
	if v.Kind == VoucherPurchase {
		reason, sign = StockPurchaseReceived, decimal.NewFromInt(1)
	}
	m := newDeltaMerger()
	for _, l := range v.Lines {
		m.add(l.ProductID, l.Quantity.Mul(sign), reason)
	}
	return m.deltas()
}

// PlanReturnDeltas turns a return into stock deltas and losses. A sales return
// of resalable goods adds stock; damaged or expired goods become a StockLoss.
// A purchase return always subtracts, whatever the disposition.
func PlanReturnDeltas(doc *ReturnDocument) ([]StockDelta, []StockLoss) {
	m := newDeltaMerger()
	var losses []StockLoss
	for _, l := range doc.Lines {
		if doc.Kind == PurchaseReturn {
			m.add(l.ProductID, l.Quantity.Neg(), StockPurchaseReturnSent)
			continue
		}
		if l.Disposition.RestoresStock() {
			m.add(l.ProductID, l.Quantity, StockSalesReturnRestock)
			continue
		}
		losses = append(losses, StockLoss{
			ProductID:      l.ProductID,
			OriginalLineID: l.OriginalLineID,
			Quantity:       l.Quantity,
			Disposition:    l.Disposition,
			Value:          l.TaxBase,
		})
	}
	return m.deltas(), losses
}

type deltaMerger struct {
	byProduct map[int]*StockDelta
}

func newDeltaMerger() *deltaMerger {
	return &deltaMerger{byProduct: make(map[int]*StockDelta)}
}

func (m *deltaMerger) add(productID int, qty decimal.Decimal, reason StockReason) {
	if qty.IsZero() {
		return
	}
	if d, ok := m.byProduct[productID]; ok {
		d.Quantity = d.Quantity.Add(qty)
		return
	}
	m.byProduct[productID] = &StockDelta{ProductID: productID, Quantity: qty, Reason: reason}
}

func (m *deltaMerger) deltas() []StockDelta {
	out := make([]StockDelta, 0, len(m.byProduct))
	for _, d := range m.byProduct {
		if !d.Quantity.IsZero() {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// CheckDeltas computes the levels that deltas would produce from current
// without changing anything. Only a reducing delta can fail, with
// ErrInsufficientStock. Products missing from current are ErrInvalidInput.
func CheckDeltas(current map[int]decimal.Decimal, deltas []StockDelta) ([]StockMovement, error) {
	levels := make(map[int]decimal.Decimal, len(deltas))
	movements := make([]StockMovement, 0, len(deltas))
	for _, d := range deltas {
		before, ok := levels[d.ProductID]
		if !ok {
			before, ok = current[d.ProductID]
			if !ok {
				return nil, invalidInput("product_id", "product %d not found", d.ProductID)
			}
		}
		after := before.Add(d.Quantity)
		if d.Quantity.IsNegative() && after.IsNegative() {
			return nil, insufficientStock("quantity",
				"product %d has %s, cannot remove %s", d.ProductID, before, d.Quantity.Neg())
		}
		levels[d.ProductID] = after
		movements = append(movements, StockMovement{
			ProductID: d.ProductID,
			Delta:     d.Quantity,
			Before:    before,
			After:     after,
			Reason:    d.Reason,
		})
	}
	return movements, nil
}

// MemoryStockLedger is an in-process StockLedger. A single mutex serializes all
// adjustments, so every check sees the latest levels.
type MemoryStockLedger struct {
	mu        sync.Mutex
	stock     map[int]decimal.Decimal
	movements []StockMovement
	now       func() time.Time
}

func NewMemoryStockLedger(initial map[int]decimal.Decimal) *MemoryStockLedger {
	stock := make(map[int]decimal.Decimal, len(initial))
	for id, qty := range initial {
		stock[id] = qty
	}
	return &MemoryStockLedger{stock: stock, now: time.Now}
}

func (l *MemoryStockLedger) ApplyDeltas(ctx context.Context, deltas []StockDelta) ([]StockMovement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	movements, err := CheckDeltas(l.stock, deltas)
	if err != nil {
		return nil, err
	}
	for i := range movements {
		mv := &movements[i]
		l.stock[mv.ProductID] = mv.After
		mv.ID = len(l.movements) + 1
		mv.CreatedAt = l.now()
		l.movements = append(l.movements, *mv)
	}
	return movements, nil
}

func (l *MemoryStockLedger) ApplyDelta(ctx context.Context, productID int, delta decimal.Decimal, reason StockReason) (decimal.Decimal, error) {
	movements, err := l.ApplyDeltas(ctx, []StockDelta{{ProductID: productID, Quantity: delta, Reason: reason}})
	if err != nil {
		return decimal.Zero, err
	}
	if len(movements) == 0 {
		return l.Stock(ctx, productID)
	}
	return movements[0].After, nil
}

func (l *MemoryStockLedger) Stock(_ context.Context, productID int) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	qty, ok := l.stock[productID]
	if !ok {
		return decimal.Zero, fmt.Errorf("product %d: %w", productID, ErrInvalidInput)
	}
	return qty, nil
}

// Movements returns a copy of every applied movement, oldest first.
func (l *MemoryStockLedger) Movements() []StockMovement {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]StockMovement, len(l.movements))
	copy(out, l.movements)
	return out
}
