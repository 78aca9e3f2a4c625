package purchasing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"cellarbook/frontend/inventory"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

var ErrOverReceipt = fmt.Errorf("%w: received quantity exceeds ordered", api.ErrValidation)

// ParseUnitCost accepts an empty cost as zero and rejects negative costs.
func ParseUnitCost(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, api.Invalid("unit_cost", "invalid decimal %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, api.Invalid("unit_cost", "must be >= 0")
	}
	return d, nil
}

func lineTotal(qty float64, unitCost string) decimal.Decimal {
	cost, err := decimal.NewFromString(unitCost)
	if err != nil {
		return decimal.Zero
	}
	return cost.Mul(decimal.NewFromFloat(qty))
}

// OrderTotals sums ordered and received value of the lines, rounded to cents.
func OrderTotals(lines []models.PurchaseOrderLine) (ordered, received decimal.Decimal) {
	ordered, received = decimal.Zero, decimal.Zero
	for _, l := range lines {
		ordered = ordered.Add(lineTotal(l.QtyOrdered, l.UnitCost))
		received = received.Add(lineTotal(l.QtyReceived, l.UnitCost))
	}
	return ordered.Round(2), received.Round(2)
}

func loadOrder(ctx context.Context, tx bun.IDB, id int64) (models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := tx.NewSelect().Model(&po).
		Relation("Vendor").
		Relation("Lines", func(q *bun.SelectQuery) *bun.SelectQuery { return q.OrderExpr("pol.id ASC") }).
		Where("po.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return po, api.NotFound("purchase order")
	}
	return po, err
}

func buildOrderView(ctx context.Context, tx bun.IDB, po models.PurchaseOrder) (OrderView, error) {
	view := OrderView{PurchaseOrder: po, LineViews: make([]LineView, 0, len(po.Lines))}
	for _, l := range po.Lines {
		lv := LineView{PurchaseOrderLine: l, Outstanding: l.QtyOrdered - l.QtyReceived}
		var item models.InventoryItem
		if err := tx.NewSelect().Model(&item).Column("sku", "name", "unit").Where("ii.id = ?", l.ItemID).Scan(ctx); err != nil {
			return view, err
		}
		lv.SKU, lv.ItemName, lv.Unit = item.SKU, item.Name, item.Unit
		lv.LineTotal = lineTotal(l.QtyOrdered, l.UnitCost).StringFixed(2)
		view.LineViews = append(view.LineViews, lv)
	}
	ordered, received := OrderTotals(po.Lines)
	view.Total, view.Received = ordered.StringFixed(2), received.StringFixed(2)
	return view, nil
}

func ListOrders(ctx context.Context, db *sqlite.DB, status string) ([]OrderView, error) {
	if status != "" && !contains(Statuses, status) {
		return nil, api.Invalid("status", "unknown status %q", status)
	}
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]OrderView, error) {
		var orders []models.PurchaseOrder
		q := tx.NewSelect().Model(&orders).Relation("Vendor").Relation("Lines").OrderExpr("po.id DESC")
		if status != "" {
			q = q.Where("po.status = ?", status)
		}
		if err := q.Scan(ctx); err != nil {
			return nil, err
		}
		out := make([]OrderView, 0, len(orders))
		for _, po := range orders {
			ordered, received := OrderTotals(po.Lines)
			out = append(out, OrderView{PurchaseOrder: po, Total: ordered.StringFixed(2), Received: received.StringFixed(2)})
		}
		return out, nil
	})
}

func GetOrder(ctx context.Context, db *sqlite.DB, id int64) (OrderView, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (OrderView, error) {
		po, err := loadOrder(ctx, tx, id)
		if err != nil {
			return OrderView{}, err
		}
		return buildOrderView(ctx, tx, po)
	})
}

// nextPONumber numbers orders per calendar year: PO-2026-0001.
func nextPONumber(ctx context.Context, tx bun.IDB, at time.Time) (string, error) {
	prefix := fmt.Sprintf("PO-%d-", at.Year())
	var count int
	if err := tx.NewRaw(`SELECT COUNT(*) FROM purchase_orders WHERE po_number LIKE ?`, prefix+"%").Scan(ctx, &count); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// CreateOrder stores a draft purchase order with its lines.
func CreateOrder(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in CreateOrderInput) (OrderView, error) {
	if len(in.Lines) == 0 {
		return OrderView{}, api.Invalid("lines", "at least one line is required")
	}
	costs := make([]decimal.Decimal, len(in.Lines))
	for i, l := range in.Lines {
		if l.ItemID <= 0 {
			return OrderView{}, api.Invalid("lines", "line %d: item_id is required", i+1)
		}
		if l.QtyOrdered <= 0 {
			return OrderView{}, api.Invalid("lines", "line %d: qty_ordered must be > 0", i+1)
		}
		cost, err := ParseUnitCost(l.UnitCost)
		if err != nil {
			return OrderView{}, err
		}
		costs[i] = cost
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (OrderView, error) {
		vendor, err := loadVendor(ctx, tx, in.VendorID)
		if err != nil {
			return OrderView{}, err
		}
		if !vendor.Active {
			return OrderView{}, api.Invalid("vendor_id", "vendor %s is inactive", vendor.Name)
		}
		now := time.Now().UTC()
		number, err := nextPONumber(ctx, tx, now)
		if err != nil {
			return OrderView{}, err
		}
		po := models.PurchaseOrder{
			PONumber:   number,
			VendorID:   vendor.ID,
			Status:     StatusDraft,
			ExpectedAt: in.ExpectedAt,
			Notes:      strings.TrimSpace(in.Notes),
			CreatedBy:  actorID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := tx.NewInsert().Model(&po).Exec(ctx); err != nil {
			return OrderView{}, err
		}
		for i, l := range in.Lines {
			if _, err := inventory.LoadItemView(ctx, tx, l.ItemID); err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return OrderView{}, api.Invalid("lines", "line %d: item %d not found", i+1, l.ItemID)
				}
				return OrderView{}, err
			}
			line := models.PurchaseOrderLine{
				PurchaseOrderID: po.ID,
				ItemID:          l.ItemID,
				QtyOrdered:      l.QtyOrdered,
				UnitCost:        costs[i].String(),
			}
			if _, err := tx.NewInsert().Model(&line).Exec(ctx); err != nil {
				return OrderView{}, err
			}
		}
		po, err = loadOrder(ctx, tx, po.ID)
		if err != nil {
			return OrderView{}, err
		}
		if err := auditSvc.WriteID(ctx, tx, actorID, "po.create", audit.EntityPurchaseOrder, po.ID, nil, po); err != nil {
			return OrderView{}, err
		}
		return buildOrderView(ctx, tx, po)
	})
}

func setStatus(ctx context.Context, tx bun.Tx, auditSvc *audit.Service, actorID int64, po *models.PurchaseOrder, status, action string) error {
	before := *po
	po.Status = status
	po.UpdatedAt = time.Now().UTC()
	if status == StatusSubmitted {
		at := po.UpdatedAt
		po.OrderedAt = &at
	}
	if _, err := tx.NewUpdate().Model(po).Column("status", "ordered_at", "updated_at").WherePK().Exec(ctx); err != nil {
		return err
	}
	return auditSvc.WriteID(ctx, tx, actorID, action, audit.EntityPurchaseOrder, po.ID, before, *po)
}

func SubmitOrder(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64) (OrderView, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (OrderView, error) {
		po, err := loadOrder(ctx, tx, id)
		if err != nil {
			return OrderView{}, err
		}
		if po.Status != StatusDraft {
			return OrderView{}, api.Conflict("purchase order %s is %s", po.PONumber, po.Status)
		}
		if err := setStatus(ctx, tx, auditSvc, actorID, &po, StatusSubmitted, "po.submit"); err != nil {
			return OrderView{}, err
		}
		return buildOrderView(ctx, tx, po)
	})
}

// ReceiveOrder books received quantities. Each received line adds a receipt
// to the item's stock ledger. A line can never receive more than was ordered.
func ReceiveOrder(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in ReceiveInput) (OrderView, error) {
	if len(in.Lines) == 0 {
		return OrderView{}, api.Invalid("lines", "at least one line is required")
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (OrderView, error) {
		po, err := loadOrder(ctx, tx, id)
		if err != nil {
			return OrderView{}, err
		}
		if po.Status != StatusSubmitted && po.Status != StatusPartiallyReceived {
			return OrderView{}, api.Conflict("purchase order %s is %s and cannot be received", po.PONumber, po.Status)
		}
		before := po
		before.Lines = append([]models.PurchaseOrderLine(nil), po.Lines...)
		byID := make(map[int64]int, len(po.Lines))
		for i, l := range po.Lines {
			byID[l.ID] = i
		}
		reference := strings.TrimSpace(in.Reference)
		if reference == "" {
			reference = po.PONumber
		}

		for _, rl := range in.Lines {
			idx, ok := byID[rl.LineID]
			if !ok {
				return OrderView{}, api.Invalid("lines", "line %d is not on %s", rl.LineID, po.PONumber)
			}
			if rl.Qty <= 0 {
				return OrderView{}, api.Invalid("lines", "line %d: qty must be > 0", rl.LineID)
			}
			line := &po.Lines[idx]
			if line.QtyReceived+rl.Qty > line.QtyOrdered+1e-9 {
				return OrderView{}, fmt.Errorf("%w: line %d ordered %.2f, received %.2f, receiving %.2f",
					ErrOverReceipt, line.ID, line.QtyOrdered, line.QtyReceived, rl.Qty)
			}
			line.QtyReceived += rl.Qty
			if _, err := tx.NewUpdate().Model(line).Column("qty_received").WherePK().Exec(ctx); err != nil {
				return OrderView{}, err
			}
			if _, err := inventory.RecordTransaction(ctx, tx, actorID, line.ItemID, rl.Qty, inventory.ReasonReceipt, reference); err != nil {
				return OrderView{}, err
			}
		}

		status := StatusReceived
		for _, l := range po.Lines {
			if l.QtyReceived < l.QtyOrdered-1e-9 {
				status = StatusPartiallyReceived
				break
			}
		}
		po.Status = status
		po.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&po).Column("status", "updated_at").WherePK().Exec(ctx); err != nil {
			return OrderView{}, err
		}
		if err := auditSvc.WriteID(ctx, tx, actorID, "po.receive", audit.EntityPurchaseOrder, po.ID, before, po); err != nil {
			return OrderView{}, err
		}
		return buildOrderView(ctx, tx, po)
	})
}

// CancelOrder is only allowed while nothing has been received.
func CancelOrder(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64) (OrderView, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (OrderView, error) {
		po, err := loadOrder(ctx, tx, id)
		if err != nil {
			return OrderView{}, err
		}
		if po.Status != StatusDraft && po.Status != StatusSubmitted {
			return OrderView{}, api.Conflict("purchase order %s is %s and cannot be cancelled", po.PONumber, po.Status)
		}
		for _, l := range po.Lines {
			if l.QtyReceived > 0 {
				return OrderView{}, api.Conflict("purchase order %s has received lines", po.PONumber)
			}
		}
		if err := setStatus(ctx, tx, auditSvc, actorID, &po, StatusCancelled, "po.cancel"); err != nil {
			return OrderView{}, err
		}
		return buildOrderView(ctx, tx, po)
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
