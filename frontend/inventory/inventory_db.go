package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/ttb"
	"cellarbook/models"
)

// ErrInsufficientStock is returned when a movement would take on hand below zero.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", api.ErrConflict)

const itemViewSelect = `
SELECT ii.*, COALESCE((SELECT SUM(it.qty_delta) FROM inventory_transactions it WHERE it.item_id = ii.id), 0.0) AS on_hand
FROM inventory_items ii`

func finishViews(views []ItemView) []ItemView {
	for i := range views {
		views[i].LowStock = views[i].ReorderLevel > 0 && views[i].OnHand <= views[i].ReorderLevel
	}
	return views
}

func ListItems(ctx context.Context, db *sqlite.DB, category string) ([]ItemView, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]ItemView, error) {
		views := make([]ItemView, 0)
		var err error
		if category != "" {
			err = tx.NewRaw(itemViewSelect+` WHERE ii.category = ? ORDER BY ii.sku COLLATE NOCASE ASC`, category).Scan(ctx, &views)
		} else {
			err = tx.NewRaw(itemViewSelect + ` ORDER BY ii.sku COLLATE NOCASE ASC`).Scan(ctx, &views)
		}
		return finishViews(views), err
	})
}

// LowStock lists items with a reorder level whose on hand has fallen to it.
func LowStock(ctx context.Context, db bun.IDB) ([]ItemView, error) {
	views := make([]ItemView, 0)
	err := db.NewRaw(`SELECT * FROM (` + itemViewSelect + `) WHERE reorder_level > 0 AND on_hand <= reorder_level ORDER BY sku COLLATE NOCASE ASC`).Scan(ctx, &views)
	return finishViews(views), err
}

func LoadItemView(ctx context.Context, tx bun.IDB, id int64) (ItemView, error) {
	views := make([]ItemView, 0, 1)
	if err := tx.NewRaw(itemViewSelect+` WHERE ii.id = ?`, id).Scan(ctx, &views); err != nil {
		return ItemView{}, err
	}
	if len(views) == 0 {
		return ItemView{}, api.NotFound("inventory item")
	}
	return finishViews(views)[0], nil
}

func GetItem(ctx context.Context, db *sqlite.DB, id int64) (ItemView, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (ItemView, error) {
		return LoadItemView(ctx, tx, id)
	})
}

// FindBySKU returns the item with sku, or sql.ErrNoRows.
func FindBySKU(ctx context.Context, tx bun.IDB, sku string) (models.InventoryItem, error) {
	var item models.InventoryItem
	err := tx.NewSelect().Model(&item).Where("ii.sku = ?", strings.TrimSpace(sku)).Scan(ctx)
	return item, err
}

// OnHand sums the ledger for one item.
func OnHand(ctx context.Context, tx bun.IDB, itemID int64) (float64, error) {
	var qty float64
	err := tx.NewRaw(`SELECT COALESCE(SUM(qty_delta), 0.0) FROM inventory_transactions WHERE item_id = ?`, itemID).Scan(ctx, &qty)
	return qty, err
}

// RecordTransaction appends to the stock ledger. On hand never goes negative.
func RecordTransaction(ctx context.Context, tx bun.IDB, actorID, itemID int64, delta float64, reason, reference string) (models.InventoryTransaction, error) {
	if delta == 0 {
		return models.InventoryTransaction{}, api.Invalid("qty_delta", "must not be zero")
	}
	if delta < 0 {
		onHand, err := OnHand(ctx, tx, itemID)
		if err != nil {
			return models.InventoryTransaction{}, err
		}
		if onHand+delta < -1e-9 {
			return models.InventoryTransaction{}, fmt.Errorf("%w: on hand %.2f, requested %.2f", ErrInsufficientStock, onHand, -delta)
		}
	}
	txn := models.InventoryTransaction{
		ItemID:    itemID,
		QtyDelta:  delta,
		Reason:    reason,
		Reference: reference,
		CreatedBy: actorID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := tx.NewInsert().Model(&txn).Exec(ctx)
	return txn, err
}

func normalizeItem(in CreateItemInput) (models.InventoryItem, error) {
	item := models.InventoryItem{
		SKU:          strings.ToUpper(strings.TrimSpace(in.SKU)),
		Name:         strings.TrimSpace(in.Name),
		Category:     strings.ToLower(strings.TrimSpace(in.Category)),
		Unit:         strings.ToLower(strings.TrimSpace(in.Unit)),
		ReorderLevel: in.ReorderLevel,
		UnitSizeML:   in.UnitSizeML,
	}
	if item.Unit == "" {
		item.Unit = "ea"
	}
	switch {
	case item.SKU == "":
		return item, api.Invalid("sku", "sku is required")
	case item.Name == "":
		return item, api.Invalid("name", "name is required")
	case !contains(Categories, item.Category):
		return item, api.Invalid("category", "must be one of %s", strings.Join(Categories, ", "))
	case !contains(Units, item.Unit):
		return item, api.Invalid("unit", "must be one of %s", strings.Join(Units, ", "))
	case item.ReorderLevel < 0:
		return item, api.Invalid("reorder_level", "must be >= 0")
	case item.UnitSizeML < 0:
		return item, api.Invalid("unit_size_ml", "must be >= 0")
	}
	return item, nil
}

// InsertItem stores a new item inside the caller's transaction.
func InsertItem(ctx context.Context, tx bun.Tx, auditSvc *audit.Service, actorID int64, item models.InventoryItem) (models.InventoryItem, error) {
	exists, err := tx.NewSelect().Model((*models.InventoryItem)(nil)).Where("sku = ?", item.SKU).Exists(ctx)
	if err != nil {
		return item, err
	}
	if exists {
		return item, api.Conflict("sku %s already exists", item.SKU)
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	if _, err := tx.NewInsert().Model(&item).Exec(ctx); err != nil {
		return item, err
	}
	return item, auditSvc.WriteID(ctx, tx, actorID, "inventory.create", audit.EntityInventoryItem, item.ID, nil, item)
}

func CreateItem(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in CreateItemInput) (models.InventoryItem, error) {
	item, err := normalizeItem(in)
	if err != nil {
		return item, err
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.InventoryItem, error) {
		return InsertItem(ctx, tx, auditSvc, actorID, item)
	})
}

func UpdateItem(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in UpdateItemInput) (models.InventoryItem, error) {
	if in.ReorderLevel != nil && *in.ReorderLevel < 0 {
		return models.InventoryItem{}, api.Invalid("reorder_level", "must be >= 0")
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.InventoryItem, error) {
		var item models.InventoryItem
		if err := tx.NewSelect().Model(&item).Where("ii.id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return item, api.NotFound("inventory item")
			}
			return item, err
		}
		before := item
		if name := strings.TrimSpace(in.Name); name != "" {
			item.Name = name
		}
		if in.ReorderLevel != nil {
			item.ReorderLevel = *in.ReorderLevel
		}
		item.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&item).Column("name", "reorder_level", "updated_at").WherePK().Exec(ctx); err != nil {
			return item, err
		}
		return item, auditSvc.WriteID(ctx, tx, actorID, "inventory.update", audit.EntityInventoryItem, item.ID, before, item)
	})
}

// Adjust books a manual stock correction or waste. Finished goods linked to a
// batch also move the bottled column of the TTB ledger.
func Adjust(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, itemID int64, in AdjustInput) (models.InventoryTransaction, error) {
	reason := strings.ToLower(strings.TrimSpace(in.Reason))
	if reason == "" {
		reason = ReasonAdjustment
	}
	if reason != ReasonAdjustment && reason != ReasonWaste {
		return models.InventoryTransaction{}, api.Invalid("reason", "must be adjustment or waste")
	}
	if reason == ReasonWaste && in.QtyDelta > 0 {
		return models.InventoryTransaction{}, api.Invalid("qty_delta", "waste must be negative")
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.InventoryTransaction, error) {
		before, err := LoadItemView(ctx, tx, itemID)
		if err != nil {
			return models.InventoryTransaction{}, err
		}
		txn, err := RecordTransaction(ctx, tx, actorID, itemID, in.QtyDelta, reason, strings.TrimSpace(in.Reference))
		if err != nil {
			return txn, err
		}
		if err := recordBottledAdjustment(ctx, tx, before, reason, in.QtyDelta, txn); err != nil {
			return txn, err
		}
		after := map[string]any{"on_hand": before.OnHand + in.QtyDelta, "reason": reason}
		return txn, auditSvc.WriteID(ctx, tx, actorID, "inventory.adjust", audit.EntityInventoryItem, itemID, map[string]any{"on_hand": before.OnHand}, after)
	})
}

func recordBottledAdjustment(ctx context.Context, tx bun.IDB, item ItemView, reason string, delta float64, txn models.InventoryTransaction) error {
	if item.Category != CategoryFinishedGood || item.UnitSizeML <= 0 {
		return nil
	}
	if item.BatchID == nil && item.PackagingRunID == nil {
		return nil
	}
	class, err := saleTaxClass(ctx, tx, item)
	if err != nil {
		return err
	}
	kind := ttb.MovementAdjustmentGain
	switch {
	case reason == ReasonWaste:
		kind = ttb.MovementLoss
	case delta < 0:
		kind = ttb.MovementAdjustmentLoss
	}
	ref := txn.Reference
	if ref == "" {
		ref = reason + " " + item.SKU
	}
	volume := math.Abs(delta) * item.UnitSizeML / 1000
	return batches.RecordMovement(ctx, tx, item.BatchID, kind, ttb.SectionBottled, volume, class, txn.CreatedAt, ref)
}

func ListTransactions(ctx context.Context, tx bun.IDB, itemID int64, limit int) ([]models.InventoryTransaction, error) {
	out := make([]models.InventoryTransaction, 0)
	q := tx.NewSelect().Model(&out).Where("item_id = ?", itemID).OrderExpr("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Scan(ctx)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
