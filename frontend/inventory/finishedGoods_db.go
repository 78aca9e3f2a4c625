package inventory

import (
	"context"
	"database/sql"
	"errors"
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

const recentTransactions = 20

// GetFinishedGoodDetails loads a finished good with its packaging run, batch,
// on hand and latest ledger entries.
func GetFinishedGoodDetails(ctx context.Context, db *sqlite.DB, id int64) (FinishedGoodDetails, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (FinishedGoodDetails, error) {
		var d FinishedGoodDetails
		item, err := LoadItemView(ctx, tx, id)
		if err != nil {
			return d, err
		}
		if item.Category != CategoryFinishedGood {
			return d, api.NotFound("finished good")
		}
		d.Item = item
		d.OnHandVolumeL = item.OnHand * item.UnitSizeML / 1000

		if item.PackagingRunID != nil {
			var run models.PackagingRun
			err := tx.NewSelect().Model(&run).Where("pkr.id = ?", *item.PackagingRunID).Scan(ctx)
			switch {
			case err == nil:
				d.PackagingRun = &run
			case !errors.Is(err, sql.ErrNoRows):
				return d, err
			}
		}
		if item.BatchID != nil {
			b, err := batches.LoadBatch(ctx, tx, *item.BatchID)
			switch {
			case err == nil:
				d.Batch = &b
			case !errors.Is(err, api.ErrNotFound):
				return d, err
			}
		}
		d.Transactions, err = ListTransactions(ctx, tx, id, recentTransactions)
		return d, err
	})
}

// RecordSale removes finished goods taxpaid. The volume leaves the bottled
// section of the bulk ledger in the tax class it was packaged under.
func RecordSale(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, itemID int64, in SaleInput) (models.InventoryTransaction, error) {
	if in.Units <= 0 {
		return models.InventoryTransaction{}, api.Invalid("units", "must be > 0")
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.InventoryTransaction, error) {
		item, err := LoadItemView(ctx, tx, itemID)
		if err != nil {
			return models.InventoryTransaction{}, err
		}
		if item.Category != CategoryFinishedGood {
			return models.InventoryTransaction{}, api.Invalid("item_id", "only finished goods can be sold")
		}
		if item.UnitSizeML <= 0 {
			return models.InventoryTransaction{}, api.Invalid("item_id", "item %s has no unit size", item.SKU)
		}
		class, err := saleTaxClass(ctx, tx, item)
		if err != nil {
			return models.InventoryTransaction{}, err
		}

		ref := strings.TrimSpace(in.Reference)
		if ref == "" {
			ref = "sale " + item.SKU
		}
		txn, err := RecordTransaction(ctx, tx, actorID, itemID, -float64(in.Units), ReasonSale, ref)
		if err != nil {
			return txn, err
		}
		soldAt := time.Now().UTC()
		if in.SoldAt != nil {
			soldAt = in.SoldAt.UTC()
		}
		volume := float64(in.Units) * item.UnitSizeML / 1000
		if err := batches.RecordMovement(ctx, tx, item.BatchID, ttb.MovementRemovedTaxpaid, ttb.SectionBottled, volume, class, soldAt, ref); err != nil {
			return txn, err
		}
		after := map[string]any{"units": in.Units, "volume_l": volume, "tax_class": class}
		return txn, auditSvc.WriteID(ctx, tx, actorID, "inventory.sale", audit.EntityInventoryItem, itemID, nil, after)
	})
}

func saleTaxClass(ctx context.Context, tx bun.IDB, item ItemView) (string, error) {
	if item.PackagingRunID != nil {
		var class string
		err := tx.NewRaw(`SELECT tax_class FROM packaging_runs WHERE id = ?`, *item.PackagingRunID).Scan(ctx, &class)
		if err == nil && class != "" {
			return class, nil
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	}
	if item.BatchID != nil {
		b, err := batches.LoadBatch(ctx, tx, *item.BatchID)
		if err != nil {
			return "", err
		}
		return b.TaxClass, nil
	}
	return "", api.Invalid("item_id", "item %s is not linked to a batch", item.SKU)
}
