package packaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/inventory"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/ttb"
	"cellarbook/models"
)

func loadRun(ctx context.Context, tx bun.IDB, id int64) (models.PackagingRun, error) {
	var run models.PackagingRun
	if err := tx.NewSelect().Model(&run).Where("pkr.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, api.NotFound("packaging run")
		}
		return run, err
	}
	return run, nil
}

func ListRuns(ctx context.Context, db *sqlite.DB, batchID int64) ([]models.PackagingRun, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]models.PackagingRun, error) {
		out := make([]models.PackagingRun, 0)
		q := tx.NewSelect().Model(&out).OrderExpr("pkr.packaged_at DESC, pkr.id DESC")
		if batchID > 0 {
			q = q.Where("pkr.batch_id = ?", batchID)
		}
		return out, q.Scan(ctx)
	})
}

// GetRun loads the run view model with derived volumes and fill statistics.
func GetRun(ctx context.Context, db *sqlite.DB, id int64) (RunView, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (RunView, error) {
		var view RunView
		run, err := loadRun(ctx, tx, id)
		if err != nil {
			return view, err
		}
		view.PackagingRun = run
		view.PackagedL = float64(run.UnitsProduced) * run.UnitSizeML / 1000

		b, err := batches.LoadBatch(ctx, tx, run.BatchID)
		if err != nil {
			return view, err
		}
		view.BatchCode, view.BatchName = b.Code, b.Name

		var itemID int64
		err = tx.NewRaw(`SELECT id FROM inventory_items WHERE packaging_run_id = ? ORDER BY id LIMIT 1`, run.ID).Scan(ctx, &itemID)
		switch {
		case err == nil:
			view.ItemID = &itemID
		case !errors.Is(err, sql.ErrNoRows):
			return view, err
		}

		view.FillChecks = make([]models.FillCheck, 0)
		if err := tx.NewSelect().Model(&view.FillChecks).Where("packaging_run_id = ?", run.ID).OrderExpr("checked_at ASC, id ASC").Scan(ctx); err != nil {
			return view, err
		}
		view.FillStats = ComputeFillStats(view.FillChecks)
		return view, nil
	})
}

// CreateRun packages volume from a batch. The batch volume is drawn down, the
// bottling and loss enter the bulk ledger and the units land on the finished
// good's stock.
func CreateRun(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in CreateRunInput) (models.PackagingRun, error) {
	pkg := strings.ToLower(strings.TrimSpace(in.PackageType))
	if !contains(PackageTypes, pkg) {
		return models.PackagingRun{}, api.Invalid("package_type", "must be one of %s", strings.Join(PackageTypes, ", "))
	}
	packagedL, lossL, lossPct, err := ComputeLoss(in.UnitsProduced, in.UnitSizeML, in.VolumeTakenL)
	if err != nil {
		return models.PackagingRun{}, err
	}

	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.PackagingRun, error) {
		b, err := batches.LoadBatch(ctx, tx, in.BatchID)
		if err != nil {
			return models.PackagingRun{}, err
		}
		switch b.Status {
		case batches.StatusFermenting, batches.StatusAging, batches.StatusConditioning, batches.StatusPackaged:
		default:
			return models.PackagingRun{}, api.Conflict("batch %s is %s and cannot be packaged", b.Code, b.Status)
		}
		if in.VolumeTakenL > b.VolumeL+1e-9 {
			return models.PackagingRun{}, api.Invalid("volume_taken_l", "batch %s holds %.2f L, %.2f L requested", b.Code, b.VolumeL, in.VolumeTakenL)
		}
		if in.CarbonationOperationID != nil {
			var opBatch int64
			err := tx.NewRaw(`SELECT batch_id FROM carbonation_operations WHERE id = ?`, *in.CarbonationOperationID).Scan(ctx, &opBatch)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && opBatch != b.ID) {
				return models.PackagingRun{}, api.Invalid("carbonation_operation_id", "operation does not belong to batch %s", b.Code)
			}
			if err != nil {
				return models.PackagingRun{}, err
			}
		}

		now := time.Now().UTC()
		packagedAt := now
		if in.PackagedAt != nil {
			packagedAt = in.PackagedAt.UTC()
		}
		lot, err := nextLotCode(ctx, tx, b.Code, packagedAt)
		if err != nil {
			return models.PackagingRun{}, err
		}

		run := models.PackagingRun{
			BatchID:                b.ID,
			CarbonationOperationID: in.CarbonationOperationID,
			PackageType:            pkg,
			UnitSizeML:             in.UnitSizeML,
			UnitsProduced:          in.UnitsProduced,
			VolumeTakenL:           in.VolumeTakenL,
			LossL:                  lossL,
			LossPct:                lossPct,
			LotCode:                lot,
			TaxClass:               b.TaxClass,
			Status:                 StatusCompleted,
			Notes:                  in.Notes,
			PackagedAt:             packagedAt,
			CreatedBy:              actorID,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if _, err := tx.NewInsert().Model(&run).Exec(ctx); err != nil {
			return run, err
		}

		batchBefore := b
		b.VolumeL -= in.VolumeTakenL
		if b.VolumeL < 1e-9 {
			b.VolumeL = 0
		}
		if b.PackagedAt == nil {
			b.PackagedAt = &packagedAt
		}
		if b.VolumeL == 0 && b.Status == batches.StatusConditioning {
			b.Status = batches.StatusPackaged
		}
		b.UpdatedAt = now
		if _, err := tx.NewUpdate().Model(&b).Column("volume_l", "status", "packaged_at", "updated_at").WherePK().Exec(ctx); err != nil {
			return run, err
		}
		if err := auditSvc.WriteID(ctx, tx, actorID, "batch.packaged", audit.EntityBatch, b.ID, batchBefore, b); err != nil {
			return run, err
		}

		for _, mv := range []struct {
			kind    ttb.MovementType
			section ttb.Section
			volume  float64
		}{
			{ttb.MovementBottled, ttb.SectionBulk, packagedL},
			{ttb.MovementBottled, ttb.SectionBottled, packagedL},
			{ttb.MovementLoss, ttb.SectionBulk, lossL},
		} {
			if err := batches.RecordMovement(ctx, tx, &b.ID, mv.kind, mv.section, mv.volume, run.TaxClass, packagedAt, lot); err != nil {
				return run, err
			}
		}

		item, err := finishedGoodFor(ctx, tx, auditSvc, actorID, b, run, in.SKU)
		if err != nil {
			return run, err
		}
		if _, err := inventory.RecordTransaction(ctx, tx, actorID, item.ID, float64(run.UnitsProduced), inventory.ReasonPackaging, lot); err != nil {
			return run, err
		}
		return run, auditSvc.WriteID(ctx, tx, actorID, "packaging.create", audit.EntityPackagingRun, run.ID, nil, run)
	})
}

// nextLotCode numbers runs of the same batch on the same day from 1.
func nextLotCode(ctx context.Context, tx bun.IDB, batchCode string, packagedAt time.Time) (string, error) {
	prefix := lotPrefix(batchCode, packagedAt)
	var count int
	if err := tx.NewRaw(`SELECT COUNT(*) FROM packaging_runs WHERE substr(lot_code, 1, ?) = ?`, utf8.RuneCountInString(prefix), prefix).Scan(ctx, &count); err != nil {
		return "", err
	}
	return LotCode(batchCode, packagedAt, count+1), nil
}

// finishedGoodFor finds or creates the finished good item for a run and
// points it at the latest run.
func finishedGoodFor(ctx context.Context, tx bun.Tx, auditSvc *audit.Service, actorID int64, b models.Batch, run models.PackagingRun, sku string) (models.InventoryItem, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		sku = DefaultSKU(b.Code, run.PackageType, run.UnitSizeML)
	}
	item, err := inventory.FindBySKU(ctx, tx, sku)
	switch {
	case err == nil:
		if item.Category != inventory.CategoryFinishedGood {
			return item, api.Invalid("sku", "sku %s is not a finished good", sku)
		}
		if item.UnitSizeML != run.UnitSizeML {
			return item, api.Invalid("sku", "sku %s holds %.0f mL units", sku, item.UnitSizeML)
		}
		item.BatchID = &b.ID
		item.PackagingRunID = &run.ID
		item.UpdatedAt = time.Now().UTC()
		_, err := tx.NewUpdate().Model(&item).Column("batch_id", "packaging_run_id", "updated_at").WherePK().Exec(ctx)
		return item, err
	case errors.Is(err, sql.ErrNoRows):
		return inventory.InsertItem(ctx, tx, auditSvc, actorID, models.InventoryItem{
			SKU:            sku,
			Name:           fmt.Sprintf("%s %s %.0f mL", b.Name, run.PackageType, run.UnitSizeML),
			Category:       inventory.CategoryFinishedGood,
			Unit:           "ea",
			BatchID:        &b.ID,
			PackagingRunID: &run.ID,
			UnitSizeML:     run.UnitSizeML,
		})
	default:
		return item, err
	}
}

// VoidRun reverses a run: the batch gets its volume back, the ledger entries
// are removed and the units leave stock. Runs dated in or before a period
// that already has a TTB report cannot be voided, since every later report
// carries them in its beginning inventory.
func VoidRun(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64) (models.PackagingRun, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.PackagingRun, error) {
		run, err := loadRun(ctx, tx, id)
		if err != nil {
			return run, err
		}
		if run.Status == StatusVoided {
			return run, api.Conflict("packaging run %s is already voided", run.LotCode)
		}
		var filed models.TTBReport
		err = tx.NewSelect().Model(&filed).
			Column("period_year", "period_month").
			Where("period_year * 100 + period_month >= ?", run.PackagedAt.Year()*100+int(run.PackagedAt.Month())).
			OrderExpr("period_year ASC, period_month ASC").
			Limit(1).Scan(ctx)
		switch {
		case err == nil:
			return run, api.Conflict("a TTB report for %04d-%02d already includes %s", filed.PeriodYear, filed.PeriodMonth, run.PackagedAt.Format("2006-01"))
		case !errors.Is(err, sql.ErrNoRows):
			return run, err
		}

		var itemID int64
		if err := tx.NewRaw(`SELECT item_id FROM inventory_transactions WHERE reason = 'packaging' AND reference = ? LIMIT 1`, run.LotCode).Scan(ctx, &itemID); err != nil {
			return run, err
		}
		if _, err := inventory.RecordTransaction(ctx, tx, actorID, itemID, -float64(run.UnitsProduced), inventory.ReasonVoid, run.LotCode); err != nil {
			return run, err
		}
		if _, err := tx.NewDelete().Model((*models.BulkMovement)(nil)).Where("reference = ?", run.LotCode).Exec(ctx); err != nil {
			return run, err
		}

		b, err := batches.LoadBatch(ctx, tx, run.BatchID)
		if err != nil {
			return run, err
		}
		batchBefore := b
		if b.VolumeL == 0 && b.Status == batches.StatusPackaged {
			b.Status = batches.StatusConditioning
		}
		b.VolumeL += run.VolumeTakenL
		if err := restoreBatchPackagedAt(ctx, tx, &b, run.ID); err != nil {
			return run, err
		}
		b.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&b).Column("volume_l", "status", "packaged_at", "updated_at").WherePK().Exec(ctx); err != nil {
			return run, err
		}
		if err := auditSvc.WriteID(ctx, tx, actorID, "batch.packaging_voided", audit.EntityBatch, b.ID, batchBefore, b); err != nil {
			return run, err
		}

		before := run
		run.Status = StatusVoided
		run.UpdatedAt = b.UpdatedAt
		if _, err := tx.NewUpdate().Model(&run).Column("status", "updated_at").WherePK().Exec(ctx); err != nil {
			return run, err
		}
		return run, auditSvc.WriteID(ctx, tx, actorID, "packaging.void", audit.EntityPackagingRun, run.ID, before, run)
	})
}

// restoreBatchPackagedAt points packaged_at at the earliest remaining run of
// the batch, or clears it when the voided run was the only one.
func restoreBatchPackagedAt(ctx context.Context, tx bun.IDB, b *models.Batch, voidedRunID int64) error {
	var earliest models.PackagingRun
	err := tx.NewSelect().Model(&earliest).
		Where("batch_id = ?", b.ID).
		Where("id <> ?", voidedRunID).
		Where("status = ?", StatusCompleted).
		OrderExpr("packaged_at ASC").
		Limit(1).Scan(ctx)
	switch {
	case err == nil:
		at := earliest.PackagedAt
		b.PackagedAt = &at
	case errors.Is(err, sql.ErrNoRows):
		if b.Status != batches.StatusPackaged && b.Status != batches.StatusArchived {
			b.PackagedAt = nil
		}
	default:
		return err
	}
	return nil
}

// AddFillCheck records a fill measurement against a run.
func AddFillCheck(ctx context.Context, db *sqlite.DB, runID int64, in FillCheckInput) (models.FillCheck, error) {
	if in.ActualML <= 0 {
		return models.FillCheck{}, api.Invalid("actual_ml", "must be > 0")
	}
	tolerance := DefaultFillTolerancePct
	if in.TolerancePct != nil {
		if *in.TolerancePct < 0 {
			return models.FillCheck{}, api.Invalid("tolerance_pct", "must be >= 0")
		}
		tolerance = *in.TolerancePct
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.FillCheck, error) {
		run, err := loadRun(ctx, tx, runID)
		if err != nil {
			return models.FillCheck{}, err
		}
		if run.Status == StatusVoided {
			return models.FillCheck{}, api.Conflict("packaging run %s is voided", run.LotCode)
		}
		target := run.UnitSizeML
		if in.TargetML != nil {
			if *in.TargetML <= 0 {
				return models.FillCheck{}, api.Invalid("target_ml", "must be > 0")
			}
			target = *in.TargetML
		}
		varML, varPct, within := FillVariance(target, in.ActualML, tolerance)
		fc := models.FillCheck{
			PackagingRunID:  run.ID,
			TargetML:        target,
			ActualML:        in.ActualML,
			VarianceML:      varML,
			VariancePct:     varPct,
			WithinTolerance: within,
			CheckedAt:       time.Now().UTC(),
		}
		_, err = tx.NewInsert().Model(&fc).Exec(ctx)
		return fc, err
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
