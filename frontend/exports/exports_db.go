package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/uptrace/bun"

	"cellarbook/frontend/inventory"
	"cellarbook/infrastructure/sqlite"
)

// Write streams the CSV for kind to w.
func Write(ctx context.Context, db *sqlite.DB, w io.Writer, kind string) error {
	switch kind {
	case KindBatches:
		return writeBatchesCSV(ctx, db, w)
	case KindPackaging:
		return writePackagingCSV(ctx, db, w)
	case KindInventory:
		return writeInventoryCSV(ctx, db, w)
	}
	return fmt.Errorf("unknown export %q", kind)
}

func writeBatchesCSV(ctx context.Context, db *sqlite.DB, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"code", "name", "product_type", "status", "vessel", "volume_l", "original_gravity", "final_gravity", "abv", "co2_volumes", "tax_class", "started_at", "packaged_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	type row struct {
		Code            string   `bun:"code"`
		Name            string   `bun:"name"`
		ProductType     string   `bun:"product_type"`
		Status          string   `bun:"status"`
		Vessel          string   `bun:"vessel"`
		VolumeL         float64  `bun:"volume_l"`
		OriginalGravity *float64 `bun:"original_gravity"`
		FinalGravity    *float64 `bun:"final_gravity"`
		ABV             *float64 `bun:"abv"`
		CO2Volumes      float64  `bun:"co2_volumes"`
		TaxClass        string   `bun:"tax_class"`
		StartedAt       string   `bun:"started_at"`
		PackagedAt      string   `bun:"packaged_at"`
	}

	rows := make([]row, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT b.code, b.name, b.product_type, b.status,
       COALESCE(ve.name, '') AS vessel,
       b.volume_l, b.original_gravity, b.final_gravity, b.abv, b.co2_volumes, b.tax_class,
       COALESCE(strftime('%d/%m/%Y', b.started_at), '') AS started_at,
       COALESCE(strftime('%d/%m/%Y', b.packaged_at), '') AS packaged_at
FROM batches b
LEFT JOIN vessels ve ON ve.id = b.vessel_id
ORDER BY b.code ASC`).Scan(ctx, &rows)
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.Code,
			r.Name,
			r.ProductType,
			r.Status,
			r.Vessel,
			formatFloat(r.VolumeL, 2),
			formatOptional(r.OriginalGravity, 3),
			formatOptional(r.FinalGravity, 3),
			formatOptional(r.ABV, 2),
			formatFloat(r.CO2Volumes, 2),
			r.TaxClass,
			r.StartedAt,
			r.PackagedAt,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

func writePackagingCSV(ctx context.Context, db *sqlite.DB, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"lot_code", "batch_code", "package_type", "unit_size_ml", "units_produced", "volume_taken_l", "loss_l", "loss_pct", "tax_class", "status", "packaged_at"}); err != nil {
		return err
	}

	type row struct {
		LotCode       string  `bun:"lot_code"`
		BatchCode     string  `bun:"batch_code"`
		PackageType   string  `bun:"package_type"`
		UnitSizeML    float64 `bun:"unit_size_ml"`
		UnitsProduced int64   `bun:"units_produced"`
		VolumeTakenL  float64 `bun:"volume_taken_l"`
		LossL         float64 `bun:"loss_l"`
		LossPct       float64 `bun:"loss_pct"`
		TaxClass      string  `bun:"tax_class"`
		Status        string  `bun:"status"`
		PackagedAt    string  `bun:"packaged_at"`
	}

	rows := make([]row, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT pkr.lot_code, b.code AS batch_code, pkr.package_type, pkr.unit_size_ml, pkr.units_produced,
       pkr.volume_taken_l, pkr.loss_l, pkr.loss_pct, pkr.tax_class, pkr.status,
       strftime('%d/%m/%Y %H:%M', pkr.packaged_at) AS packaged_at
FROM packaging_runs pkr
JOIN batches b ON b.id = pkr.batch_id
ORDER BY pkr.packaged_at ASC, pkr.id ASC`).Scan(ctx, &rows)
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err := writer.Write([]string{
			r.LotCode, r.BatchCode, r.PackageType, formatFloat(r.UnitSizeML, 0), strconv.FormatInt(r.UnitsProduced, 10),
			formatFloat(r.VolumeTakenL, 2), formatFloat(r.LossL, 3), formatFloat(r.LossPct, 2), r.TaxClass, r.Status, r.PackagedAt,
		}); err != nil {
			return err
		}
	}
	return writer.Error()
}

func writeInventoryCSV(ctx context.Context, db *sqlite.DB, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"sku", "name", "category", "unit", "on_hand", "reorder_level", "low_stock", "volume_l"}); err != nil {
		return err
	}

	items, err := inventory.ListItems(ctx, db, "")
	if err != nil {
		return err
	}
	for _, it := range items {
		volume := ""
		if it.Category == inventory.CategoryFinishedGood && it.UnitSizeML > 0 {
			volume = formatFloat(it.OnHand*it.UnitSizeML/1000, 2)
		}
		if err := writer.Write([]string{
			it.SKU, it.Name, it.Category, it.Unit, formatFloat(it.OnHand, 2), formatFloat(it.ReorderLevel, 2),
			strconv.FormatBool(it.LowStock), volume,
		}); err != nil {
			return err
		}
	}
	return writer.Error()
}

func recordExportRun(ctx context.Context, db *sqlite.DB, userID *int64, exportType string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var uid any
		if userID != nil {
			uid = *userID
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO export_runs (user_id, export_type, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, uid, exportType)
		return err
	})
}

// ListRuns returns the most recent exports first.
func ListRuns(ctx context.Context, db *sqlite.DB, limit int) ([]ExportRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	runs := make([]ExportRun, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT er.id, er.user_id, COALESCE(u.username, '') AS username, er.export_type,
       strftime('%d/%m/%Y %H:%M', er.created_at) AS created_at
FROM export_runs er
LEFT JOIN users u ON u.id = er.user_id
ORDER BY er.id DESC
LIMIT ?`, limit).Scan(ctx, &runs)
	})
	return runs, err
}

func formatFloat(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}

func formatOptional(v *float64, places int) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, places)
}
