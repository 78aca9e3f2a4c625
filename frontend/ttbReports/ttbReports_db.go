package ttbreports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/inventory"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/ttb"
	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

// LoadMovements reads the bulk ledger up to end (exclusive).
func LoadMovements(ctx context.Context, tx bun.IDB, end time.Time) ([]ttb.Movement, error) {
	var rows []models.BulkMovement
	if err := tx.NewSelect().Model(&rows).
		Where("mv.occurred_at < ?", end).
		OrderExpr("mv.occurred_at ASC, mv.id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]ttb.Movement, 0, len(rows))
	for _, r := range rows {
		kind, err := ttb.ParseMovementType(r.MovementType)
		if err != nil {
			return nil, fmt.Errorf("movement %d: %w", r.ID, err)
		}
		class, err := ttb.ParseTaxClass(r.TaxClass)
		if err != nil {
			return nil, fmt.Errorf("movement %d: %w", r.ID, err)
		}
		out = append(out, ttb.Movement{
			OccurredAt: r.OccurredAt,
			Type:       kind,
			Section:    ttb.Section(r.Section),
			TaxClass:   class,
			VolumeL:    r.VolumeL,
		})
	}
	return out, nil
}

// PriorRemovalsGallons is the volume removed taxpaid in the calendar year
// before the period starts.
func PriorRemovalsGallons(ctx context.Context, tx bun.IDB, period ttb.Period) (float64, error) {
	var liters float64
	err := tx.NewRaw(`
		SELECT COALESCE(SUM(volume_l), 0.0) FROM bulk_movements
		WHERE movement_type = ? AND occurred_at >= ? AND occurred_at < ?`,
		string(ttb.MovementRemovedTaxpaid), period.YearStart(), period.Start(),
	).Scan(ctx, &liters)
	if err != nil {
		return 0, err
	}
	return units.LitersToGallons(liters), nil
}

// PhysicalOnHand totals what is in the cellar now: bonded batch volume for
// the bulk section and finished goods stock for the bottled section.
func PhysicalOnHand(ctx context.Context, tx bun.IDB) (map[ttb.Section]map[ttb.TaxClass]float64, error) {
	out := map[ttb.Section]map[ttb.TaxClass]float64{
		ttb.SectionBulk:    {},
		ttb.SectionBottled: {},
	}
	for _, c := range ttb.AllClasses {
		out[ttb.SectionBulk][c] = 0
		out[ttb.SectionBottled][c] = 0
	}

	var bulk []struct {
		TaxClass string  `bun:"tax_class"`
		VolumeL  float64 `bun:"volume_l"`
	}
	if err := tx.NewSelect().
		TableExpr("batches AS b").
		ColumnExpr("b.tax_class, SUM(b.volume_l) AS volume_l").
		Where("b.status IN (?)", bun.In(batches.BondedStatuses)).
		GroupExpr("b.tax_class").
		Scan(ctx, &bulk); err != nil {
		return nil, err
	}
	for _, row := range bulk {
		class, err := ttb.ParseTaxClass(row.TaxClass)
		if err != nil {
			return nil, err
		}
		out[ttb.SectionBulk][class] += row.VolumeL
	}

	var bottled []struct {
		TaxClass string  `bun:"tax_class"`
		VolumeL  float64 `bun:"volume_l"`
	}
	if err := tx.NewRaw(`
		SELECT COALESCE(NULLIF(pkr.tax_class, ''), b.tax_class) AS tax_class,
		       SUM(stock.on_hand * ii.unit_size_ml / 1000.0) AS volume_l
		FROM inventory_items ii
		JOIN (SELECT item_id, SUM(qty_delta) AS on_hand FROM inventory_transactions GROUP BY item_id) stock ON stock.item_id = ii.id
		LEFT JOIN packaging_runs pkr ON pkr.id = ii.packaging_run_id
		LEFT JOIN batches b ON b.id = ii.batch_id
		WHERE ii.category = ? AND stock.on_hand > 0
		GROUP BY 1`, inventory.CategoryFinishedGood,
	).Scan(ctx, &bottled); err != nil {
		return nil, err
	}
	for _, row := range bottled {
		if row.TaxClass == "" {
			continue
		}
		class, err := ttb.ParseTaxClass(row.TaxClass)
		if err != nil {
			return nil, err
		}
		out[ttb.SectionBottled][class] += row.VolumeL
	}
	return out, nil
}

// BuildForm aggregates the ledger for period. Physical stock is only
// reconciled for the period that is still open, since the cellar cannot be
// counted retroactively.
func BuildForm(ctx context.Context, tx bun.IDB, settings Settings, period ttb.Period, now time.Time) (*ttb.Form, error) {
	movements, err := LoadMovements(ctx, tx, period.End())
	if err != nil {
		return nil, err
	}
	prior, err := PriorRemovalsGallons(ctx, tx, period)
	if err != nil {
		return nil, err
	}
	in := ttb.FormInput{
		Period:               period,
		Producer:             settings.Producer,
		Movements:            movements,
		PriorRemovalsGallons: prior,
		Rates:                settings.Rates,
		Now:                  now,
	}
	if !now.Before(period.Start()) && now.Before(period.End()) {
		in.PhysicalOnHandL, err = PhysicalOnHand(ctx, tx)
		if err != nil {
			return nil, err
		}
	}
	form, err := ttb.GenerateForm512017(in)
	if errors.Is(err, ttb.ErrInvalidInput) {
		return nil, fmt.Errorf("%w: %v", api.ErrValidation, err)
	}
	return form, err
}

// Generate builds the form for a period and stores its snapshot, replacing
// any earlier snapshot of the same period.
func Generate(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, settings Settings, in GenerateInput) (*ttb.Form, error) {
	period, err := ttb.NewPeriod(in.Year, in.Month)
	if err != nil {
		return nil, api.Invalid("period", "%v", err)
	}
	now := time.Now().UTC()
	if period.Start().After(now) {
		return nil, api.Invalid("period", "%s has not started", period)
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (*ttb.Form, error) {
		form, err := BuildForm(ctx, tx, settings, period, now)
		if err != nil {
			return nil, err
		}
		snapshot, err := json.Marshal(form)
		if err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}

		var previous models.TTBReport
		err = tx.NewSelect().Model(&previous).
			Where("tr.period_year = ?", period.Year).
			Where("tr.period_month = ?", int(period.Month)).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		report := models.TTBReport{
			PeriodYear:   period.Year,
			PeriodMonth:  int(period.Month),
			SnapshotJSON: string(snapshot),
			NetTax:       form.Tax.NetTax.StringFixed(2),
			GeneratedBy:  actorID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := tx.NewInsert().Model(&report).
			On("CONFLICT (period_year, period_month) DO UPDATE").
			Set("snapshot_json = EXCLUDED.snapshot_json").
			Set("net_tax = EXCLUDED.net_tax").
			Set("generated_by = EXCLUDED.generated_by").
			Set("updated_at = EXCLUDED.updated_at").
			Returning("id").
			Exec(ctx); err != nil {
			return nil, err
		}

		var before any
		if previous.ID != 0 {
			before = ReportSummaryOf(previous)
		}
		if err := auditSvc.Write(ctx, tx, actorID, "ttb.generate", audit.EntityTTBReport, period.String(), before, ReportSummaryOf(report)); err != nil {
			return nil, err
		}
		return form, nil
	})
}

func ReportSummaryOf(r models.TTBReport) ReportSummary {
	return ReportSummary{
		ID:          r.ID,
		Period:      fmt.Sprintf("%04d-%02d", r.PeriodYear, r.PeriodMonth),
		PeriodYear:  r.PeriodYear,
		PeriodMonth: r.PeriodMonth,
		NetTax:      r.NetTax,
		GeneratedBy: r.GeneratedBy,
		UpdatedAt:   r.UpdatedAt,
	}
}

func ListReports(ctx context.Context, db *sqlite.DB, year int) ([]ReportSummary, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]ReportSummary, error) {
		var rows []models.TTBReport
		q := tx.NewSelect().Model(&rows).
			ExcludeColumn("snapshot_json").
			OrderExpr("tr.period_year DESC, tr.period_month DESC")
		if year > 0 {
			q = q.Where("tr.period_year = ?", year)
		}
		if err := q.Scan(ctx); err != nil {
			return nil, err
		}
		out := make([]ReportSummary, 0, len(rows))
		for _, r := range rows {
			out = append(out, ReportSummaryOf(r))
		}
		return out, nil
	})
}

// LoadReport returns the saved snapshot of a period.
func LoadReport(ctx context.Context, db *sqlite.DB, year, month int) (*ttb.Form, error) {
	period, err := ttb.NewPeriod(year, month)
	if err != nil {
		return nil, api.Invalid("period", "%v", err)
	}
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (*ttb.Form, error) {
		var report models.TTBReport
		err := tx.NewSelect().Model(&report).
			Where("tr.period_year = ?", period.Year).
			Where("tr.period_month = ?", int(period.Month)).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.NotFound("ttb report " + period.String())
		}
		if err != nil {
			return nil, err
		}
		var form ttb.Form
		if err := json.Unmarshal([]byte(report.SnapshotJSON), &form); err != nil {
			return nil, fmt.Errorf("decode ttb report %s: %w", period, err)
		}
		return &form, nil
	})
}

// Render encodes a form in one of the export formats.
func Render(form *ttb.Form, format string) (body []byte, contentType, filename string, err error) {
	switch format {
	case FormatPDF:
		body, err = ttb.RenderPDF(form)
		contentType = "application/pdf"
	case FormatXLSX:
		body, err = ttb.RenderXLSX(form)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON, "":
		format = FormatJSON
		body, err = json.MarshalIndent(form, "", "  ")
		contentType = "application/json"
	default:
		return nil, "", "", api.Invalid("format", "must be pdf, xlsx or json")
	}
	return body, contentType, ttb.FileName(form.Period, format), err
}
