package dashboard

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/carbonation"
	"cellarbook/frontend/inventory"
	"cellarbook/frontend/packaging"
	"cellarbook/frontend/purchasing"
	"cellarbook/infrastructure/sqlite"
)

// LoadSummary runs the overview queries concurrently on the read pool.
// now picks the calendar month for the packaged volume.
func LoadSummary(ctx context.Context, db *sqlite.DB, now time.Time) (Summary, error) {
	var sum Summary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := activeBatches(ctx, db)
		sum.ActiveBatches = counts
		return err
	})
	g.Go(func() error {
		liters, err := packagedVolume(ctx, db, now)
		sum.PackagedThisMonthL = liters
		return err
	})
	g.Go(func() error {
		return db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			items, err := inventory.LowStock(ctx, tx)
			sum.LowStockCount = len(items)
			return err
		})
	})
	g.Go(func() error {
		return db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			return tx.NewRaw(`SELECT COUNT(*) FROM purchase_orders WHERE status IN (?)`,
				bun.In([]string{purchasing.StatusDraft, purchasing.StatusSubmitted, purchasing.StatusPartiallyReceived}),
			).Scan(ctx, &sum.OpenPurchaseOrders)
		})
	})
	g.Go(func() error {
		return db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			return tx.NewRaw(`SELECT COUNT(*) FROM carbonation_operations WHERE status = ?`, carbonation.StatusInProgress).
				Scan(ctx, &sum.OpenCarbonationOps)
		})
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func activeBatches(ctx context.Context, db *sqlite.DB) (map[string]int, error) {
	out := make(map[string]int)
	for _, s := range batches.Statuses {
		if s != batches.StatusArchived {
			out[s] = 0
		}
	}
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT status, COUNT(*) AS count FROM batches WHERE status <> ? GROUP BY status`, batches.StatusArchived).
			Scan(ctx, &rows)
	})
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, err
}

func packagedVolume(ctx context.Context, db *sqlite.DB, now time.Time) (float64, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var liters float64
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
			SELECT COALESCE(SUM(units_produced * unit_size_ml / 1000.0), 0.0) FROM packaging_runs
			WHERE status = ? AND packaged_at >= ? AND packaged_at < ?`,
			packaging.StatusCompleted, start, start.AddDate(0, 1, 0),
		).Scan(ctx, &liters)
	})
	return liters, err
}
