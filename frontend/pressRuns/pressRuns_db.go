package pressruns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

// ErrStaleRevision is returned when a draft arrives with a lower revision than
// the stored one.
var ErrStaleRevision = fmt.Errorf("%w: stale draft revision", api.ErrConflict)

// Yield returns total fruit weight and litres of juice per kilogram.
func Yield(run models.PressRun) (float64, float64) {
	var total float64
	for _, l := range run.Loads {
		total += l.WeightKg
	}
	if total <= 0 {
		return 0, 0
	}
	return total, run.JuiceL / total
}

func NewPressRunView(run models.PressRun, prefs units.Preferences) PressRunView {
	total, yield := Yield(run)
	view := PressRunView{PressRun: run, TotalFruitKg: units.Round(total, 2), YieldLPerKg: units.Round(yield, 3)}
	view.JuiceDisplay, _ = units.FormatVolume(run.JuiceL, prefs.Volume)
	view.FruitDisplay, _ = units.FormatWeight(total, prefs.Weight)
	return view
}

func ListPressRuns(ctx context.Context, db *sqlite.DB) ([]models.PressRun, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]models.PressRun, error) {
		out := make([]models.PressRun, 0)
		return out, tx.NewSelect().Model(&out).Relation("Loads").OrderExpr("pr.pressed_at DESC, pr.id DESC").Scan(ctx)
	})
}

func loadPressRun(ctx context.Context, tx bun.IDB, q func(*bun.SelectQuery) *bun.SelectQuery) (models.PressRun, error) {
	var run models.PressRun
	err := q(tx.NewSelect().Model(&run).Relation("Loads", func(sq *bun.SelectQuery) *bun.SelectQuery {
		return sq.OrderExpr("fl.id ASC")
	})).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return run, api.NotFound("press run")
	}
	return run, err
}

func GetPressRun(ctx context.Context, db *sqlite.DB, id int64) (models.PressRun, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (models.PressRun, error) {
		return loadPressRun(ctx, tx, func(q *bun.SelectQuery) *bun.SelectQuery { return q.Where("pr.id = ?", id) })
	})
}

// CreatePressRun stores a draft entered online. A client UUID is assigned so
// the draft can later be edited offline.
func CreatePressRun(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in DraftInput) (models.PressRun, error) {
	in.ClientUUID = uuid.NewString()
	in.Revision = 1
	res, err := SyncDraft(ctx, db, auditSvc, actorID, in)
	return res.PressRun.PressRun, err
}

func validateDraft(in *DraftInput) error {
	in.ClientUUID = strings.ToLower(strings.TrimSpace(in.ClientUUID))
	if _, err := uuid.Parse(in.ClientUUID); err != nil {
		return api.Invalid("client_uuid", "must be a uuid")
	}
	if in.Revision < 1 {
		return api.Invalid("revision", "must be >= 1")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return api.Invalid("name", "name is required")
	}
	if in.PressedAt.IsZero() {
		return api.Invalid("pressed_at", "pressed_at is required")
	}
	if in.JuiceL < 0 {
		return api.Invalid("juice_l", "must be >= 0")
	}
	for i, l := range in.Loads {
		if strings.TrimSpace(l.Variety) == "" {
			return api.Invalid(fmt.Sprintf("loads[%d].variety", i), "variety is required")
		}
		if l.WeightKg <= 0 {
			return api.Invalid(fmt.Sprintf("loads[%d].weight_kg", i), "must be > 0")
		}
	}
	return nil
}

// SyncDraft upserts a draft by client UUID. The same revision is a no-op, a
// lower revision is stale and a higher one replaces the run and its loads.
func SyncDraft(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in DraftInput) (SyncResult, error) {
	if err := validateDraft(&in); err != nil {
		return SyncResult{}, err
	}
	var (
		outcome string
		run     models.PressRun
	)
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		existing, err := loadPressRun(ctx, tx, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("pr.client_uuid = ?", in.ClientUUID)
		})
		now := time.Now().UTC()
		switch {
		case errors.Is(err, api.ErrNotFound):
			id := in.ClientUUID
			run = models.PressRun{
				ClientUUID: &id,
				Revision:   in.Revision,
				Name:       in.Name,
				PressedAt:  in.PressedAt.UTC(),
				JuiceL:     in.JuiceL,
				Status:     StatusDraft,
				Notes:      in.Notes,
				CreatedBy:  actorID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if _, err := tx.NewInsert().Model(&run).Exec(ctx); err != nil {
				return err
			}
			outcome = SyncCreated
		case err != nil:
			return err
		case in.Revision == existing.Revision:
			run = existing
			outcome = SyncUnchanged
			return nil
		case in.Revision < existing.Revision:
			return fmt.Errorf("%w: have revision %d, got %d", ErrStaleRevision, existing.Revision, in.Revision)
		case existing.Status != StatusDraft:
			return api.Conflict("press run %s is already completed", existing.Name)
		default:
			run = existing
			run.Revision = in.Revision
			run.Name = in.Name
			run.PressedAt = in.PressedAt.UTC()
			run.JuiceL = in.JuiceL
			run.Notes = in.Notes
			run.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(&run).Column("revision", "name", "pressed_at", "juice_l", "notes", "updated_at").WherePK().Exec(ctx); err != nil {
				return err
			}
			if _, err := tx.NewDelete().Model((*models.FruitLoad)(nil)).Where("press_run_id = ?", run.ID).Exec(ctx); err != nil {
				return err
			}
			outcome = SyncUpdated
		}

		run.Loads = make([]models.FruitLoad, 0, len(in.Loads))
		for _, l := range in.Loads {
			load := models.FruitLoad{
				PressRunID: run.ID,
				Variety:    strings.TrimSpace(l.Variety),
				WeightKg:   l.WeightKg,
				VendorID:   l.VendorID,
				Notes:      l.Notes,
			}
			if _, err := tx.NewInsert().Model(&load).Exec(ctx); err != nil {
				return err
			}
			run.Loads = append(run.Loads, load)
		}
		var before any
		if outcome == SyncUpdated {
			before = existing
		}
		return auditSvc.WriteID(ctx, tx, actorID, "press_run.sync", audit.EntityPressRun, run.ID, before, run)
	})
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Outcome: outcome, PressRun: NewPressRunView(run, units.DefaultPreferences())}, nil
}

// CompletePressRun closes a draft and optionally starts a batch from its juice.
func CompletePressRun(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in CompleteInput) (models.PressRun, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.PressRun, error) {
		run, err := loadPressRun(ctx, tx, func(q *bun.SelectQuery) *bun.SelectQuery { return q.Where("pr.id = ?", id) })
		if err != nil {
			return run, err
		}
		if run.Status != StatusDraft {
			return run, api.Conflict("press run %s is already completed", run.Name)
		}
		if len(run.Loads) == 0 {
			return run, api.Invalid("loads", "a press run needs at least one fruit load")
		}
		before := run
		if in.Batch != nil {
			bin := *in.Batch
			if bin.VolumeL == 0 {
				bin.VolumeL = run.JuiceL
			}
			if bin.VolumeL > run.JuiceL+1e-9 {
				return run, api.Invalid("batch.volume_l", "cannot exceed %.2f L of juice", run.JuiceL)
			}
			if bin.Name == "" {
				bin.Name = run.Name
			}
			b, err := batches.InsertBatch(ctx, tx, auditSvc, actorID, bin)
			if err != nil {
				return run, err
			}
			run.BatchID = &b.ID
		}
		run.Status = StatusCompleted
		run.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&run).Column("status", "batch_id", "updated_at").WherePK().Exec(ctx); err != nil {
			return run, err
		}
		return run, auditSvc.WriteID(ctx, tx, actorID, "press_run.complete", audit.EntityPressRun, run.ID, before, run)
	})
}
