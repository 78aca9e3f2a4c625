package batches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/ttb"
	"cellarbook/models"
)

var ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", api.ErrConflict)

func ListBatches(ctx context.Context, db *sqlite.DB, status string) ([]models.Batch, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]models.Batch, error) {
		out := make([]models.Batch, 0)
		q := tx.NewSelect().Model(&out).OrderExpr("b.created_at DESC, b.id DESC")
		if status != "" {
			q = q.Where("b.status = ?", status)
		}
		return out, q.Scan(ctx)
	})
}

// LoadBatch reads one batch or returns a not found error.
func LoadBatch(ctx context.Context, tx bun.IDB, id int64) (models.Batch, error) {
	var b models.Batch
	if err := tx.NewSelect().Model(&b).Where("b.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, api.NotFound("batch")
		}
		return b, err
	}
	return b, nil
}

func GetBatchDetail(ctx context.Context, db *sqlite.DB, id int64) (models.Batch, *models.Vessel, []models.BatchMeasurement, error) {
	var (
		batch        models.Batch
		vessel       *models.Vessel
		measurements = make([]models.BatchMeasurement, 0)
	)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if batch, err = LoadBatch(ctx, tx, id); err != nil {
			return err
		}
		if batch.VesselID != nil {
			v, err := loadVessel(ctx, tx, *batch.VesselID)
			if err != nil {
				return err
			}
			vessel = &v
		}
		return tx.NewSelect().Model(&measurements).Where("batch_id = ?", id).OrderExpr("taken_at ASC, id ASC").Scan(ctx)
	})
	return batch, vessel, measurements, err
}

func CreateBatch(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in CreateBatchInput) (models.Batch, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Batch, error) {
		return InsertBatch(ctx, tx, auditSvc, actorID, in)
	})
}

// InsertBatch validates and stores a batch inside the caller's transaction.
func InsertBatch(ctx context.Context, tx bun.Tx, auditSvc *audit.Service, actorID int64, in CreateBatchInput) (models.Batch, error) {
	b := models.Batch{
		Code:            strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:            strings.TrimSpace(in.Name),
		ProductType:     strings.ToLower(strings.TrimSpace(in.ProductType)),
		VesselID:        in.VesselID,
		VolumeL:         in.VolumeL,
		Status:          strings.TrimSpace(in.Status),
		OriginalGravity: in.OriginalGravity,
		Notes:           in.Notes,
	}
	if b.Status == "" {
		b.Status = StatusPlanned
	}
	if err := validateNewBatch(b); err != nil {
		return b, err
	}

	exists, err := tx.NewSelect().Model((*models.Batch)(nil)).Where("code = ?", b.Code).Exists(ctx)
	if err != nil {
		return b, err
	}
	if exists {
		return b, api.Conflict("batch code %s already exists", b.Code)
	}
	if b.VesselID != nil {
		if err := checkVesselCapacity(ctx, tx, *b.VesselID, 0, b.VolumeL); err != nil {
			return b, err
		}
	}

	now := time.Now().UTC()
	if b.Status == StatusFermenting {
		started := now
		if in.StartedAt != nil {
			started = in.StartedAt.UTC()
		}
		b.StartedAt = &started
	}
	if err := Reclassify(ctx, tx, &b, now); err != nil {
		return b, err
	}
	b.CreatedAt, b.UpdatedAt = now, now
	if _, err := tx.NewInsert().Model(&b).Exec(ctx); err != nil {
		return b, err
	}
	if b.Status == StatusFermenting {
		if err := RecordMovement(ctx, tx, &b.ID, ttb.MovementProduced, ttb.SectionBulk, b.VolumeL, b.TaxClass, *b.StartedAt, "batch "+b.Code); err != nil {
			return b, err
		}
	}
	return b, auditSvc.WriteID(ctx, tx, actorID, "batch.create", audit.EntityBatch, b.ID, nil, b)
}

func validateNewBatch(b models.Batch) error {
	if b.Code == "" {
		return api.Invalid("code", "code is required")
	}
	if b.Name == "" {
		return api.Invalid("name", "name is required")
	}
	if !contains(ProductTypes, b.ProductType) {
		return api.Invalid("product_type", "must be one of %s", strings.Join(ProductTypes, ", "))
	}
	if b.VolumeL < 0 {
		return api.Invalid("volume_l", "must be >= 0")
	}
	if b.Status != StatusPlanned && b.Status != StatusFermenting {
		return api.Invalid("status", "new batches start planned or fermenting")
	}
	if b.OriginalGravity != nil && (*b.OriginalGravity < 0.98 || *b.OriginalGravity > 1.2) {
		return api.Invalid("original_gravity", "must be between 0.980 and 1.200")
	}
	return nil
}

func UpdateBatch(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in UpdateBatchInput) (models.Batch, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Batch, error) {
		b, err := LoadBatch(ctx, tx, id)
		if err != nil {
			return b, err
		}
		if b.Status == StatusArchived {
			return b, api.Conflict("batch %s is archived", b.Code)
		}
		before := b
		if name := strings.TrimSpace(in.Name); name != "" {
			b.Name = name
		}
		if in.Notes != nil {
			b.Notes = *in.Notes
		}
		if in.VesselID != nil {
			if err := checkVesselCapacity(ctx, tx, *in.VesselID, b.ID, b.VolumeL); err != nil {
				return b, err
			}
			b.VesselID = in.VesselID
		}
		b.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&b).Column("name", "notes", "vessel_id", "updated_at").WherePK().Exec(ctx); err != nil {
			return b, err
		}
		return b, auditSvc.WriteID(ctx, tx, actorID, "batch.update", audit.EntityBatch, b.ID, before, b)
	})
}

// TransitionBatch moves a batch to a new status. Starting fermentation enters
// the batch volume into the bulk ledger as produced.
func TransitionBatch(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, to string) (models.Batch, error) {
	to = strings.TrimSpace(to)
	if !contains(Statuses, to) {
		return models.Batch{}, api.Invalid("status", "unknown status %q", to)
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Batch, error) {
		b, err := LoadBatch(ctx, tx, id)
		if err != nil {
			return b, err
		}
		if !CanTransition(b.Status, to) {
			return b, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, to)
		}
		before := b
		now := time.Now().UTC()
		if b.Status == StatusPlanned && to == StatusFermenting {
			b.StartedAt = &now
			if err := RecordMovement(ctx, tx, &b.ID, ttb.MovementProduced, ttb.SectionBulk, b.VolumeL, b.TaxClass, now, "batch "+b.Code); err != nil {
				return b, err
			}
		}
		if to == StatusPackaged && b.PackagedAt == nil {
			b.PackagedAt = &now
		}
		b.Status = to
		b.UpdatedAt = now
		if _, err := tx.NewUpdate().Model(&b).Column("status", "started_at", "packaged_at", "updated_at").WherePK().Exec(ctx); err != nil {
			return b, err
		}
		return b, auditSvc.WriteID(ctx, tx, actorID, "batch.status", audit.EntityBatch, b.ID, before, b)
	})
}

// AddMeasurement stores a reading. Gravity readings fill the original gravity
// when none is set, or the final gravity when flagged; ABV and tax class are
// then recomputed.
func AddMeasurement(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, batchID int64, in MeasurementInput) (models.BatchMeasurement, error) {
	if in.SpecificGravity == nil && in.TemperatureC == nil && in.PH == nil && in.TAGPL == nil {
		return models.BatchMeasurement{}, api.Invalid("specific_gravity", "at least one reading is required")
	}
	if in.SpecificGravity != nil && (*in.SpecificGravity < 0.98 || *in.SpecificGravity > 1.2) {
		return models.BatchMeasurement{}, api.Invalid("specific_gravity", "must be between 0.980 and 1.200")
	}
	if in.PH != nil && (*in.PH < 0 || *in.PH > 14) {
		return models.BatchMeasurement{}, api.Invalid("ph", "must be between 0 and 14")
	}
	if in.Final && in.SpecificGravity == nil {
		return models.BatchMeasurement{}, api.Invalid("specific_gravity", "final reading needs a gravity")
	}

	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.BatchMeasurement, error) {
		b, err := LoadBatch(ctx, tx, batchID)
		if err != nil {
			return models.BatchMeasurement{}, err
		}
		if b.Status == StatusArchived {
			return models.BatchMeasurement{}, api.Conflict("batch %s is archived", b.Code)
		}
		now := time.Now().UTC()
		m := models.BatchMeasurement{
			BatchID:         batchID,
			TakenAt:         now,
			SpecificGravity: in.SpecificGravity,
			TemperatureC:    in.TemperatureC,
			PH:              in.PH,
			TAGPL:           in.TAGPL,
			Notes:           in.Notes,
			CreatedBy:       actorID,
			CreatedAt:       now,
		}
		if in.TakenAt != nil {
			m.TakenAt = in.TakenAt.UTC()
		}
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return m, err
		}

		if in.SpecificGravity != nil {
			before := b
			switch {
			case in.Final:
				b.FinalGravity = in.SpecificGravity
			case b.OriginalGravity == nil:
				b.OriginalGravity = in.SpecificGravity
			}
			if err := Reclassify(ctx, tx, &b, m.TakenAt); err != nil {
				return m, err
			}
			b.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(&b).Column("original_gravity", "final_gravity", "abv", "tax_class", "updated_at").WherePK().Exec(ctx); err != nil {
				return m, err
			}
			if err := auditSvc.WriteID(ctx, tx, actorID, "batch.gravity", audit.EntityBatch, b.ID, before, b); err != nil {
				return m, err
			}
		}
		return m, nil
	})
}

// AdjustVolume records a measured volume and books the difference.
func AdjustVolume(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, batchID int64, in VolumeAdjustmentInput) (models.Batch, error) {
	if in.VolumeL < 0 {
		return models.Batch{}, api.Invalid("volume_l", "must be >= 0")
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Batch, error) {
		b, err := LoadBatch(ctx, tx, batchID)
		if err != nil {
			return b, err
		}
		if b.Status == StatusArchived {
			return b, api.Conflict("batch %s is archived", b.Code)
		}
		if b.VesselID != nil {
			if err := checkVesselCapacity(ctx, tx, *b.VesselID, b.ID, in.VolumeL); err != nil {
				return b, err
			}
		}
		before := b
		now := time.Now().UTC()
		delta := in.VolumeL - b.VolumeL
		if holdsBondedVolume(b.Status) {
			ref := strings.TrimSpace(in.Reference)
			if ref == "" {
				ref = "batch " + b.Code + " volume adjustment"
			}
			kind := ttb.MovementAdjustmentGain
			switch {
			case delta < 0 && strings.EqualFold(in.Reason, "loss"):
				kind = ttb.MovementLoss
			case delta < 0:
				kind = ttb.MovementAdjustmentLoss
			}
			vol := delta
			if vol < 0 {
				vol = -vol
			}
			if err := RecordMovement(ctx, tx, &b.ID, kind, ttb.SectionBulk, vol, b.TaxClass, now, ref); err != nil {
				return b, err
			}
		}
		b.VolumeL = in.VolumeL
		b.UpdatedAt = now
		if _, err := tx.NewUpdate().Model(&b).Column("volume_l", "updated_at").WherePK().Exec(ctx); err != nil {
			return b, err
		}
		return b, auditSvc.WriteID(ctx, tx, actorID, "batch.volume", audit.EntityBatch, b.ID, before, b)
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
