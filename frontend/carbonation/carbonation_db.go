package carbonation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	co2 "cellarbook/infrastructure/carbonation"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func (e *BlockedError) Error() string {
	codes := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		if f.Level == co2.LevelDanger {
			codes = append(codes, f.Code)
		}
	}
	return "carbonation blocked by safety findings: " + strings.Join(codes, ", ")
}

func (e *BlockedError) Unwrap() error {
	return api.ErrValidation
}

// resolvePlan fills the request from the batch and vessel and runs the
// calculators.
func resolvePlan(ctx context.Context, tx bun.IDB, req PlanRequest) (co2.Plan, co2.PlanInput, error) {
	method, err := co2.ParseMethod(req.Method)
	if err != nil {
		return co2.Plan{}, co2.PlanInput{}, api.Invalid("method", "%v", err)
	}
	in := co2.PlanInput{
		Method:        method,
		PackageType:   strings.ToLower(strings.TrimSpace(req.PackageType)),
		VolumeL:       req.VolumeL,
		TargetVolumes: req.TargetVolumes,
		TemperatureC:  req.TemperatureC,
		PressurePSI:   req.PressurePSI,
	}
	if in.PackageType == "" {
		in.PackageType = "bottle"
	}
	if req.Sugar != "" || method == co2.MethodBottleConditioned {
		if in.Sugar, err = co2.ParseSugar(req.Sugar); err != nil {
			return co2.Plan{}, in, api.Invalid("sugar", "%v", err)
		}
	}
	if req.BatchID != nil {
		b, err := batches.LoadBatch(ctx, tx, *req.BatchID)
		if err != nil {
			return co2.Plan{}, in, err
		}
		if in.VolumeL == 0 {
			in.VolumeL = b.VolumeL
		}
		in.CurrentVolumes = b.CO2Volumes
		if req.VesselID == nil && b.VesselID != nil {
			req.VesselID = b.VesselID
		}
	}
	if req.CurrentVolumes != nil {
		in.CurrentVolumes = *req.CurrentVolumes
	}
	if req.VesselID != nil {
		v, err := batches.LoadVessel(ctx, tx, *req.VesselID)
		if err != nil {
			return co2.Plan{}, in, err
		}
		in.VesselMaxPSI = v.MaxPressurePSI
		in.VesselPressureKnown = true
	}
	if method == co2.MethodBottleConditioned && in.VolumeL <= 0 {
		return co2.Plan{}, in, api.Invalid("volume_l", "priming needs a volume > 0")
	}

	plan, err := co2.BuildPlan(in)
	if err != nil {
		switch {
		case errors.Is(err, co2.ErrUnreachable):
			return plan, in, api.Invalid("pressure_psi", "%v", err)
		case errors.Is(err, co2.ErrInvalidInput):
			return plan, in, api.Invalid("target_volumes", "%v", err)
		}
		return plan, in, err
	}
	return plan, in, nil
}

// Calculate runs the calculators without persisting anything.
func Calculate(ctx context.Context, db *sqlite.DB, req PlanRequest) (co2.Plan, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (co2.Plan, error) {
		plan, _, err := resolvePlan(ctx, tx, req)
		return plan, err
	})
}

func loadOperation(ctx context.Context, tx bun.IDB, id int64) (models.CarbonationOperation, error) {
	var op models.CarbonationOperation
	if err := tx.NewSelect().Model(&op).Where("co.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return op, api.NotFound("carbonation operation")
		}
		return op, err
	}
	return op, nil
}

func GetOperation(ctx context.Context, db *sqlite.DB, id int64) (models.CarbonationOperation, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (models.CarbonationOperation, error) {
		return loadOperation(ctx, tx, id)
	})
}

func ListOperations(ctx context.Context, db *sqlite.DB, status string, batchID int64) ([]models.CarbonationOperation, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]models.CarbonationOperation, error) {
		out := make([]models.CarbonationOperation, 0)
		q := tx.NewSelect().Model(&out).OrderExpr("co.started_at DESC, co.id DESC")
		if status != "" {
			q = q.Where("co.status = ?", status)
		}
		if batchID > 0 {
			q = q.Where("co.batch_id = ?", batchID)
		}
		return out, q.Scan(ctx)
	})
}

// StartOperation plans and records a carbonation. Danger findings block the
// start unless an admin overrides them.
func StartOperation(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, isAdmin bool, in StartInput) (models.CarbonationOperation, error) {
	if in.BatchID == nil {
		return models.CarbonationOperation{}, api.Invalid("batch_id", "batch_id is required")
	}
	if in.Override && !isAdmin {
		return models.CarbonationOperation{}, fmt.Errorf("%w: only admins may override safety findings", api.ErrForbidden)
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.CarbonationOperation, error) {
		b, err := batches.LoadBatch(ctx, tx, *in.BatchID)
		if err != nil {
			return models.CarbonationOperation{}, err
		}
		switch b.Status {
		case batches.StatusPlanned, batches.StatusArchived, batches.StatusPackaged:
			return models.CarbonationOperation{}, api.Conflict("batch %s is %s", b.Code, b.Status)
		}
		open, err := tx.NewSelect().Model((*models.CarbonationOperation)(nil)).
			Where("batch_id = ?", b.ID).Where("status = ?", StatusInProgress).Exists(ctx)
		if err != nil {
			return models.CarbonationOperation{}, err
		}
		if open {
			return models.CarbonationOperation{}, api.Conflict("batch %s already has a carbonation in progress", b.Code)
		}

		plan, pin, err := resolvePlan(ctx, tx, in.PlanRequest)
		if err != nil {
			return models.CarbonationOperation{}, err
		}
		if plan.Blocked && !in.Override {
			return models.CarbonationOperation{}, &BlockedError{Findings: plan.Findings}
		}
		findings, err := json.Marshal(plan.Findings)
		if err != nil {
			return models.CarbonationOperation{}, err
		}

		now := time.Now().UTC()
		op := models.CarbonationOperation{
			BatchID:         b.ID,
			VesselID:        in.VesselID,
			Method:          string(pin.Method),
			PackageType:     pin.PackageType,
			StartingVolumes: pin.CurrentVolumes,
			TargetVolumes:   pin.TargetVolumes,
			TemperatureC:    pin.TemperatureC,
			PressurePSI:     plan.AppliedPressure,
			EstimatedHours:  plan.Duration.Hours,
			Status:          StatusInProgress,
			FindingsJSON:    string(findings),
			StartedAt:       now,
			CreatedBy:       actorID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if op.VesselID == nil {
			op.VesselID = b.VesselID
		}
		if plan.Priming != nil {
			op.SugarType = string(plan.Priming.Sugar)
			op.SugarGrams = plan.Priming.Grams
		}
		if _, err := tx.NewInsert().Model(&op).Exec(ctx); err != nil {
			return op, err
		}
		action := "carbonation.start"
		if plan.Blocked {
			action = "carbonation.start_override"
		}
		return op, auditSvc.WriteID(ctx, tx, actorID, action, audit.EntityCarbonation, op.ID, nil, op)
	})
}

// CompleteOperation records the final CO2 level and carries it onto the
// batch, which may change its tax class.
func CompleteOperation(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in CompleteInput) (models.CarbonationOperation, error) {
	if in.FinalVolumes != nil && (*in.FinalVolumes < 0 || *in.FinalVolumes > co2.MaxVolumes) {
		return models.CarbonationOperation{}, api.Invalid("final_volumes", "must be between 0 and %.0f", co2.MaxVolumes)
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.CarbonationOperation, error) {
		op, err := loadOperation(ctx, tx, id)
		if err != nil {
			return op, err
		}
		if op.Status != StatusInProgress {
			return op, api.Conflict("carbonation operation is %s", op.Status)
		}
		before := op
		now := time.Now().UTC()
		if in.CompletedAt != nil {
			now = in.CompletedAt.UTC()
		}
		final := op.TargetVolumes
		if in.FinalVolumes != nil {
			final = *in.FinalVolumes
		}
		op.FinalVolumes = &final
		op.Status = StatusCompleted
		op.CompletedAt = &now
		op.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&op).Column("final_volumes", "status", "completed_at", "updated_at").WherePK().Exec(ctx); err != nil {
			return op, err
		}

		b, err := batches.LoadBatch(ctx, tx, op.BatchID)
		if err != nil {
			return op, err
		}
		batchBefore := b
		b.CO2Volumes = final
		b.CarbonationMethod = op.Method
		if err := batches.Reclassify(ctx, tx, &b, now); err != nil {
			return op, err
		}
		b.UpdatedAt = op.UpdatedAt
		if _, err := tx.NewUpdate().Model(&b).Column("co2_volumes", "carbonation_method", "abv", "tax_class", "updated_at").WherePK().Exec(ctx); err != nil {
			return op, err
		}
		if err := auditSvc.WriteID(ctx, tx, actorID, "batch.carbonation", audit.EntityBatch, b.ID, batchBefore, b); err != nil {
			return op, err
		}
		return op, auditSvc.WriteID(ctx, tx, actorID, "carbonation.complete", audit.EntityCarbonation, op.ID, before, op)
	})
}

func CancelOperation(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64) (models.CarbonationOperation, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.CarbonationOperation, error) {
		op, err := loadOperation(ctx, tx, id)
		if err != nil {
			return op, err
		}
		if op.Status != StatusInProgress {
			return op, api.Conflict("carbonation operation is %s", op.Status)
		}
		before := op
		op.Status = StatusCancelled
		op.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&op).Column("status", "updated_at").WherePK().Exec(ctx); err != nil {
			return op, err
		}
		return op, auditSvc.WriteID(ctx, tx, actorID, "carbonation.cancel", audit.EntityCarbonation, op.ID, before, op)
	})
}
