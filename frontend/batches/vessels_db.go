package batches

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func loadVessel(ctx context.Context, tx bun.IDB, id int64) (models.Vessel, error) {
	var v models.Vessel
	if err := tx.NewSelect().Model(&v).Where("ve.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, api.NotFound("vessel")
		}
		return v, err
	}
	return v, nil
}

// LoadVessel is used by carbonation planning for the vessel pressure rating.
func LoadVessel(ctx context.Context, tx bun.IDB, id int64) (models.Vessel, error) {
	return loadVessel(ctx, tx, id)
}

// checkVesselCapacity rejects volumeL when it does not fit next to the other
// batches already in the vessel.
func checkVesselCapacity(ctx context.Context, tx bun.IDB, vesselID, batchID int64, volumeL float64) error {
	v, err := loadVessel(ctx, tx, vesselID)
	if err != nil {
		return api.Invalid("vessel_id", "vessel %d does not exist", vesselID)
	}
	var used float64
	err = tx.NewRaw(`SELECT COALESCE(SUM(volume_l), 0.0) FROM batches WHERE vessel_id = ? AND id <> ? AND status NOT IN ('packaged', 'archived')`, vesselID, batchID).Scan(ctx, &used)
	if err != nil {
		return err
	}
	if used+volumeL > v.CapacityL+1e-9 {
		return api.Invalid("volume_l", "vessel %s holds %.1f L, %.1f L already in use", v.Name, v.CapacityL, used)
	}
	return nil
}

func ListVessels(ctx context.Context, db *sqlite.DB) ([]models.Vessel, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]models.Vessel, error) {
		out := make([]models.Vessel, 0)
		return out, tx.NewSelect().Model(&out).OrderExpr("ve.name ASC").Scan(ctx)
	})
}

func CreateVessel(ctx context.Context, db *sqlite.DB, in CreateVesselInput) (models.Vessel, error) {
	v := models.Vessel{
		Name:           strings.TrimSpace(in.Name),
		VesselType:     strings.ToLower(strings.TrimSpace(in.VesselType)),
		CapacityL:      in.CapacityL,
		MaxPressurePSI: in.MaxPressurePSI,
	}
	switch {
	case v.Name == "":
		return v, api.Invalid("name", "name is required")
	case !contains(VesselTypes, v.VesselType):
		return v, api.Invalid("vessel_type", "must be one of %s", strings.Join(VesselTypes, ", "))
	case v.CapacityL <= 0:
		return v, api.Invalid("capacity_l", "must be > 0")
	case v.MaxPressurePSI < 0:
		return v, api.Invalid("max_pressure_psi", "must be >= 0")
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Vessel, error) {
		exists, err := tx.NewSelect().Model((*models.Vessel)(nil)).Where("LOWER(name) = ?", strings.ToLower(v.Name)).Exists(ctx)
		if err != nil {
			return v, err
		}
		if exists {
			return v, api.Conflict("vessel %s already exists", v.Name)
		}
		now := time.Now().UTC()
		v.CreatedAt, v.UpdatedAt = now, now
		_, err = tx.NewInsert().Model(&v).Exec(ctx)
		return v, err
	})
}
