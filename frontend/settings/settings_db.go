package settings

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

// LoadPreferences returns the stored display units for userID, or the storage
// units when nothing has been saved yet.
func LoadPreferences(ctx context.Context, db bun.IDB, userID int64) (units.Preferences, error) {
	var row models.UserPreference
	err := db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return units.DefaultPreferences(), nil
	}
	if err != nil {
		return units.Preferences{}, err
	}
	return units.ParsePreferences(row.VolumeUnit, row.WeightUnit, row.TemperatureUnit, row.PressureUnit)
}

func SavePreferences(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, userID int64, prefs units.Preferences) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		before, err := LoadPreferences(ctx, tx, userID)
		if err != nil {
			return err
		}
		row := models.UserPreference{
			UserID:          userID,
			VolumeUnit:      string(prefs.Volume),
			WeightUnit:      string(prefs.Weight),
			TemperatureUnit: string(prefs.Temperature),
			PressureUnit:    string(prefs.Pressure),
			UpdatedAt:       time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(&row).
			On("CONFLICT (user_id) DO UPDATE").
			Set("volume_unit = EXCLUDED.volume_unit").
			Set("weight_unit = EXCLUDED.weight_unit").
			Set("temperature_unit = EXCLUDED.temperature_unit").
			Set("pressure_unit = EXCLUDED.pressure_unit").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return err
		}
		return auditSvc.WriteID(ctx, tx, userID, "preferences.update", audit.EntityPreferences, userID, before, prefs)
	})
}
