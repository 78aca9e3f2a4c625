package batches

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/carbonation"
	"cellarbook/infrastructure/ttb"
	"cellarbook/models"
)

// RecordMovement appends one entry to the bulk volume ledger. Zero volumes are
// skipped.
func RecordMovement(ctx context.Context, tx bun.IDB, batchID *int64, kind ttb.MovementType, section ttb.Section, volumeL float64, class string, at time.Time, reference string) error {
	if volumeL == 0 {
		return nil
	}
	if volumeL < 0 {
		return fmt.Errorf("movement %s: negative volume %.3f", kind, volumeL)
	}
	mv := models.BulkMovement{
		BatchID:      batchID,
		MovementType: string(kind),
		Section:      string(section),
		VolumeL:      volumeL,
		TaxClass:     class,
		OccurredAt:   at.UTC(),
		Reference:    reference,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := tx.NewInsert().Model(&mv).Exec(ctx)
	return err
}

// Reclassify derives ABV from the recorded gravities and recomputes the tax
// class. When the class changes on a batch holding volume, the bulk volume is
// moved between classes in the ledger.
func Reclassify(ctx context.Context, tx bun.IDB, b *models.Batch, at time.Time) error {
	abv := ttb.ProvisionalABV(b.ProductType)
	if b.OriginalGravity != nil && b.FinalGravity != nil {
		v, err := ttb.ABVFromGravity(*b.OriginalGravity, *b.FinalGravity)
		if err != nil {
			return api.Invalid("final_gravity", "%v", err)
		}
		abv = v
		rounded := float64(int64(v*100+0.5)) / 100
		b.ABV = &rounded
	} else if b.ABV != nil {
		abv = *b.ABV
	}

	class, err := ttb.ClassifyBatch(b.ProductType, abv, b.CO2Volumes, carbonation.Method(b.CarbonationMethod))
	if err != nil {
		return api.Invalid("abv", "%v", err)
	}
	prev := b.TaxClass
	b.TaxClass = string(class)
	if prev == "" || prev == b.TaxClass || b.VolumeL <= 0 || !holdsBondedVolume(b.Status) {
		return nil
	}
	ref := fmt.Sprintf("batch %s class %s to %s", b.Code, prev, b.TaxClass)
	if err := RecordMovement(ctx, tx, &b.ID, ttb.MovementClassChangeOut, ttb.SectionBulk, b.VolumeL, prev, at, ref); err != nil {
		return err
	}
	return RecordMovement(ctx, tx, &b.ID, ttb.MovementClassChangeIn, ttb.SectionBulk, b.VolumeL, b.TaxClass, at, ref)
}

// holdsBondedVolume reports whether a batch in status has been entered into
// the bulk ledger.
func holdsBondedVolume(status string) bool {
	return contains(BondedStatuses, status)
}
