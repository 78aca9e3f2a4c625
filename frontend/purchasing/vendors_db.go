package purchasing

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func ListVendors(ctx context.Context, db *sqlite.DB, includeInactive bool) ([]models.Vendor, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) ([]models.Vendor, error) {
		out := make([]models.Vendor, 0)
		q := tx.NewSelect().Model(&out).OrderExpr("v.name COLLATE NOCASE ASC")
		if !includeInactive {
			q = q.Where("v.active = 1")
		}
		return out, q.Scan(ctx)
	})
}

func loadVendor(ctx context.Context, tx bun.IDB, id int64) (models.Vendor, error) {
	var v models.Vendor
	if err := tx.NewSelect().Model(&v).Where("v.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, api.NotFound("vendor")
		}
		return v, err
	}
	return v, nil
}

func GetVendor(ctx context.Context, db *sqlite.DB, id int64) (models.Vendor, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Vendor, error) {
		return loadVendor(ctx, tx, id)
	})
}

func validateVendor(v models.Vendor) error {
	if v.Name == "" {
		return api.Invalid("name", "is required")
	}
	if v.Email != "" {
		if _, err := mail.ParseAddress(v.Email); err != nil {
			return api.Invalid("email", "invalid address %q", v.Email)
		}
	}
	return nil
}

func vendorNameTaken(ctx context.Context, tx bun.IDB, name string, exceptID int64) (bool, error) {
	return tx.NewSelect().Model((*models.Vendor)(nil)).
		Where("lower(v.name) = lower(?)", name).
		Where("v.id <> ?", exceptID).
		Exists(ctx)
}

func CreateVendor(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in VendorInput) (models.Vendor, error) {
	now := time.Now().UTC()
	v := models.Vendor{
		Name:        strings.TrimSpace(in.Name),
		ContactName: strings.TrimSpace(in.ContactName),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Notes:       strings.TrimSpace(in.Notes),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateVendor(v); err != nil {
		return v, err
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Vendor, error) {
		taken, err := vendorNameTaken(ctx, tx, v.Name, 0)
		if err != nil {
			return v, err
		}
		if taken {
			return v, api.Conflict("vendor %s already exists", v.Name)
		}
		if _, err := tx.NewInsert().Model(&v).Exec(ctx); err != nil {
			return v, err
		}
		return v, auditSvc.WriteID(ctx, tx, actorID, "vendor.create", audit.EntityVendor, v.ID, nil, v)
	})
}

func UpdateVendor(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in UpdateVendorInput) (models.Vendor, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Vendor, error) {
		v, err := loadVendor(ctx, tx, id)
		if err != nil {
			return v, err
		}
		before := v
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = strings.TrimSpace(*src)
			}
		}
		set(&v.Name, in.Name)
		set(&v.ContactName, in.ContactName)
		set(&v.Email, in.Email)
		set(&v.Phone, in.Phone)
		set(&v.Notes, in.Notes)
		if in.Active != nil {
			v.Active = *in.Active
		}
		if err := validateVendor(v); err != nil {
			return v, err
		}
		if v.Name != before.Name {
			taken, err := vendorNameTaken(ctx, tx, v.Name, v.ID)
			if err != nil {
				return v, err
			}
			if taken {
				return v, api.Conflict("vendor %s already exists", v.Name)
			}
		}
		v.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&v).WherePK().Exec(ctx); err != nil {
			return v, err
		}
		return v, auditSvc.WriteID(ctx, tx, actorID, "vendor.update", audit.EntityVendor, v.ID, before, v)
	})
}
