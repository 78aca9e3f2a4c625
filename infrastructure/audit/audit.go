// Package audit records who changed what. Entries are written inside the
// caller's transaction so they commit or roll back with the change itself.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/models"
)

// Entity types.
const (
	EntityUser          = "user"
	EntityBatch         = "batch"
	EntityPressRun      = "press_run"
	EntityCarbonation   = "carbonation_operation"
	EntityPackagingRun  = "packaging_run"
	EntityInventoryItem = "inventory_item"
	EntityVendor        = "vendor"
	EntityPurchaseOrder = "purchase_order"
	EntityTTBReport     = "ttb_report"
	EntityPreferences   = "user_preferences"
)

type Service struct {
	now func() time.Time
}

func NewService() *Service {
	return &Service{now: time.Now}
}

// Write stores one audit row. before and after are JSON encoded; nil is
// stored as an empty string.
func (s *Service) Write(ctx context.Context, tx bun.Tx, userID int64, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := encode(before)
	if err != nil {
		return fmt.Errorf("audit %s %s: %w", action, entityType, err)
	}
	afterJSON, err := encode(after)
	if err != nil {
		return fmt.Errorf("audit %s %s: %w", action, entityType, err)
	}
	row := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
		CreatedAt:  s.now().UTC(),
	}
	_, err = tx.NewInsert().Model(row).Exec(ctx)
	return err
}

// WriteID is Write for integer keyed entities.
func (s *Service) WriteID(ctx context.Context, tx bun.Tx, userID int64, action, entityType string, id int64, before, after any) error {
	return s.Write(ctx, tx, userID, action, entityType, strconv.FormatInt(id, 10), before, after)
}

// History returns the newest entries for one entity.
func History(ctx context.Context, tx bun.IDB, entityType, entityID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows := make([]models.AuditLog, 0)
	err := tx.NewSelect().
		Model(&rows).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		OrderExpr("created_at DESC, id DESC").
		Limit(limit).
		Scan(ctx)
	return rows, err
}

func encode(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
