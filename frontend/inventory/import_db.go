package inventory

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
)

var importHeader = []string{"sku", "name", "category", "unit"}

// ImportCSV upserts items from a sku,name,category,unit file. Bad rows are
// reported by line and skipped.
func ImportCSV(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, userID int64, reader io.Reader) (ImportSummary, error) {
	summary := ImportSummary{Errors: make([]ImportError, 0)}
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return summary, api.Invalid("file", "read header: %v", err)
	}
	if len(header) < len(importHeader) {
		return summary, api.Invalid("file", "invalid CSV header; expected %s", strings.Join(importHeader, ","))
	}
	for i, col := range importHeader {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")), col) {
			return summary, api.Invalid("file", "invalid CSV header; expected %s", strings.Join(importHeader, ","))
		}
	}

	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				var pe *csv.ParseError
				line := 0
				if errors.As(err, &pe) {
					line = pe.Line
				}
				summary.Errors = append(summary.Errors, ImportError{Line: line, Message: err.Error()})
				continue
			}
			line, _ := r.FieldPos(0)
			if len(record) < len(importHeader) {
				summary.Errors = append(summary.Errors, ImportError{Line: line, Message: "expected 4 columns"})
				continue
			}
			item, err := normalizeItem(CreateItemInput{SKU: record[0], Name: record[1], Category: record[2], Unit: record[3]})
			if err != nil {
				summary.Errors = append(summary.Errors, ImportError{Line: line, Message: err.Error()})
				continue
			}

			existing, err := FindBySKU(ctx, tx, item.SKU)
			switch {
			case err == nil:
				existing.Name = item.Name
				existing.Category = item.Category
				existing.Unit = item.Unit
				existing.UpdatedAt = time.Now().UTC()
				if _, err := tx.NewUpdate().Model(&existing).Column("name", "category", "unit", "updated_at").WherePK().Exec(ctx); err != nil {
					return err
				}
				summary.Updated++
			case errors.Is(err, sql.ErrNoRows):
				if _, err := InsertItem(ctx, tx, auditSvc, userID, item); err != nil {
					return err
				}
				summary.Inserted++
			default:
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO stock_import_runs (user_id, inserted_count, updated_count, error_count)
VALUES (?, ?, ?, ?)`, userID, summary.Inserted, summary.Updated, len(summary.Errors)); err != nil {
			return err
		}
		after := map[string]any{"inserted": summary.Inserted, "updated": summary.Updated, "errors": len(summary.Errors)}
		return auditSvc.Write(ctx, tx, userID, "inventory.import", "stock_import_runs", "latest", nil, after)
	})
	return summary, err
}

