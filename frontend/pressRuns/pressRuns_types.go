package pressruns

import (
	"time"

	"cellarbook/frontend/batches"
	"cellarbook/models"
)

const (
	StatusDraft     = "draft"
	StatusCompleted = "completed"
)

// Sync outcomes.
const (
	SyncCreated   = "created"
	SyncUpdated   = "updated"
	SyncUnchanged = "unchanged"
)

type LoadInput struct {
	Variety  string  `json:"variety"`
	WeightKg float64 `json:"weight_kg"`
	VendorID *int64  `json:"vendor_id"`
	Notes    string  `json:"notes"`
}

// DraftInput is a press run as recorded by a client, possibly offline.
// ClientUUID identifies the draft across retries; Revision increases with
// every local edit.
type DraftInput struct {
	ClientUUID string      `json:"client_uuid"`
	Revision   int64       `json:"revision"`
	Name       string      `json:"name"`
	PressedAt  time.Time   `json:"pressed_at"`
	JuiceL     float64     `json:"juice_l"`
	Notes      string      `json:"notes"`
	Loads      []LoadInput `json:"loads"`
}

type SyncResult struct {
	Outcome  string       `json:"outcome"`
	PressRun PressRunView `json:"press_run"`
}

// CompleteInput finishes a press run. When Batch is set the juice becomes a
// new batch.
type CompleteInput struct {
	Batch *batches.CreateBatchInput `json:"batch"`
}

type PressRunView struct {
	models.PressRun
	TotalFruitKg float64 `json:"total_fruit_kg"`
	YieldLPerKg  float64 `json:"yield_l_per_kg"`
	JuiceDisplay string  `json:"juice_display"`
	FruitDisplay string  `json:"fruit_display"`
}
