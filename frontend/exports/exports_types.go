package exports

// Export kinds, also recorded in export_runs.export_type.
const (
	KindBatches   = "batches_csv"
	KindPackaging = "packaging_runs_csv"
	KindInventory = "inventory_on_hand_csv"
)

var fileNames = map[string]string{
	KindBatches:   "batches.csv",
	KindPackaging: "packaging-runs.csv",
	KindInventory: "inventory-on-hand.csv",
}

// ExportRun is one row of the export history.
type ExportRun struct {
	ID         int64  `bun:"id" json:"id"`
	UserID     *int64 `bun:"user_id" json:"user_id,omitempty"`
	Username   string `bun:"username" json:"username"`
	ExportType string `bun:"export_type" json:"export_type"`
	CreatedAt  string `bun:"created_at" json:"created_at"`
}
