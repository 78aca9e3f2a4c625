package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents an authenticated app user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Username     string    `bun:"username,unique,notnull" json:"username"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         string    `bun:"role,notnull" json:"role"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Session is a logged in user. Roles and permissions are filled by the auth
// middleware and never stored.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID          string          `bun:"id,pk"`
	UserID      int64           `bun:"user_id,notnull"`
	User        User            `bun:"rel:belongs-to,join:user_id=id"`
	UserRoles   []string        `bun:"-"`
	Permissions map[string]bool `bun:"-"`
	ExpiresAt   time.Time       `bun:"expires_at,notnull"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}

// Expired returns true when the session expiry time has passed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// UserPreference holds per-user display units.
type UserPreference struct {
	bun.BaseModel `bun:"table:user_preferences,alias:up"`

	UserID          int64     `bun:"user_id,pk" json:"user_id"`
	VolumeUnit      string    `bun:"volume_unit,notnull" json:"volume_unit"`
	WeightUnit      string    `bun:"weight_unit,notnull" json:"weight_unit"`
	TemperatureUnit string    `bun:"temperature_unit,notnull" json:"temperature_unit"`
	PressureUnit    string    `bun:"pressure_unit,notnull" json:"pressure_unit"`
	UpdatedAt       time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Vendor supplies fruit, packaging and ingredients.
type Vendor struct {
	bun.BaseModel `bun:"table:vendors,alias:v"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull,unique" json:"name"`
	ContactName string    `bun:"contact_name,notnull" json:"contact_name"`
	Email       string    `bun:"email,notnull" json:"email"`
	Phone       string    `bun:"phone,notnull" json:"phone"`
	Notes       string    `bun:"notes,notnull" json:"notes"`
	Active      bool      `bun:"active,notnull" json:"active"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Vessel is a tank, barrel or keg that holds bulk product.
type Vessel struct {
	bun.BaseModel `bun:"table:vessels,alias:ve"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	Name           string    `bun:"name,notnull,unique" json:"name"`
	VesselType     string    `bun:"vessel_type,notnull" json:"vessel_type"`
	CapacityL      float64   `bun:"capacity_l,notnull" json:"capacity_l"`
	MaxPressurePSI float64   `bun:"max_pressure_psi,notnull" json:"max_pressure_psi"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Batch is a lot of bulk product moving through fermentation to packaging.
type Batch struct {
	bun.BaseModel `bun:"table:batches,alias:b"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id"`
	Code              string     `bun:"code,notnull,unique" json:"code"`
	Name              string     `bun:"name,notnull" json:"name"`
	ProductType       string     `bun:"product_type,notnull" json:"product_type"`
	VesselID          *int64     `bun:"vessel_id" json:"vessel_id,omitempty"`
	VolumeL           float64    `bun:"volume_l,notnull" json:"volume_l"`
	Status            string     `bun:"status,notnull" json:"status"`
	OriginalGravity   *float64   `bun:"original_gravity" json:"original_gravity,omitempty"`
	FinalGravity      *float64   `bun:"final_gravity" json:"final_gravity,omitempty"`
	ABV               *float64   `bun:"abv" json:"abv,omitempty"`
	CO2Volumes        float64    `bun:"co2_volumes,notnull" json:"co2_volumes"`
	CarbonationMethod string     `bun:"carbonation_method,notnull" json:"carbonation_method"`
	TaxClass          string     `bun:"tax_class,notnull" json:"tax_class"`
	Notes             string     `bun:"notes,notnull" json:"notes"`
	StartedAt         *time.Time `bun:"started_at" json:"started_at,omitempty"`
	PackagedAt        *time.Time `bun:"packaged_at" json:"packaged_at,omitempty"`
	CreatedAt         time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// BatchMeasurement is one reading taken against a batch.
type BatchMeasurement struct {
	bun.BaseModel `bun:"table:batch_measurements,alias:bm"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	BatchID         int64     `bun:"batch_id,notnull" json:"batch_id"`
	TakenAt         time.Time `bun:"taken_at,notnull" json:"taken_at"`
	SpecificGravity *float64  `bun:"specific_gravity" json:"specific_gravity,omitempty"`
	TemperatureC    *float64  `bun:"temperature_c" json:"temperature_c,omitempty"`
	PH              *float64  `bun:"ph" json:"ph,omitempty"`
	TAGPL           *float64  `bun:"ta_gpl" json:"ta_gpl,omitempty"`
	Notes           string    `bun:"notes,notnull" json:"notes"`
	CreatedBy       int64     `bun:"created_by,notnull" json:"created_by"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// BulkMovement is one entry in the volume ledger that feeds TTB reporting.
type BulkMovement struct {
	bun.BaseModel `bun:"table:bulk_movements,alias:mv"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	BatchID      *int64    `bun:"batch_id" json:"batch_id,omitempty"`
	MovementType string    `bun:"movement_type,notnull" json:"movement_type"`
	Section      string    `bun:"section,notnull" json:"section"`
	VolumeL      float64   `bun:"volume_l,notnull" json:"volume_l"`
	TaxClass     string    `bun:"tax_class,notnull" json:"tax_class"`
	OccurredAt   time.Time `bun:"occurred_at,notnull" json:"occurred_at"`
	Reference    string    `bun:"reference,notnull" json:"reference"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// PressRun records one pressing session.
type PressRun struct {
	bun.BaseModel `bun:"table:press_runs,alias:pr"`

	ID         int64       `bun:"id,pk,autoincrement" json:"id"`
	ClientUUID *string     `bun:"client_uuid" json:"client_uuid,omitempty"`
	Revision   int64       `bun:"revision,notnull" json:"revision"`
	Name       string      `bun:"name,notnull" json:"name"`
	PressedAt  time.Time   `bun:"pressed_at,notnull" json:"pressed_at"`
	JuiceL     float64     `bun:"juice_l,notnull" json:"juice_l"`
	Status     string      `bun:"status,notnull" json:"status"`
	BatchID    *int64      `bun:"batch_id" json:"batch_id,omitempty"`
	Notes      string      `bun:"notes,notnull" json:"notes"`
	CreatedBy  int64       `bun:"created_by,notnull" json:"created_by"`
	CreatedAt  time.Time   `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time   `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	Loads      []FruitLoad `bun:"rel:has-many,join:id=press_run_id" json:"loads"`
}

// FruitLoad is fruit delivered into a press run.
type FruitLoad struct {
	bun.BaseModel `bun:"table:fruit_loads,alias:fl"`

	ID         int64   `bun:"id,pk,autoincrement" json:"id"`
	PressRunID int64   `bun:"press_run_id,notnull" json:"press_run_id"`
	Variety    string  `bun:"variety,notnull" json:"variety"`
	WeightKg   float64 `bun:"weight_kg,notnull" json:"weight_kg"`
	VendorID   *int64  `bun:"vendor_id" json:"vendor_id,omitempty"`
	Notes      string  `bun:"notes,notnull" json:"notes"`
}

// CarbonationOperation tracks a force or natural carbonation of a batch.
type CarbonationOperation struct {
	bun.BaseModel `bun:"table:carbonation_operations,alias:co"`

	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	BatchID         int64      `bun:"batch_id,notnull" json:"batch_id"`
	VesselID        *int64     `bun:"vessel_id" json:"vessel_id,omitempty"`
	Method          string     `bun:"method,notnull" json:"method"`
	PackageType     string     `bun:"package_type,notnull" json:"package_type"`
	StartingVolumes float64    `bun:"starting_volumes,notnull" json:"starting_volumes"`
	TargetVolumes   float64    `bun:"target_volumes,notnull" json:"target_volumes"`
	TemperatureC    float64    `bun:"temperature_c,notnull" json:"temperature_c"`
	PressurePSI     float64    `bun:"pressure_psi,notnull" json:"pressure_psi"`
	SugarType       string     `bun:"sugar_type,notnull" json:"sugar_type"`
	SugarGrams      float64    `bun:"sugar_grams,notnull" json:"sugar_grams"`
	EstimatedHours  float64    `bun:"estimated_hours,notnull" json:"estimated_hours"`
	Status          string     `bun:"status,notnull" json:"status"`
	FinalVolumes    *float64   `bun:"final_volumes" json:"final_volumes,omitempty"`
	FindingsJSON    string     `bun:"findings_json,notnull" json:"-"`
	StartedAt       time.Time  `bun:"started_at,notnull" json:"started_at"`
	CompletedAt     *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	CreatedBy       int64      `bun:"created_by,notnull" json:"created_by"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// PackagingRun converts bulk batch volume into packaged units.
type PackagingRun struct {
	bun.BaseModel `bun:"table:packaging_runs,alias:pkr"`

	ID                     int64     `bun:"id,pk,autoincrement" json:"id"`
	BatchID                int64     `bun:"batch_id,notnull" json:"batch_id"`
	CarbonationOperationID *int64    `bun:"carbonation_operation_id" json:"carbonation_operation_id,omitempty"`
	PackageType            string    `bun:"package_type,notnull" json:"package_type"`
	UnitSizeML             float64   `bun:"unit_size_ml,notnull" json:"unit_size_ml"`
	UnitsProduced          int64     `bun:"units_produced,notnull" json:"units_produced"`
	VolumeTakenL           float64   `bun:"volume_taken_l,notnull" json:"volume_taken_l"`
	LossL                  float64   `bun:"loss_l,notnull" json:"loss_l"`
	LossPct                float64   `bun:"loss_pct,notnull" json:"loss_pct"`
	LotCode                string    `bun:"lot_code,notnull,unique" json:"lot_code"`
	TaxClass               string    `bun:"tax_class,notnull" json:"tax_class"`
	Status                 string    `bun:"status,notnull" json:"status"`
	Notes                  string    `bun:"notes,notnull" json:"notes"`
	PackagedAt             time.Time `bun:"packaged_at,notnull" json:"packaged_at"`
	CreatedBy              int64     `bun:"created_by,notnull" json:"created_by"`
	CreatedAt              time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt              time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// FillCheck is a quality-control fill measurement on a packaging run.
type FillCheck struct {
	bun.BaseModel `bun:"table:fill_checks,alias:fc"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	PackagingRunID  int64     `bun:"packaging_run_id,notnull" json:"packaging_run_id"`
	TargetML        float64   `bun:"target_ml,notnull" json:"target_ml"`
	ActualML        float64   `bun:"actual_ml,notnull" json:"actual_ml"`
	VarianceML      float64   `bun:"variance_ml,notnull" json:"variance_ml"`
	VariancePct     float64   `bun:"variance_pct,notnull" json:"variance_pct"`
	WithinTolerance bool      `bun:"within_tolerance,notnull" json:"within_tolerance"`
	CheckedAt       time.Time `bun:"checked_at,notnull,default:current_timestamp" json:"checked_at"`
}

// InventoryItem is the item master for finished goods and supplies.
type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory_items,alias:ii"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	SKU            string    `bun:"sku,notnull,unique" json:"sku"`
	Name           string    `bun:"name,notnull" json:"name"`
	Category       string    `bun:"category,notnull" json:"category"`
	Unit           string    `bun:"unit,notnull" json:"unit"`
	ReorderLevel   float64   `bun:"reorder_level,notnull" json:"reorder_level"`
	BatchID        *int64    `bun:"batch_id" json:"batch_id,omitempty"`
	PackagingRunID *int64    `bun:"packaging_run_id" json:"packaging_run_id,omitempty"`
	UnitSizeML     float64   `bun:"unit_size_ml,notnull" json:"unit_size_ml"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// InventoryTransaction is an append-only stock movement.
type InventoryTransaction struct {
	bun.BaseModel `bun:"table:inventory_transactions,alias:it"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	ItemID    int64     `bun:"item_id,notnull" json:"item_id"`
	QtyDelta  float64   `bun:"qty_delta,notnull" json:"qty_delta"`
	Reason    string    `bun:"reason,notnull" json:"reason"`
	Reference string    `bun:"reference,notnull" json:"reference"`
	CreatedBy int64     `bun:"created_by,notnull" json:"created_by"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// PurchaseOrder is an order placed with a vendor.
type PurchaseOrder struct {
	bun.BaseModel `bun:"table:purchase_orders,alias:po"`

	ID         int64               `bun:"id,pk,autoincrement" json:"id"`
	PONumber   string              `bun:"po_number,notnull,unique" json:"po_number"`
	VendorID   int64               `bun:"vendor_id,notnull" json:"vendor_id"`
	Vendor     *Vendor             `bun:"rel:belongs-to,join:vendor_id=id" json:"vendor,omitempty"`
	Status     string              `bun:"status,notnull" json:"status"`
	OrderedAt  *time.Time          `bun:"ordered_at" json:"ordered_at,omitempty"`
	ExpectedAt *time.Time          `bun:"expected_at" json:"expected_at,omitempty"`
	Notes      string              `bun:"notes,notnull" json:"notes"`
	CreatedBy  int64               `bun:"created_by,notnull" json:"created_by"`
	CreatedAt  time.Time           `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time           `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	Lines      []PurchaseOrderLine `bun:"rel:has-many,join:id=purchase_order_id" json:"lines"`
}

// PurchaseOrderLine is one item line on a purchase order. UnitCost is a decimal string.
type PurchaseOrderLine struct {
	bun.BaseModel `bun:"table:purchase_order_lines,alias:pol"`

	ID              int64   `bun:"id,pk,autoincrement" json:"id"`
	PurchaseOrderID int64   `bun:"purchase_order_id,notnull" json:"purchase_order_id"`
	ItemID          int64   `bun:"item_id,notnull" json:"item_id"`
	QtyOrdered      float64 `bun:"qty_ordered,notnull" json:"qty_ordered"`
	QtyReceived     float64 `bun:"qty_received,notnull" json:"qty_received"`
	UnitCost        string  `bun:"unit_cost,notnull" json:"unit_cost"`
}

// TTBReport is a persisted snapshot of a generated Form 5120.17.
type TTBReport struct {
	bun.BaseModel `bun:"table:ttb_reports,alias:tr"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	PeriodYear   int       `bun:"period_year,notnull" json:"period_year"`
	PeriodMonth  int       `bun:"period_month,notnull" json:"period_month"`
	SnapshotJSON string    `bun:"snapshot_json,notnull" json:"-"`
	NetTax       string    `bun:"net_tax,notnull" json:"net_tax"`
	GeneratedBy  int64     `bun:"generated_by,notnull" json:"generated_by"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
