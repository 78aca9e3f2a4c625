package inventory

import (
	"time"

	"cellarbook/models"
)

const (
	CategoryFinishedGood = "finished_good"
	CategoryPackaging    = "packaging"
	CategoryIngredient   = "ingredient"
	CategoryFruit        = "fruit"
)

var Categories = []string{CategoryFinishedGood, CategoryPackaging, CategoryIngredient, CategoryFruit}

var Units = []string{"ea", "kg", "l"}

// Transaction reasons.
const (
	ReasonPackaging  = "packaging"
	ReasonReceipt    = "receipt"
	ReasonSale       = "sale"
	ReasonAdjustment = "adjustment"
	ReasonWaste      = "waste"
	ReasonImport     = "import"
	ReasonVoid       = "void"
)

type CreateItemInput struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Unit         string  `json:"unit"`
	ReorderLevel float64 `json:"reorder_level"`
	UnitSizeML   float64 `json:"unit_size_ml"`
}

type UpdateItemInput struct {
	Name         string   `json:"name"`
	ReorderLevel *float64 `json:"reorder_level"`
}

// AdjustInput changes stock outside of packaging, purchasing and sales.
type AdjustInput struct {
	QtyDelta  float64 `json:"qty_delta"`
	Reason    string  `json:"reason"`
	Reference string  `json:"reference"`
}

// SaleInput removes finished goods taxpaid.
type SaleInput struct {
	Units     int64      `json:"units"`
	Reference string     `json:"reference"`
	SoldAt    *time.Time `json:"sold_at"`
}

type ItemView struct {
	models.InventoryItem
	OnHand   float64 `bun:"on_hand" json:"on_hand"`
	LowStock bool    `bun:"-" json:"low_stock"`
}

type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportSummary struct {
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Errors   []ImportError `json:"errors"`
}

// FinishedGoodDetails is a finished good with where it came from.
type FinishedGoodDetails struct {
	Item          ItemView                      `json:"item"`
	PackagingRun  *models.PackagingRun          `json:"packaging_run,omitempty"`
	Batch         *models.Batch                 `json:"batch,omitempty"`
	OnHandVolumeL float64                       `json:"on_hand_volume_l"`
	VolumeDisplay string                        `json:"on_hand_volume_display"`
	Transactions  []models.InventoryTransaction `json:"recent_transactions"`
}
