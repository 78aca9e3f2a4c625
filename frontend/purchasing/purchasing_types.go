package purchasing

import (
	"time"

	"cellarbook/models"
)

const (
	StatusDraft             = "draft"
	StatusSubmitted         = "submitted"
	StatusPartiallyReceived = "partially_received"
	StatusReceived          = "received"
	StatusCancelled         = "cancelled"
)

var Statuses = []string{StatusDraft, StatusSubmitted, StatusPartiallyReceived, StatusReceived, StatusCancelled}

type VendorInput struct {
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Notes       string `json:"notes"`
}

// UpdateVendorInput leaves nil fields unchanged.
type UpdateVendorInput struct {
	Name        *string `json:"name"`
	ContactName *string `json:"contact_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Notes       *string `json:"notes"`
	Active      *bool   `json:"active"`
}

type LineInput struct {
	ItemID     int64   `json:"item_id"`
	QtyOrdered float64 `json:"qty_ordered"`
	// UnitCost is a decimal string such as "0.185".
	UnitCost string `json:"unit_cost"`
}

type CreateOrderInput struct {
	VendorID   int64       `json:"vendor_id"`
	ExpectedAt *time.Time  `json:"expected_at"`
	Notes      string      `json:"notes"`
	Lines      []LineInput `json:"lines"`
}

type ReceiveLine struct {
	LineID int64   `json:"line_id"`
	Qty    float64 `json:"qty"`
}

type ReceiveInput struct {
	Lines     []ReceiveLine `json:"lines"`
	Reference string        `json:"reference"`
}

type LineView struct {
	models.PurchaseOrderLine
	SKU         string  `json:"sku"`
	ItemName    string  `json:"item_name"`
	Unit        string  `json:"unit"`
	Outstanding float64 `json:"outstanding"`
	LineTotal   string  `json:"line_total"`
}

type OrderView struct {
	models.PurchaseOrder
	LineViews []LineView `json:"line_views"`
	Total     string     `json:"total"`
	Received  string     `json:"received_total"`
}
