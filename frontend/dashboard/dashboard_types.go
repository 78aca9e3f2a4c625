package dashboard

// Summary is the landing page overview.
type Summary struct {
	ActiveBatches      map[string]int `json:"active_batches"`
	PackagedThisMonthL float64        `json:"packaged_this_month_l"`
	PackagedDisplay    string         `json:"packaged_display"`
	LowStockCount      int            `json:"low_stock_count"`
	OpenPurchaseOrders int            `json:"open_purchase_orders"`
	OpenCarbonationOps int            `json:"open_carbonation_operations"`
}
