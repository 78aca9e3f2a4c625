package nav

import "cellarbook/models"

type Link struct {
	Label string
	Href  string
	Code  string
}

// Links in display order; Code is the permission needed to see the link.
var Links = []Link{
	{Label: "Dashboard", Href: "/cellar", Code: "DASHBOARD_VIEW"},
	{Label: "Batches", Href: "/cellar/api/batches", Code: "BATCHES_VIEW"},
	{Label: "Press runs", Href: "/cellar/api/press-runs", Code: "PRESS_RUNS_VIEW"},
	{Label: "Carbonation", Href: "/cellar/api/carbonation", Code: "CARBONATION_VIEW"},
	{Label: "Packaging", Href: "/cellar/api/packaging", Code: "PACKAGING_VIEW"},
	{Label: "Inventory", Href: "/cellar/api/inventory/items", Code: "INVENTORY_VIEW"},
	{Label: "Purchasing", Href: "/cellar/api/purchase-orders", Code: "PURCHASING_VIEW"},
	{Label: "TTB", Href: "/cellar/api/ttb/reports", Code: "TTB_VIEW"},
	{Label: "Exports", Href: "/cellar/exports", Code: "EXPORTS_VIEW"},
	{Label: "Settings", Href: "/cellar/api/settings/units", Code: "SETTINGS_VIEW"},
	{Label: "Users", Href: "/cellar/admin/users", Code: "ADMIN_USERS_VIEW"},
	{Label: "Help", Href: "/cellar/help", Code: "HELP_VIEW"},
}

type TopNavData struct {
	Username string
	Role     string
	Links    []Link
}

func BuildTopNavData(session models.Session) TopNavData {
	data := TopNavData{Username: session.User.Username, Role: session.User.Role}
	for _, l := range Links {
		if session.Permissions[l.Code] {
			data.Links = append(data.Links, l)
		}
	}
	return data
}
