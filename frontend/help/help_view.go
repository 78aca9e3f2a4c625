package help

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

var Topics = []Topic{
	{
		Title:   "Batches and vessels",
		Summary: "A batch moves planned, fermenting, aging, conditioning, packaged, archived. Entering fermenting puts its volume into bond; gravity readings set ABV and the tax class.",
		Reads:   []string{"GET /cellar/api/batches", "GET /cellar/api/batches/{id}", "GET /cellar/api/vessels"},
		Writes: []string{"POST /cellar/api/batches", "PUT /cellar/api/batches/{id}", "POST /cellar/api/batches/{id}/transition",
			"POST /cellar/api/batches/{id}/measurements", "POST /cellar/api/batches/{id}/volume-adjustments"},
		AdminOnly: []string{"POST /cellar/api/vessels"},
	},
	{
		Title:   "Press runs",
		Summary: "Press runs can be drafted offline and synced; a stale revision is rejected. Completing a run creates its batch.",
		Reads:   []string{"GET /cellar/api/press-runs", "GET /cellar/api/press-runs/{id}"},
		Writes:  []string{"POST /cellar/api/press-runs", "POST /cellar/api/press-runs/sync", "POST /cellar/api/press-runs/{id}/complete"},
	},
	{
		Title:   "Carbonation",
		Summary: "The calculator returns pressure, duration and priming sugar for a target CO2 level. Operations outside the safe range need an admin override.",
		Reads:   []string{"POST /cellar/api/carbonation/calculate", "GET /cellar/api/carbonation", "GET /cellar/api/carbonation/{id}"},
		Writes:  []string{"POST /cellar/api/carbonation", "POST /cellar/api/carbonation/{id}/complete", "POST /cellar/api/carbonation/{id}/cancel"},
	},
	{
		Title:     "Packaging",
		Summary:   "A packaging run draws bulk volume from a batch into finished goods under a lot code. Fill checks flag units outside tolerance.",
		Reads:     []string{"GET /cellar/api/packaging", "GET /cellar/api/packaging/{id}", "GET /cellar/api/packaging/{id}/label"},
		Writes:    []string{"POST /cellar/api/packaging", "POST /cellar/api/packaging/{id}/fill-checks"},
		AdminOnly: []string{"POST /cellar/api/packaging/{id}/void"},
	},
	{
		Title:   "Inventory",
		Summary: "On hand quantities never go negative. Every change is a transaction with a reason.",
		Reads: []string{"GET /cellar/api/inventory/items", "GET /cellar/api/inventory/items/{id}", "GET /cellar/api/inventory/low-stock",
			"GET /cellar/api/inventory/finished-goods/{id}"},
		Writes: []string{"POST /cellar/api/inventory/items", "PUT /cellar/api/inventory/items/{id}", "POST /cellar/api/inventory/items/{id}/adjust",
			"POST /cellar/api/inventory/items/{id}/sale"},
		AdminOnly: []string{"POST /cellar/api/inventory/import"},
	},
	{
		Title:   "Purchasing",
		Summary: "Orders go draft, submitted, partially received, received. Receiving adds stock and can never exceed the ordered quantity.",
		Reads:   []string{"GET /cellar/api/vendors", "GET /cellar/api/purchase-orders", "GET /cellar/api/purchase-orders/{id}/pdf"},
		Writes: []string{"POST /cellar/api/vendors", "POST /cellar/api/purchase-orders", "POST /cellar/api/purchase-orders/{id}/submit",
			"POST /cellar/api/purchase-orders/{id}/receive", "POST /cellar/api/purchase-orders/{id}/cancel"},
	},
	{
		Title:     "TTB reporting",
		Summary:   "Form 5120.17 is built from the bulk ledger for a closed or current month. Regenerating a month replaces its saved snapshot.",
		Reads:     []string{"GET /cellar/api/ttb/reports", "GET /cellar/api/ttb/reports/{year}/{month}?format=pdf"},
		AdminOnly: []string{"POST /cellar/api/ttb/form-5120-17"},
	},
	{
		Title:   "Exports and settings",
		Summary: "CSV exports are logged. Display units are a per user setting.",
		Reads:   []string{"GET /cellar/exports/batches.csv", "GET /cellar/exports/packaging.csv", "GET /cellar/exports/inventory.csv", "PUT /cellar/api/settings/units"},
	},
}

func HelpPage(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section><h1>Help</h1><p>Signed in as <strong>%s</strong>.</p>`, templ.EscapeString(data.Role)); err != nil {
			return err
		}
		if !data.CanWrite {
			if _, err := io.WriteString(w, `<p class="status">Your role can view records but not change them.</p>`); err != nil {
				return err
			}
		}
		for _, topic := range data.Topics {
			if _, err := fmt.Fprintf(w, `<div class="card"><h2>%s</h2><p>%s</p>`, templ.EscapeString(topic.Title), templ.EscapeString(topic.Summary)); err != nil {
				return err
			}
			routes := append([]string{}, topic.Reads...)
			if data.CanWrite {
				routes = append(routes, topic.Writes...)
			}
			if data.IsAdmin {
				routes = append(routes, topic.AdminOnly...)
			}
			if err := routeList(w, routes); err != nil {
				return err
			}
			if _, err := io.WriteString(w, `</div>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</section>`)
		return err
	})
}

func routeList(w io.Writer, routes []string) error {
	if len(routes) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, `<ul>`); err != nil {
		return err
	}
	for _, r := range routes {
		if _, err := fmt.Fprintf(w, `<li><code>%s</code></li>`, templ.EscapeString(r)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</ul>`)
	return err
}
