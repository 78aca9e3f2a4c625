package http

import (
	"net/http"

	adminusers "cellarbook/frontend/adminUsers"
	"cellarbook/frontend/batches"
	"cellarbook/frontend/carbonation"
	"cellarbook/frontend/dashboard"
	"cellarbook/frontend/exports"
	"cellarbook/frontend/help"
	"cellarbook/frontend/inventory"
	"cellarbook/frontend/login"
	"cellarbook/frontend/packaging"
	pressruns "cellarbook/frontend/pressRuns"
	"cellarbook/frontend/purchasing"
	"cellarbook/frontend/settings"
	ttbreports "cellarbook/frontend/ttbReports"
	"cellarbook/infrastructure/rbac"

	"github.com/go-chi/chi/v5"
)

// RegisterLoginRoutes registers login/logout routes.
func (s *Server) RegisterLoginRoutes() {
	s.router.Get("/login", login.GetLoginScreenHandler)
	s.router.Post("/login", login.CreateLoginHandler(s.DB, s.Sessions, s.Users, s.Options.SessionTTL))
	s.router.Post("/logout", login.LogoutHandler(s.DB, s.Sessions))
}

// RegisterAdminRoutes registers admin-only routes.
func (s *Server) RegisterAdminRoutes(r chi.Router) chi.Router {
	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_VIEW", http.MethodGet, "/cellar/admin/users")
	r.Get("/admin/users", adminusers.UsersPageQueryHandler(s.DB))
	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_CREATE", http.MethodPost, "/cellar/admin/users")
	r.Post("/admin/users", adminusers.CreateUserCommandHandler(s.DB, s.Users, s.Audit))
	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_ROLE_EDIT", http.MethodPost, "/cellar/admin/users/*/role")
	r.Post("/admin/users/{id}/role", adminusers.UpdateUserRoleCommandHandler(s.DB, s.Sessions, s.Users, s.Audit))

	s.Rbac.Add(rbac.RoleAdmin, "VESSELS_CREATE", http.MethodPost, "/cellar/api/vessels")
	r.Post("/api/vessels", batches.CreateVesselCommandHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "TTB_GENERATE", http.MethodPost, "/cellar/api/ttb/form-5120-17")
	r.Post("/api/ttb/form-5120-17", ttbreports.GenerateCommandHandler(s.DB, s.Audit, s.Options.TTB))
	return r
}

// RegisterFrontendRoutes registers authenticated routes.
func (s *Server) RegisterFrontendRoutes(r chi.Router) chi.Router {
	s.Rbac.Read("DASHBOARD_VIEW", http.MethodGet, "/cellar")
	r.Get("/", dashboard.SummaryQueryHandler(s.DB))
	s.Rbac.Read("DASHBOARD_VIEW", http.MethodGet, "/cellar/api/dashboard")
	r.Get("/api/dashboard", dashboard.SummaryQueryHandler(s.DB))

	s.RegisterBatchRoutes(r)
	s.RegisterPressRunRoutes(r)
	s.RegisterCarbonationRoutes(r)
	s.RegisterPackagingRoutes(r)
	s.RegisterInventoryRoutes(r)
	s.RegisterPurchasingRoutes(r)
	s.RegisterTTBRoutes(r)
	s.RegisterExportRoutes(r)

	s.Rbac.Read("HELP_VIEW", http.MethodGet, "/cellar/help")
	r.Get("/help", help.HelpPageQueryHandler())

	s.Rbac.Read("SETTINGS_VIEW", http.MethodGet, "/cellar/api/settings/units")
	r.Get("/api/settings/units", settings.PreferencesQueryHandler(s.DB))
	s.Rbac.Read("SETTINGS_EDIT", http.MethodPut, "/cellar/api/settings/units")
	r.Put("/api/settings/units", settings.PreferencesCommandHandler(s.DB, s.Audit))

	return r
}

func (s *Server) RegisterBatchRoutes(r chi.Router) {
	s.Rbac.Read("BATCHES_VIEW", http.MethodGet, "/cellar/api/batches")
	r.Get("/api/batches", batches.ListBatchesQueryHandler(s.DB))
	s.Rbac.Read("BATCHES_VIEW", http.MethodGet, "/cellar/api/batches/*")
	r.Get("/api/batches/{id}", batches.GetBatchQueryHandler(s.DB))

	s.Rbac.Write("BATCHES_CREATE", http.MethodPost, "/cellar/api/batches")
	r.Post("/api/batches", batches.CreateBatchCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("BATCHES_EDIT", http.MethodPut, "/cellar/api/batches/*")
	r.Put("/api/batches/{id}", batches.UpdateBatchCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("BATCHES_TRANSITION", http.MethodPost, "/cellar/api/batches/*/transition")
	r.Post("/api/batches/{id}/transition", batches.TransitionBatchCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("BATCHES_MEASURE", http.MethodPost, "/cellar/api/batches/*/measurements")
	r.Post("/api/batches/{id}/measurements", batches.AddMeasurementCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("BATCHES_ADJUST", http.MethodPost, "/cellar/api/batches/*/volume-adjustments")
	r.Post("/api/batches/{id}/volume-adjustments", batches.AdjustVolumeCommandHandler(s.DB, s.Audit))

	s.Rbac.Read("VESSELS_VIEW", http.MethodGet, "/cellar/api/vessels")
	r.Get("/api/vessels", batches.ListVesselsQueryHandler(s.DB))
}

func (s *Server) RegisterPressRunRoutes(r chi.Router) {
	s.Rbac.Read("PRESS_RUNS_VIEW", http.MethodGet, "/cellar/api/press-runs")
	r.Get("/api/press-runs", pressruns.ListPressRunsQueryHandler(s.DB))
	s.Rbac.Read("PRESS_RUNS_VIEW", http.MethodGet, "/cellar/api/press-runs/*")
	r.Get("/api/press-runs/{id}", pressruns.GetPressRunQueryHandler(s.DB))

	s.Rbac.Write("PRESS_RUNS_CREATE", http.MethodPost, "/cellar/api/press-runs")
	r.Post("/api/press-runs", pressruns.CreatePressRunCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("PRESS_RUNS_SYNC", http.MethodPost, "/cellar/api/press-runs/sync")
	r.Post("/api/press-runs/sync", pressruns.SyncDraftCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("PRESS_RUNS_COMPLETE", http.MethodPost, "/cellar/api/press-runs/*/complete")
	r.Post("/api/press-runs/{id}/complete", pressruns.CompletePressRunCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterCarbonationRoutes(r chi.Router) {
	s.Rbac.Read("CARBONATION_CALCULATE", http.MethodPost, "/cellar/api/carbonation/calculate")
	r.Post("/api/carbonation/calculate", carbonation.CalculateQueryHandler(s.DB))

	s.Rbac.Read("CARBONATION_VIEW", http.MethodGet, "/cellar/api/carbonation")
	r.Get("/api/carbonation", carbonation.ListOperationsQueryHandler(s.DB))
	s.Rbac.Read("CARBONATION_VIEW", http.MethodGet, "/cellar/api/carbonation/*")
	r.Get("/api/carbonation/{id}", carbonation.GetOperationQueryHandler(s.DB))

	s.Rbac.Write("CARBONATION_START", http.MethodPost, "/cellar/api/carbonation")
	r.Post("/api/carbonation", carbonation.StartOperationCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("CARBONATION_COMPLETE", http.MethodPost, "/cellar/api/carbonation/*/complete")
	r.Post("/api/carbonation/{id}/complete", carbonation.CompleteOperationCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("CARBONATION_CANCEL", http.MethodPost, "/cellar/api/carbonation/*/cancel")
	r.Post("/api/carbonation/{id}/cancel", carbonation.CancelOperationCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterPackagingRoutes(r chi.Router) {
	s.Rbac.Read("PACKAGING_VIEW", http.MethodGet, "/cellar/api/packaging")
	r.Get("/api/packaging", packaging.ListRunsQueryHandler(s.DB))
	s.Rbac.Read("PACKAGING_VIEW", http.MethodGet, "/cellar/api/packaging/*")
	r.Get("/api/packaging/{id}", packaging.GetRunQueryHandler(s.DB))
	s.Rbac.Read("PACKAGING_LABEL_VIEW", http.MethodGet, "/cellar/api/packaging/*/label")
	r.Get("/api/packaging/{id}/label", packaging.LotLabelQueryHandler(s.DB))

	s.Rbac.Write("PACKAGING_CREATE", http.MethodPost, "/cellar/api/packaging")
	r.Post("/api/packaging", packaging.CreateRunCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("PACKAGING_FILL_CHECK", http.MethodPost, "/cellar/api/packaging/*/fill-checks")
	r.Post("/api/packaging/{id}/fill-checks", packaging.AddFillCheckCommandHandler(s.DB))
	s.Rbac.Add(rbac.RoleAdmin, "PACKAGING_VOID", http.MethodPost, "/cellar/api/packaging/*/void")
	r.Post("/api/packaging/{id}/void", packaging.VoidRunCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterInventoryRoutes(r chi.Router) {
	s.Rbac.Read("INVENTORY_VIEW", http.MethodGet, "/cellar/api/inventory/items")
	r.Get("/api/inventory/items", inventory.ListItemsQueryHandler(s.DB))
	s.Rbac.Read("INVENTORY_VIEW", http.MethodGet, "/cellar/api/inventory/items/*")
	r.Get("/api/inventory/items/{id}", inventory.GetItemQueryHandler(s.DB))
	s.Rbac.Read("INVENTORY_VIEW", http.MethodGet, "/cellar/api/inventory/low-stock")
	r.Get("/api/inventory/low-stock", inventory.LowStockQueryHandler(s.DB))
	s.Rbac.Read("INVENTORY_VIEW", http.MethodGet, "/cellar/api/inventory/finished-goods/*")
	r.Get("/api/inventory/finished-goods/{id}", inventory.FinishedGoodDetailsQueryHandler(s.DB))

	s.Rbac.Write("INVENTORY_CREATE", http.MethodPost, "/cellar/api/inventory/items")
	r.Post("/api/inventory/items", inventory.CreateItemCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("INVENTORY_EDIT", http.MethodPut, "/cellar/api/inventory/items/*")
	r.Put("/api/inventory/items/{id}", inventory.UpdateItemCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("INVENTORY_ADJUST", http.MethodPost, "/cellar/api/inventory/items/*/adjust")
	r.Post("/api/inventory/items/{id}/adjust", inventory.AdjustCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("INVENTORY_SALE", http.MethodPost, "/cellar/api/inventory/items/*/sale")
	r.Post("/api/inventory/items/{id}/sale", inventory.SaleCommandHandler(s.DB, s.Audit))
	s.Rbac.Add(rbac.RoleAdmin, "INVENTORY_IMPORT", http.MethodPost, "/cellar/api/inventory/import")
	r.Post("/api/inventory/import", inventory.ImportCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterPurchasingRoutes(r chi.Router) {
	s.Rbac.Read("PURCHASING_VIEW", http.MethodGet, "/cellar/api/vendors")
	r.Get("/api/vendors", purchasing.ListVendorsQueryHandler(s.DB))
	s.Rbac.Read("PURCHASING_VIEW", http.MethodGet, "/cellar/api/vendors/*")
	r.Get("/api/vendors/{id}", purchasing.GetVendorQueryHandler(s.DB))
	s.Rbac.Write("VENDORS_CREATE", http.MethodPost, "/cellar/api/vendors")
	r.Post("/api/vendors", purchasing.CreateVendorCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("VENDORS_EDIT", http.MethodPut, "/cellar/api/vendors/*")
	r.Put("/api/vendors/{id}", purchasing.UpdateVendorCommandHandler(s.DB, s.Audit))

	s.Rbac.Read("PURCHASING_VIEW", http.MethodGet, "/cellar/api/purchase-orders")
	r.Get("/api/purchase-orders", purchasing.ListOrdersQueryHandler(s.DB))
	s.Rbac.Read("PURCHASING_VIEW", http.MethodGet, "/cellar/api/purchase-orders/*")
	r.Get("/api/purchase-orders/{id}", purchasing.GetOrderQueryHandler(s.DB))
	s.Rbac.Read("PURCHASING_PDF", http.MethodGet, "/cellar/api/purchase-orders/*/pdf")
	r.Get("/api/purchase-orders/{id}/pdf", purchasing.OrderPDFQueryHandler(s.DB, s.Options.Buyer))

	s.Rbac.Write("PURCHASING_CREATE", http.MethodPost, "/cellar/api/purchase-orders")
	r.Post("/api/purchase-orders", purchasing.CreateOrderCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("PURCHASING_SUBMIT", http.MethodPost, "/cellar/api/purchase-orders/*/submit")
	r.Post("/api/purchase-orders/{id}/submit", purchasing.SubmitOrderCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("PURCHASING_RECEIVE", http.MethodPost, "/cellar/api/purchase-orders/*/receive")
	r.Post("/api/purchase-orders/{id}/receive", purchasing.ReceiveOrderCommandHandler(s.DB, s.Audit))
	s.Rbac.Write("PURCHASING_CANCEL", http.MethodPost, "/cellar/api/purchase-orders/*/cancel")
	r.Post("/api/purchase-orders/{id}/cancel", purchasing.CancelOrderCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterTTBRoutes(r chi.Router) {
	s.Rbac.Read("TTB_VIEW", http.MethodGet, "/cellar/api/ttb/reports")
	r.Get("/api/ttb/reports", ttbreports.ListReportsQueryHandler(s.DB))
	s.Rbac.Read("TTB_DOWNLOAD", http.MethodGet, "/cellar/api/ttb/reports/*/*")
	r.Get("/api/ttb/reports/{year}/{month}", ttbreports.DownloadReportQueryHandler(s.DB))
}

func (s *Server) RegisterExportRoutes(r chi.Router) {
	s.Rbac.Read("EXPORTS_VIEW", http.MethodGet, "/cellar/exports")
	r.Get("/exports", exports.ExportRunsQueryHandler(s.DB))

	s.Rbac.Read("EXPORTS_DOWNLOAD", http.MethodGet, "/cellar/exports/*")
	r.Get("/exports/{kind}.csv", exports.CSVHandler(s.DB))
}
