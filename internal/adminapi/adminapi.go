// Package adminapi holds the HTTP handlers of the inventory API.
package adminapi

// Init registers every API route on the webserver package server
func Init() {
	registerProductRoutes()
	registerCategoryRoutes()
	registerQuantityRoutes()
	registerTransactionRoutes()
	registerDashboardRoutes()
	registerOperatorRoutes()
}
