package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/webserver"
	"github.com/talkincode/stockroom/pkg/metrics"
)

var historyMetrics = map[string]bool{
	metrics.StockTotalQuantity: true,
	metrics.StockProducts:      true,
	metrics.StockCategories:    true,
	metrics.StockLowProducts:   true,
}

func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard", getDashboard)
	webserver.ApiGET("/dashboard/history", getDashboardHistory)
}

func getDashboard(c echo.Context) error {
	threshold := webserver.GetAppContext(c).Config().Inventory.LowStockThreshold
	sum, err := inventory.Summarize(c.Request().Context(), GetStore(c), threshold)
	if err != nil {
		return failFromError(c, "Failed to build dashboard", err)
	}
	return ok(c, sum)
}

func getDashboardHistory(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("metric"))
	if name == "" {
		name = metrics.StockTotalQuantity
	}
	if !historyMetrics[name] {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown metric", name)
	}
	hours := cast.ToInt(c.QueryParam("hours"))
	if hours <= 0 || hours > 24*90 {
		hours = 24
	}
	to := time.Now()
	points, err := metrics.Select(name, to.Add(-time.Duration(hours)*time.Hour), to)
	if err != nil {
		return failFromError(c, "Failed to query metric history", err)
	}
	return ok(c, map[string]interface{}{
		"metric": name,
		"points": points,
	})
}
