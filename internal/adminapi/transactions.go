package adminapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/webserver"
)

type lineItemPayload struct {
	ID        flexID `json:"_id"`
	ProductID flexID `json:"productId"`
	Name      string `json:"name"`
	Quantity  *int64 `json:"quantity"`
}

// transactionPayload accepts both the plural and the singular product list
// and both batch spellings sent by existing clients.
type transactionPayload struct {
	Operation string            `json:"operation"`
	Products  []lineItemPayload `json:"products"`
	Product   []lineItemPayload `json:"product"`
	Unit      *int64            `json:"unit"`
	Purpose   string            `json:"purpose"`
	Batch     flexString        `json:"batch"`
	BatchSize flexString        `json:"batchSize"`
}

func (p transactionPayload) toInput(op domain.Operation) (inventory.TransactionInput, error) {
	v := &domain.ValidationError{}
	if p.Operation != "" && !strings.EqualFold(p.Operation, string(op)) {
		v.Add("operation", "must be "+string(op)+" on this endpoint")
	}
	in := inventory.TransactionInput{
		Purpose: p.Purpose,
		Batch:   string(p.Batch),
	}
	if in.Batch == "" {
		in.Batch = string(p.BatchSize)
	}
	if p.Unit == nil {
		v.Add("unit", "is required")
	} else {
		in.Unit = *p.Unit
	}
	items := p.Products
	if len(items) == 0 {
		items = p.Product
	}
	for _, it := range items {
		if it.Quantity == nil {
			v.Add("quantity", "is required for every product")
			break
		}
		in.Items = append(in.Items, inventory.Item{ProductID: firstID(it.ID, it.ProductID), Quantity: *it.Quantity})
	}
	if len(items) == 0 {
		v.Add("products", "at least one product is required")
	}
	return in, v.OrNil()
}

// transactionView adds the derived total to a transaction
type transactionView struct {
	*domain.Transaction
	Total int64 `json:"total"`
}

func viewOf(t *domain.Transaction) transactionView {
	return transactionView{Transaction: t, Total: t.Total()}
}

func registerTransactionRoutes() {
	webserver.ApiGET("/inventory", listInventory)
	webserver.ApiPOST("/inventory", receiveInventory)
	webserver.ApiPOST("/inventory/receive", receiveInventory)
	webserver.ApiGET("/distribution", listDistribution)
	webserver.ApiPOST("/distribution", distributeInventory)
	webserver.ApiGET("/transactions", listTransactions)
	webserver.ApiGET("/transactions/export", exportTransactions)
	webserver.ApiGET("/transactions/:id", getTransaction)
	webserver.ApiPOST("/transactions/:id/restore", restoreTransaction)
}

func listInventory(c echo.Context) error {
	return respondTransactions(c, domain.TransactionFilter{})
}

func listDistribution(c echo.Context) error {
	return respondTransactions(c, domain.TransactionFilter{Operation: domain.OperationDistribute})
}

func listTransactions(c echo.Context) error {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		return failFromError(c, "Invalid transaction filter", err)
	}
	return respondTransactions(c, filter)
}

func respondTransactions(c echo.Context, filter domain.TransactionFilter) error {
	rows, err := inventory.Collect(GetInventory(c).Transactions(c.Request().Context(), filter), parseLimit(c, 0))
	if err != nil {
		return failFromError(c, "Error fetching transactions", err)
	}
	views := make([]transactionView, 0, len(rows))
	for _, t := range rows {
		views = append(views, viewOf(t))
	}
	return ok(c, views)
}

func receiveInventory(c echo.Context) error {
	return recordMovement(c, domain.OperationReceive)
}

func distributeInventory(c echo.Context) error {
	return recordMovement(c, domain.OperationDistribute)
}

func recordMovement(c echo.Context, op domain.Operation) error {
	var payload transactionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse transaction", err.Error())
	}
	in, err := payload.toInput(op)
	if err != nil {
		return failFromError(c, "Invalid transaction", err)
	}

	svc := GetInventory(c)
	var t *domain.Transaction
	if op == domain.OperationReceive {
		t, err = svc.Receive(c.Request().Context(), in)
	} else {
		t, err = svc.Distribute(c.Request().Context(), in)
	}
	if err != nil {
		return failFromError(c, "Failed to record "+strings.ToLower(string(op)), err)
	}
	return created(c, map[string]interface{}{
		"message":     string(op) + " recorded successfully",
		"transaction": viewOf(t),
	})
}

func getTransaction(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid transaction ID", nil)
	}
	t, err := GetInventory(c).Transaction(c.Request().Context(), id)
	if err != nil {
		return failFromError(c, "Transaction not found", err)
	}
	return ok(c, viewOf(t))
}

func restoreTransaction(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid transaction ID", nil)
	}
	t, err := GetInventory(c).Restore(c.Request().Context(), id)
	if err != nil {
		return failFromError(c, "Failed to restore transaction", err)
	}
	return ok(c, map[string]interface{}{
		"message":     "Transaction restored successfully",
		"transaction": viewOf(t),
	})
}

// parseTransactionFilter reads operation, from and to. A date without a time
// part used as "to" covers the whole day.
func parseTransactionFilter(c echo.Context) (domain.TransactionFilter, error) {
	var filter domain.TransactionFilter
	v := &domain.ValidationError{}
	if op := strings.TrimSpace(c.QueryParam("operation")); op != "" {
		filter.Operation = normalizeOperation(op)
		if !filter.Operation.Valid() {
			v.Add("operation", "must be one of Receive, Distribute, Subtract")
		}
	}
	if s := strings.TrimSpace(c.QueryParam("from")); s != "" {
		t, err := dateparse.ParseIn(s, time.Local)
		if err != nil {
			v.Add("from", "is not a recognizable date")
		}
		filter.From = t
	}
	if s := strings.TrimSpace(c.QueryParam("to")); s != "" {
		t, err := dateparse.ParseIn(s, time.Local)
		if err != nil {
			v.Add("to", "is not a recognizable date")
		} else if isDateOnly(t) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = t
	}
	return filter, v.OrNil()
}

func normalizeOperation(s string) domain.Operation {
	for _, op := range []domain.Operation{domain.OperationReceive, domain.OperationDistribute, domain.OperationSubtract} {
		if strings.EqualFold(s, string(op)) {
			return op
		}
	}
	return domain.Operation(s)
}

func isDateOnly(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// reportRow is one line item of the transaction report
type reportRow struct {
	TransactionID string `csv:"transaction_id"`
	Operation     string `csv:"operation"`
	CreatedAt     string `csv:"created_at"`
	Purpose       string `csv:"purpose"`
	Batch         string `csv:"batch"`
	ProductID     string `csv:"product_id"`
	Product       string `csv:"product"`
	Quantity      int64  `csv:"quantity"`
	Unit          int64  `csv:"unit"`
	Total         int64  `csv:"total"`
	Applied       int64  `csv:"applied"`
	RestoredAt    string `csv:"restored_at"`
}

var reportHeader = []string{
	"transaction_id", "operation", "created_at", "purpose", "batch", "product_id",
	"product", "quantity", "unit", "total", "applied", "restored_at",
}

func (r reportRow) values() []interface{} {
	return []interface{}{
		r.TransactionID, r.Operation, r.CreatedAt, r.Purpose, r.Batch, r.ProductID,
		r.Product, r.Quantity, r.Unit, r.Total, r.Applied, r.RestoredAt,
	}
}

func reportRows(rows []*domain.Transaction) []*reportRow {
	out := make([]*reportRow, 0, len(rows))
	for _, t := range rows {
		restored := ""
		if t.RestoredAt != nil {
			restored = t.RestoredAt.Format(time.RFC3339)
		}
		for _, it := range t.Items {
			out = append(out, &reportRow{
				TransactionID: cast.ToString(t.ID),
				Operation:     string(t.Operation),
				CreatedAt:     t.CreatedAt.Format(time.RFC3339),
				Purpose:       t.Purpose,
				Batch:         t.Batch,
				ProductID:     cast.ToString(it.ProductID),
				Product:       it.Name,
				Quantity:      it.Quantity,
				Unit:          it.Unit,
				Total:         it.Total(),
				Applied:       it.Applied,
				RestoredAt:    restored,
			})
		}
	}
	return out
}

func exportTransactions(c echo.Context) error {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		return failFromError(c, "Invalid transaction filter", err)
	}
	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be csv or xlsx", format)
	}

	txs, err := inventory.Collect(GetInventory(c).Transactions(c.Request().Context(), filter), parseLimit(c, 0))
	if err != nil {
		return failFromError(c, "Error fetching transactions", err)
	}
	rows := reportRows(txs)
	name := "transactions-" + time.Now().Format("20060102150405")

	if format == "csv" {
		data, err := gocsv.MarshalBytes(&rows)
		if err != nil {
			return failFromError(c, "Failed to build report", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.csv"`)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
	}

	data, err := buildXlsx(rows)
	if err != nil {
		return failFromError(c, "Failed to build report", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func buildXlsx(rows []*reportRow) ([]byte, error) {
	const sheet = "Sheet1"
	xlsx := excelize.NewFile()
	for i, h := range reportHeader {
		xlsx.SetCellValue(sheet, excelize.ToAlphaString(i)+"1", h)
	}
	for r, row := range rows {
		line := strconv.Itoa(r + 2)
		for i, v := range row.values() {
			xlsx.SetCellValue(sheet, excelize.ToAlphaString(i)+line, v)
		}
	}
	var buf bytes.Buffer
	if err := xlsx.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	default:
		*f = flexString(string(b))
	}
	return nil
}
