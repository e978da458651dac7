package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/app"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/store/boltstore"
	"github.com/talkincode/stockroom/internal/webserver"
)

type testEnv struct {
	t       *testing.T
	app     *app.Application
	handler http.Handler
	token   string
}

func newTestEnv(t *testing.T, auth bool) *testEnv {
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.Web.AuthEnable = auth
	cfg.Inventory.LowStockThreshold = 5

	s, err := boltstore.Open(filepath.Join(t.TempDir(), "stock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	a := app.NewApplication(cfg)
	a.OverrideStore(s)
	srv := webserver.Init(a)
	Init()
	return &testEnv{t: t, app: a, handler: srv.Handler()}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, webserver.ApiPrefix+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) firstCategory() string {
	rec := e.do(http.MethodGet, "/getCategories", nil)
	require.Equal(e.t, http.StatusOK, rec.Code)
	rows := decodeList(e.t, rec)
	require.NotEmpty(e.t, rows)
	return rows[0]["id"].(string)
}

func (e *testEnv) createProduct(name string, qty int64) string {
	rec := e.do(http.MethodPost, "/products", map[string]interface{}{
		"name":       name,
		"quantity":   qty,
		"categoryId": e.firstCategory(),
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(e.t, rec)["product"].(map[string]interface{})["id"].(string)
}

func (e *testEnv) quantity(id string) float64 {
	rec := e.do(http.MethodGet, "/products/"+id, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(e.t, rec)["quantity"].(float64)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(http.MethodGet, "/getCategories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), len(domain.DefaultCategories))

	rec = env.do(http.MethodPost, "/CreateCategories", map[string]string{"name": "Snacks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Snacks", decode(t, rec)["name"])

	rec = env.do(http.MethodPost, "/categories", map[string]string{"name": "Snacks"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/categories", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/categories/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// back-references are string ids like every other id
	catID := env.firstCategory()
	productID := env.createProduct("Kiwi", 4)
	rec = env.do(http.MethodGet, "/categories/"+catID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{productID}, decode(t, rec)["products"])
}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(http.MethodPost, "/products", map[string]interface{}{
		"name": "Apple", "quantity": 10, "categoryId": "12345",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/products", map[string]interface{}{"quantity": -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
	assert.Len(t, body["fields"], 3)

	id := env.createProduct("Green Apple", 10)
	assert.Equal(t, float64(10), env.quantity(id))

	rec = env.do(http.MethodPut, "/products/"+id, map[string]interface{}{"description": "crisp"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode(t, rec)["product"].(map[string]interface{})
	assert.Equal(t, "Green Apple", p["name"])
	assert.Equal(t, "crisp", p["description"])

	rec = env.do(http.MethodGet, "/searchProduct?name=apple", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = env.do(http.MethodGet, "/searchProduct", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/products?sort=password", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodDelete, "/products/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode(t, rec)["id"])

	rec = env.do(http.MethodGet, "/products/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProductsPaging(t *testing.T) {
	env := newTestEnv(t, false)
	for _, name := range []string{"Cherry", "Apple", "Banana"} {
		env.createProduct(name, 1)
	}

	rec := env.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 3)

	rec = env.do(http.MethodGet, "/products?sort=name&page=2&perPage=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(2), body["perPage"])
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "Cherry", data[0].(map[string]interface{})["name"])

	rec = env.do(http.MethodGet, "/products?page=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["data"])
}

func TestSubtractAndAddQuantity(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createProduct("Milk", 10)

	rec := env.do(http.MethodPost, "/subtractQuantity", map[string]interface{}{
		"productId": id, "quantity": 3, "unit": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Product quantity subtracted successfully.", body["message"])
	assert.Equal(t, float64(0), body["product"].(map[string]interface{})["quantity"])

	rec = env.do(http.MethodPost, "/subtractQuantity", map[string]interface{}{"productId": id, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/subtractQuantity", `{"productId":"`+id+`","quantity":1.5,"unit":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/addQuantity", map[string]interface{}{"_id": id, "quantity": 2, "unit": 6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(12), env.quantity(id))

	// only the subtraction is logged
	rec = env.do(http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeList(t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "Subtract", rows[0]["operation"])
}

func TestReceiveDistributeRestore(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createProduct("Rice", 10)

	rec := env.do(http.MethodPost, "/inventory", map[string]interface{}{
		"products":  []map[string]interface{}{{"_id": id, "name": "Rice", "quantity": 2}},
		"unit":      4,
		"purpose":   "restock",
		"batchSize": "B-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode(t, rec)["transaction"].(map[string]interface{})
	assert.Equal(t, float64(8), tx["total"])
	assert.Equal(t, "B-1", tx["batchSize"])
	assert.Equal(t, float64(18), env.quantity(id))

	rec = env.do(http.MethodPost, "/distribution", map[string]interface{}{
		"operation": "Distribute",
		"product":   []map[string]interface{}{{"productId": id, "quantity": 5}},
		"unit":      5,
		"purpose":   "kitchen",
		"batch":     7,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dist := decode(t, rec)["transaction"].(map[string]interface{})
	assert.Equal(t, "7", dist["batchSize"])
	assert.Equal(t, float64(0), env.quantity(id))

	rec = env.do(http.MethodPost, "/distribution", map[string]interface{}{
		"operation": "Receive",
		"products":  []map[string]interface{}{{"_id": id, "quantity": 1}},
		"unit":      1, "purpose": "x", "batch": "y",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/distribution", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = env.do(http.MethodGet, "/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeList(t, rec)
	require.Len(t, rows, 2)
	assert.Equal(t, "Distribute", rows[0]["operation"])

	rec = env.do(http.MethodGet, "/transactions?operation=receive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = env.do(http.MethodGet, "/transactions?operation=borrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/transactions?from=2001-01-01&to=2001-01-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, rec))

	distID := dist["id"].(string)
	rec = env.do(http.MethodGet, "/transactions/"+distID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(25), decode(t, rec)["total"])

	rec = env.do(http.MethodPost, "/transactions/"+distID+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(18), env.quantity(id))

	rec = env.do(http.MethodPost, "/transactions/"+distID+"/restore", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/transactions/1/restore", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMovementValidation(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createProduct("Tea", 3)

	rec := env.do(http.MethodPost, "/inventory/receive", map[string]interface{}{
		"products": []map[string]interface{}{{"_id": id}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["fields"].([]interface{})
	assert.Len(t, fields, 2)

	rec = env.do(http.MethodPost, "/inventory/receive", map[string]interface{}{
		"products": []map[string]interface{}{{"_id": id, "quantity": 1}, {"_id": "999", "quantity": 1}},
		"unit":     1, "purpose": "p", "batch": "b",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(3), env.quantity(id))

	rec = env.do(http.MethodPost, "/inventory/receive", `{"products":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportTransactions(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createProduct("Juice", 1)
	rec := env.do(http.MethodPost, "/inventory", map[string]interface{}{
		"products": []map[string]interface{}{{"_id": id, "name": "Juice", "quantity": 3}},
		"unit":     2, "purpose": "restock", "batch": "J-9",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/transactions/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "transaction_id,operation"))
	assert.Contains(t, lines[1], "Receive")
	assert.Contains(t, lines[1], "J-9")

	rec = env.do(http.MethodGet, "/transactions/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = env.do(http.MethodGet, "/transactions/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, false)
	env.createProduct("Salt", 2)
	env.createProduct("Sugar", 40)

	rec := env.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["products"])
	assert.Equal(t, float64(42), body["total_quantity"])
	assert.Len(t, body["low_stock"], 1)

	rec = env.do(http.MethodGet, "/dashboard/history?metric=stock_total_quantity&hours=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode(t, rec)["points"])

	rec = env.do(http.MethodGet, "/dashboard/history?metric=cpu", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperatorAuth(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["code"])

	creds := map[string]string{"username": "clerk", "password": "s3cret!"}
	rec = env.do(http.MethodPost, "/users/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "s3cret")

	rec = env.do(http.MethodPost, "/users/register", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/users/register", map[string]string{"username": "x", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/users/login", map[string]string{"username": "clerk", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/users/login", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.token = decode(t, rec)["token"].(string)
	require.NotEmpty(t, env.token)

	rec = env.do(http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.token = "not-a-token"
	rec = env.do(http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
