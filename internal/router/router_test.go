package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"seara_joias/internal/auth"
	"seara_joias/internal/config"
	"seara_joias/internal/lifecycle"
	"seara_joias/internal/model"
	"seara_joias/internal/notify"
	"seara_joias/internal/store"
)

const (
	testAdminEmail    = "admin@searajoias.local"
	testAdminPassword = "s3gredo"
)

func testServer(t *testing.T) (*gin.Engine, Deps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.StockAdjustment{},
		&model.NotificationEntry{},
	))

	hub := notify.NewHub()
	notifier := notify.NewNotifier(hub, nil)
	cfg := config.AppConfig{
		StorePhone:         "554996824477",
		CheckoutRateLimit:  100,
		CheckoutRateWindow: time.Minute,
		LoginRateLimit:     100,
		LoginRateWindow:    time.Minute,
		StockCacheTTL:      time.Minute,
	}
	deps := Deps{
		Products: store.NewProductStore(db),
		Orders:   store.NewOrderStore(db),
		Manager:  lifecycle.NewManager(db, notifier),
		Auth:     auth.NewService(testAdminEmail, testAdminPassword, "test-secret", time.Hour),
		Notifier: notifier,
		Hub:      hub,
		Cfg:      cfg,
	}

	r := gin.New()
	Setup(r, deps)
	return r, deps
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func createTestProduct(t *testing.T, r *gin.Engine, token string, stock int64) string {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/products", token, gin.H{
		"name":           "Anel Solitário",
		"category":       "aneis",
		"original_price": 19900,
		"current_price":  14900,
		"stock":          stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p.ID
}

func placeTestOrder(t *testing.T, r *gin.Engine, productID string, qty int64) string {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/orders", "", gin.H{
		"customer":        "Maria Silva",
		"payment_method":  "pix",
		"delivery_method": "pickup",
		"items": []gin.H{
			{"product_id": productID, "name": "Anel Solitário", "unit_price": 14900, "quantity": qty},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Order model.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Order.ID
}

func TestLogin(t *testing.T) {
	r, _ := testServer(t)

	token := adminToken(t, r)
	assert.NotEmpty(t, token)

	w := doRequest(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    testAdminEmail,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r, _ := testServer(t)

	w := doRequest(t, r, http.MethodPost, "/api/products", "", gin.H{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/orders", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProductCRUDOverHTTP(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)
	id := createTestProduct(t, r, token, 5)

	// Public read.
	w := doRequest(t, r, http.MethodGet, "/api/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Missing product returns the error envelope with 404.
	w = doRequest(t, r, http.MethodGet, "/api/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var envelope map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Contains(t, envelope, "error")

	// Partial update.
	w = doRequest(t, r, http.MethodPatch, "/api/products/"+id, token, gin.H{"current_price": 9900})
	require.Equal(t, http.StatusOK, w.Code)
	var p model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, int64(9900), p.CurrentPrice)
	assert.Equal(t, "Anel Solitário", p.Name)

	// Validation failure.
	w = doRequest(t, r, http.MethodPost, "/api/products", token, gin.H{"name": "Sem Categoria"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Delete.
	w = doRequest(t, r, http.MethodDelete, "/api/products/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, r, http.MethodGet, "/api/products/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductListFilters(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)
	createTestProduct(t, r, token, 5)

	w := doRequest(t, r, http.MethodPost, "/api/products", token, gin.H{
		"name":          "Colar Promo",
		"category":      "colares",
		"current_price": 9900,
		"stock":         2,
		"promotion":     gin.H{"active": true, "discount_percentage": 15, "type": "sale"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/products?promotion=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Colar Promo", list[0].Name)

	w = doRequest(t, r, http.MethodGet, "/api/products?category=aneis", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "aneis", list[0].Category)
}

func TestCheckoutAndConfirmFlow(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)
	productID := createTestProduct(t, r, token, 5)

	// Checkout responds with the order and the WhatsApp hand-off link.
	w := doRequest(t, r, http.MethodPost, "/api/orders", "", gin.H{
		"customer":        "Maria Silva",
		"payment_method":  "pix",
		"delivery_method": "local",
		"items": []gin.H{
			{"product_id": productID, "name": "Anel Solitário", "unit_price": 14900, "quantity": 3},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Order        model.Order `json:"order"`
		WhatsAppLink string      `json:"whatsapp_link"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, model.StatusAwaitingConfirmation, out.Order.Status)
	assert.Equal(t, int64(44700+1000), out.Order.FinalTotal)
	assert.Contains(t, out.WhatsAppLink, "wa.me")

	// Confirm decrements stock exactly once.
	w = doRequest(t, r, http.MethodPost, "/api/orders/"+out.Order.ID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doRequest(t, r, http.MethodPost, "/api/orders/"+out.Order.ID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/products/"+productID+"/stock", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stock struct {
		Stock int64 `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.Equal(t, int64(2), stock.Stock)

	// Status filter sees exactly the confirmed order.
	w = doRequest(t, r, http.MethodGet, "/api/orders?status=confirmed", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, out.Order.ID, orders[0].ID)
}

func TestCheckoutRejectsZeroQuantity(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)
	productID := createTestProduct(t, r, token, 5)

	w := doRequest(t, r, http.MethodPost, "/api/orders", "", gin.H{
		"customer":        "Maria Silva",
		"payment_method":  "pix",
		"delivery_method": "pickup",
		"items": []gin.H{
			{"product_id": productID, "name": "Anel Solitário", "unit_price": 14900, "quantity": 0},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "quantity")

	// Nothing was persisted for the rejected submission.
	w = doRequest(t, r, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Empty(t, orders)
}

func TestAdvanceRejection(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)
	productID := createTestProduct(t, r, token, 5)
	orderID := placeTestOrder(t, r, productID, 1)

	w := doRequest(t, r, http.MethodPost, "/api/orders/"+orderID+"/advance", token, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestCancelOverHTTP(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)
	productID := createTestProduct(t, r, token, 5)
	orderID := placeTestOrder(t, r, productID, 1)

	w := doRequest(t, r, http.MethodPost, "/api/orders/"+orderID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/orders/"+orderID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var o model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, model.StatusCancelled, o.Status)
}

func importXLSX(t *testing.T, r *gin.Engine, token string, file *xlsx.File) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	require.NoError(t, file.Write(fw))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func productSheet(t *testing.T) (*xlsx.File, *xlsx.Sheet) {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	require.NoError(t, err)
	header := sheet.AddRow()
	for _, h := range productSheetHeader {
		header.AddCell().SetString(h)
	}
	return file, sheet
}

func TestImportProductsXLSX(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)

	file, sheet := productSheet(t)
	row := sheet.AddRow()
	row.AddCell().SetString("")
	row.AddCell().SetString("Brinco Pérola")
	row.AddCell().SetString("brincos")
	row.AddCell().SetString("Par de brincos")
	row.AddCell().SetInt64(12900)
	row.AddCell().SetInt64(9900)
	row.AddCell().SetInt64(4)

	w := importXLSX(t, r, token, file)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"imported":1`)

	w = doRequest(t, r, http.MethodGet, "/api/products?category=brincos", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(9900), list[0].CurrentPrice)
	assert.Equal(t, int64(4), list[0].Stock)
}

func TestImportProductsXLSXRejectsBadCell(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)

	file, sheet := productSheet(t)
	row := sheet.AddRow()
	row.AddCell().SetString("")
	row.AddCell().SetString("Brinco Pérola")
	row.AddCell().SetString("brincos")
	row.AddCell().SetString("Par de brincos")
	row.AddCell().SetString("caro")
	row.AddCell().SetInt64(9900)
	row.AddCell().SetInt64(4)

	w := importXLSX(t, r, token, file)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "original_price")
	assert.Contains(t, w.Body.String(), "row 2")

	// The malformed row must not come through as zero prices.
	w = doRequest(t, r, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestBackupRoundTrip(t *testing.T) {
	r, _ := testServer(t)
	token := adminToken(t, r)
	id := createTestProduct(t, r, token, 7)

	w := doRequest(t, r, http.MethodGet, "/api/admin/backup", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dump := json.RawMessage(w.Body.Bytes())
	var payload struct {
		Products []model.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(dump, &payload))
	require.Len(t, payload.Products, 1)

	// Wipe, then restore from the dump.
	w = doRequest(t, r, http.MethodDelete, "/api/products/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	restore := doRequest(t, r, http.MethodPost, "/api/admin/backup/restore", token, dump)
	require.Equal(t, http.StatusOK, restore.Code, restore.Body.String())
	assert.Contains(t, restore.Body.String(), `"restored":1`)

	w = doRequest(t, r, http.MethodGet, "/api/products/"+id, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
