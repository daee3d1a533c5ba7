package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-pos-backoffice/internal/ai"
	"go-pos-backoffice/internal/auth"
	"go-pos-backoffice/internal/cart"
	"go-pos-backoffice/internal/checkout"
	"go-pos-backoffice/internal/events"
	"go-pos-backoffice/internal/expenditure"
	"go-pos-backoffice/internal/inventory"
	"go-pos-backoffice/internal/ledger"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/notify"
	"go-pos-backoffice/internal/reporting"
	"go-pos-backoffice/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router     *gin.Engine
	store      *memstore.Store
	tokens     *auth.TokenManager
	orch       *checkout.Orchestrator
	adminToken string
	staffToken string
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details map[string]any  `json:"details"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	log := zap.NewNop()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	notifier := notify.NewLogNotifier(log)

	debts := ledger.NewService(st, notifier, events.Nop{}, nil, log, 0)
	products := inventory.NewService(st, log)
	reports := reporting.NewService(st, log)
	orch := checkout.NewOrchestrator(st, debts, notifier, events.Nop{}, nil, log, "http://localhost:8080")
	t.Cleanup(orch.Wait)

	h := &Handler{
		Auth:         auth.NewService(st.Users(), tokens, true, log),
		Products:     products,
		Carts:        cart.NewService(st, log),
		Checkout:     orch,
		Debts:        debts,
		Reports:      reports,
		Expenditures: expenditure.NewService(st, events.Nop{}, log, decimal.NewFromInt(100)),
		Assistant:    ai.NewAgent("", ai.Services{Products: products, Reports: reports, Debts: debts}, log),
		CookieName:   "pos_token",
		InstanceID:   "POS-TEST",
		Log:          log,
	}
	router, err := NewRouter(h, RouterOptions{Tokens: tokens, AllowedOrigins: []string{"http://localhost:5173"}, AllowRegistration: true})
	require.NoError(t, err)

	ts := &testServer{router: router, store: st, tokens: tokens, orch: orch}
	ts.adminToken = ts.user(t, "admin-1", "admin", models.RoleAdmin)
	ts.staffToken = ts.user(t, "staff-1", "cashier", models.RoleStaff)

	require.NoError(t, st.Products().Create(context.Background(), &models.Product{
		ID: "p1", SKU: "COF-1", Name: "Coffee", Category: "drinks",
		BuyingPrice: decimal.NewFromInt(2), SellingPrice: decimal.NewFromInt(5),
		Quantity: 3, Unit: "cup",
	}))
	return ts
}

func (ts *testServer) user(t *testing.T, id, username, role string) string {
	t.Helper()
	u := &models.User{ID: id, Username: username, Email: username + "@example.com", Role: role, CreatedAt: time.Now()}
	require.NoError(t, ts.store.Users().Create(context.Background(), u))
	token, _, err := ts.tokens.Generate(u)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "online")
}

func TestSystemStatus(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodGet, "/api/v1/system/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "POS-TEST")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestAdminRoutesRejectStaff(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/v1/reports/sales", "/api/v1/debt/all", "/api/v1/cart/all"} {
		w, _ := ts.do(t, http.MethodGet, path, ts.staffToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestRegisterLoginAndCookie(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "newhire", "email": "new@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.User
	require.NoError(t, json.Unmarshal(env.Data, &created))
	// Users already exist, so the new one is staff
	assert.Equal(t, models.RoleStaff, created.Role)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "newhire", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "newhire", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "pos_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "newhire")
}

func TestAddToCart_OutOfStockCarriesAvailableQuantity(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodPost, "/api/v1/cart/add", ts.staffToken, gin.H{"productId": "p1", "quantity": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "OUT_OF_STOCK", env.Code)
	assert.EqualValues(t, 3, env.Details["availableQuantity"])
}

func TestAddToCart_Validation(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodPost, "/api/v1/cart/add", ts.staffToken, gin.H{"productId": "p1", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestCheckoutAndPayDebt(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/api/v1/cart/add", ts.staffToken, gin.H{"productId": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", ts.staffToken, gin.H{
		"paymentMethod": "cash",
		"amountPaid":    "4",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		Report models.Report `json:"report"`
		Debt   *models.Debt  `json:"debt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, models.PaymentPartial, result.Report.PaymentStatus)
	require.NotNil(t, result.Debt)
	assert.True(t, result.Debt.RemainingAmount.Equal(decimal.NewFromInt(6)))

	path := "/api/v1/debt/user/" + result.Debt.ID + "/pay"
	w, env = ts.do(t, http.MethodPost, path, ts.staffToken, gin.H{"amount": "10"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "OVER_PAYMENT", env.Code)

	w, _ = ts.do(t, http.MethodPost, path, ts.adminToken, gin.H{"amount": "6"})
	assert.Equal(t, http.StatusNotFound, w.Code, "another user's debt is hidden")

	w, env = ts.do(t, http.MethodPost, path, ts.staffToken, gin.H{"amount": "6"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var paid models.Debt
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, models.DebtPaid, paid.Status)

	w, env = ts.do(t, http.MethodPost, path, ts.staffToken, gin.H{"amount": "1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DEBT_ALREADY_PAID", env.Code)

	w, env = ts.do(t, http.MethodGet, "/api/v1/reports/"+result.Report.ID, ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, models.PaymentPaid, report.PaymentStatus)
}

func TestCheckout_EmptyCart(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodGet, "/api/v1/cart", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", ts.staffToken, gin.H{"paymentMethod": "cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_CART", env.Code)
}

func TestCheckout_RejectsUnknownPaymentStatus(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", ts.staffToken, gin.H{
		"paymentMethod": "cash", "paymentStatus": "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestListDebts_Pagination(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodGet, "/api/v1/debt/all?sortBy=name", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/debt/all?sortBy=dueDate&order=asc&limit=5", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Pagination.Page)
	assert.Equal(t, 5, body.Pagination.Limit)
	assert.Zero(t, body.Pagination.Total)
}

func TestExpenditureLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/expenditures", ts.staffToken, gin.H{
		"amount": "40", "description": "cups", "category": "office",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	w, env = ts.do(t, http.MethodPost, "/api/v1/expenditures", ts.staffToken, gin.H{
		"amount": "250", "description": "new grinder", "category": "maintenance",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var exp models.Expenditure
	require.NoError(t, json.Unmarshal(env.Data, &exp))
	assert.Equal(t, models.ExpenditurePending, exp.Status)
	assert.Equal(t, "cashier", exp.EmployeeName)

	w, _ = ts.do(t, http.MethodPut, "/api/v1/expenditures/"+exp.ID+"/approve", ts.staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodPut, "/api/v1/expenditures/"+exp.ID+"/approve", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodPut, "/api/v1/expenditures/"+exp.ID+"/complete", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"type":"expenditure"`)

	w, env = ts.do(t, http.MethodDelete, "/api/v1/expenditures/"+exp.ID, ts.adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", env.Code)
}

func TestReports_InvalidQuery(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodGet, "/api/v1/reports/sales?period=hourly", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/reports/sales?start=2026-03-10&end=2026-03-01", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/reports/valuation", ts.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProducts_CreateAndScan(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodPost, "/api/v1/products", ts.adminToken, gin.H{
		"sku": "BAG-1", "name": "Bagel", "category": "food",
		"buyingPrice": "1", "sellingPrice": "3", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := ts.do(t, http.MethodGet, "/api/v1/products/scan/BAG-1", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Bagel")

	w, _ = ts.do(t, http.MethodPost, "/api/v1/products", ts.adminToken, gin.H{
		"sku": "BAG-1", "name": "Bagel again", "category": "food",
		"buyingPrice": "1", "sellingPrice": "3", "quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAskAI_NotConfigured(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodPost, "/api/v1/ask", ts.adminToken, gin.H{"message": "how is stock?"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DEPENDENCY_FAILURE", env.Code)
}

func TestScanToCart(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/cart/scan", ts.staffToken, gin.H{"code": `{"id":"p1"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cart models.Cart
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	w, env = ts.do(t, http.MethodPost, "/api/v1/cart/scan", ts.staffToken, gin.H{"code": "COF-1", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Equal(t, 3, cart.Items[0].Quantity)

	w, env = ts.do(t, http.MethodPost, "/api/v1/cart/scan", ts.staffToken, gin.H{"code": "NOPE"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", env.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/cart/scan", ts.staffToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryStatistics(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodGet, "/api/v1/products/statistics", ts.staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := ts.do(t, http.MethodGet, "/api/v1/products/statistics", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats inventory.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.TotalProducts)
	assert.True(t, stats.InventoryValue.Equal(decimal.NewFromInt(6)))
	assert.True(t, stats.RetailValue.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, []inventory.CategoryCount{{Category: "drinks", Count: 1}}, stats.ProductsByCategory)
}

func TestDeleteReports_DebtSurvives(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodPost, "/api/v1/cart/add", ts.staffToken, gin.H{"productId": "p1", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, env := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", ts.staffToken, gin.H{"paymentMethod": "cash", "amountPaid": "2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result struct {
		Report models.Report `json:"report"`
		Debt   *models.Debt  `json:"debt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.Debt)

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/reports", ts.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = ts.do(t, http.MethodDelete, "/api/v1/reports/"+result.Report.ID, ts.staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/reports/"+result.Report.ID, ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = ts.do(t, http.MethodDelete, "/api/v1/reports/"+result.Report.ID, ts.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = ts.do(t, http.MethodDelete, "/api/v1/reports?start=2000-01-01&end=2100-01-01", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"deletedCount":0}`, string(env.Data))

	// The money is still owed and can still be paid
	w, env = ts.do(t, http.MethodPost, "/api/v1/debt/user/"+result.Debt.ID+"/pay", ts.staffToken, gin.H{"amount": "3"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var paid models.Debt
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, models.DebtPaid, paid.Status)
}

func TestUserDebts_Pagination(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 3; i++ {
		w, _ := ts.do(t, http.MethodPost, "/api/v1/cart/add", ts.staffToken, gin.H{"productId": "p1", "quantity": 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w, _ = ts.do(t, http.MethodPost, "/api/v1/cart/checkout", ts.staffToken, gin.H{"paymentMethod": "cash", "amountPaid": "1"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, env := ts.do(t, http.MethodGet, "/api/v1/debt/user?limit=2&page=2", ts.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
			Pages int64 `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Pagination.Page)
	assert.Equal(t, int64(3), body.Pagination.Total)
	assert.Equal(t, int64(2), body.Pagination.Pages)

	var debts []models.Debt
	require.NoError(t, json.Unmarshal(env.Data, &debts))
	assert.Len(t, debts, 1)
}
