package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/application/service"
	"github.com/sangkips/caja-api/internal/config"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/internal/presentation/http/handler"
	"github.com/sangkips/caja-api/internal/presentation/http/middleware"
	"github.com/sangkips/caja-api/pkg/apperror"
	"github.com/sangkips/caja-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiBody struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message"`
	ErrorCode string                `json:"error_code"`
	Errors    []apperror.FieldError `json:"errors"`
	Data      json.RawMessage       `json:"data"`
}

type cartBody struct {
	Items []struct {
		Kind      string  `json:"tipo"`
		ProductID *int64  `json:"id"`
		Name      string  `json:"nombre"`
		Price     float64 `json:"precio"`
		Quantity  int     `json:"cantidad"`
		Tier      *string `json:"tipo_precio"`
		Subtotal  float64 `json:"subtotal"`
	} `json:"items"`
	Total float64 `json:"total"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *store
	carts  *service.CartStore
}

const (
	cashierEmail    = "cajero@caja.local"
	cashierPassword = "cajero123"
)

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st := newStore()
	st.addProduct(entity.Product{ID: 1, Name: "Cable USB", Code: "CAB-1", Stock: 5, RetailPrice: 10000, ResellerPrice: 8000})
	st.addProduct(entity.Product{ID: 2, Name: "Mouse", Code: "MOU-1", Stock: 1, RetailPrice: 2550, ResellerPrice: 2000})

	hashed, err := utils.HashPassword(cashierPassword)
	require.NoError(t, err)
	require.NoError(t, userRepo{st}.Create(context.Background(), &entity.User{
		Name: "Cajero", Email: cashierEmail, Password: hashed, Role: entity.RoleCashier, Active: true,
	}))

	cfg := &config.Config{
		App:       config.AppConfig{Name: "caja-api"},
		JWT:       config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, CookieName: "token"},
		RateLimit: config.RateLimitConfig{Requests: 1000, Duration: 60},
		Checkout:  config.CheckoutConfig{IdempotencyTTL: time.Hour},
	}
	log := zap.NewNop()
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	ledger := service.NewInventoryLedger(productRepo{st}, st, log)
	carts := service.NewCartStore(productRepo{st}, ledger, service.CartStoreConfig{
		IdleTTL:       time.Hour,
		SweepInterval: time.Minute,
	}, log)
	checkout := service.NewCheckoutService(carts, ledger, saleRepo{st}, nil, service.CheckoutConfig{
		PaymentMethods: enum.DefaultPaymentMethods,
		StorageTimeout: time.Second,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := Setup(ctx, &Handlers{
		Auth:    handler.NewAuthHandler(service.NewAuthService(userRepo{st}, jwtManager, carts, log), cfg.JWT),
		Catalog: handler.NewCatalogHandler(service.NewCatalogService(productRepo{st}, ledger)),
		Cart:    handler.NewCartHandler(carts),
		Sale:    handler.NewSaleHandler(checkout, service.NewSaleService(saleRepo{st})),
	}, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo{st},
		Logger:          log,
	})

	return &testAPI{t: t, router: router, store: st, carts: carts}
}

func (a *testAPI) do(method, path, token, body string, headers ...string) (*httptest.ResponseRecorder, apiBody) {
	a.t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out apiBody
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (a *testAPI) login() string {
	a.t.Helper()

	w, body := a.do(http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"`+cashierEmail+`","password":"`+cashierPassword+`"}`)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Token     string `json:"token"`
		SessionID string `json:"session_id"`
	}
	require.NoError(a.t, json.Unmarshal(body.Data, &data))
	require.NotEmpty(a.t, data.Token)
	require.NotEmpty(a.t, data.SessionID)
	return data.Token
}

func decodeCart(t *testing.T, body apiBody) cartBody {
	t.Helper()
	var cart cartBody
	require.NoError(t, json.Unmarshal(body.Data, &cart))
	return cart
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	t.Run("sets the session cookie", func(t *testing.T) {
		w, _ := api.do(http.MethodPost, "/api/v1/auth/login", "",
			`{"email":"`+cashierEmail+`","password":"`+cashierPassword+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Set-Cookie"), "token=")
	})

	t.Run("wrong password", func(t *testing.T) {
		w, body := api.do(http.MethodPost, "/api/v1/auth/login", "",
			`{"email":"`+cashierEmail+`","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.CodeUnauthorized, body.ErrorCode)
	})

	t.Run("each login opens its own session", func(t *testing.T) {
		assert.NotEqual(t, api.login(), api.login())
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	w, body := api.do(http.MethodGet, "/api/v1/carrito", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, body.Success)

	w, _ = api.do(http.MethodGet, "/api/v1/carrito", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCookieAuthentication(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carrito", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductSearch(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	w, _ := api.do(http.MethodPost, "/api/v1/carrito/agregar", token,
		`{"producto_id":1,"cantidad":2,"tipo_precio":"venta"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := api.do(http.MethodGet, "/api/v1/productos?busqueda=cable", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Items []struct {
			ID        int64   `json:"id"`
			Price     float64 `json:"precio"`
			Stock     int     `json:"stock"`
			Available int     `json:"disponible"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, 100.0, data.Items[0].Price)
	assert.Equal(t, 5, data.Items[0].Stock)
	assert.Equal(t, 3, data.Items[0].Available)
}

func TestCartLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	w, body := api.do(http.MethodPost, "/api/v1/carrito/agregar", token,
		`{"producto_id":1,"cantidad":2,"precio":100,"tipo_precio":"venta"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart := decodeCart(t, body)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "catalogo", cart.Items[0].Kind)
	assert.Equal(t, 200.0, cart.Total)

	w, body = api.do(http.MethodPost, "/api/v1/carrito/agregar-manual", token,
		`{"nombre":"repair fee","precio":"50.25","cantidad":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart = decodeCart(t, body)
	require.Len(t, cart.Items, 2)
	assert.Nil(t, cart.Items[1].ProductID)
	assert.Nil(t, cart.Items[1].Tier)
	assert.Equal(t, 250.25, cart.Total)

	w, body = api.do(http.MethodDelete, "/api/v1/carrito/items/0", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	cart = decodeCart(t, body)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 50.25, cart.Total)

	w, body = api.do(http.MethodGet, "/api/v1/carrito", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeCart(t, body).Items, 1)

	w, body = api.do(http.MethodPost, "/api/v1/carrito/vaciar", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	cart = decodeCart(t, body)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.Total)
}

func TestSessionsHaveSeparateCarts(t *testing.T) {
	api := newTestAPI(t)
	first, second := api.login(), api.login()

	w, _ := api.do(http.MethodPost, "/api/v1/carrito/agregar", first,
		`{"producto_id":2,"cantidad":1,"tipo_precio":"venta"}`)
	require.Equal(t, http.StatusOK, w.Code)

	_, body := api.do(http.MethodGet, "/api/v1/carrito", second, "")
	assert.Empty(t, decodeCart(t, body).Items)

	w, body = api.do(http.MethodPost, "/api/v1/carrito/agregar", second,
		`{"producto_id":2,"cantidad":1,"tipo_precio":"venta"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, body.ErrorCode)
}

func TestCartErrors(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{"unknown field", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":1,"cantidad":1,"tipo_precio":"venta","descuento":5}`, 400, apperror.CodeValidation, ""},
		{"missing quantity", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":1,"tipo_precio":"venta"}`, 400, apperror.CodeValidation, "cantidad"},
		{"zero quantity", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":1,"cantidad":0,"tipo_precio":"venta"}`, 400, apperror.CodeValidation, "cantidad"},
		{"unknown tier", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":1,"cantidad":1,"tipo_precio":"mayorista"}`, 400, apperror.CodeValidation, "tipo_precio"},
		{"unknown product", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":99,"cantidad":1,"tipo_precio":"venta"}`, 404, apperror.CodeNotFound, ""},
		{"stale price", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":1,"cantidad":1,"precio":99.5,"tipo_precio":"venta"}`, 400, apperror.CodePriceMismatch, "precio"},
		{"more than stock", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":1,"cantidad":6,"tipo_precio":"venta"}`, 409, apperror.CodeInsufficientStock, ""},
		{"manual price zero", http.MethodPost, "/api/v1/carrito/agregar-manual",
			`{"nombre":"gift","precio":0,"cantidad":1}`, 400, apperror.CodeValidation, "precio"},
		{"manual without price", http.MethodPost, "/api/v1/carrito/agregar-manual",
			`{"nombre":"gift","cantidad":1}`, 400, apperror.CodeValidation, "precio"},
		{"manual price beyond maximum", http.MethodPost, "/api/v1/carrito/agregar-manual",
			`{"nombre":"fee","precio":184467440737095516.17,"cantidad":1}`, 400, apperror.CodeValidation, "precio"},
		{"manual subtotal beyond maximum", http.MethodPost, "/api/v1/carrito/agregar-manual",
			`{"nombre":"fee","precio":1000,"cantidad":4611686018427387904}`, 400, apperror.CodeValidation, "cantidad"},
		{"client price beyond maximum", http.MethodPost, "/api/v1/carrito/agregar",
			`{"producto_id":1,"cantidad":1,"precio":1e18,"tipo_precio":"venta"}`, 400, apperror.CodeValidation, "precio"},
		{"malformed json", http.MethodPost, "/api/v1/carrito/agregar-manual",
			`{"nombre":`, 400, apperror.CodeValidation, ""},
		{"index out of range", http.MethodDelete, "/api/v1/carrito/items/3", "", 404, apperror.CodeNotFound, ""},
		{"index not a number", http.MethodDelete, "/api/v1/carrito/items/abc", "", 400, apperror.CodeValidation, "indice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := api.do(tt.method, tt.path, token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, body.ErrorCode)
			assert.False(t, body.Success)
			if tt.wantField != "" {
				require.NotEmpty(t, body.Errors)
				assert.Equal(t, tt.wantField, body.Errors[0].Field)
			}
		})
	}

	_, body := api.do(http.MethodGet, "/api/v1/carrito", token, "")
	assert.Empty(t, decodeCart(t, body).Items)
	assert.Equal(t, 5, api.store.stock(1))
}

func TestInternalErrorsAreMasked(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()
	api.store.productErr = errors.New("pq: connection reset by peer")

	w, body := api.do(http.MethodPost, "/api/v1/carrito/agregar", token,
		`{"producto_id":1,"cantidad":1,"tipo_precio":"venta"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body.ErrorCode)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestCheckout(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	w, body := api.do(http.MethodPost, "/api/v1/ventas/registrar", token,
		`{"dni_cliente":"30111222","metodo_pago":"efectivo"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeEmptyCart, body.ErrorCode)

	// The empty cart is reported before any missing field.
	w, body = api.do(http.MethodPost, "/api/v1/ventas/registrar", token, `{"dni_cliente":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeEmptyCart, body.ErrorCode)

	w, _ = api.do(http.MethodPost, "/api/v1/carrito/agregar", token,
		`{"producto_id":1,"cantidad":2,"tipo_precio":"venta"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = api.do(http.MethodPost, "/api/v1/ventas/registrar", token,
		`{"dni_cliente":"","metodo_pago":"efectivo"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeMissingCustomerRef, body.ErrorCode)

	w, body = api.do(http.MethodPost, "/api/v1/ventas/registrar", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeMissingCustomerRef, body.ErrorCode)

	w, body = api.do(http.MethodPost, "/api/v1/ventas/registrar", token, `{"dni_cliente":"30111222"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, body.ErrorCode)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, "metodo_pago", body.Errors[0].Field)

	w, body = api.do(http.MethodPost, "/api/v1/ventas/registrar", token,
		`{"dni_cliente":"30111222","metodo_pago":"bitcoin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, body.ErrorCode)

	w, body = api.do(http.MethodPost, "/api/v1/ventas/registrar", token,
		`{"dni_cliente":"30111222","metodo_pago":"efectivo"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sale struct {
		ID        string  `json:"id"`
		ReceiptNo string  `json:"numero"`
		Total     float64 `json:"total"`
		Items     []struct {
			Name     string  `json:"nombre"`
			Subtotal float64 `json:"subtotal"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &sale))
	assert.Equal(t, 200.0, sale.Total)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Cable USB", sale.Items[0].Name)
	assert.Equal(t, 3, api.store.stock(1))

	_, cartResp := api.do(http.MethodGet, "/api/v1/carrito", token, "")
	assert.Empty(t, decodeCart(t, cartResp).Items)

	w, body = api.do(http.MethodGet, "/api/v1/ventas/"+sale.ID, token, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(http.MethodGet, "/api/v1/ventas/not-a-uuid", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = api.do(http.MethodGet, "/api/v1/ventas?metodo_pago=efectivo", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	assert.Len(t, list.Items, 1)

	w, body = api.do(http.MethodGet, "/api/v1/ventas?fecha_desde=01-03-2026", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, "fecha_desde", body.Errors[0].Field)
}

func TestCheckoutIdempotencyKeyReplays(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	w, _ := api.do(http.MethodPost, "/api/v1/carrito/agregar", token,
		`{"producto_id":1,"cantidad":1,"tipo_precio":"venta"}`)
	require.Equal(t, http.StatusOK, w.Code)

	checkout := `{"dni_cliente":"30111222","metodo_pago":"debito"}`
	first, _ := api.do(http.MethodPost, "/api/v1/ventas/registrar", token, checkout, middleware.IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second, _ := api.do(http.MethodPost, "/api/v1/ventas/registrar", token, checkout, middleware.IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.IdempotencyReplayedHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, 1, api.store.saleCount())
	assert.Equal(t, 4, api.store.stock(1))

	// Another key runs a real checkout, which finds the cart empty.
	third, body := api.do(http.MethodPost, "/api/v1/ventas/registrar", token, checkout, middleware.IdempotencyKeyHeader, "k-2")
	assert.Equal(t, http.StatusBadRequest, third.Code)
	assert.Equal(t, apperror.CodeEmptyCart, body.ErrorCode)
}

func TestLogoutDiscardsCart(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	w, _ := api.do(http.MethodPost, "/api/v1/carrito/agregar", token,
		`{"producto_id":2,"cantidad":1,"tipo_precio":"revendedor"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(http.MethodPost, "/api/v1/auth/logout", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, api.carts.Len())

	// The reservation went with the cart.
	other := api.login()
	w, _ = api.do(http.MethodPost, "/api/v1/carrito/agregar", other,
		`{"producto_id":2,"cantidad":1,"tipo_precio":"venta"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	token := api.login()

	w, body := api.do(http.MethodGet, "/api/v1/auth/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	var session struct {
		Email string `json:"email"`
		Role  string `json:"rol"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &session))
	assert.Equal(t, cashierEmail, session.Email)
	assert.Equal(t, entity.RoleCashier, session.Role)
}
