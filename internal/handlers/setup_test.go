package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-storefront/internal/ai"
	"go-storefront/internal/auth"
	"go-storefront/internal/cart"
	"go-storefront/internal/catalog"
	"go-storefront/internal/config"
	"go-storefront/internal/database"
	"go-storefront/internal/models"
	"go-storefront/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	router        *gin.Engine
	db            *gorm.DB
	adminToken    string
	customerToken string
	customerID    uint
	category      models.Category
	tee           models.Product
	mug           models.Product
	draft         models.Product
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)

	cfg := &config.Config{
		CORSOrigins:       []string{"http://localhost:5173"},
		ShippingFlatFee:   decimal.NewFromInt(5000),
		AllowRegistration: true,
		BootstrapToken:    "let-me-in",
		CatalogPageSize:   12,
		LowStockThreshold: 10,
	}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	users := auth.NewUserService(db, issuer, cfg.BootstrapToken).WithCost(bcrypt.MinCost)
	catalogSvc := catalog.NewService(db, cfg.CatalogPageSize)
	orderSvc := orders.NewService(db, cfg.ShippingFlatFee)
	carts := cart.NewService(cart.NewGormStore(db), catalogSvc, cfg.ShippingFlatFee)

	router := NewRouter(cfg, db, issuer, Handlers{
		Catalog: NewCatalogHandler(catalogSvc, catalog.NewAdmin(db)),
		Cart:    NewCartHandler(carts, orderSvc, false),
		Orders:  NewOrderHandler(orderSvc),
		Users:   NewUserHandler(users),
		Reports: NewReportHandler(db, cfg.LowStockThreshold),
		AI:      NewAIHandler(ai.NewAssistant("", "", ai.NewStoreTools(db, orderSvc, cfg.LowStockThreshold))),
	})

	s := &testServer{router: router, db: db}

	admin := models.User{Email: "admin@shop.test", PasswordHash: mustHash(t, "secret1"), Role: models.RoleAdmin}
	customer := models.User{Email: "buyer@shop.test", PasswordHash: mustHash(t, "secret1"), Role: models.RoleCustomer}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&customer).Error)
	s.customerID = customer.ID
	s.adminToken, err = issuer.GenerateToken(admin.ID, admin.Role)
	require.NoError(t, err)
	s.customerToken, err = issuer.GenerateToken(customer.ID, customer.Role)
	require.NoError(t, err)

	s.category = models.Category{Name: "Shirts", Slug: "shirts"}
	require.NoError(t, db.Create(&s.category).Error)
	s.tee = models.Product{Name: "Tee", Slug: "tee", Description: "cotton", Price: decimal.NewFromInt(100),
		Stock: 5, Status: models.ProductActive, CategoryID: s.category.ID}
	s.mug = models.Product{Name: "Mug", Slug: "mug", Description: "ceramic", Price: decimal.NewFromInt(80),
		SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(50)), Stock: 3, Status: models.ProductActive, CategoryID: s.category.ID}
	s.draft = models.Product{Name: "Draft", Slug: "draft", Description: "soon", Price: decimal.NewFromInt(10),
		Stock: 3, Status: models.ProductDraft, CategoryID: s.category.ID}
	for _, p := range []*models.Product{&s.tee, &s.mug, &s.draft} {
		require.NoError(t, db.Create(p).Error)
	}
	return s
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

type call struct {
	method  string
	path    string
	body    interface{}
	token   string
	cookies []*http.Cookie
	headers map[string]string
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		switch b := c.body.(type) {
		case string:
			body.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&body).Encode(b))
		}
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body
}
