package orders

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"

	"go-storefront/internal/apperr"
	"go-storefront/internal/audit"
	"go-storefront/internal/database"
	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var shipping = decimal.NewFromInt(5000)

type shop struct {
	db   *gorm.DB
	tee  models.Product
	mug  models.Product
	last models.Product
}

func newShop(t *testing.T) *shop {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	category := models.Category{Name: "All", Slug: "all"}
	require.NoError(t, db.Create(&category).Error)

	s := &shop{db: db}
	s.tee = models.Product{Name: "Tee", Slug: "tee", Price: decimal.NewFromInt(100), Stock: 5,
		Status: models.ProductActive, CategoryID: category.ID}
	s.mug = models.Product{Name: "Mug", Slug: "mug", Price: decimal.NewFromInt(80),
		SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(50)), Stock: 3,
		Status: models.ProductActive, CategoryID: category.ID}
	s.last = models.Product{Name: "Last One", Slug: "last-one", Price: decimal.NewFromInt(30), Stock: 1,
		Status: models.ProductActive, CategoryID: category.ID}
	for _, p := range []*models.Product{&s.tee, &s.mug, &s.last} {
		require.NoError(t, db.Create(p).Error)
	}
	return s
}

func (s *shop) stock(t *testing.T, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, s.db.First(&p, id).Error)
	return p.Stock
}

func (s *shop) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func request(lines ...LineRequest) CreateRequest {
	return CreateRequest{
		CustomerName:  "Ana Pérez",
		Phone:         "+57 300 000 0000",
		Address:       "Calle 1 #2-3",
		City:          "Bogotá",
		PaymentMethod: "cash_on_delivery",
		Items:         lines,
	}
}

func line(id uint, qty int) LineRequest {
	return LineRequest{ProductID: id, Quantity: qty}
}

// sequence returns the given codes in order, repeating the last one.
func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func TestCreateComputesTotalsAndSnapshots(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)

	order, err := svc.Create(context.Background(), request(line(s.tee.ID, 2), line(s.mug.ID, 1)))
	require.NoError(t, err)

	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(250)), order.Subtotal.String())
	assert.True(t, order.Total.Equal(decimal.NewFromInt(5250)), order.Total.String())
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Shipping)))
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Len(t, order.Code, CodeLength)

	stored, err := svc.ByCode(context.Background(), order.Code)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Mug", stored.Items[1].NameSnapshot)
	assert.True(t, stored.Items[1].PriceSnapshot.Equal(decimal.NewFromInt(50)))
	sum := decimal.Zero
	for _, it := range stored.Items {
		sum = sum.Add(it.LineTotal())
	}
	assert.True(t, stored.Subtotal.Equal(sum))
	assert.True(t, stored.Total.Equal(stored.Subtotal.Add(stored.Shipping)))

	assert.Equal(t, 3, s.stock(t, s.tee.ID))
	assert.Equal(t, 2, s.stock(t, s.mug.ID))
}

func TestCreateIsAtomicWhenAProductIsMissing(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)

	_, err := svc.Create(context.Background(), request(line(s.tee.ID, 1), line(9999, 1)))

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Contains(t, apperr.Message(err), "9999")
	assert.Zero(t, s.count(t, &models.Order{}))
	assert.Zero(t, s.count(t, &models.OrderItem{}))
	assert.Equal(t, 5, s.stock(t, s.tee.ID))
}

func TestCreateStockBoundaries(t *testing.T) {
	testCases := []struct {
		name      string
		lines     func(s *shop) []LineRequest
		wantKind  apperr.Kind
		wantStock func(s *shop) map[uint]int
	}{
		{
			name:     "exactly the stock on hand",
			lines:    func(s *shop) []LineRequest { return []LineRequest{line(s.tee.ID, 5)} },
			wantKind: "",
			wantStock: func(s *shop) map[uint]int {
				return map[uint]int{s.tee.ID: 0}
			},
		},
		{
			name:     "one more than the stock on hand",
			lines:    func(s *shop) []LineRequest { return []LineRequest{line(s.tee.ID, 6)} },
			wantKind: apperr.KindInsufficientStock,
			wantStock: func(s *shop) map[uint]int {
				return map[uint]int{s.tee.ID: 5}
			},
		},
		{
			name: "second line short rolls back the first",
			lines: func(s *shop) []LineRequest {
				return []LineRequest{line(s.tee.ID, 2), line(s.mug.ID, 4)}
			},
			wantKind: apperr.KindInsufficientStock,
			wantStock: func(s *shop) map[uint]int {
				return map[uint]int{s.tee.ID: 5, s.mug.ID: 3}
			},
		},
		{
			name: "repeated product lines are merged",
			lines: func(s *shop) []LineRequest {
				return []LineRequest{line(s.tee.ID, 3), line(s.tee.ID, 3)}
			},
			wantKind: apperr.KindInsufficientStock,
			wantStock: func(s *shop) map[uint]int {
				return map[uint]int{s.tee.ID: 5}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newShop(t)
			svc := NewService(s.db, shipping)

			_, err := svc.Create(context.Background(), request(tc.lines(s)...))

			assert.Equal(t, tc.wantKind, apperr.KindOf(err), "error: %v", err)
			for id, want := range tc.wantStock(s) {
				assert.Equal(t, want, s.stock(t, id), "stock of product %d", id)
			}
			if tc.wantKind != "" {
				assert.Zero(t, s.count(t, &models.Order{}))
			}
		})
	}
}

func TestCreateMergesLines(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)

	order, err := svc.Create(context.Background(), request(line(s.tee.ID, 2), line(s.mug.ID, 1), line(s.tee.ID, 1)))
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	assert.Equal(t, s.tee.ID, order.Items[0].ProductID)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 2, s.stock(t, s.tee.ID))
}

func TestCreateRejectsOversizedQuantities(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)
	half := math.MaxInt/2 + 1

	testCases := []struct {
		name    string
		lines   []LineRequest
		wantMsg string
	}{
		{
			name:    "one huge line",
			lines:   []LineRequest{line(s.tee.ID, math.MaxInt)},
			wantMsg: "items[0].quantity must be at most 10000",
		},
		{
			name:    "repeated lines that would wrap around",
			lines:   []LineRequest{line(s.tee.ID, half), line(s.tee.ID, half)},
			wantMsg: "items[0].quantity must be at most 10000",
		},
		{
			name:    "repeated lines past the cap",
			lines:   []LineRequest{line(s.tee.ID, 6000), line(s.mug.ID, 1), line(s.tee.ID, 6000)},
			wantMsg: "must be at most 10000 per order",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), request(tc.lines...))

			require.True(t, apperr.Is(err, apperr.KindValidation), "error: %v", err)
			assert.Contains(t, apperr.Message(err), tc.wantMsg)
		})
	}
	assert.Equal(t, 5, s.stock(t, s.tee.ID))
	assert.Zero(t, s.count(t, &models.Order{}))
}

func TestCreateValidation(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)

	testCases := []struct {
		name    string
		mutate  func(r *CreateRequest)
		wantMsg string
	}{
		{"no items", func(r *CreateRequest) { r.Items = nil }, "items is required"},
		{"blank name", func(r *CreateRequest) { r.CustomerName = "   " }, "customer_name is required"},
		{"missing city", func(r *CreateRequest) { r.City = "" }, "city is required"},
		{"missing payment", func(r *CreateRequest) { r.PaymentMethod = "" }, "payment_method is required"},
		{"zero quantity", func(r *CreateRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity must be greater than 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := request(line(s.tee.ID, 1))
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), req)

			require.True(t, apperr.Is(err, apperr.KindValidation), "error: %v", err)
			assert.Equal(t, tc.wantMsg, apperr.Message(err))
		})
	}
	assert.Zero(t, s.count(t, &models.Order{}))
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping, WithCodeGenerator(sequence("AAAAAAAA", "AAAAAAAA", "BBBBBBBB")))
	ctx := context.Background()

	first, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)
	second, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)

	assert.Equal(t, "AAAAAAAA", first.Code)
	assert.Equal(t, "BBBBBBBB", second.Code)
	assert.Equal(t, 3, s.stock(t, s.tee.ID), "collided attempt left stock alone")
}

func TestCreateGivesUpAfterBoundedAttempts(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping, WithCodeGenerator(sequence("AAAAAAAA")), WithCodeAttempts(3))
	ctx := context.Background()

	_, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)
	_, err = svc.Create(ctx, request(line(s.tee.ID, 1)))

	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, int64(1), s.count(t, &models.Order{}))
	assert.Equal(t, 4, s.stock(t, s.tee.ID))
}

func TestCreateConcurrentCheckoutsOfTheLastUnit(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)

	const buyers = 8
	errs := make(chan error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), request(line(s.last.ID, 1)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindInsufficientStock), "error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, s.stock(t, s.last.ID))
	assert.Equal(t, int64(1), s.count(t, &models.Order{}))
}

func TestOrderSnapshotsSurviveCatalogEdits(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)
	ctx := context.Background()

	order, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)
	require.NoError(t, s.db.Model(&models.Product{}).Where("id = ?", s.tee.ID).
		Updates(map[string]interface{}{"name": "Renamed", "price": decimal.NewFromInt(999)}).Error)

	stored, err := svc.ByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tee", stored.Items[0].NameSnapshot)
	assert.True(t, stored.Items[0].PriceSnapshot.Equal(decimal.NewFromInt(100)))
}

func TestByCode(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping, WithCodeGenerator(sequence("K7Q2M9XA")))
	ctx := context.Background()

	_, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)

	order, err := svc.ByCode(ctx, " k7q2m9xa")
	require.NoError(t, err)
	assert.Equal(t, "K7Q2M9XA", order.Code)

	_, err = svc.ByCode(ctx, "ZZZZZZZZ")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.ByCode(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestList(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)
	ctx := context.Background()

	customer := uint(7)
	owned := request(line(s.tee.ID, 1))
	owned.UserID = &customer
	mine, err := svc.Create(ctx, owned)
	require.NoError(t, err)
	_, err = svc.Create(ctx, request(line(s.mug.ID, 1)))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, 1, mine.ID, models.OrderPaid)
	require.NoError(t, err)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Len(t, all.Orders, 2)

	own, err := svc.List(ctx, ListFilter{UserID: &customer})
	require.NoError(t, err)
	require.Len(t, own.Orders, 1)
	assert.Equal(t, mine.Code, own.Orders[0].Code)
	assert.Len(t, own.Orders[0].Items, 1)

	paid, err := svc.List(ctx, ListFilter{Status: models.OrderPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), paid.Total)

	_, err = svc.List(ctx, ListFilter{Status: "LOST"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	far, err := svc.List(ctx, ListFilter{Page: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, maxListPage, far.Page)
	assert.Empty(t, far.Orders)
	assert.Equal(t, int64(2), far.Total)
}

func TestUpdateStatusPermissive(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)
	ctx := context.Background()

	order, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, 1, order.ID, models.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, updated.Status)

	updated, err = svc.UpdateStatus(ctx, 1, order.ID, models.OrderPending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, updated.Status)

	logs, err := audit.List(ctx, s.db, audit.Filter{Entity: "Order"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "UPDATE", logs[0].Action)
	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(logs[0].Metadata), &meta))
	assert.Equal(t, map[string]string{"status": "PENDING", "code": order.Code, "previous": "DELIVERED"}, meta)
}

func TestUpdateStatusStrict(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping, WithStrictTransitions(true))
	ctx := context.Background()

	order, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 1, order.ID, models.OrderShipped)
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "order "+order.Code+" cannot move from PENDING to SHIPPED (next: [PAID CANCELLED])", apperr.Message(err))

	for _, next := range []models.OrderStatus{models.OrderPaid, models.OrderShipped, models.OrderDelivered} {
		_, err = svc.UpdateStatus(ctx, 1, order.ID, next)
		require.NoError(t, err, next)
	}

	_, err = svc.UpdateStatus(ctx, 1, order.ID, models.OrderCancelled)
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "order "+order.Code+" is already DELIVERED", apperr.Message(err))

	logs, err := audit.List(ctx, s.db, audit.Filter{Entity: "Order"})
	require.NoError(t, err)
	assert.Len(t, logs, 3, "rejected transitions are not audited")
}

func TestUpdateStatusRejects(t *testing.T) {
	s := newShop(t)
	svc := NewService(s.db, shipping)
	ctx := context.Background()

	order, err := svc.Create(ctx, request(line(s.tee.ID, 1)))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 1, order.ID, "LOST")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UpdateStatus(ctx, 1, 9999, models.OrderPaid)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
