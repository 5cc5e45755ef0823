package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go-storefront/internal/apperr"
	"go-storefront/internal/audit"
	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxLineQuantity bounds the units of one product in a single order, after
// repeated lines are merged.
const MaxLineQuantity = 10000

type LineRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"gt=0,lte=10000"`
}

// CreateRequest is a checkout submission. UserID is set by the caller from
// the authenticated session, never from the request body.
type CreateRequest struct {
	CustomerName  string        `json:"customer_name" validate:"required"`
	Phone         string        `json:"phone" validate:"required"`
	Address       string        `json:"address" validate:"required"`
	City          string        `json:"city" validate:"required"`
	Notes         string        `json:"notes"`
	PaymentMethod string        `json:"payment_method" validate:"required"`
	Items         []LineRequest `json:"items" validate:"required,min=1,dive"`
	UserID        *uint         `json:"-"`
}

type ListFilter struct {
	UserID *uint
	Status models.OrderStatus
	Page   int
	Limit  int
}

type ListResult struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

const (
	defaultListLimit = 20
	maxListPage      = 10000
)

type Option func(*Service)

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Service) { s.newCode = gen }
}

func WithCodeAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithStrictTransitions enforces the PENDING -> PAID -> SHIPPED -> DELIVERED
// workflow. Without it any status may follow any other.
func WithStrictTransitions(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

type Service struct {
	db       *gorm.DB
	shipping decimal.Decimal
	newCode  CodeGenerator
	attempts int
	strict   bool
}

func NewService(db *gorm.DB, shipping decimal.Decimal, opts ...Option) *Service {
	s := &Service{
		db:       db,
		shipping: shipping,
		newCode:  RandomCode,
		attempts: DefaultCodeAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errCodeTaken = errors.New("order code already taken")

// Create validates every line against current stock, snapshots prices,
// allocates a code and stores the order while decrementing stock. Either all
// of it happens or none of it does.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.City = strings.TrimSpace(req.City)
	req.Notes = strings.TrimSpace(req.Notes)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if err := apperr.ValidateStruct(req); err != nil {
		return nil, err
	}
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, apperr.Internal(err, "generate order code")
		}
		order, err := s.create(ctx, req, lines, code)
		if errors.Is(err, errCodeTaken) {
			log.Printf("Order code %s already taken, retrying (%d/%d)", code, attempt, s.attempts)
			continue
		}
		if err != nil {
			return nil, classify(err, "create order")
		}
		log.Printf("🧾 Order %s created: %d lines, total %s", order.Code, len(order.Items), order.Total.StringFixed(2))
		return order, nil
	}
	return nil, apperr.Conflict("could not allocate a unique order code after %d attempts", s.attempts)
}

func (s *Service) create(ctx context.Context, req CreateRequest, lines []LineRequest, code string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]models.OrderItem, 0, len(lines))
		subtotal := decimal.Zero
		for _, line := range lines {
			var product models.Product
			if err := lockRows(tx).First(&product, line.ProductID).Error; err != nil {
				return apperr.FromGorm(err, fmt.Sprintf("product %d", line.ProductID))
			}
			if product.Stock < line.Quantity {
				return apperr.InsufficientStock("insufficient stock for %s: %d requested, %d available",
					product.Name, line.Quantity, product.Stock)
			}
			price := product.EffectivePrice()
			subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				ProductID:     product.ID,
				NameSnapshot:  product.Name,
				PriceSnapshot: price,
				Quantity:      line.Quantity,
			})
		}

		var taken int64
		if err := tx.Model(&models.Order{}).Where("code = ?", code).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errCodeTaken
		}

		order = models.Order{
			Code:          code,
			UserID:        req.UserID,
			CustomerName:  req.CustomerName,
			Phone:         req.Phone,
			Address:       req.Address,
			City:          req.City,
			Notes:         req.Notes,
			PaymentMethod: req.PaymentMethod,
			Status:        models.OrderPending,
			Subtotal:      subtotal,
			Shipping:      s.shipping,
			Total:         subtotal.Add(s.shipping),
			Items:         items,
		}
		if err := tx.Create(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errCodeTaken
			}
			return err
		}

		// The stock check above only reads; this guard is what stops two
		// checkouts from both taking the last unit.
		for _, line := range lines {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.InsufficientStock("insufficient stock for product %d", line.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ByCode loads an order with its lines for the confirmation page.
func (s *Service) ByCode(ctx context.Context, code string) (*models.Order, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperr.Validation("code is required")
	}
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("code = ?", code).First(&order).Error
	if err != nil {
		return nil, apperr.FromGorm(err, fmt.Sprintf("order %s", code))
	}
	return &order, nil
}

func (s *Service) ByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, apperr.FromGorm(err, fmt.Sprintf("order %d", id))
	}
	return &order, nil
}

// List returns orders newest first, optionally scoped to one customer and
// one status.
func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("status must be one of %v", models.OrderStatuses())
	}
	page := f.Page
	switch {
	case page < 1:
		page = 1
	case page > maxListPage:
		page = maxListPage
	}
	limit := f.Limit
	if limit < 1 || limit > 100 {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx).Model(&models.Order{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	result := ListResult{Orders: []models.Order{}, Page: page, Limit: limit}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, apperr.Internal(err, "count orders")
	}
	err := q.Preload("Items").
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&result.Orders).Error
	if err != nil {
		return nil, apperr.Internal(err, "list orders")
	}
	return &result, nil
}

// UpdateStatus moves an order to status and audits the change in the same
// transaction.
func (s *Service) UpdateStatus(ctx context.Context, actorID, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status must be one of %v", models.OrderStatuses())
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx).First(&order, id).Error; err != nil {
			return apperr.FromGorm(err, fmt.Sprintf("order %d", id))
		}
		previous := order.Status
		if s.strict && !CanTransition(previous, status) {
			if previous.Terminal() {
				return apperr.Conflict("order %s is already %s", order.Code, previous)
			}
			return apperr.Conflict("order %s cannot move from %s to %s (next: %v)",
				order.Code, previous, status, NextStatuses(previous))
		}
		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionUpdate,
			Entity:   "Order",
			EntityID: order.ID,
			Metadata: map[string]interface{}{
				"status":   status,
				"code":     order.Code,
				"previous": previous,
			},
		})
	})
	if err != nil {
		return nil, classify(err, "update order status")
	}
	log.Printf("📦 Order %s is now %s", order.Code, status)
	return s.ByID(ctx, id)
}

// lockRows takes row locks where the engine supports SELECT ... FOR UPDATE.
// SQLite serialises writers on its own.
func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
// Each input quantity is already within (0, MaxLineQuantity], so the running
// sum is checked before it can grow past the cap.
func mergeLines(in []LineRequest) ([]LineRequest, error) {
	out := make([]LineRequest, 0, len(in))
	index := make(map[uint]int, len(in))
	for _, line := range in {
		i, ok := index[line.ProductID]
		if !ok {
			index[line.ProductID] = len(out)
			out = append(out, line)
			continue
		}
		if line.Quantity > MaxLineQuantity-out[i].Quantity {
			return nil, apperr.Validation("quantity for product %d must be at most %d per order",
				line.ProductID, MaxLineQuantity)
		}
		out[i].Quantity += line.Quantity
	}
	return out, nil
}

func classify(err error, op string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	log.Printf("❌ %s: %v", op, err)
	return apperr.Internal(err, op)
}
