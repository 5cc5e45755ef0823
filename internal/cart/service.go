package cart

import (
	"context"

	"go-storefront/internal/apperr"
	"go-storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductLookup resolves the current catalog entry for a product id.
type ProductLookup interface {
	Product(ctx context.Context, id uint) (*models.Product, error)
}

// Summary is the cart as shown to the shopper.
type Summary struct {
	SessionID string          `json:"session_id"`
	Items     []Item          `json:"items"`
	Count     int             `json:"count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
}

type Service struct {
	store    Store
	products ProductLookup
	shipping decimal.Decimal
}

func NewService(store Store, products ProductLookup, shipping decimal.Decimal) *Service {
	return &Service{store: store, products: products, shipping: shipping}
}

// NewSessionID returns a fresh opaque cart token.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like a token from NewSessionID.
func ValidSessionID(id string) bool {
	return uuid.Validate(id) == nil
}

func (s *Service) Summarize(sessionID string, state State) *Summary {
	items := state.Items
	if state.IsEmpty() {
		items = []Item{}
	}
	return &Summary{
		SessionID: sessionID,
		Items:     items,
		Count:     state.Count(),
		Subtotal:  state.Subtotal(),
		Shipping:  s.shipping,
		Total:     state.Total(s.shipping),
	}
}

func (s *Service) Open(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := OpenSession(ctx, s.store, sessionID)
	if err != nil {
		return nil, apperr.Internal(err, "open cart")
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Summary, error) {
	sess, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Summarize(sessionID, sess.State()), nil
}

// Add puts quantity units of an ACTIVE product in the cart, capped at its
// current stock.
func (s *Service) Add(ctx context.Context, sessionID string, productID uint, quantity int) (*Summary, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be greater than 0")
	}
	product, err := s.products.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductActive {
		return nil, apperr.NotFound("product %d not found", productID)
	}
	if product.Stock < 1 {
		return nil, apperr.InsufficientStock("%s is out of stock", product.Name)
	}

	sess, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Add(ctx, ItemFromProduct(*product), quantity); err != nil {
		return nil, apperr.Internal(err, "save cart")
	}
	return s.Summarize(sessionID, sess.State()), nil
}

// Update sets the quantity of a line after refreshing its snapshot. A product
// that left the catalog drops out of the cart.
func (s *Service) Update(ctx context.Context, sessionID string, productID uint, quantity int) (*Summary, error) {
	sess, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := sess.State().Find(productID); !ok {
		return nil, apperr.NotFound("product %d is not in the cart", productID)
	}

	product, err := s.products.Product(ctx, productID)
	switch {
	case apperr.Is(err, apperr.KindNotFound) || (err == nil && product.Status != models.ProductActive):
		err = sess.Remove(ctx, productID)
	case err != nil:
		return nil, err
	default:
		if err = sess.Refresh(ctx, ItemFromProduct(*product)); err == nil {
			err = sess.UpdateQuantity(ctx, productID, quantity)
		}
	}
	if err != nil {
		return nil, apperr.Internal(err, "save cart")
	}
	return s.Summarize(sessionID, sess.State()), nil
}

func (s *Service) Remove(ctx context.Context, sessionID string, productID uint) (*Summary, error) {
	sess, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Remove(ctx, productID); err != nil {
		return nil, apperr.Internal(err, "save cart")
	}
	return s.Summarize(sessionID, sess.State()), nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	sess, err := s.Open(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.Clear(ctx); err != nil {
		return apperr.Internal(err, "clear cart")
	}
	return nil
}
