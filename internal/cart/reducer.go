package cart

import (
	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Item is a product snapshot held in the cart. Quantity never exceeds Stock.
type Item struct {
	ID        uint                `json:"id"`
	Name      string              `json:"name"`
	Slug      string              `json:"slug"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
	SalePrice decimal.NullDecimal `json:"sale_price"`
	Image     string              `json:"image,omitempty"`
	Quantity  int                 `json:"quantity"`
	Stock     int                 `json:"stock"`
}

func (i Item) EffectivePrice() decimal.Decimal {
	return models.EffectivePrice(i.UnitPrice, i.SalePrice)
}

func (i Item) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemFromProduct snapshots p with a zero quantity.
func ItemFromProduct(p models.Product) Item {
	return Item{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		UnitPrice: p.Price,
		SalePrice: p.SalePrice,
		Image:     p.CoverImage(),
		Stock:     p.Stock,
	}
}

// State is the cart contents in insertion order. Every method returns a new
// State and leaves the receiver untouched.
type State struct {
	Items []Item `json:"items"`
}

func (s State) Find(id uint) (Item, bool) {
	if i := s.index(id); i >= 0 {
		return s.Items[i], true
	}
	return Item{}, false
}

// AddItem merges quantity into the line for item.ID, capped at the item's
// stock. The incoming snapshot replaces the stored name, price and stock.
func (s State) AddItem(item Item, quantity int) State {
	if quantity <= 0 {
		return s
	}
	items := s.copyItems()
	i := s.index(item.ID)
	if i < 0 {
		item.Quantity = clamp(quantity, item.Stock)
		if item.Quantity == 0 {
			return State{Items: items}
		}
		return State{Items: append(items, item)}
	}

	item.Quantity = addCapped(items[i].Quantity, quantity, item.Stock)
	if item.Quantity == 0 {
		return State{Items: append(items[:i], items[i+1:]...)}
	}
	items[i] = item
	return State{Items: items}
}

// UpdateQuantity sets the quantity of line id, clamped to [0, stock]. Zero
// removes the line; an unknown id changes nothing.
func (s State) UpdateQuantity(id uint, quantity int) State {
	i := s.index(id)
	if i < 0 {
		return s
	}
	if quantity <= 0 {
		return s.RemoveItem(id)
	}
	items := s.copyItems()
	items[i].Quantity = clamp(quantity, items[i].Stock)
	if items[i].Quantity == 0 {
		return State{Items: append(items[:i], items[i+1:]...)}
	}
	return State{Items: items}
}

// Refresh replaces the stored snapshot of item.ID, keeping its quantity within
// the new stock. Lines not in the cart are left alone.
func (s State) Refresh(item Item) State {
	i := s.index(item.ID)
	if i < 0 {
		return s
	}
	items := s.copyItems()
	item.Quantity = clamp(items[i].Quantity, item.Stock)
	if item.Quantity == 0 {
		return State{Items: append(items[:i], items[i+1:]...)}
	}
	items[i] = item
	return State{Items: items}
}

func (s State) RemoveItem(id uint) State {
	i := s.index(id)
	if i < 0 {
		return s
	}
	items := s.copyItems()
	return State{Items: append(items[:i], items[i+1:]...)}
}

func (s State) Clear() State {
	return State{Items: []Item{}}
}

func (s State) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s State) Total(shipping decimal.Decimal) decimal.Decimal {
	return s.Subtotal().Add(shipping)
}

// Count is the number of units, not lines.
func (s State) Count() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

func (s State) index(id uint) int {
	for i, item := range s.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s State) copyItems() []Item {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	return items
}

// addCapped returns min(existing+quantity, stock) without overflowing.
func addCapped(existing, quantity, stock int) int {
	if stock < 0 {
		stock = 0
	}
	if existing < 0 {
		existing = 0
	}
	if quantity >= stock-existing {
		return stock
	}
	return clamp(existing+quantity, stock)
}

func clamp(quantity, stock int) int {
	if stock < 0 {
		stock = 0
	}
	if quantity > stock {
		return stock
	}
	if quantity < 0 {
		return 0
	}
	return quantity
}
