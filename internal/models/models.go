package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

type ProductStatus string

const (
	ProductActive ProductStatus = "ACTIVE"
	ProductDraft  ProductStatus = "DRAFT"
)

// User - an administrator or a registered customer
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never return this in JSON
	Role         Role      `gorm:"size:20;not null;default:'CUSTOMER'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:191;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product - the catalog entry. Stock is decremented by checkout only.
type Product struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	Name        string              `gorm:"size:200;not null" json:"name"`
	Slug        string              `gorm:"uniqueIndex;size:191;not null" json:"slug"`
	Description string              `gorm:"type:text" json:"description"`
	Price       decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	SalePrice   decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"sale_price"`
	Stock       int                 `gorm:"not null;default:0" json:"stock"`
	Status      ProductStatus       `gorm:"size:10;not null;default:'DRAFT';index" json:"status"`
	CategoryID  uint                `gorm:"not null;index" json:"category_id"`
	Category    Category            `gorm:"foreignKey:CategoryID" json:"category"`
	Images      []ProductImage      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images"`
	CreatedAt   time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// EffectivePrice is the sale price when present and positive, else the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.SalePrice)
}

// CoverImage returns the first image URL by position, or "".
func (p Product) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	cover := p.Images[0]
	for _, img := range p.Images[1:] {
		if img.Position < cover.Position {
			cover = img
		}
	}
	return cover.URL
}

func EffectivePrice(price decimal.Decimal, sale decimal.NullDecimal) decimal.Decimal {
	if sale.Valid && sale.Decimal.IsPositive() {
		return sale.Decimal
	}
	return price
}

type ProductImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"index;not null" json:"product_id"`
	URL       string `gorm:"size:500;not null" json:"url"`
	PublicID  string `gorm:"size:200" json:"public_id,omitempty"`
	Position  int    `gorm:"not null;default:0" json:"position"`
}

// Order - the checkout header. Only Status changes after creation.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"uniqueIndex;size:16;not null" json:"code"`
	UserID        *uint           `gorm:"index" json:"user_id,omitempty"`
	CustomerName  string          `gorm:"size:200;not null" json:"customer_name"`
	Phone         string          `gorm:"size:50;not null" json:"phone"`
	Address       string          `gorm:"size:300;not null" json:"address"`
	City          string          `gorm:"size:120;not null" json:"city"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	PaymentMethod string          `gorm:"size:50" json:"payment_method"`
	Status        OrderStatus     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Shipping      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem - a line of an order. Name and price are copied at purchase time
// so later catalog edits never alter past orders.
type OrderItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"index;not null" json:"order_id"`
	ProductID     uint            `gorm:"index;not null" json:"product_id"`
	NameSnapshot  string          `gorm:"size:200;not null" json:"name"`
	PriceSnapshot decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity      int             `gorm:"not null" json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AuditLog - append-only record of administrative actions
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Action    string    `gorm:"size:20;not null" json:"action"`
	Entity    string    `gorm:"size:50;not null;index" json:"entity"`
	EntityID  string    `gorm:"size:64;index" json:"entity_id"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CartSession - the persisted cart of one browser session
type CartSession struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Items     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"index"`
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Product{},
		&ProductImage{},
		&Order{},
		&OrderItem{},
		&AuditLog{},
		&CartSession{},
	}
}
