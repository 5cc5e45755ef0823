package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-storefront/internal/apperr"
	"go-storefront/internal/models"

	"gorm.io/gorm"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// ParseSort maps a query value to a SortOrder; anything unknown is newest.
func ParseSort(s string) SortOrder {
	switch SortOrder(s) {
	case SortPriceAsc, SortPriceDesc:
		return SortOrder(s)
	default:
		return SortNewest
	}
}

const (
	MaxLimit = 100
	MaxPage  = 10000

	effectivePriceSQL = "CASE WHEN products.sale_price IS NOT NULL AND products.sale_price > 0 THEN products.sale_price ELSE products.price END"
)

// likeEscaper makes a search term match literally inside LIKE ... ESCAPE '!'.
// '!' is used instead of a backslash, which MySQL would read as a string escape.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

type Query struct {
	CategoryID uint
	Search     string
	Sort       SortOrder
	Page       int
	Limit      int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type Page struct {
	Products   []models.Product `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

// CategorySummary is a category with the number of products filed under it.
type CategorySummary struct {
	models.Category
	ProductCount int64 `json:"product_count"`
}

type Service struct {
	db       *gorm.DB
	pageSize int
}

func NewService(db *gorm.DB, pageSize int) *Service {
	if pageSize < 1 {
		pageSize = 12
	}
	return &Service{db: db, pageSize: pageSize}
}

// Search returns one page of ACTIVE products. Ties within a sort key fall back
// to creation time, then id, so paging is stable.
func (s *Service) Search(ctx context.Context, q Query) (*Page, error) {
	page := q.Page
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	limit := q.Limit
	switch {
	case limit == 0:
		limit = s.pageSize
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}

	base := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("products.status = ?", models.ProductActive)
	if q.CategoryID != 0 {
		base = base.Where("products.category_id = ?", q.CategoryID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		base = base.Where("(LOWER(products.name) LIKE ? ESCAPE '!' OR LOWER(products.description) LIKE ? ESCAPE '!')",
			pattern, pattern)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperr.Internal(err, "count products")
	}

	products := []models.Product{}
	err := orderBy(base, ParseSort(string(q.Sort))).
		Preload("Category").
		Preload("Images", orderedImages).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, apperr.Internal(err, "list products")
	}

	return &Page{
		Products: products,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

func orderBy(db *gorm.DB, sort SortOrder) *gorm.DB {
	switch sort {
	case SortPriceAsc:
		db = db.Order(effectivePriceSQL + " ASC")
	case SortPriceDesc:
		db = db.Order(effectivePriceSQL + " DESC")
	}
	return db.Order("products.created_at DESC").Order("products.id DESC")
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("product_images.position ASC")
}

// Product loads any product, draft or active, with category and images.
func (s *Service) Product(ctx context.Context, id uint) (*models.Product, error) {
	return s.findOne(ctx, fmt.Sprintf("product %d", id), "products.id = ?", id)
}

// ProductBySlug loads an ACTIVE product for the storefront detail page.
func (s *Service) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.findOne(ctx, fmt.Sprintf("product %q", slug),
		"products.slug = ? AND products.status = ?", slug, models.ProductActive)
}

func (s *Service) findOne(ctx context.Context, what string, cond string, args ...interface{}) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", orderedImages).
		Where(cond, args...).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("%s not found", what)
		}
		return nil, apperr.Internal(err, "load "+what)
	}
	return &product, nil
}

// Categories lists categories by name with their product counts.
func (s *Service) Categories(ctx context.Context) ([]CategorySummary, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperr.Internal(err, "list categories")
	}

	var counts []struct {
		CategoryID uint
		Count      int64
	}
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Select("category_id, COUNT(*) AS count").
		Group("category_id").
		Scan(&counts).Error
	if err != nil {
		return nil, apperr.Internal(err, "count products per category")
	}
	byCategory := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byCategory[c.CategoryID] = c.Count
	}

	out := make([]CategorySummary, len(categories))
	for i, c := range categories {
		out[i] = CategorySummary{Category: c, ProductCount: byCategory[c.ID]}
	}
	return out, nil
}
