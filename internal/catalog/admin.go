package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-storefront/internal/apperr"
	"go-storefront/internal/audit"
	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ImageInput struct {
	URL      string `json:"url" validate:"required"`
	PublicID string `json:"public_id"`
	Position int    `json:"position" validate:"gte=0"`
}

type ProductInput struct {
	Name        string               `json:"name" validate:"required"`
	Slug        string               `json:"slug"`
	Description string               `json:"description" validate:"required"`
	Price       decimal.Decimal      `json:"price"`
	SalePrice   decimal.NullDecimal  `json:"sale_price"`
	Stock       int                  `json:"stock" validate:"gte=0"`
	Status      models.ProductStatus `json:"status" validate:"required,oneof=ACTIVE DRAFT"`
	CategoryID  uint                 `json:"category_id" validate:"required"`
	Images      []ImageInput         `json:"images" validate:"dive"`
}

// ProductPatch is a partial update; nil fields are left untouched. A non-nil
// Images replaces the whole image list.
type ProductPatch struct {
	Name           *string               `json:"name" validate:"omitnil,min=1"`
	Slug           *string               `json:"slug" validate:"omitnil,min=1"`
	Description    *string               `json:"description" validate:"omitnil,min=1"`
	Price          *decimal.Decimal      `json:"price"`
	SalePrice      *decimal.Decimal      `json:"sale_price"`
	ClearSalePrice bool                  `json:"clear_sale_price"`
	Stock          *int                  `json:"stock" validate:"omitnil,gte=0"`
	Status         *models.ProductStatus `json:"status" validate:"omitnil,oneof=ACTIVE DRAFT"`
	CategoryID     *uint                 `json:"category_id" validate:"omitnil,gt=0"`
	Images         []ImageInput          `json:"images" validate:"dive"`
}

type CategoryInput struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug"`
}

type CategoryPatch struct {
	Name *string `json:"name" validate:"omitnil,min=1"`
	Slug *string `json:"slug" validate:"omitnil,min=1"`
}

// Admin holds the back-office catalog mutations. Every change is audited in
// the same transaction.
type Admin struct {
	db *gorm.DB
}

func NewAdmin(db *gorm.DB) *Admin {
	return &Admin{db: db}
}

func (a *Admin) CreateProduct(ctx context.Context, actorID uint, in ProductInput) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := checkPrices(&in.Price, in.SalePrice); err != nil {
		return nil, err
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}

	product := models.Product{
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Price:       in.Price,
		SalePrice:   in.SalePrice,
		Stock:       in.Stock,
		Status:      in.Status,
		CategoryID:  in.CategoryID,
		Images:      toImages(in.Images),
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCategory(tx, in.CategoryID); err != nil {
			return err
		}
		if err := tx.Omit("Category").Create(&product).Error; err != nil {
			return apperr.FromGorm(err, "product slug "+slug)
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionCreate,
			Entity:   "Product",
			EntityID: product.ID,
			Metadata: map[string]interface{}{"name": product.Name},
		})
	})
	if err != nil {
		return nil, classify(err, "create product")
	}
	return a.loadProduct(ctx, product.ID)
}

func (a *Admin) UpdateProduct(ctx context.Context, actorID, id uint, patch ProductPatch) (*models.Product, error) {
	if err := apperr.ValidateStruct(patch); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("name is required")
		}
		updates["name"] = name
		if patch.Slug == nil {
			updates["slug"] = Slugify(name)
		}
	}
	if patch.Slug != nil {
		slug, err := slugOrName(*patch.Slug, "")
		if err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		if !patch.Price.IsPositive() {
			return nil, apperr.Validation("price must be greater than 0")
		}
		updates["price"] = *patch.Price
	}
	switch {
	case patch.ClearSalePrice:
		updates["sale_price"] = nil
	case patch.SalePrice != nil:
		if !patch.SalePrice.IsPositive() {
			return nil, apperr.Validation("sale_price must be greater than 0")
		}
		updates["sale_price"] = *patch.SalePrice
	}
	if patch.Stock != nil {
		updates["stock"] = *patch.Stock
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.CategoryID != nil {
		updates["category_id"] = *patch.CategoryID
	}
	if slug, ok := updates["slug"].(string); ok && slug == "" {
		return nil, apperr.Validation("slug cannot be derived from name")
	}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			return apperr.FromGorm(err, fmt.Sprintf("product %d", id))
		}
		if patch.CategoryID != nil {
			if err := requireCategory(tx, *patch.CategoryID); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&product).Updates(updates).Error; err != nil {
				return apperr.FromGorm(err, "product slug")
			}
		}
		if patch.Images != nil {
			if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
				return err
			}
			images := toImages(patch.Images)
			for i := range images {
				images[i].ProductID = id
			}
			if len(images) > 0 {
				if err := tx.Create(&images).Error; err != nil {
					return err
				}
			}
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionUpdate,
			Entity:   "Product",
			EntityID: id,
			Metadata: map[string]interface{}{"name": product.Name, "fields": fieldNames(updates, patch.Images != nil)},
		})
	})
	if err != nil {
		return nil, classify(err, "update product")
	}
	return a.loadProduct(ctx, id)
}

// DeleteProduct removes the product and its images. Past order lines keep
// their snapshots.
func (a *Admin) DeleteProduct(ctx context.Context, actorID, id uint) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			return apperr.FromGorm(err, fmt.Sprintf("product %d", id))
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&product).Error; err != nil {
			return apperr.FromGorm(err, fmt.Sprintf("product %d", id))
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionDelete,
			Entity:   "Product",
			EntityID: id,
			Metadata: map[string]interface{}{"name": product.Name},
		})
	})
	return classify(err, "delete product")
}

func (a *Admin) CreateCategory(ctx context.Context, actorID uint, in CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}
	slug, err := slugOrName(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}

	category := models.Category{Name: in.Name, Slug: slug}
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&category).Error; err != nil {
			return apperr.FromGorm(err, "category slug "+slug)
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionCreate,
			Entity:   "Category",
			EntityID: category.ID,
			Metadata: map[string]interface{}{"name": category.Name},
		})
	})
	if err != nil {
		return nil, classify(err, "create category")
	}
	return &category, nil
}

func (a *Admin) UpdateCategory(ctx context.Context, actorID, id uint, patch CategoryPatch) (*models.Category, error) {
	if err := apperr.ValidateStruct(patch); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("name is required")
		}
		updates["name"] = name
		if patch.Slug == nil {
			updates["slug"] = Slugify(name)
		}
	}
	if patch.Slug != nil {
		slug, err := slugOrName(*patch.Slug, "")
		if err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if slug, ok := updates["slug"].(string); ok && slug == "" {
		return nil, apperr.Validation("slug cannot be derived from name")
	}

	var category models.Category
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			return apperr.FromGorm(err, fmt.Sprintf("category %d", id))
		}
		if len(updates) > 0 {
			if err := tx.Model(&category).Updates(updates).Error; err != nil {
				return apperr.FromGorm(err, "category slug")
			}
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionUpdate,
			Entity:   "Category",
			EntityID: id,
			Metadata: map[string]interface{}{"name": category.Name},
		})
	})
	if err != nil {
		return nil, classify(err, "update category")
	}
	return &category, nil
}

// DeleteCategory refuses to orphan products.
func (a *Admin) DeleteCategory(ctx context.Context, actorID, id uint) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return apperr.FromGorm(err, fmt.Sprintf("category %d", id))
		}
		var products int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
			return err
		}
		if products > 0 {
			return apperr.Conflict("category %q still has %d products", category.Name, products)
		}
		if err := tx.Delete(&category).Error; err != nil {
			return apperr.FromGorm(err, fmt.Sprintf("category %d", id))
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionDelete,
			Entity:   "Category",
			EntityID: id,
			Metadata: map[string]interface{}{"name": category.Name},
		})
	})
	return classify(err, "delete category")
}

func (a *Admin) loadProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := a.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", orderedImages).
		First(&product, id).Error
	if err != nil {
		return nil, apperr.FromGorm(err, fmt.Sprintf("product %d", id))
	}
	return &product, nil
}

func requireCategory(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("category %d not found", id)
	}
	return nil
}

func checkPrices(price *decimal.Decimal, sale decimal.NullDecimal) error {
	if !price.IsPositive() {
		return apperr.Validation("price must be greater than 0")
	}
	if sale.Valid && !sale.Decimal.IsPositive() {
		return apperr.Validation("sale_price must be greater than 0")
	}
	return nil
}

func slugOrName(slug, name string) (string, error) {
	if strings.TrimSpace(slug) != "" {
		slug = Slugify(slug)
	} else {
		slug = Slugify(name)
	}
	if slug == "" {
		return "", apperr.Validation("slug cannot be empty")
	}
	return slug, nil
}

func toImages(in []ImageInput) []models.ProductImage {
	images := make([]models.ProductImage, len(in))
	for i, img := range in {
		images[i] = models.ProductImage{URL: img.URL, PublicID: img.PublicID, Position: img.Position}
	}
	return images
}

func fieldNames(updates map[string]interface{}, images bool) []string {
	fields := make([]string, 0, len(updates)+1)
	for k := range updates {
		fields = append(fields, k)
	}
	if images {
		fields = append(fields, "images")
	}
	return fields
}

// classify keeps domain errors as they are and wraps the rest.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(err, op)
}
