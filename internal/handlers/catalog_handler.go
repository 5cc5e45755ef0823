package handlers

import (
	"net/http"
	"strconv"

	"go-storefront/internal/apperr"
	"go-storefront/internal/catalog"
	"go-storefront/internal/middleware"
	"go-storefront/internal/models"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalog *catalog.Service
	admin   *catalog.Admin
}

func NewCatalogHandler(svc *catalog.Service, admin *catalog.Admin) *CatalogHandler {
	return &CatalogHandler{catalog: svc, admin: admin}
}

// --- GET: /api/products ---
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	q := catalog.Query{
		Search: c.Query("search"),
		Sort:   catalog.ParseSort(c.Query("sort")),
	}
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, apperr.Validation("category must be a category id"))
			return
		}
		q.CategoryID = uint(id)
	}
	var ok bool
	if q.Page, ok = intQuery(c, "page"); !ok {
		return
	}
	if q.Limit, ok = intQuery(c, "limit"); !ok {
		return
	}

	page, err := h.catalog.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// --- GET: /api/products/:id ---
// Drafts are only visible to administrators.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.Product(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, role, _ := middleware.CurrentUser(c); product.Status != models.ProductActive && role != models.RoleAdmin {
		respondError(c, apperr.NotFound("product %d not found", id))
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- GET: /api/products/slug/:slug ---
func (h *CatalogHandler) GetProductBySlug(c *gin.Context) {
	product, err := h.catalog.ProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- GET: /api/categories ---
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// --- POST: /api/admin/products ---
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var input catalog.ProductInput
	if !bindJSON(c, &input) {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	product, err := h.admin.CreateProduct(c.Request.Context(), actorID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// --- PUT: /api/admin/products/:id ---
// Only the fields that were sent are changed.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch catalog.ProductPatch
	if !bindJSON(c, &patch) {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	product, err := h.admin.UpdateProduct(c.Request.Context(), actorID, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- DELETE: /api/admin/products/:id ---
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	if err := h.admin.DeleteProduct(c.Request.Context(), actorID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// --- POST: /api/admin/categories ---
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var input catalog.CategoryInput
	if !bindJSON(c, &input) {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	category, err := h.admin.CreateCategory(c.Request.Context(), actorID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// --- PUT: /api/admin/categories/:id ---
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch catalog.CategoryPatch
	if !bindJSON(c, &patch) {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	category, err := h.admin.UpdateCategory(c.Request.Context(), actorID, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// --- DELETE: /api/admin/categories/:id ---
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	if err := h.admin.DeleteCategory(c.Request.Context(), actorID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
