package handlers

import (
	"net/http"

	"go-storefront/internal/apperr"
	"go-storefront/internal/audit"
	"go-storefront/internal/database"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportHandler struct {
	db                *gorm.DB
	lowStockThreshold int
}

func NewReportHandler(db *gorm.DB, lowStockThreshold int) *ReportHandler {
	return &ReportHandler{db: db, lowStockThreshold: lowStockThreshold}
}

// --- GET: /api/admin/reports/dashboard ---
func (h *ReportHandler) Dashboard(c *gin.Context) {
	stats, err := database.GetDashboardStats(c.Request.Context(), h.db, h.lowStockThreshold)
	if err != nil {
		respondError(c, apperr.Internal(err, "dashboard stats"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- GET: /api/admin/reports/valuation ---
// Stock on hand valued at selling price, grouped by category
func (h *ReportHandler) InventoryValuation(c *gin.Context) {
	valuation, err := database.GetInventoryValuation(c.Request.Context(), h.db)
	if err != nil {
		respondError(c, apperr.Internal(err, "inventory valuation"))
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// --- GET: /api/admin/audit-logs ---
func (h *ReportHandler) AuditLogs(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	logs, err := audit.List(c.Request.Context(), h.db, audit.Filter{
		Entity:   c.Query("entity"),
		EntityID: c.Query("entity_id"),
		Limit:    limit,
	})
	if err != nil {
		respondError(c, apperr.Internal(err, "audit logs"))
		return
	}
	c.JSON(http.StatusOK, logs)
}
