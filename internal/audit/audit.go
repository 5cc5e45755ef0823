package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go-storefront/internal/models"

	"gorm.io/gorm"
)

type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Entry describes one administrative action.
type Entry struct {
	ActorID  uint
	Action   Action
	Entity   string
	EntityID uint
	Metadata map[string]interface{}
}

// Record appends e using db, which is normally the caller's transaction so the
// entry commits or rolls back with the change it describes.
func Record(db *gorm.DB, e Entry) error {
	row := models.AuditLog{
		UserID:   e.ActorID,
		Action:   string(e.Action),
		Entity:   e.Entity,
		EntityID: strconv.FormatUint(uint64(e.EntityID), 10),
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		row.Metadata = string(raw)
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

type Filter struct {
	Entity   string
	EntityID string
	Limit    int
}

const defaultListLimit = 50

// List returns the newest entries first.
func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.AuditLog, error) {
	limit := f.Limit
	if limit < 1 || limit > 500 {
		limit = defaultListLimit
	}
	q := db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Entity != "" {
		q = q.Where("entity = ?", f.Entity)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	var logs []models.AuditLog
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
