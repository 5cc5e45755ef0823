package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists cart state per session id. Load of an unknown id returns an
// empty State.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, state State) error
	Delete(ctx context.Context, id string) error
}

// GormStore keeps each cart as a JSON document in cart_sessions.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, id string) (State, error) {
	var row models.CartSession
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return State{Items: []Item{}}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load cart %s: %w", id, err)
	}

	state := State{Items: []Item{}}
	if row.Items != "" {
		if err := json.Unmarshal([]byte(row.Items), &state.Items); err != nil {
			return State{}, fmt.Errorf("decode cart %s: %w", id, err)
		}
	}
	return state, nil
}

func (s *GormStore) Save(ctx context.Context, id string, state State) error {
	items := state.Items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", id, err)
	}
	row := models.CartSession{ID: id, Items: string(raw), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save cart %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.CartSession{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}

// PurgeBefore drops carts untouched since cutoff and reports how many went.
func (s *GormStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.CartSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge carts: %w", res.Error)
	}
	return res.RowsAffected, nil
}
