package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pantrychef/pantry/internal/domain/grocery"
)

type GroceryRepository struct {
	db *gorm.DB
}

func NewGroceryRepository(db *gorm.DB) *GroceryRepository {
	return &GroceryRepository{db: db}
}

func (r *GroceryRepository) ListByUser(ctx context.Context, userID string) ([]*grocery.Item, error) {
	var models []GroceryItemModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("grocery repository: list: %w", err)
	}
	out := make([]*grocery.Item, 0, len(models))
	for i := range models {
		out = append(out, modelToItem(&models[i]))
	}
	return out, nil
}

func (r *GroceryRepository) Get(ctx context.Context, id string) (*grocery.Item, error) {
	var m GroceryItemModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, grocery.ErrNotFound
		}
		return nil, fmt.Errorf("grocery repository: get: %w", err)
	}
	return modelToItem(&m), nil
}

func (r *GroceryRepository) Insert(ctx context.Context, item *grocery.Item) error {
	if err := r.db.WithContext(ctx).Create(itemToModel(item)).Error; err != nil {
		return fmt.Errorf("grocery repository: insert: %w", err)
	}
	return nil
}

func (r *GroceryRepository) Update(ctx context.Context, item *grocery.Item) error {
	res := r.db.WithContext(ctx).
		Model(&GroceryItemModel{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":          item.Name,
			"quantity":      item.Quantity,
			"unit":          item.Unit,
			"category":      item.Category,
			"purchase_date": item.PurchaseDate,
			"expiry_date":   item.ExpiryDate,
			"updated_at":    item.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("grocery repository: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return grocery.ErrNotFound
	}
	return nil
}

func (r *GroceryRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&GroceryItemModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("grocery repository: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return grocery.ErrNotFound
	}
	return nil
}
