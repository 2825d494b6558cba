package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/comandaapp/comanda/internal/models"
)

type OrderRepo struct {
	DB *gorm.DB
}

// forUpdate adds a row lock on dialects that support it. The sqlite
// test database runs single-writer anyway.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ActiveByTable returns the most recent pending/ready order for a
// table, locked for the duration of the surrounding transaction.
// Returns gorm.ErrRecordNotFound when the table has no active order.
func (r *OrderRepo) ActiveByTable(tx *gorm.DB, tableID uint) (*models.Order, error) {
	var order models.Order
	err := forUpdate(tx).
		Where("table_id = ? AND status IN ?", tableID, []string{models.OrderStatusPending, models.OrderStatusReady}).
		Order("created_at DESC").
		Preload("Items").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPopulated loads an order with its table and product details.
func (r *OrderRepo) GetPopulated(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Table").
		Preload("Items").
		Preload("Items.Product").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// KitchenQueue returns pending orders oldest first.
func (r *OrderRepo) KitchenQueue(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("status = ?", models.OrderStatusPending).
		Order("created_at ASC").
		Preload("Table").
		Preload("Items").
		Preload("Items.Product").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepo) TableByID(tx *gorm.DB, id uint) (*models.Table, error) {
	var table models.Table
	if err := tx.First(&table, id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *OrderRepo) TableByNumber(ctx context.Context, number int) (*models.Table, error) {
	var table models.Table
	if err := r.DB.WithContext(ctx).Where("number = ?", number).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// ProductsByIDs loads the authoritative price/calorie data for a set of
// products. Missing ids are simply absent from the result map.
func (r *OrderRepo) ProductsByIDs(tx *gorm.DB, ids []uint) (map[uint]models.Product, error) {
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}
