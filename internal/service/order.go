package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/comandaapp/comanda/internal/logging"
	"github.com/comandaapp/comanda/internal/metrics"
	"github.com/comandaapp/comanda/internal/models"
	"github.com/comandaapp/comanda/internal/mykafka"
	"github.com/comandaapp/comanda/internal/repo"
	"github.com/comandaapp/comanda/internal/ws"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrConflict   = errors.New("conflict")   // 409
)

// Notifier is the real-time fan-out the service publishes into. The ws
// hub satisfies it; tests plug in a recorder.
type Notifier interface {
	Publish(room, event string, payload interface{})
}

// OrderService owns the order lifecycle: place/merge, ready, checkout,
// pay. Every transition recomputes derived totals from current product
// data and fans out to the matching staff room.
type OrderService struct {
	Repo     *repo.OrderRepo
	Notifier Notifier
	Producer *mykafka.Producer
}

// PlacedItem is one cart line as submitted by a waiter. Prices are
// deliberately absent: the service reads them from the product table.
type PlacedItem struct {
	ProductID uint `json:"product" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,min=1"`
}

// PlaceOrder creates the pending order for a table or merges items into
// the one already running. The read-modify-write runs inside a
// transaction with the active order row locked, so two waiters hitting
// the same table serialize instead of losing updates.
func (s *OrderService) PlaceOrder(ctx context.Context, tableID uint, items []PlacedItem) (*models.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for _, it := range items {
		if it.ProductID == 0 {
			return nil, fmt.Errorf("%w: product is required", ErrValidation)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
	}

	var orderID uint
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.TableByID(tx, tableID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: table does not exist", ErrNotFound)
			}
			return err
		}

		ids := make([]uint, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		products, err := s.Repo.ProductsByIDs(tx, ids)
		if err != nil {
			return err
		}
		for _, it := range items {
			if _, ok := products[it.ProductID]; !ok {
				return fmt.Errorf("%w: product %d does not exist", ErrValidation, it.ProductID)
			}
		}

		order, err := s.Repo.ActiveByTable(tx, tableID)
		switch {
		case err == nil:
			if err := s.mergeItems(tx, order, items); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			order = &models.Order{TableID: tableID, Status: models.OrderStatusPending}
			for _, it := range items {
				order.Items = append(order.Items, models.OrderItem{
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
				})
			}
			if err := tx.Create(order).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// Reload prices for every line on the order, not just the ones
		// submitted now, so merged orders total correctly.
		allIDs := make([]uint, 0, len(order.Items))
		for _, it := range order.Items {
			allIDs = append(allIDs, it.ProductID)
		}
		allProducts, err := s.Repo.ProductsByIDs(tx, allIDs)
		if err != nil {
			return err
		}

		total, calories := computeTotals(order.Items, allProducts)
		if err := tx.Model(order).Updates(map[string]interface{}{
			"total":          total,
			"total_calories": calories,
		}).Error; err != nil {
			return err
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	full, err := s.Repo.GetPopulated(ctx, orderID)
	if err != nil {
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	if s.Notifier != nil {
		s.Notifier.Publish(ws.RoomKitchen, ws.EventNewOrder, full)
	}
	s.publishEvent(ctx, mykafka.TopicOrderEvents, full.ID, map[string]interface{}{
		"type":     "order_created",
		"order_id": full.ID,
		"table_id": full.TableID,
		"total":    full.Total,
	})

	return full, nil
}

// mergeItems folds new cart lines into an existing order, summing
// quantities per product. products referenced by the incoming items are
// already validated by the caller.
func (s *OrderService) mergeItems(tx *gorm.DB, order *models.Order, items []PlacedItem) error {
	for _, it := range items {
		merged := false
		for i := range order.Items {
			if order.Items[i].ProductID == it.ProductID {
				order.Items[i].Quantity += it.Quantity
				if err := tx.Model(&order.Items[i]).Update("quantity", order.Items[i].Quantity).Error; err != nil {
					return err
				}
				merged = true
				break
			}
		}
		if !merged {
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}
	}
	return nil
}

// computeTotals derives order totals from the authoritative product
// data. Pure: no client-submitted price ever enters the calculation.
func computeTotals(items []models.OrderItem, products map[uint]models.Product) (float64, int) {
	var total float64
	var calories int
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		total += p.Price * float64(it.Quantity)
		calories += p.Calories * it.Quantity
	}
	return total, calories
}

// MarkReady transitions an order to ready and notifies the waiter room.
func (s *OrderService) MarkReady(ctx context.Context, id uint) (*models.Order, error) {
	res := s.Repo.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", models.OrderStatusReady)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order does not exist", ErrNotFound)
	}

	full, err := s.Repo.GetPopulated(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.OrdersReady.Inc()
	if s.Notifier != nil {
		s.Notifier.Publish(ws.RoomWaiters, ws.EventOrderReady, full)
	}
	s.publishEvent(ctx, mykafka.TopicOrderEvents, full.ID, map[string]interface{}{
		"type":     "order_ready",
		"order_id": full.ID,
		"table_id": full.TableID,
	})

	return full, nil
}

// KitchenQueue lists pending orders oldest first, populated for display.
func (s *OrderService) KitchenQueue(ctx context.Context) ([]models.Order, error) {
	return s.Repo.KitchenQueue(ctx)
}

// CheckoutLine is one receipt row with the line total resolved from the
// stored product price.
type CheckoutLine struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"qty"`
	LineTotal float64 `json:"lineTotal"`
}

// CheckoutSummary is the cashier's view of a table's active order.
type CheckoutSummary struct {
	OrderID     uint           `json:"order_id"`
	TableNumber int            `json:"tableNumber"`
	CreatedAt   time.Time      `json:"createdAt"`
	Items       []CheckoutLine `json:"items"`
	Total       float64        `json:"total"`
}

// CheckoutOrder resolves a table number to its most recent active order.
func (s *OrderService) CheckoutOrder(ctx context.Context, tableNumber int) (*CheckoutSummary, error) {
	table, err := s.Repo.TableByNumber(ctx, tableNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: table does not exist", ErrNotFound)
		}
		return nil, err
	}

	order, err := s.Repo.ActiveByTable(s.Repo.DB.WithContext(ctx), table.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active order for this table", ErrNotFound)
		}
		return nil, err
	}

	full, err := s.Repo.GetPopulated(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	summary := &CheckoutSummary{
		OrderID:     full.ID,
		TableNumber: table.Number,
		CreatedAt:   full.CreatedAt,
		Total:       full.Total,
		Items:       make([]CheckoutLine, 0, len(full.Items)),
	}
	for _, it := range full.Items {
		line := CheckoutLine{Quantity: it.Quantity}
		if it.Product != nil {
			line.Name = it.Product.Name
			line.LineTotal = it.Product.Price * float64(it.Quantity)
		}
		summary.Items = append(summary.Items, line)
	}
	return summary, nil
}

// PayOrder marks the table's most recent active order delivered and
// stamps the delivery time.
func (s *OrderService) PayOrder(ctx context.Context, tableNumber int) (*models.Order, error) {
	table, err := s.Repo.TableByNumber(ctx, tableNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: table does not exist", ErrNotFound)
		}
		return nil, err
	}

	var orderID uint
	err = s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.Repo.ActiveByTable(tx, table.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no active order to pay", ErrNotFound)
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(order).Updates(map[string]interface{}{
			"status":       models.OrderStatusDelivered,
			"delivered_at": &now,
		}).Error; err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	full, err := s.Repo.GetPopulated(ctx, orderID)
	if err != nil {
		return nil, err
	}

	metrics.OrdersPaid.Inc()
	s.publishEvent(ctx, mykafka.TopicOrderEvents, full.ID, map[string]interface{}{
		"type":     "order_paid",
		"order_id": full.ID,
		"table_id": full.TableID,
		"total":    full.Total,
	})

	return full, nil
}

// GetOrder loads a populated order; used by handlers and the ws relay.
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.Repo.GetPopulated(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order does not exist", ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

// publishEvent writes to the event stream, never failing the request.
func (s *OrderService) publishEvent(ctx context.Context, topic string, key uint, event map[string]interface{}) {
	if s.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(ctx, topic, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", topic, "error", err)
	}
}
