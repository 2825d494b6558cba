package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/comandaapp/comanda/internal/config"
	"github.com/comandaapp/comanda/internal/models"
	"github.com/comandaapp/comanda/internal/repo"
	"github.com/comandaapp/comanda/internal/ws"
)

type publishedEvent struct {
	Room    string
	Event   string
	Payload interface{}
}

type notifyRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *notifyRecorder) Publish(room, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{Room: room, Event: event, Payload: payload})
}

func (r *notifyRecorder) all() []publishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]publishedEvent(nil), r.events...)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

type testEnv struct {
	DB       *gorm.DB
	Svc      *OrderService
	Recorder *notifyRecorder

	Table    models.Table
	Burger   models.Product
	Soda     models.Product
	Empanada models.Product
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	env := &testEnv{
		DB:       db,
		Recorder: &notifyRecorder{},
		Table:    models.Table{Number: 5, Status: models.TableStatusAvailable},
		Burger:   models.Product{Name: "Clasica", Price: 12.5, Calories: 750, Category: "Hamburguesas"},
		Soda:     models.Product{Name: "Limonada", Price: 3, Calories: 120, Category: "Bebidas"},
		Empanada: models.Product{Name: "Empanada", Price: 4.25, Calories: 300, Category: "Entradas"},
	}
	require.NoError(t, db.Create(&env.Table).Error)
	require.NoError(t, db.Create(&env.Burger).Error)
	require.NoError(t, db.Create(&env.Soda).Error)
	require.NoError(t, db.Create(&env.Empanada).Error)

	env.Svc = &OrderService{
		Repo:     &repo.OrderRepo{DB: db},
		Notifier: env.Recorder,
	}
	return env
}

func TestPlaceOrderCreatesPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Burger.ID, Quantity: 2},
		{ProductID: env.Soda.ID, Quantity: 1},
	})
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, env.Table.ID, order.TableID)
	require.Len(t, order.Items, 2)
	require.Equal(t, 2*env.Burger.Price+env.Soda.Price, order.Total)
	require.Equal(t, 2*env.Burger.Calories+env.Soda.Calories, order.TotalCalories)
	require.NotNil(t, order.Table)
	require.Equal(t, 5, order.Table.Number)

	events := env.Recorder.all()
	require.Len(t, events, 1)
	require.Equal(t, ws.RoomKitchen, events[0].Room)
	require.Equal(t, ws.EventNewOrder, events[0].Event)
}

func TestPlaceOrderMergesIntoActiveOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Burger.ID, Quantity: 2},
		{ProductID: env.Soda.ID, Quantity: 1},
	})
	require.NoError(t, err)

	second, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Burger.ID, Quantity: 1},
		{ProductID: env.Empanada.ID, Quantity: 3},
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID, "merging must not create a second order")

	var count int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	quantities := map[uint]int{}
	for _, it := range second.Items {
		quantities[it.ProductID] = it.Quantity
	}
	require.Equal(t, 3, quantities[env.Burger.ID])
	require.Equal(t, 1, quantities[env.Soda.ID])
	require.Equal(t, 3, quantities[env.Empanada.ID])

	wantTotal := 3*env.Burger.Price + env.Soda.Price + 3*env.Empanada.Price
	require.InDelta(t, wantTotal, second.Total, 1e-9)
}

func TestPlaceOrderMergesAfterReady(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Burger.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = env.Svc.MarkReady(ctx, first.ID)
	require.NoError(t, err)

	second, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Soda.ID, Quantity: 2},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "a ready order still counts as active")
}

func TestPlaceOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Svc.PlaceOrder(ctx, env.Table.ID, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{{ProductID: env.Burger.ID, Quantity: 0}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{{ProductID: 9999, Quantity: 1}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.PlaceOrder(ctx, 9999, []PlacedItem{{ProductID: env.Burger.ID, Quantity: 1}})
	require.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 0, count, "failed placements must not persist orders")
}

func TestPlaceOrderIgnoresClientPrices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Soda.ID, Quantity: 4},
	})
	require.NoError(t, err)
	require.Equal(t, 4*env.Soda.Price, order.Total)

	// Price change between placements is picked up on the next merge.
	require.NoError(t, env.DB.Model(&models.Product{}).Where("id = ?", env.Soda.ID).Update("price", 5.0).Error)

	merged, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Soda.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 5.0*5, merged.Total)
}

func TestMarkReadyChangesOnlyStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placed, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Burger.ID, Quantity: 2},
	})
	require.NoError(t, err)

	ready, err := env.Svc.MarkReady(ctx, placed.ID)
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusReady, ready.Status)
	require.Equal(t, placed.Total, ready.Total)
	require.Equal(t, placed.TotalCalories, ready.TotalCalories)
	require.Len(t, ready.Items, len(placed.Items))
	require.Nil(t, ready.DeliveredAt)

	events := env.Recorder.all()
	last := events[len(events)-1]
	require.Equal(t, ws.RoomWaiters, last.Room)
	require.Equal(t, ws.EventOrderReady, last.Event)
}

func TestMarkReadyNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Svc.MarkReady(context.Background(), 424242)
	require.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestKitchenQueueFIFO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	secondTable := models.Table{Number: 6}
	require.NoError(t, env.DB.Create(&secondTable).Error)
	thirdTable := models.Table{Number: 7}
	require.NoError(t, env.DB.Create(&thirdTable).Error)

	first, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{{ProductID: env.Burger.ID, Quantity: 1}})
	require.NoError(t, err)
	second, err := env.Svc.PlaceOrder(ctx, secondTable.ID, []PlacedItem{{ProductID: env.Soda.ID, Quantity: 1}})
	require.NoError(t, err)
	third, err := env.Svc.PlaceOrder(ctx, thirdTable.ID, []PlacedItem{{ProductID: env.Empanada.ID, Quantity: 1}})
	require.NoError(t, err)

	// The ready order leaves the kitchen queue.
	_, err = env.Svc.MarkReady(ctx, second.ID)
	require.NoError(t, err)

	queue, err := env.Svc.KitchenQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	require.Equal(t, first.ID, queue[0].ID)
	require.Equal(t, third.ID, queue[1].ID)
	require.NotNil(t, queue[0].Table)
	require.NotNil(t, queue[0].Items[0].Product)
}

func TestCheckoutOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Burger.ID, Quantity: 2},
		{ProductID: env.Soda.ID, Quantity: 3},
	})
	require.NoError(t, err)

	summary, err := env.Svc.CheckoutOrder(ctx, env.Table.Number)
	require.NoError(t, err)

	require.Equal(t, env.Table.Number, summary.TableNumber)
	require.Len(t, summary.Items, 2)
	lines := map[string]CheckoutLine{}
	for _, line := range summary.Items {
		lines[line.Name] = line
	}
	require.Equal(t, 2*env.Burger.Price, lines["Clasica"].LineTotal)
	require.Equal(t, 3*env.Soda.Price, lines["Limonada"].LineTotal)
	require.Equal(t, 2*env.Burger.Price+3*env.Soda.Price, summary.Total)
}

func TestCheckoutNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Svc.CheckoutOrder(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.Svc.CheckoutOrder(ctx, env.Table.Number)
	require.ErrorIs(t, err, ErrNotFound, "table without active order")
}

func TestPayOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placed, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Burger.ID, Quantity: 1},
	})
	require.NoError(t, err)

	// An order can be paid while still pending.
	paid, err := env.Svc.PayOrder(ctx, env.Table.Number)
	require.NoError(t, err)
	require.Equal(t, placed.ID, paid.ID)
	require.Equal(t, models.OrderStatusDelivered, paid.Status)
	require.NotNil(t, paid.DeliveredAt)

	// With no active order left, a second payment fails.
	_, err = env.Svc.PayOrder(ctx, env.Table.Number)
	require.ErrorIs(t, err, ErrNotFound)

	// And a new placement opens a fresh order.
	fresh, err := env.Svc.PlaceOrder(ctx, env.Table.ID, []PlacedItem{
		{ProductID: env.Soda.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.NotEqual(t, placed.ID, fresh.ID)
}

func TestComputeTotals(t *testing.T) {
	products := map[uint]models.Product{
		1: {ID: 1, Price: 10, Calories: 500},
		2: {ID: 2, Price: 2.5, Calories: 120},
	}
	items := []models.OrderItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 4},
		{ProductID: 3, Quantity: 1}, // unknown product contributes nothing
	}

	total, calories := computeTotals(items, products)
	require.Equal(t, 30.0, total)
	require.Equal(t, 2*500+4*120, calories)
}

func TestGetOrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Svc.GetOrder(context.Background(), 31337)
	require.ErrorIs(t, err, ErrNotFound)
}
