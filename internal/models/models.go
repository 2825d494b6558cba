package models

import "time"

// User roles accepted by the auth layer.
const (
	RoleWaiter  = "waiter"
	RoleChef    = "chef"
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

// Order lifecycle states. Pending orders move to ready when the kitchen
// finishes them and to delivered when the cashier collects payment. A
// pending order may be paid without ever being marked ready.
const (
	OrderStatusPending   = "pending"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Table states.
const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusOffline   = "offline"
)

// Categories is the fixed menu taxonomy.
var Categories = []string{
	"Entradas",
	"Hamburguesas",
	"HotDogs",
	"Bebidas",
	"Licores",
	"Especiales",
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func ValidRole(r string) bool {
	switch r {
	case RoleWaiter, RoleChef, RoleCashier, RoleAdmin:
		return true
	}
	return false
}

func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusOffline:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:waiter"  json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Price       float64   `gorm:"not null;check:price >= 0" json:"price"`
	Calories    int       `gorm:"not null;default:0;check:calories >= 0" json:"calories"`
	Description string    `json:"description"`
	Category    string    `gorm:"not null"                 json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Table struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Number    int       `gorm:"uniqueIndex;not null;check:number >= 1" json:"number"`
	Status    string    `gorm:"not null;default:available" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order holds the items a table has running. Total and TotalCalories
// are derived from current product prices/calories every time the item
// list changes; client-submitted prices are never trusted.
type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	TableID       uint        `gorm:"index;not null"           json:"table_id"`
	Table         *Table      `gorm:"foreignKey:TableID"       json:"table,omitempty"`
	Items         []OrderItem `gorm:"foreignKey:OrderID"       json:"items"`
	Total         float64     `gorm:"not null;check:total >= 0" json:"total"`
	TotalCalories int         `gorm:"not null;default:0"       json:"total_calories"`
	Status        string      `gorm:"index;not null;default:pending" json:"status"`
	DeliveredAt   *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        uint     `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint     `gorm:"index;not null"              json:"order_id"`
	ProductID uint     `gorm:"not null"                    json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID"        json:"product,omitempty"`
	Quantity  int      `gorm:"not null;check:quantity >= 1" json:"quantity"`
}

// Active reports whether the order still occupies its table.
func (o *Order) Active() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusReady
}
