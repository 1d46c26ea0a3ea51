package model

import (
	"time"
)

// 订单状态
const (
	OrderPending   = "pending"
	OrderApproved  = "approved"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
)

// 客户类型
const (
	CustomerB2B = "b2b" // 机构客户
	CustomerB2C = "b2c" // 零售客户
)

// Order 订单（本服务只消费，不负责商品目录）
type Order struct {
	ID           int        `json:"id" gorm:"primaryKey"`
	CustomerName string     `json:"customer_name" gorm:"column:customer_name;type:varchar(100);not null"`
	CustomerType string     `json:"customer_type" gorm:"column:customer_type;type:varchar(10);default:'b2c'"`
	WeightKg     float64    `json:"weight_kg" gorm:"column:weight_kg;not null;default:0"`
	DeliveryDate string     `json:"delivery_date" gorm:"column:delivery_date;type:date"`
	DeliverySlot string     `json:"delivery_slot,omitempty" gorm:"column:delivery_slot;type:varchar(30)"`
	Lat          float64    `json:"lat"`
	Lon          float64    `json:"lon"`
	Status       string     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ItemsTotal   int        `json:"items_total" gorm:"column:items_total;not null;default:0"`
	ItemsPicked  int        `json:"items_picked" gorm:"column:items_picked;not null;default:0"`
	PickedAt     *time.Time `json:"picked_at,omitempty" gorm:"column:picked_at"` // 最近拣货进度时间
	CreatedAt    time.Time  `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"not null;default:now()"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单明细，用于拣货进度与消费分析
type OrderItem struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	OrderID     int       `json:"order_id" gorm:"column:order_id;not null;index"`
	ProductName string    `json:"product_name" gorm:"column:product_name;type:varchar(100);not null"`
	Quantity    float64   `json:"quantity" gorm:"not null"`
	Picked      bool      `json:"picked" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// 拣货看板行状态
const (
	PickingReady      = "ready"       // 拣货完成
	PickingInProgress = "in_progress" // 拣货中
	PickingPending    = "pending"     // 未开始
)

// BoardRow 拣货看板行
// Delayed 为展示用标记：超过一小时无拣货进度
type BoardRow struct {
	Order         Order  `json:"order"`
	PickingStatus string `json:"picking_status"`
	Delayed       bool   `json:"delayed"`
}

// OrderListQuery 订单列表查询
type OrderListQuery struct {
	Status       string `form:"status"`
	DeliveryDate string `form:"delivery_date"`
	CustomerType string `form:"customer_type"`
	Page         int    `form:"page,default=1"`
	PageSize     int    `form:"page_size,default=50"`
}
