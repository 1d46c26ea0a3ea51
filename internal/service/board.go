// BoardService 拣货看板服务

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"freshops/api/internal/model"
)

// 拣货进度超过该时长无变化视为延迟
const delayedThreshold = time.Hour

// SubjectOrdersDelayed 延迟订单告警主题
const SubjectOrdersDelayed = "freshops.orders.delayed"

// BoardService 拣货看板服务
type BoardService struct {
	db   *gorm.DB
	nats *nats.Conn
}

// NewBoardService 创建看板服务
func NewBoardService(db *gorm.DB, natsConn *nats.Conn) *BoardService {
	return &BoardService{db: db, nats: natsConn}
}

// CreateOrder 创建订单及明细
func (s *BoardService) CreateOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.Status = model.OrderPending
		order.ItemsTotal = len(items)
		order.ItemsPicked = 0
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			items[i].Picked = false
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ApproveOrder 审批订单，仅 pending 可审批
func (s *BoardService) ApproveOrder(ctx context.Context, orderID int) error {
	result := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderPending).
		Update("status", model.OrderApproved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order %d is not pending", orderID)
	}
	s.publishChanged("approve", orderID)
	return nil
}

// ListOrders 订单列表
func (s *BoardService) ListOrders(ctx context.Context, query *model.OrderListQuery) ([]model.Order, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Order{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.DeliveryDate != "" {
		db = db.Where("delivery_date = ?", query.DeliveryDate)
	}
	if query.CustomerType != "" {
		db = db.Where("customer_type = ?", query.CustomerType)
	}

	var total int64
	db.Count(&total)

	var orders []model.Order
	offset := (query.Page - 1) * query.PageSize
	err := db.Order("delivery_date, id").Offset(offset).Limit(query.PageSize).Find(&orders).Error
	return orders, total, err
}

// SetItemPicked 更新单个明细的拣货状态并刷新订单进度
func (s *BoardService) SetItemPicked(ctx context.Context, orderID, itemID int, picked bool) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.OrderItem{}).
			Where("id = ? AND order_id = ?", itemID, orderID).
			Update("picked", picked)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("item %d not found on order %d", itemID, orderID)
		}

		var pickedCount int64
		tx.Model(&model.OrderItem{}).
			Where("order_id = ? AND picked = true", orderID).Count(&pickedCount)

		now := time.Now()
		if err := tx.Model(&model.Order{}).Where("id = ?", orderID).
			Updates(map[string]interface{}{
				"items_picked": pickedCount,
				"picked_at":    now,
			}).Error; err != nil {
			return err
		}

		return tx.First(&order, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	s.publishChanged("picking", orderID)
	return &order, nil
}

// Board 拣货看板
// 排序：拣货完成在前，拣货中次之，未开始最后；组内按配送时段与 ID
func (s *BoardService) Board(ctx context.Context, deliveryDate string) ([]model.BoardRow, error) {
	db := s.db.WithContext(ctx).
		Where("status IN ?", []string{model.OrderApproved, model.OrderShipped})
	if deliveryDate != "" {
		db = db.Where("delivery_date = ?", deliveryDate)
	}

	var orders []model.Order
	if err := db.Find(&orders).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	rows := make([]model.BoardRow, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, model.BoardRow{
			Order:         order,
			PickingStatus: ClassifyPicking(&order),
			Delayed:       IsDelayed(&order, now),
		})
	}

	sortBoardRows(rows)
	return rows, nil
}

// sortBoardRows 拣货完成在前，拣货中次之，未开始最后；组内按配送时段与 ID
func sortBoardRows(rows []model.BoardRow) {
	rank := map[string]int{
		model.PickingReady:      0,
		model.PickingInProgress: 1,
		model.PickingPending:    2,
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rank[rows[i].PickingStatus] != rank[rows[j].PickingStatus] {
			return rank[rows[i].PickingStatus] < rank[rows[j].PickingStatus]
		}
		if rows[i].Order.DeliverySlot != rows[j].Order.DeliverySlot {
			return rows[i].Order.DeliverySlot < rows[j].Order.DeliverySlot
		}
		return rows[i].Order.ID < rows[j].Order.ID
	})
}

func (s *BoardService) publishChanged(reason string, orderID int) {
	if s.nats == nil {
		return
	}
	data, _ := json.Marshal(map[string]interface{}{
		"reason":   reason,
		"order_id": orderID,
	})
	if err := s.nats.Publish(SubjectOrdersChanged, data); err != nil {
		log.Printf("[Board] publish %s: %v", SubjectOrdersChanged, err)
	}
}

// ClassifyPicking 按明细进度归类订单
func ClassifyPicking(order *model.Order) string {
	switch {
	case order.ItemsTotal > 0 && order.ItemsPicked >= order.ItemsTotal:
		return model.PickingReady
	case order.ItemsPicked > 0:
		return model.PickingInProgress
	default:
		return model.PickingPending
	}
}

// IsDelayed 拣货中且超过一小时无进度视为延迟
func IsDelayed(order *model.Order, now time.Time) bool {
	if ClassifyPicking(order) != model.PickingInProgress {
		return false
	}
	if order.PickedAt == nil {
		return false
	}
	return now.Sub(*order.PickedAt) > delayedThreshold
}

// DelayedChecker 周期巡检拣货延迟订单并发布告警
type DelayedChecker struct {
	board    *BoardService
	nats     *nats.Conn
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewDelayedChecker 创建延迟巡检器
func NewDelayedChecker(board *BoardService, natsConn *nats.Conn, interval time.Duration) *DelayedChecker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DelayedChecker{
		board:    board,
		nats:     natsConn,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 启动巡检循环
func (c *DelayedChecker) Start() {
	log.Println("[DelayedChecker] Starting...")
	go c.run()
}

// Stop 停止巡检
func (c *DelayedChecker) Stop() {
	c.cancel()
	log.Println("[DelayedChecker] Stopped")
}

func (c *DelayedChecker) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.checkOnce(); err != nil {
				log.Printf("[DelayedChecker] check failed: %v", err)
			}
		}
	}
}

func (c *DelayedChecker) checkOnce() error {
	rows, err := c.board.Board(c.ctx, "")
	if err != nil {
		return err
	}

	for _, row := range rows {
		if !row.Delayed {
			continue
		}
		data, _ := json.Marshal(map[string]interface{}{
			"order_id":      row.Order.ID,
			"customer_name": row.Order.CustomerName,
			"picked_at":     row.Order.PickedAt,
		})
		if err := c.nats.Publish(SubjectOrdersDelayed, data); err != nil {
			log.Printf("[DelayedChecker] publish: %v", err)
		}
	}
	return nil
}
