package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"freshops/api/internal/model"
)

func TestClassifyPicking(t *testing.T) {
	assert.Equal(t, model.PickingReady, ClassifyPicking(&model.Order{ItemsTotal: 3, ItemsPicked: 3}))
	assert.Equal(t, model.PickingInProgress, ClassifyPicking(&model.Order{ItemsTotal: 3, ItemsPicked: 1}))
	assert.Equal(t, model.PickingPending, ClassifyPicking(&model.Order{ItemsTotal: 3, ItemsPicked: 0}))
	// 无明细的订单视为未开始
	assert.Equal(t, model.PickingPending, ClassifyPicking(&model.Order{ItemsTotal: 0, ItemsPicked: 0}))
}

func TestIsDelayed(t *testing.T) {
	now := time.Now()
	old := now.Add(-2 * time.Hour)
	recent := now.Add(-10 * time.Minute)

	// 拣货中且两小时无进度
	assert.True(t, IsDelayed(&model.Order{ItemsTotal: 3, ItemsPicked: 1, PickedAt: &old}, now))
	// 拣货中但进度较新
	assert.False(t, IsDelayed(&model.Order{ItemsTotal: 3, ItemsPicked: 1, PickedAt: &recent}, now))
	// 已完成不算延迟
	assert.False(t, IsDelayed(&model.Order{ItemsTotal: 3, ItemsPicked: 3, PickedAt: &old}, now))
	// 未开始无进度时间
	assert.False(t, IsDelayed(&model.Order{ItemsTotal: 3, ItemsPicked: 0}, now))
}

func TestSortBoardRows(t *testing.T) {
	rows := []model.BoardRow{
		{Order: model.Order{ID: 1, DeliverySlot: "am"}, PickingStatus: model.PickingPending},
		{Order: model.Order{ID: 2, DeliverySlot: "pm"}, PickingStatus: model.PickingReady},
		{Order: model.Order{ID: 3, DeliverySlot: "am"}, PickingStatus: model.PickingInProgress},
		{Order: model.Order{ID: 4, DeliverySlot: "am"}, PickingStatus: model.PickingReady},
	}

	sortBoardRows(rows)

	ids := []int{rows[0].Order.ID, rows[1].Order.ID, rows[2].Order.ID, rows[3].Order.ID}
	// 完成(按时段 am 先于 pm)、拣货中、未开始
	assert.Equal(t, []int{4, 2, 3, 1}, ids)
}
