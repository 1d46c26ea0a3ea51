package model

import (
	"encoding/json"
	"time"
)

// WebhookEventType Webhook 事件类型
type WebhookEventType string

const (
	WebhookEventRouteDispatched WebhookEventType = "route.dispatched"
	WebhookEventOrderApproved   WebhookEventType = "order.approved"
	WebhookEventOrderDelayed    WebhookEventType = "order.delayed"
	WebhookEventAll             WebhookEventType = "all"
)

// WebhookStatus Webhook 状态
type WebhookStatus string

const (
	WebhookStatusActive   WebhookStatus = "active"
	WebhookStatusInactive WebhookStatus = "inactive"
	WebhookStatusFailed   WebhookStatus = "failed"
)

// Webhook 外部系统事件订阅配置
type Webhook struct {
	ID              int           `json:"id" gorm:"primaryKey"`
	Name            string        `json:"name" gorm:"type:varchar(100);not null"`
	Description     string        `json:"description,omitempty" gorm:"type:text"`
	URL             string        `json:"url" gorm:"column:url;type:varchar(500);not null"`
	Secret          string        `json:"-" gorm:"type:varchar(255)"` // 不在 JSON 中暴露
	Events          StringList    `json:"events" gorm:"type:jsonb;not null"`
	Status          WebhookStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	RetryCount      int           `json:"retry_count" gorm:"column:retry_count;not null;default:3"`
	RetryInterval   int           `json:"retry_interval" gorm:"column:retry_interval;not null;default:5"`
	Timeout         int           `json:"timeout" gorm:"not null;default:30"`
	SuccessCount    int           `json:"success_count" gorm:"column:success_count;not null;default:0"`
	FailCount       int           `json:"fail_count" gorm:"column:fail_count;not null;default:0"`
	LastTriggeredAt *time.Time    `json:"last_triggered_at,omitempty" gorm:"column:last_triggered_at"`
	LastError       string        `json:"last_error,omitempty" gorm:"column:last_error;type:text"`
	CreatedBy       *int          `json:"created_by,omitempty" gorm:"column:created_by"`
	CreatedAt       time.Time     `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"not null;default:now()"`
	DeletedAt       *time.Time    `json:"-" gorm:"column:deleted_at"`
}

func (Webhook) TableName() string {
	return "webhooks"
}

// Subscribed 是否订阅了该事件
func (w *Webhook) Subscribed(eventType string) bool {
	for _, e := range w.Events {
		if e == eventType || e == string(WebhookEventAll) {
			return true
		}
	}
	return false
}

// WebhookDelivery Webhook 投递日志
type WebhookDelivery struct {
	ID             int             `json:"id" gorm:"primaryKey"`
	WebhookID      int             `json:"webhook_id" gorm:"column:webhook_id;not null;index"`
	EventType      string          `json:"event_type" gorm:"column:event_type;type:varchar(50);not null"`
	Payload        json.RawMessage `json:"payload" gorm:"type:jsonb;not null"`
	ResponseStatus *int            `json:"response_status,omitempty" gorm:"column:response_status"`
	ResponseBody   string          `json:"response_body,omitempty" gorm:"column:response_body;type:text"`
	AttemptCount   int             `json:"attempt_count" gorm:"column:attempt_count;not null;default:1"`
	DurationMs     *int            `json:"duration_ms,omitempty" gorm:"column:duration_ms"`
	ErrorMessage   string          `json:"error_message,omitempty" gorm:"column:error_message;type:text"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null;default:now()"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}

// WebhookPayload Webhook 请求体
type WebhookPayload struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// CreateWebhookRequest 创建 Webhook 请求
type CreateWebhookRequest struct {
	Name          string   `json:"name" binding:"required,max=100"`
	Description   string   `json:"description"`
	URL           string   `json:"url" binding:"required,url,max=500"`
	Secret        string   `json:"secret" binding:"max=255"`
	Events        []string `json:"events" binding:"required"`
	RetryCount    int      `json:"retry_count" binding:"min=0,max=10"`
	RetryInterval int      `json:"retry_interval" binding:"min=0,max=300"`
	Timeout       int      `json:"timeout" binding:"min=0,max=300"`
}

// UpdateWebhookRequest 更新 Webhook 请求
type UpdateWebhookRequest struct {
	Name          string   `json:"name" binding:"omitempty,max=100"`
	Description   string   `json:"description"`
	URL           string   `json:"url" binding:"omitempty,url,max=500"`
	Secret        string   `json:"secret" binding:"max=255"`
	Events        []string `json:"events"`
	RetryCount    int      `json:"retry_count" binding:"min=0,max=10"`
	RetryInterval int      `json:"retry_interval" binding:"min=0,max=300"`
	Timeout       int      `json:"timeout" binding:"min=0,max=300"`
}

// WebhookListQuery Webhook 列表查询参数
type WebhookListQuery struct {
	Status   WebhookStatus `form:"status"`
	Event    string        `form:"event"`
	Page     int           `form:"page,default=1"`
	PageSize int           `form:"page_size,default=20"`
}

// WebhookDeliveryQuery 投递日志查询参数
type WebhookDeliveryQuery struct {
	WebhookID int    `form:"webhook_id"`
	EventType string `form:"event_type"`
	Status    string `form:"status"` // success, failed
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
}

// TestWebhookRequest 测试 Webhook 请求
type TestWebhookRequest struct {
	EventType string          `json:"event_type" binding:"required"`
	Payload   json.RawMessage `json:"payload" binding:"required"`
}

// TestWebhookResponse 测试 Webhook 响应
type TestWebhookResponse struct {
	Success      bool   `json:"success"`
	StatusCode   int    `json:"status_code,omitempty"`
	ResponseBody string `json:"response_body,omitempty"`
	DurationMs   int    `json:"duration_ms"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// WebhookStats Webhook 统计
type WebhookStats struct {
	TotalWebhooks     int64 `json:"total_webhooks"`
	ActiveWebhooks    int64 `json:"active_webhooks"`
	InactiveWebhooks  int64 `json:"inactive_webhooks"`
	FailedWebhooks    int64 `json:"failed_webhooks"`
	TotalDeliveries   int64 `json:"total_deliveries"`
	SuccessDeliveries int64 `json:"success_deliveries"`
	FailedDeliveries  int64 `json:"failed_deliveries"`
	TodayDeliveries   int64 `json:"today_deliveries"`
}
