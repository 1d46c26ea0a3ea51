package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"freshops/api/internal/model"
)

// webhookMaxFailCount 连续失败达到该次数后自动禁用
const webhookMaxFailCount = 10

var ErrWebhookNotFound = errors.New("webhook not found")

// WebhookService Webhook 管理与事件推送服务
type WebhookService struct {
	db         *gorm.DB
	httpClient *http.Client
}

func NewWebhookService(db *gorm.DB) *WebhookService {
	return &WebhookService{
		db: db,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateWebhook 创建 Webhook
func (s *WebhookService) CreateWebhook(ctx context.Context, req *model.CreateWebhookRequest, createdBy *int) (*model.Webhook, error) {
	for _, e := range req.Events {
		if !isKnownEventType(e) {
			return nil, fmt.Errorf("unknown event type: %s", e)
		}
	}

	webhook := &model.Webhook{
		Name:          req.Name,
		Description:   req.Description,
		URL:           req.URL,
		Secret:        req.Secret,
		Events:        model.StringList(req.Events),
		Status:        model.WebhookStatusActive,
		RetryCount:    req.RetryCount,
		RetryInterval: req.RetryInterval,
		Timeout:       req.Timeout,
		CreatedBy:     createdBy,
	}
	if webhook.RetryCount == 0 {
		webhook.RetryCount = 3
	}
	if webhook.RetryInterval == 0 {
		webhook.RetryInterval = 5
	}
	if webhook.Timeout == 0 {
		webhook.Timeout = 30
	}

	if err := s.db.WithContext(ctx).Create(webhook).Error; err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return webhook, nil
}

// GetWebhook 获取 Webhook 详情
func (s *WebhookService) GetWebhook(ctx context.Context, id int) (*model.Webhook, error) {
	var webhook model.Webhook
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&webhook).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebhookNotFound
		}
		return nil, err
	}
	return &webhook, nil
}

// ListWebhooks 查询 Webhook 列表
func (s *WebhookService) ListWebhooks(ctx context.Context, query *model.WebhookListQuery) ([]model.Webhook, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Webhook{}).Where("deleted_at IS NULL")

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Event != "" {
		db = db.Where("events @> ?::jsonb", fmt.Sprintf(`["%s"]`, query.Event))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var webhooks []model.Webhook
	offset := (query.Page - 1) * query.PageSize
	err := db.Order("created_at DESC").Offset(offset).Limit(query.PageSize).Find(&webhooks).Error
	if err != nil {
		return nil, 0, err
	}
	return webhooks, total, nil
}

// UpdateWebhook 更新 Webhook
func (s *WebhookService) UpdateWebhook(ctx context.Context, id int, req *model.UpdateWebhookRequest) (*model.Webhook, error) {
	webhook, err := s.GetWebhook(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.URL != "" {
		updates["url"] = req.URL
	}
	if req.Secret != "" {
		updates["secret"] = req.Secret
	}
	if len(req.Events) > 0 {
		for _, e := range req.Events {
			if !isKnownEventType(e) {
				return nil, fmt.Errorf("unknown event type: %s", e)
			}
		}
		updates["events"] = model.StringList(req.Events)
	}
	if req.RetryCount > 0 {
		updates["retry_count"] = req.RetryCount
	}
	if req.RetryInterval > 0 {
		updates["retry_interval"] = req.RetryInterval
	}
	if req.Timeout > 0 {
		updates["timeout"] = req.Timeout
	}

	if err := s.db.WithContext(ctx).Model(webhook).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}
	return s.GetWebhook(ctx, id)
}

// DeleteWebhook 删除 Webhook（软删除）
func (s *WebhookService) DeleteWebhook(ctx context.Context, id int) error {
	webhook, err := s.GetWebhook(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	return s.db.WithContext(ctx).Model(webhook).Update("deleted_at", now).Error
}

// ToggleWebhookStatus 启用/禁用 Webhook
func (s *WebhookService) ToggleWebhookStatus(ctx context.Context, id int) (*model.Webhook, error) {
	webhook, err := s.GetWebhook(ctx, id)
	if err != nil {
		return nil, err
	}

	newStatus := model.WebhookStatusInactive
	if webhook.Status != model.WebhookStatusActive {
		newStatus = model.WebhookStatusActive
	}

	updates := map[string]interface{}{
		"status":     newStatus,
		"updated_at": time.Now(),
	}
	// 重新启用时清零失败计数
	if newStatus == model.WebhookStatusActive {
		updates["fail_count"] = 0
		updates["last_error"] = ""
	}

	if err := s.db.WithContext(ctx).Model(webhook).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetWebhook(ctx, id)
}

// TriggerEvent 触发事件，异步推送给所有订阅该事件的 Webhook
func (s *WebhookService) TriggerEvent(ctx context.Context, eventType string, data interface{}) {
	var webhooks []model.Webhook
	err := s.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL", model.WebhookStatusActive).
		Find(&webhooks).Error
	if err != nil {
		log.Printf("[Webhook] failed to load webhooks for event %s: %v", eventType, err)
		return
	}

	payload := &model.WebhookPayload{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	for i := range webhooks {
		webhook := webhooks[i]
		if !webhook.Subscribed(eventType) {
			continue
		}
		go s.sendWebhookWithRetry(&webhook, payload)
	}
}

// sendWebhookWithRetry 投递 Webhook，带重试
func (s *WebhookService) sendWebhookWithRetry(webhook *model.Webhook, payload *model.WebhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Webhook] failed to marshal payload for webhook %d: %v", webhook.ID, err)
		return
	}

	delivery := &model.WebhookDelivery{
		WebhookID: webhook.ID,
		EventType: payload.EventType,
		Payload:   body,
	}

	var lastErr error
	var lastStatus int
	var lastBody string
	var lastDuration int

	maxAttempts := webhook.RetryCount + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		delivery.AttemptCount = attempt
		status, respBody, duration, err := s.sendWebhook(webhook, body)
		lastStatus, lastBody, lastDuration, lastErr = status, respBody, duration, err

		if err == nil && status >= 200 && status < 300 {
			now := time.Now()
			delivery.ResponseStatus = &status
			delivery.ResponseBody = respBody
			delivery.DurationMs = &duration
			delivery.CompletedAt = &now
			s.db.Create(delivery)
			s.recordSuccess(webhook)
			return
		}

		if attempt < maxAttempts {
			time.Sleep(time.Duration(webhook.RetryInterval) * time.Second)
		}
	}

	now := time.Now()
	if lastStatus > 0 {
		delivery.ResponseStatus = &lastStatus
	}
	delivery.ResponseBody = lastBody
	delivery.DurationMs = &lastDuration
	delivery.CompletedAt = &now
	if lastErr != nil {
		delivery.ErrorMessage = lastErr.Error()
	} else {
		delivery.ErrorMessage = fmt.Sprintf("unexpected status code: %d", lastStatus)
	}
	s.db.Create(delivery)
	s.recordFailure(webhook, delivery.ErrorMessage)
}

// sendWebhook 单次投递
func (s *WebhookService) sendWebhook(webhook *model.Webhook, body []byte) (int, string, int, error) {
	timeout := time.Duration(webhook.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", 0, err
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FreshOps-Webhook/1.0")
	req.Header.Set("X-Webhook-Timestamp", timestamp)
	if webhook.Secret != "" {
		req.Header.Set("X-Webhook-Signature", computeSignature(webhook.Secret, timestamp, body))
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	duration := int(time.Since(start).Milliseconds())
	if err != nil {
		return 0, "", duration, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(respBody), duration, nil
}

// computeSignature 计算 HMAC-SHA256 签名：timestamp + "." + payload
func computeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 校验 Webhook 签名（供接收方参考实现）
func VerifySignature(secret, timestamp string, body []byte, signature string) bool {
	expected := computeSignature(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *WebhookService) recordSuccess(webhook *model.Webhook) {
	now := time.Now()
	s.db.Model(&model.Webhook{}).Where("id = ?", webhook.ID).Updates(map[string]interface{}{
		"success_count":     gorm.Expr("success_count + 1"),
		"fail_count":        0,
		"last_triggered_at": now,
		"last_error":        "",
		"updated_at":        now,
	})
}

func (s *WebhookService) recordFailure(webhook *model.Webhook, errMsg string) {
	now := time.Now()
	s.db.Model(&model.Webhook{}).Where("id = ?", webhook.ID).Updates(map[string]interface{}{
		"fail_count":        gorm.Expr("fail_count + 1"),
		"last_triggered_at": now,
		"last_error":        errMsg,
		"updated_at":        now,
	})

	// 连续失败过多时自动禁用
	var current model.Webhook
	if err := s.db.Where("id = ?", webhook.ID).First(&current).Error; err != nil {
		return
	}
	if current.FailCount >= webhookMaxFailCount && current.Status == model.WebhookStatusActive {
		s.db.Model(&model.Webhook{}).Where("id = ?", webhook.ID).
			Update("status", model.WebhookStatusFailed)
		log.Printf("[Webhook] webhook %d (%s) disabled after %d consecutive failures",
			current.ID, current.Name, current.FailCount)
	}
}

// TestWebhook 同步测试投递，不记录投递日志
func (s *WebhookService) TestWebhook(ctx context.Context, id int, req *model.TestWebhookRequest) (*model.TestWebhookResponse, error) {
	webhook, err := s.GetWebhook(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := &model.WebhookPayload{
		EventID:   uuid.NewString(),
		EventType: req.EventType,
		Timestamp: time.Now().Unix(),
		Data:      req.Payload,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	status, respBody, duration, err := s.sendWebhook(webhook, body)
	result := &model.TestWebhookResponse{
		StatusCode:   status,
		ResponseBody: respBody,
		DurationMs:   duration,
	}
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, nil
	}
	result.Success = status >= 200 && status < 300
	if !result.Success {
		result.ErrorMessage = fmt.Sprintf("unexpected status code: %d", status)
	}
	return result, nil
}

// GetDeliveries 查询投递日志
func (s *WebhookService) GetDeliveries(ctx context.Context, query *model.WebhookDeliveryQuery) ([]model.WebhookDelivery, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.WebhookDelivery{})

	if query.WebhookID > 0 {
		db = db.Where("webhook_id = ?", query.WebhookID)
	}
	if query.EventType != "" {
		db = db.Where("event_type = ?", query.EventType)
	}
	switch query.Status {
	case "success":
		db = db.Where("response_status >= 200 AND response_status < 300")
	case "failed":
		db = db.Where("response_status IS NULL OR response_status < 200 OR response_status >= 300")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deliveries []model.WebhookDelivery
	offset := (query.Page - 1) * query.PageSize
	err := db.Order("created_at DESC").Offset(offset).Limit(query.PageSize).Find(&deliveries).Error
	if err != nil {
		return nil, 0, err
	}
	return deliveries, total, nil
}

// GetStats Webhook 统计
func (s *WebhookService) GetStats(ctx context.Context) (*model.WebhookStats, error) {
	stats := &model.WebhookStats{}
	db := s.db.WithContext(ctx)

	db.Model(&model.Webhook{}).Where("deleted_at IS NULL").Count(&stats.TotalWebhooks)
	db.Model(&model.Webhook{}).Where("deleted_at IS NULL AND status = ?", model.WebhookStatusActive).Count(&stats.ActiveWebhooks)
	db.Model(&model.Webhook{}).Where("deleted_at IS NULL AND status = ?", model.WebhookStatusInactive).Count(&stats.InactiveWebhooks)
	db.Model(&model.Webhook{}).Where("deleted_at IS NULL AND status = ?", model.WebhookStatusFailed).Count(&stats.FailedWebhooks)

	db.Model(&model.WebhookDelivery{}).Count(&stats.TotalDeliveries)
	db.Model(&model.WebhookDelivery{}).Where("response_status >= 200 AND response_status < 300").Count(&stats.SuccessDeliveries)
	stats.FailedDeliveries = stats.TotalDeliveries - stats.SuccessDeliveries
	db.Model(&model.WebhookDelivery{}).Where("DATE(created_at) = CURRENT_DATE").Count(&stats.TodayDeliveries)

	return stats, nil
}

func isKnownEventType(e string) bool {
	switch model.WebhookEventType(e) {
	case model.WebhookEventRouteDispatched, model.WebhookEventOrderApproved,
		model.WebhookEventOrderDelayed, model.WebhookEventAll:
		return true
	}
	return false
}

// WebhookDispatcher subscribes to internal NATS events and fans them out
// to registered webhooks.
type WebhookDispatcher struct {
	service *WebhookService
	nats    *nats.Conn
	subs    []*nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWebhookDispatcher(service *WebhookService, natsConn *nats.Conn) *WebhookDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebhookDispatcher{
		service: service,
		nats:    natsConn,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the internal event subjects. Safe to call once.
func (d *WebhookDispatcher) Start() error {
	if d.nats == nil {
		return nil
	}

	routeSub, err := d.nats.Subscribe(SubjectRouteDispatched, func(msg *nats.Msg) {
		d.relay(string(model.WebhookEventRouteDispatched), msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", SubjectRouteDispatched, err)
	}
	d.subs = append(d.subs, routeSub)

	delayedSub, err := d.nats.Subscribe(SubjectOrdersDelayed, func(msg *nats.Msg) {
		d.relay(string(model.WebhookEventOrderDelayed), msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", SubjectOrdersDelayed, err)
	}
	d.subs = append(d.subs, delayedSub)

	// orders.changed carries several reasons; only approvals become webhook events
	changedSub, err := d.nats.Subscribe(SubjectOrdersChanged, func(msg *nats.Msg) {
		var event map[string]interface{}
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		if reason, _ := event["reason"].(string); reason == "approve" {
			d.relay(string(model.WebhookEventOrderApproved), msg.Data)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", SubjectOrdersChanged, err)
	}
	d.subs = append(d.subs, changedSub)

	log.Printf("[Webhook] dispatcher started, %d subscriptions", len(d.subs))
	return nil
}

// Stop unsubscribes and cancels in-flight trigger loads.
func (d *WebhookDispatcher) Stop() {
	for _, sub := range d.subs {
		sub.Unsubscribe()
	}
	d.subs = nil
	d.cancel()
	log.Println("[Webhook] dispatcher stopped")
}

func (d *WebhookDispatcher) relay(eventType string, data []byte) {
	var payload json.RawMessage = data
	d.service.TriggerEvent(d.ctx, eventType, payload)
}
