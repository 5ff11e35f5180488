package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，统计订单流水和通知投递情况
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	DBErrors      int64
	MQErrors      int64
	NotifyDropped int64

	// 业务统计
	OrdersCreated     int64
	DuplicateRejected int64
	PacksUpdated      int64
	NotificationsSent int64

	// 时间统计
	LastDBError    time.Time
	LastMQError    time.Time
	LastOrderTime  time.Time
	LastNotifyTime time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordMQError 记录MQ错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordOrderCreated 记录下单成功
func (m *Monitor) RecordOrderCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCreated++
	m.LastOrderTime = time.Now()
}

// RecordDuplicateRejected 记录重复下单被拦截
func (m *Monitor) RecordDuplicateRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicateRejected++
}

// RecordPackUpdated 记录礼包修改
func (m *Monitor) RecordPackUpdated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PacksUpdated++
}

// RecordNotifySent 记录通知发送
func (m *Monitor) RecordNotifySent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationsSent++
	m.LastNotifyTime = time.Now()
}

// RecordNotifyDropped 记录通知被丢弃
func (m *Monitor) RecordNotifyDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyDropped++
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"db":             m.DBErrors,
			"mq":             m.MQErrors,
			"notify_dropped": m.NotifyDropped,
		},
		"business": map[string]interface{}{
			"orders_created":     m.OrdersCreated,
			"duplicate_rejected": m.DuplicateRejected,
			"packs_updated":      m.PacksUpdated,
			"notifications_sent": m.NotificationsSent,
		},
		"last_events": map[string]interface{}{
			"db_error":    m.LastDBError,
			"mq_error":    m.LastMQError,
			"last_order":  m.LastOrderTime,
			"last_notify": m.LastNotifyTime,
		},
	}
}

// Reset 重置统计（用于测试）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors = 0
	m.MQErrors = 0
	m.NotifyDropped = 0
	m.OrdersCreated = 0
	m.DuplicateRejected = 0
	m.PacksUpdated = 0
	m.NotificationsSent = 0
}
