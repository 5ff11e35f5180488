package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ZEBDA1/McHess/internal/config"
	"github.com/ZEBDA1/McHess/internal/datamodels/order"
	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
)

// duplicateWindow 同一邮箱对同一礼包的 pending 订单限频窗口
const duplicateWindow = 30 * time.Minute

// DuplicateOrderError 窗口期内重复下单
type DuplicateOrderError struct {
	OrderNumber string
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf(
		"Une commande N°%s est déjà en attente pour ce pack. Veuillez patienter ou annuler la commande existante.",
		e.OrderNumber)
}

// CreateOrderResult 下单成功的返回
type CreateOrderResult struct {
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
	Message string  `json:"message"`
}

// OrderService 订单创建、查询与状态管理
type OrderService struct {
	orders  order.Repository
	packs   pack.Repository
	events  Emitter
	payment *config.PaymentConfig
}

// NewOrderService 创建订单服务
func NewOrderService(orders order.Repository, packs pack.Repository, events Emitter, payment *config.PaymentConfig) *OrderService {
	return &OrderService{orders: orders, packs: packs, events: events, payment: payment}
}

// CreateOrder 下单。金额和礼包名在此刻快照，礼包后续改价不影响该订单。
// 重复下单保护是先查后写，两个并发请求可能同时通过检查——这是接受的竞态，
// 不做事务保证（见 DESIGN.md）。
func (s *OrderService) CreateOrder(ctx context.Context, packID primitive.ObjectID, customerEmail string) (*CreateOrderResult, error) {
	p, err := s.packs.GetByID(ctx, packID)
	if err != nil {
		if !errors.Is(err, pack.ErrNotFound) {
			GetMonitor().RecordDBError()
		}
		return nil, err
	}

	since := time.Now().UTC().Add(-duplicateWindow)
	existing, err := s.orders.FindPendingSince(ctx, customerEmail, packID, since)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	if existing != nil {
		GetMonitor().RecordDuplicateRejected()
		return nil, &DuplicateOrderError{OrderNumber: existing.Number()}
	}

	o := &order.Order{
		PackID:        packID,
		PackName:      p.Name,
		CustomerEmail: customerEmail,
		Amount:        p.Price,
		Status:        order.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	id, err := s.orders.Insert(ctx, o)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	GetMonitor().RecordOrderCreated()

	s.events.Emit(fmt.Sprintf(
		"🛒 <b>Nouvelle Commande</b>\n"+
			"📦 Pack: %s\n"+
			"💰 Montant: %.2f€\n"+
			"📧 Client: %s\n"+
			"🆔 ID: %s\n"+
			"💳 Paiement: PayPal %s\n"+
			"⏳ Statut: En attente",
		p.Name, p.Price, customerEmail, order.NumberFromID(id), s.payment.PayPalEmail))

	return &CreateOrderResult{
		OrderID: id.Hex(),
		Amount:  p.Price,
		Message: "Commande créée avec succès",
	}, nil
}

// List 后台订单列表，创建时间倒序，skip/limit 分页
func (s *OrderService) List(ctx context.Context, skip, limit int64) ([]*order.Order, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	list, err := s.orders.List(ctx, skip, limit)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return list, nil
}

// ListByEmail 客户查询自己的订单，创建时间倒序
func (s *OrderService) ListByEmail(ctx context.Context, email string, limit int64) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	list, err := s.orders.ListByEmail(ctx, email, limit)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return list, nil
}

// UpdateStatus 无条件设置订单状态（状态值已由闭合枚举校验），成功后发通知
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status order.Status) error {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, order.ErrNotFound) {
			GetMonitor().RecordDBError()
		}
		return err
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		GetMonitor().RecordDBError()
		return err
	}

	s.events.Emit(fmt.Sprintf(
		"%s <b>Mise à jour Commande</b>\n"+
			"🆔 ID: %s\n"+
			"📧 Client: %s\n"+
			"📦 Pack: %s\n"+
			"📊 Nouveau statut: %s",
		statusEmoji(status), o.Number(), o.CustomerEmail, o.PackName, statusText(status)))
	return nil
}

// Deliver 交付订单：置为 delivered 并记录交付信息与交付时间
func (s *OrderService) Deliver(ctx context.Context, id primitive.ObjectID, deliveryInfo string) error {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, order.ErrNotFound) {
			GetMonitor().RecordDBError()
		}
		return err
	}
	if err := s.orders.MarkDelivered(ctx, id, deliveryInfo, time.Now().UTC()); err != nil {
		GetMonitor().RecordDBError()
		return err
	}

	s.events.Emit(fmt.Sprintf(
		"✅ <b>Commande Livrée</b>\n"+
			"🆔 ID: %s\n"+
			"📧 Client: %s\n"+
			"📦 Pack: %s\n"+
			"📝 Détails: %s",
		o.Number(), o.CustomerEmail, o.PackName, deliveryInfo))
	return nil
}

// Stats 各状态订单数，供后台面板使用
func (s *OrderService) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, 3)
	for _, st := range []order.Status{order.StatusPending, order.StatusDelivered, order.StatusCancelled} {
		n, err := s.orders.CountByStatus(ctx, st)
		if err != nil {
			GetMonitor().RecordDBError()
			return nil, err
		}
		stats[string(st)] = n
	}
	return stats, nil
}

func statusEmoji(st order.Status) string {
	switch st {
	case order.StatusDelivered:
		return "✅"
	case order.StatusPending:
		return "⏳"
	default:
		return "❌"
	}
}

func statusText(st order.Status) string {
	switch st {
	case order.StatusDelivered:
		return "Livrée"
	case order.StatusPending:
		return "En attente"
	default:
		return "Annulée"
	}
}
