package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound 订单不存在
var ErrNotFound = errors.New("order not found")

// Status 订单状态，闭合枚举
type Status string

const (
	StatusPending   Status = "pending"   // 待处理
	StatusDelivered Status = "delivered" // 已交付
	StatusCancelled Status = "cancelled" // 已取消
)

// ParseStatus 解析状态字符串，不认识的值一律拒绝
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusDelivered:
		return StatusDelivered, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// Order 订单模型，对应 orders 集合。
// PackName 和 Amount 在下单时从礼包快照而来，礼包后续改价不影响已有订单。
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PackID        primitive.ObjectID `bson:"pack_id" json:"pack_id"`
	PackName      string             `bson:"pack_name" json:"pack_name"`
	CustomerEmail string             `bson:"customer_email" json:"customer_email"`
	Amount        float64            `bson:"amount" json:"amount"`
	Status        Status             `bson:"status" json:"status"`
	DeliveryInfo  string             `bson:"delivery_info,omitempty" json:"delivery_info,omitempty"`
	DeliveredAt   *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// Number 用户可读的订单号：ID 十六进制的后 8 位大写
func (o *Order) Number() string {
	return NumberFromID(o.ID)
}

// NumberFromID 由订单 ID 生成订单号
func NumberFromID(id primitive.ObjectID) string {
	hex := id.Hex()
	if len(hex) > 8 {
		hex = hex[len(hex)-8:]
	}
	return strings.ToUpper(hex)
}

// Repository 订单仓储接口
type Repository interface {
	Insert(ctx context.Context, o *Order) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Order, error)
	// List 按创建时间倒序分页
	List(ctx context.Context, skip, limit int64) ([]*Order, error)
	// ListByEmail 按邮箱精确过滤，创建时间倒序
	ListByEmail(ctx context.Context, email string, limit int64) ([]*Order, error)
	// FindPendingSince 查找某邮箱对某礼包在 since 之后创建的 pending 订单，没有则返回 nil
	FindPendingSince(ctx context.Context, email string, packID primitive.ObjectID, since time.Time) (*Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status Status) error
	// MarkDelivered 置为已交付并写入交付信息和交付时间
	MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveryInfo string, deliveredAt time.Time) error
	CountByStatus(ctx context.Context, status Status) (int64, error)
}
