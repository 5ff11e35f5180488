package pack

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound 礼包不存在
var ErrNotFound = errors.New("pack not found")

// Pack 积分礼包模型，对应 packs 集合
type Pack struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	PointsRange string             `bson:"points_range" json:"points_range"`
	Price       float64            `bson:"price" json:"price"`
}

// Update 后台编辑礼包时的四个字段，全量覆盖，不支持部分更新
type Update struct {
	Name        string
	Description string
	PointsRange string
	Price       float64
}

// Repository 礼包仓储接口
type Repository interface {
	ListAll(ctx context.Context) ([]*Pack, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Pack, error)
	Update(ctx context.Context, id primitive.ObjectID, upd Update) error
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, packs []*Pack) error
}
