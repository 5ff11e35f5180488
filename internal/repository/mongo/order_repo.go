package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ZEBDA1/McHess/internal/datamodels/order"
)

type orderRepo struct {
	coll *mongo.Collection
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *mongo.Database) order.Repository {
	return &orderRepo{coll: db.Collection("orders")}
}

func (r *orderRepo) Insert(ctx context.Context, o *order.Order) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, o)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}
	return id, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*order.Order, error) {
	var o order.Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, skip, limit int64) ([]*order.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []*order.Order
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListByEmail(ctx context.Context, email string, limit int64) ([]*order.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"customer_email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []*order.Order
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// FindPendingSince 未命中时返回 (nil, nil)
func (r *orderRepo) FindPendingSince(ctx context.Context, email string, packID primitive.ObjectID, since time.Time) (*order.Order, error) {
	var o order.Order
	err := r.coll.FindOne(ctx, bson.M{
		"customer_email": email,
		"pack_id":        packID,
		"status":         order.StatusPending,
		"created_at":     bson.M{"$gte": since},
	}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status order.Status) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *orderRepo) MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveryInfo string, deliveredAt time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":        order.StatusDelivered,
		"delivery_info": deliveryInfo,
		"delivered_at":  deliveredAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *orderRepo) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"status": status})
}
