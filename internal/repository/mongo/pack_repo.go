package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
)

type packRepo struct {
	coll *mongo.Collection
}

// NewPackRepository 创建礼包仓储
func NewPackRepository(db *mongo.Database) pack.Repository {
	return &packRepo{coll: db.Collection("packs")}
}

func (r *packRepo) ListAll(ctx context.Context) ([]*pack.Pack, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []*pack.Pack
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *packRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*pack.Pack, error) {
	var p pack.Pack
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pack.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update 四个字段一次 $set 覆盖，读方不会看到半新半旧的记录
func (r *packRepo) Update(ctx context.Context, id primitive.ObjectID, upd pack.Update) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":         upd.Name,
		"description":  upd.Description,
		"points_range": upd.PointsRange,
		"price":        upd.Price,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return pack.ErrNotFound
	}
	return nil
}

func (r *packRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *packRepo) InsertMany(ctx context.Context, packs []*pack.Pack) error {
	docs := make([]interface{}, 0, len(packs))
	for _, p := range packs {
		docs = append(docs, p)
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}
