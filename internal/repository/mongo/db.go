package mongo

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ZEBDA1/McHess/internal/config"
)

var (
	db   *mongo.Database
	once sync.Once
)

// Init 初始化全局 Mongo 连接并做一次连通性探测
func Init(cfg *config.MongoConfig) *mongo.Database {
	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			log.Fatalf("failed to connect mongo: %v", err)
		}
		if err = client.Ping(ctx, readpref.Primary()); err != nil {
			log.Fatalf("failed to ping mongo: %v", err)
		}
		db = client.Database(cfg.Database)
	})
	return db
}

// DB 获取全局 Database
func DB() *mongo.Database {
	return db
}
