package service

import (
	"context"

	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
)

// DefaultPacks 初始礼包目录
func DefaultPacks() []*pack.Pack {
	return []*pack.Pack{
		{Name: "Pack Starter", Description: "Parfait pour commencer", PointsRange: "25-50", Price: 4.99},
		{Name: "Pack Populaire", Description: "Le plus choisi par nos clients", PointsRange: "50-75", Price: 8.99},
		{Name: "Pack Premium", Description: "Pour les gourmands", PointsRange: "75-100", Price: 12.99},
		{Name: "Pack Ultra", Description: "Le maximum de points", PointsRange: "100-150", Price: 17.99},
	}
}

// SeedPacks 空库时写入默认礼包，已有数据则什么都不做。返回是否执行了写入
func SeedPacks(ctx context.Context, repo pack.Repository) (bool, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := repo.InsertMany(ctx, DefaultPacks()); err != nil {
		return false, err
	}
	return true, nil
}
