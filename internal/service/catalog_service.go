package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
)

// CatalogService 礼包目录的查询与后台编辑
type CatalogService struct {
	repo   pack.Repository
	events Emitter
}

// NewCatalogService 创建目录服务
func NewCatalogService(repo pack.Repository, events Emitter) *CatalogService {
	return &CatalogService{repo: repo, events: events}
}

// ListPacks 返回全部礼包，数据库自然顺序
func (s *CatalogService) ListPacks(ctx context.Context) ([]*pack.Pack, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return list, nil
}

// GetPack 按 ID 查询礼包
func (s *CatalogService) GetPack(ctx context.Context, id primitive.ObjectID) (*pack.Pack, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, pack.ErrNotFound) {
			GetMonitor().RecordDBError()
		}
		return nil, err
	}
	return p, nil
}

// UpdatePack 全量覆盖礼包的四个可编辑字段，成功后发出修改通知
func (s *CatalogService) UpdatePack(ctx context.Context, id primitive.ObjectID, upd pack.Update) (*pack.Pack, error) {
	if err := s.repo.Update(ctx, id, upd); err != nil {
		if !errors.Is(err, pack.ErrNotFound) {
			GetMonitor().RecordDBError()
		}
		return nil, err
	}
	GetMonitor().RecordPackUpdated()

	s.events.Emit(fmt.Sprintf(
		"✏️ <b>Pack Modifié</b>\n"+
			"📦 Pack: %s\n"+
			"🎯 Points: %s\n"+
			"💰 Nouveau prix: %.2f€",
		upd.Name, upd.PointsRange, upd.Price))

	return s.repo.GetByID(ctx, id)
}
