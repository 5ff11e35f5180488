package service

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ZEBDA1/McHess/internal/datamodels/order"
	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
)

// mockEmitter 记录发出的通知文本
type mockEmitter struct {
	mu    sync.Mutex
	Texts []string
}

func (m *mockEmitter) Emit(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
}

func (m *mockEmitter) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Texts...)
}

// mockPackRepo 内存礼包仓储
type mockPackRepo struct {
	Packs map[primitive.ObjectID]*pack.Pack
}

func newMockPackRepo() *mockPackRepo {
	return &mockPackRepo{Packs: make(map[primitive.ObjectID]*pack.Pack)}
}

func (m *mockPackRepo) add(p *pack.Pack) *pack.Pack {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.Packs[p.ID] = p
	return p
}

func (m *mockPackRepo) ListAll(ctx context.Context) ([]*pack.Pack, error) {
	list := make([]*pack.Pack, 0, len(m.Packs))
	for _, p := range m.Packs {
		list = append(list, p)
	}
	return list, nil
}

func (m *mockPackRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*pack.Pack, error) {
	p, ok := m.Packs[id]
	if !ok {
		return nil, pack.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPackRepo) Update(ctx context.Context, id primitive.ObjectID, upd pack.Update) error {
	p, ok := m.Packs[id]
	if !ok {
		return pack.ErrNotFound
	}
	p.Name = upd.Name
	p.Description = upd.Description
	p.PointsRange = upd.PointsRange
	p.Price = upd.Price
	return nil
}

func (m *mockPackRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(m.Packs)), nil
}

func (m *mockPackRepo) InsertMany(ctx context.Context, packs []*pack.Pack) error {
	for _, p := range packs {
		m.add(p)
	}
	return nil
}

// mockOrderRepo 内存订单仓储，记录最近一次查询参数方便断言
type mockOrderRepo struct {
	Orders map[primitive.ObjectID]*order.Order

	LastListSkip   int64
	LastListLimit  int64
	LastEmailLimit int64
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{Orders: make(map[primitive.ObjectID]*order.Order)}
}

func (m *mockOrderRepo) Insert(ctx context.Context, o *order.Order) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	cp := *o
	cp.ID = id
	m.Orders[id] = &cp
	return id, nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*order.Order, error) {
	o, ok := m.Orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) List(ctx context.Context, skip, limit int64) ([]*order.Order, error) {
	m.LastListSkip = skip
	m.LastListLimit = limit
	list := make([]*order.Order, 0, len(m.Orders))
	for _, o := range m.Orders {
		list = append(list, o)
	}
	return list, nil
}

func (m *mockOrderRepo) ListByEmail(ctx context.Context, email string, limit int64) ([]*order.Order, error) {
	m.LastEmailLimit = limit
	var list []*order.Order
	for _, o := range m.Orders {
		if o.CustomerEmail == email {
			list = append(list, o)
		}
	}
	return list, nil
}

func (m *mockOrderRepo) FindPendingSince(ctx context.Context, email string, packID primitive.ObjectID, since time.Time) (*order.Order, error) {
	for _, o := range m.Orders {
		if o.CustomerEmail == email && o.PackID == packID &&
			o.Status == order.StatusPending && !o.CreatedAt.Before(since) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status order.Status) error {
	o, ok := m.Orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveryInfo string, deliveredAt time.Time) error {
	o, ok := m.Orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = order.StatusDelivered
	o.DeliveryInfo = deliveryInfo
	o.DeliveredAt = &deliveredAt
	return nil
}

func (m *mockOrderRepo) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	var n int64
	for _, o := range m.Orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}
