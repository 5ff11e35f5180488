package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/kataras/iris/v12"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ZEBDA1/McHess/internal/config"
	"github.com/ZEBDA1/McHess/internal/datamodels/order"
	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
	"github.com/ZEBDA1/McHess/internal/service"
)

// ---------- 测试用内存仓储 ----------

type memPackRepo struct {
	packs map[primitive.ObjectID]*pack.Pack
}

func newMemPackRepo() *memPackRepo {
	return &memPackRepo{packs: make(map[primitive.ObjectID]*pack.Pack)}
}

func (m *memPackRepo) ListAll(ctx context.Context) ([]*pack.Pack, error) {
	list := make([]*pack.Pack, 0, len(m.packs))
	for _, p := range m.packs {
		list = append(list, p)
	}
	return list, nil
}

func (m *memPackRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*pack.Pack, error) {
	p, ok := m.packs[id]
	if !ok {
		return nil, pack.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPackRepo) Update(ctx context.Context, id primitive.ObjectID, upd pack.Update) error {
	p, ok := m.packs[id]
	if !ok {
		return pack.ErrNotFound
	}
	p.Name, p.Description, p.PointsRange, p.Price = upd.Name, upd.Description, upd.PointsRange, upd.Price
	return nil
}

func (m *memPackRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(m.packs)), nil
}

func (m *memPackRepo) InsertMany(ctx context.Context, packs []*pack.Pack) error {
	for _, p := range packs {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		m.packs[p.ID] = p
	}
	return nil
}

func (m *memPackRepo) byName(name string) *pack.Pack {
	for _, p := range m.packs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

type memOrderRepo struct {
	orders map[primitive.ObjectID]*order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[primitive.ObjectID]*order.Order)}
}

func (m *memOrderRepo) Insert(ctx context.Context, o *order.Order) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	cp := *o
	cp.ID = id
	m.orders[id] = &cp
	return id, nil
}

func (m *memOrderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) List(ctx context.Context, skip, limit int64) ([]*order.Order, error) {
	list := make([]*order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		list = append(list, o)
	}
	return list, nil
}

func (m *memOrderRepo) ListByEmail(ctx context.Context, email string, limit int64) ([]*order.Order, error) {
	var list []*order.Order
	for _, o := range m.orders {
		if o.CustomerEmail == email {
			list = append(list, o)
		}
	}
	return list, nil
}

func (m *memOrderRepo) FindPendingSince(ctx context.Context, email string, packID primitive.ObjectID, since time.Time) (*order.Order, error) {
	for _, o := range m.orders {
		if o.CustomerEmail == email && o.PackID == packID &&
			o.Status == order.StatusPending && !o.CreatedAt.Before(since) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status order.Status) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memOrderRepo) MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveryInfo string, deliveredAt time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = order.StatusDelivered
	o.DeliveryInfo = deliveryInfo
	o.DeliveredAt = &deliveredAt
	return nil
}

func (m *memOrderRepo) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

type recorderEmitter struct{ texts []string }

func (r *recorderEmitter) Emit(text string) { r.texts = append(r.texts, text) }

// ---------- 应用装配 ----------

type testApp struct {
	app    *iris.Application
	cfg    *config.Config
	packs  *memPackRepo
	orders *memOrderRepo
	events *recorderEmitter
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		Payment: config.PaymentConfig{PayPalEmail: "zebdalerat@protonmail.com"},
		Admin:   config.AdminConfig{Username: "admin", Password: "admin123"},
		JWT:     config.JWTConfig{Secret: "test-secret"},
	}
	packs := newMemPackRepo()
	orders := newMemOrderRepo()
	events := &recorderEmitter{}

	if _, err := service.SeedPacks(context.Background(), packs); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	catalogSvc := service.NewCatalogService(packs, events)
	orderSvc := service.NewOrderService(orders, packs, events, &cfg.Payment)
	adminSvc := service.NewAdminService(&cfg.Admin, &cfg.JWT)

	app := iris.New()
	registerPublicRoutes(app, cfg, catalogSvc, orderSvc)
	registerAdminRoutes(app, cfg, nil, catalogSvc, orderSvc, adminSvc)
	if err := app.Build(); err != nil {
		t.Fatalf("app build failed: %v", err)
	}

	return &testApp{app: app, cfg: cfg, packs: packs, orders: orders, events: events}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (int, *envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.app.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: response is not the JSON envelope: %v\n%s", method, path, err, w.Body.String())
	}
	return w.Code, &env
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/admin/login", "", iris.Map{
		"username": "admin", "password": "admin123",
	})
	if code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", code, env.Msg)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login returned no token: %v", err)
	}
	return data.Token
}

// ---------- 用例 ----------

func TestPublicInfoAndConfig(t *testing.T) {
	a := newTestApp(t)

	code, env := a.do(t, http.MethodGet, "/api", "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api status %d", code)
	}
	if !strings.Contains(string(env.Data), "McHess API") {
		t.Errorf("info message missing: %s", env.Data)
	}

	code, env = a.do(t, http.MethodGet, "/api/config", "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api/config status %d", code)
	}
	if !strings.Contains(string(env.Data), "zebdalerat@protonmail.com") {
		t.Errorf("payment destination missing: %s", env.Data)
	}
}

func TestListAndGetPacks(t *testing.T) {
	a := newTestApp(t)

	code, env := a.do(t, http.MethodGet, "/api/packs", "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api/packs status %d", code)
	}
	var list []*pack.Pack
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("packs payload: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected the 4 seeded packs, got %d", len(list))
	}

	p := a.packs.byName("Pack Starter")
	code, env = a.do(t, http.MethodGet, "/api/packs/"+p.ID.Hex(), "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET pack status %d: %s", code, env.Msg)
	}

	code, env = a.do(t, http.MethodGet, "/api/packs/"+primitive.NewObjectID().Hex(), "", nil)
	if code != http.StatusNotFound || !strings.Contains(env.Msg, "Pack not found") {
		t.Errorf("unknown pack: status %d msg %q", code, env.Msg)
	}

	code, _ = a.do(t, http.MethodGet, "/api/packs/not-an-id", "", nil)
	if code != http.StatusNotFound {
		t.Errorf("malformed pack id: status %d, want 404", code)
	}
}

func TestCreateOrderEndToEnd(t *testing.T) {
	a := newTestApp(t)
	ultra := a.packs.byName("Pack Ultra")

	// 第一次下单成功，金额取当前礼包价格
	code, env := a.do(t, http.MethodPost, "/api/orders", "", iris.Map{
		"pack_id":        ultra.ID.Hex(),
		"customer_email": "a@b.com",
	})
	if code != http.StatusOK {
		t.Fatalf("create order status %d: %s", code, env.Msg)
	}
	var res service.CreateOrderResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("create order payload: %v", err)
	}
	if res.Amount != 17.99 {
		t.Errorf("amount = %v, want 17.99", res.Amount)
	}
	if len(res.OrderID) != 24 {
		t.Errorf("order id %q is not a fresh ObjectID hex", res.OrderID)
	}

	// 窗口期内重复下单：400 并带 8 位订单号
	code, env = a.do(t, http.MethodPost, "/api/orders", "", iris.Map{
		"pack_id":        ultra.ID.Hex(),
		"customer_email": "a@b.com",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate order status %d, want 400", code)
	}
	if !regexp.MustCompile(`[0-9A-F]{8}`).MatchString(env.Msg) {
		t.Errorf("conflict message should mention an 8-character order number: %q", env.Msg)
	}

	// 未知礼包：404
	code, env = a.do(t, http.MethodPost, "/api/orders", "", iris.Map{
		"pack_id":        primitive.NewObjectID().Hex(),
		"customer_email": "a@b.com",
	})
	if code != http.StatusNotFound || !strings.Contains(env.Msg, "Pack not found") {
		t.Errorf("unknown pack: status %d msg %q", code, env.Msg)
	}

	// 参数校验
	code, _ = a.do(t, http.MethodPost, "/api/orders", "", iris.Map{
		"pack_id": ultra.ID.Hex(),
	})
	if code != http.StatusBadRequest {
		t.Errorf("missing email: status %d, want 400", code)
	}
	code, _ = a.do(t, http.MethodPost, "/api/orders", "", iris.Map{
		"pack_id":        ultra.ID.Hex(),
		"customer_email": "not-an-email",
	})
	if code != http.StatusBadRequest {
		t.Errorf("bad email: status %d, want 400", code)
	}
}

func TestListOrdersByEmail(t *testing.T) {
	a := newTestApp(t)
	starter := a.packs.byName("Pack Starter")
	ultra := a.packs.byName("Pack Ultra")

	for _, req := range []iris.Map{
		{"pack_id": starter.ID.Hex(), "customer_email": "a@b.com"},
		{"pack_id": ultra.ID.Hex(), "customer_email": "a@b.com"},
		{"pack_id": starter.ID.Hex(), "customer_email": "other@b.com"},
	} {
		if code, env := a.do(t, http.MethodPost, "/api/orders", "", req); code != http.StatusOK {
			t.Fatalf("fixture order failed: %d %s", code, env.Msg)
		}
	}

	code, env := a.do(t, http.MethodGet, "/api/orders/a@b.com", "", nil)
	if code != http.StatusOK {
		t.Fatalf("list by email status %d", code)
	}
	var list []*order.Order
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("orders payload: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 orders for a@b.com, got %d", len(list))
	}
	for _, o := range list {
		if o.CustomerEmail != "a@b.com" {
			t.Errorf("foreign order leaked: %+v", o)
		}
	}

	if code, _ := a.do(t, http.MethodGet, "/api/orders/not-an-email", "", nil); code != http.StatusBadRequest {
		t.Errorf("bad email path: status %d, want 400", code)
	}
}

func TestAdminAuthRequired(t *testing.T) {
	a := newTestApp(t)

	if code, _ := a.do(t, http.MethodGet, "/api/admin/orders", "", nil); code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "garbage")
	w := httptest.NewRecorder()
	a.app.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", w.Code)
	}

	code, env := a.do(t, http.MethodPost, "/api/admin/login", "", iris.Map{
		"username": "admin", "password": "wrong",
	})
	if code != http.StatusUnauthorized {
		t.Errorf("bad credentials: status %d msg %q", code, env.Msg)
	}
}

func TestAdminOrderManagement(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t)
	ultra := a.packs.byName("Pack Ultra")

	code, env := a.do(t, http.MethodPost, "/api/orders", "", iris.Map{
		"pack_id":        ultra.ID.Hex(),
		"customer_email": "a@b.com",
	})
	if code != http.StatusOK {
		t.Fatalf("fixture order failed: %d %s", code, env.Msg)
	}
	var res service.CreateOrderResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("create payload: %v", err)
	}

	// 订单列表
	code, env = a.do(t, http.MethodGet, "/api/admin/orders?skip=0&limit=10", token, nil)
	if code != http.StatusOK {
		t.Fatalf("admin list status %d: %s", code, env.Msg)
	}

	// 状态更新：闭合枚举
	code, env = a.do(t, http.MethodPut, "/api/admin/orders/"+res.OrderID, token, iris.Map{"status": "cancelled"})
	if code != http.StatusOK {
		t.Fatalf("update status failed: %d %s", code, env.Msg)
	}
	id, _ := primitive.ObjectIDFromHex(res.OrderID)
	if got := a.orders.orders[id].Status; got != order.StatusCancelled {
		t.Errorf("stored status = %q, want cancelled", got)
	}

	// 不认识的状态拒绝
	code, _ = a.do(t, http.MethodPut, "/api/admin/orders/"+res.OrderID, token, iris.Map{"status": "shipped"})
	if code != http.StatusBadRequest {
		t.Errorf("unknown status: status %d, want 400", code)
	}

	// 交付
	code, env = a.do(t, http.MethodPut, "/api/admin/orders/"+res.OrderID+"/deliver", token, iris.Map{
		"delivery_info": "Code: ABC-123",
	})
	if code != http.StatusOK {
		t.Fatalf("deliver failed: %d %s", code, env.Msg)
	}
	if got := a.orders.orders[id]; got.Status != order.StatusDelivered || got.DeliveredAt == nil {
		t.Errorf("deliver not applied: %+v", got)
	}

	// 不存在的订单
	code, env = a.do(t, http.MethodPut, "/api/admin/orders/"+primitive.NewObjectID().Hex(), token, iris.Map{"status": "pending"})
	if code != http.StatusNotFound || !strings.Contains(env.Msg, "Order not found") {
		t.Errorf("missing order: status %d msg %q", code, env.Msg)
	}

	// 统计
	code, env = a.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	if code != http.StatusOK {
		t.Fatalf("stats status %d", code)
	}
	if !strings.Contains(string(env.Data), "delivered") {
		t.Errorf("stats payload missing order counts: %s", env.Data)
	}
}

func TestAdminUpdatePack(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t)
	starter := a.packs.byName("Pack Starter")

	code, env := a.do(t, http.MethodPut, "/api/admin/packs/"+starter.ID.Hex(), token, iris.Map{
		"name":         "Pack Starter+",
		"description":  "Mieux pour commencer",
		"points_range": "30-60",
		"price":        5.99,
	})
	if code != http.StatusOK {
		t.Fatalf("update pack failed: %d %s", code, env.Msg)
	}
	var p pack.Pack
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("pack payload: %v", err)
	}
	if p.Name != "Pack Starter+" || p.Price != 5.99 {
		t.Errorf("pack not updated: %+v", p)
	}

	// 四个字段缺一不可
	code, _ = a.do(t, http.MethodPut, "/api/admin/packs/"+starter.ID.Hex(), token, iris.Map{
		"name": "x", "price": 1.0,
	})
	if code != http.StatusBadRequest {
		t.Errorf("partial update: status %d, want 400", code)
	}

	code, _ = a.do(t, http.MethodPut, "/api/admin/packs/"+starter.ID.Hex(), token, iris.Map{
		"name": "x", "description": "y", "points_range": "1-2", "price": -3,
	})
	if code != http.StatusBadRequest {
		t.Errorf("negative price: status %d, want 400", code)
	}

	code, env = a.do(t, http.MethodPut, "/api/admin/packs/"+primitive.NewObjectID().Hex(), token, iris.Map{
		"name": "x", "description": "y", "points_range": "1-2", "price": 3,
	})
	if code != http.StatusNotFound || !strings.Contains(env.Msg, "Pack not found") {
		t.Errorf("missing pack: status %d msg %q", code, env.Msg)
	}
}
