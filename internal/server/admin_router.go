package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/ZEBDA1/McHess/internal/auth"
	"github.com/ZEBDA1/McHess/internal/config"
	"github.com/ZEBDA1/McHess/internal/datamodels/order"
	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
	"github.com/ZEBDA1/McHess/internal/service"
)

// registerAdminRoutes 后台管理路由，除登录外都要求携带管理员 JWT
func registerAdminRoutes(
	app *iris.Application,
	cfg *config.Config,
	redisClient radix.Client,
	catalogSvc *service.CatalogService,
	orderSvc *service.OrderService,
	adminSvc *service.AdminService,
) {
	tokenCache := auth.NewTokenCache(redisClient, time.Duration(cfg.Admin.TokenCacheTTLSeconds)*time.Second)

	admin := app.Party("/api/admin")

	// 管理员登录
	admin.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := adminSvc.Login(req.Username, req.Password)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid credentials"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token}})
	})

	// 鉴权中间件：优先命中 Redis 缓存的解析结果
	authed := admin.Party("/", func(ctx iris.Context) {
		token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}

		rctx := ctx.Request().Context()
		claims, hit, err := tokenCache.Get(rctx, token)
		if err != nil {
			zap.L().Warn("token cache lookup failed", zap.Error(err))
		}
		if !hit {
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
				return
			}
			if err := tokenCache.Set(rctx, token, claims); err != nil {
				zap.L().Warn("token cache store failed", zap.Error(err))
			}
		}
		ctx.Values().Set("admin", claims.Username)
		ctx.Next()
	})

	// ---------- 礼包管理 ----------

	// 编辑礼包：四个字段全量覆盖
	authed.Put("/packs/{id}", func(ctx iris.Context) {
		id, ok := parseObjectID(ctx.Params().Get("id"))
		if !ok {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Pack not found"})
			return
		}
		var req struct {
			Name        string  `json:"name"`
			Description string  `json:"description"`
			PointsRange string  `json:"points_range"`
			Price       float64 `json:"price"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if req.Name == "" || req.Description == "" || req.PointsRange == "" {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "name, description and points_range are required"})
			return
		}
		if req.Price <= 0 {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "price must be positive"})
			return
		}

		p, err := catalogSvc.UpdatePack(ctx.Request().Context(), id, pack.Update{
			Name:        req.Name,
			Description: req.Description,
			PointsRange: req.PointsRange,
			Price:       req.Price,
		})
		if err != nil {
			writePackError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// ---------- 订单管理 ----------

	// 订单列表（创建时间倒序，skip/limit 分页）
	authed.Get("/orders", func(ctx iris.Context) {
		skip, _ := strconv.ParseInt(ctx.URLParamDefault("skip", "0"), 10, 64)
		limit, _ := strconv.ParseInt(ctx.URLParamDefault("limit", "0"), 10, 64)
		list, err := orderSvc.List(ctx.Request().Context(), skip, limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		if list == nil {
			list = []*order.Order{}
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 修改订单状态（只接受闭合枚举）
	authed.Put("/orders/{id}", func(ctx iris.Context) {
		id, ok := parseObjectID(ctx.Params().Get("id"))
		if !ok {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Order not found"})
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		status, err := order.ParseStatus(req.Status)
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}

		if err := orderSvc.UpdateStatus(ctx.Request().Context(), id, status); err != nil {
			writeOrderError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"message": "Order status updated successfully"}})
	})

	// 交付订单：写入交付信息并置为 delivered
	authed.Put("/orders/{id}/deliver", func(ctx iris.Context) {
		id, ok := parseObjectID(ctx.Params().Get("id"))
		if !ok {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Order not found"})
			return
		}
		var req struct {
			DeliveryInfo string `json:"delivery_info"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if req.DeliveryInfo == "" {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "delivery_info is required"})
			return
		}

		if err := orderSvc.Deliver(ctx.Request().Context(), id, req.DeliveryInfo); err != nil {
			writeOrderError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"message": "Order delivered successfully"}})
	})

	// 业务统计面板
	authed.Get("/stats", func(ctx iris.Context) {
		orderStats, err := orderSvc.Stats(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"orders":  orderStats,
			"runtime": service.GetMonitor().GetStats(),
		}})
	})
}

func writeOrderError(ctx iris.Context, err error) {
	if errors.Is(err, order.ErrNotFound) {
		ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Order not found"})
		return
	}
	ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
}
