package server

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strconv"

	"github.com/kataras/iris/v12"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ZEBDA1/McHess/internal/config"
	"github.com/ZEBDA1/McHess/internal/datamodels/order"
	"github.com/ZEBDA1/McHess/internal/datamodels/pack"
	"github.com/ZEBDA1/McHess/internal/infra/mq"
	"github.com/ZEBDA1/McHess/internal/infra/redis"
	"github.com/ZEBDA1/McHess/internal/infra/telegram"
	"github.com/ZEBDA1/McHess/internal/middleware"
	mongorepo "github.com/ZEBDA1/McHess/internal/repository/mongo"
	"github.com/ZEBDA1/McHess/internal/service"
)

// RegisterRoutes 初始化基础设施并注册所有 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mongorepo.Init(&cfg.Mongo)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	notifier := telegram.NewNotifier(&cfg.Telegram)
	dispatcher, err := service.NewDispatcher(mqConn, notifier)
	if err != nil {
		log.Fatalf("failed to init notification dispatcher: %v", err)
	}
	if mqConn != nil {
		// 内嵌消费协程；也可以单独跑 cmd/notify-worker
		go func() {
			if err := service.RunConsumer(mqConn, notifier); err != nil {
				zap.L().Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	// 仓储与服务
	packRepo := mongorepo.NewPackRepository(db)
	orderRepo := mongorepo.NewOrderRepository(db)

	catalogSvc := service.NewCatalogService(packRepo, dispatcher)
	orderSvc := service.NewOrderService(orderRepo, packRepo, dispatcher, &cfg.Payment)
	adminSvc := service.NewAdminService(&cfg.Admin, &cfg.JWT)

	// 空库时写入默认礼包
	seeded, err := service.SeedPacks(context.Background(), packRepo)
	if err != nil {
		log.Fatalf("failed to seed packs: %v", err)
	}
	if seeded {
		zap.L().Info("default packs created")
	}

	dispatcher.Emit("🚀 <b>McHess Bot Démarré</b>\nLe système est maintenant opérationnel.")

	registerPublicRoutes(app, cfg, catalogSvc, orderSvc)
	registerAdminRoutes(app, cfg, redisClient, catalogSvc, orderSvc, adminSvc)
}

// registerPublicRoutes 前台路由
func registerPublicRoutes(app *iris.Application, cfg *config.Config, catalogSvc *service.CatalogService, orderSvc *service.OrderService) {
	api := app.Party("/api")

	// 存活探测 / 服务信息
	api.Get("/", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"message": "McHess API - Système de vente de points de fidélité",
		}})
	})

	// 对外公开的配置：收款地址
	api.Get("/config", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"paypal_email": cfg.Payment.PayPalEmail,
		}})
	})

	// 礼包列表
	api.Get("/packs", func(ctx iris.Context) {
		list, err := catalogSvc.ListPacks(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		if list == nil {
			list = []*pack.Pack{}
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 礼包详情
	api.Get("/packs/{id}", func(ctx iris.Context) {
		id, ok := parseObjectID(ctx.Params().Get("id"))
		if !ok {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Pack not found"})
			return
		}
		p, err := catalogSvc.GetPack(ctx.Request().Context(), id)
		if err != nil {
			writePackError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// 下单
	api.Post("/orders", middleware.OrderRateLimit(), func(ctx iris.Context) {
		var req struct {
			PackID        string `json:"pack_id"`
			CustomerEmail string `json:"customer_email"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if req.PackID == "" || req.CustomerEmail == "" {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "pack_id and customer_email are required"})
			return
		}
		if !validEmail(req.CustomerEmail) {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid customer_email"})
			return
		}
		packID, ok := parseObjectID(req.PackID)
		if !ok {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Pack not found"})
			return
		}

		res, err := orderSvc.CreateOrder(ctx.Request().Context(), packID, req.CustomerEmail)
		if err != nil {
			var dup *service.DuplicateOrderError
			switch {
			case errors.As(err, &dup):
				ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": dup.Error()})
			case errors.Is(err, pack.ErrNotFound):
				ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Pack not found"})
			default:
				ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			}
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": res})
	})

	// 客户按邮箱查询自己的订单
	api.Get("/orders/{email}", func(ctx iris.Context) {
		email := ctx.Params().Get("email")
		if !validEmail(email) {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "invalid email"})
			return
		}
		limit, _ := strconv.ParseInt(ctx.URLParamDefault("limit", "0"), 10, 64)
		list, err := orderSvc.ListByEmail(ctx.Request().Context(), email, limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		if list == nil {
			list = []*order.Order{}
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})
}

func parseObjectID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// validEmail 校验邮箱格式，不接受带显示名的写法
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func writePackError(ctx iris.Context, err error) {
	if errors.Is(err, pack.ErrNotFound) {
		ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "Pack not found"})
		return
	}
	ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
}
