package main

import (
	"fmt"
	"net/http"

	"github.com/yunn234/yunn-shoppingmall/api/middleware"
	v1 "github.com/yunn234/yunn-shoppingmall/api/v1"
	"github.com/yunn234/yunn-shoppingmall/internal/client/payment"
	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/dao/mysql"
	redisinit "github.com/yunn234/yunn-shoppingmall/internal/dao/redis"
	"github.com/yunn234/yunn-shoppingmall/internal/mq"
	"github.com/yunn234/yunn-shoppingmall/internal/service"
	"github.com/yunn234/yunn-shoppingmall/pkg/app"
	"github.com/yunn234/yunn-shoppingmall/pkg/logger"
	"github.com/yunn234/yunn-shoppingmall/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := app.BootstrapApp()

	// 设置Gin模式
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	// DB
	db, err := mysql.InitDB(&cfg.Database.Mysql)
	if err != nil {
		logger.Fatal("连接Mysql数据库失败", "err", err)
	}
	if err := mysql.Migrate(db); err != nil {
		logger.Fatal("数据库迁移失败", "err", err)
	}

	// Redis（商品缓存与下单互斥锁）
	rdb, err := redisinit.InitRedis(&cfg.Database.Redis)
	if err != nil {
		logger.Fatal("连接Redis失败", "err", err)
	}

	// MQ生产者池，订单事件由此发出
	mqPool, err := mq.Init(&cfg.MQ)
	if err != nil {
		logger.Fatal("连接RabbitMQ失败", "err", err)
	}
	defer mqPool.Close()
	if err := mqPool.EnsureBaseTopology(); err != nil {
		logger.Fatal("MQ拓扑初始化失败", "err", err)
	}

	// DAO
	userDao := dao.NewUserDao(db)
	productDao := dao.NewProductDao(db, rdb)
	cartDao := dao.NewCartDao(db)
	orderDao := dao.NewOrderDao(db)

	// 支付网关客户端
	gateway := payment.NewClient(&cfg.Payment)

	// JWT 工具
	jwtUtil := utils.NewJWTUtil(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Service
	authService := service.NewAuthService(userDao, jwtUtil)
	userService := service.NewUserService(userDao)
	productService := service.NewProductService(productDao)
	cartService := service.NewCartService(cartDao, productDao)
	orderService := service.NewOrderService(
		orderDao, cartDao, productDao, userDao, gateway, rdb, mqPool, &cfg.Payment)

	// Handler
	authHandler := v1.NewAuthHandler(authService)
	userHandler := v1.NewUserHandler(userService)
	productHandler := v1.NewProductHandler(productService)
	cartHandler := v1.NewCartHandler(cartService)
	orderHandler := v1.NewOrderHandler(orderService)

	r := gin.Default()

	// 全局限流中间件
	r.Use(middleware.GlobalRateLimit(cfg))

	// 健康检查接口
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "API Server is running",
		})
	})

	api := r.Group("/api")
	{
		// 认证路由（无需登录）
		auth := api.Group("/auth")
		authHandler.RegisterRoutes(auth)
		authProtected := api.Group("/auth")
		authProtected.Use(middleware.JWTAuthMiddleware(jwtUtil))
		authHandler.RegisterProtectedRoutes(authProtected)

		// 商品浏览公开，管理操作需要管理员
		products := api.Group("/products")
		productHandler.RegisterRoutes(products)
		productsAdmin := api.Group("/products")
		productsAdmin.Use(middleware.JWTAuthMiddleware(jwtUtil), middleware.AdminRequired())
		productHandler.RegisterAdminRoutes(productsAdmin)

		// 用户路由（需登录，本人或管理员）
		users := api.Group("/users")
		users.Use(middleware.JWTAuthMiddleware(jwtUtil))
		userHandler.RegisterRoutes(users)
		usersAdmin := api.Group("/users")
		usersAdmin.Use(middleware.JWTAuthMiddleware(jwtUtil), middleware.AdminRequired())
		userHandler.RegisterAdminRoutes(usersAdmin)

		// 购物车路由（需登录）
		carts := api.Group("/carts")
		carts.Use(middleware.JWTAuthMiddleware(jwtUtil))
		cartHandler.RegisterRoutes(carts)

		// 订单路由（需登录）
		orders := api.Group("/orders")
		orders.Use(middleware.JWTAuthMiddleware(jwtUtil))
		orderHandler.RegisterRoutes(orders)

		// 下单接口单独挂更严格的限流
		orderCreate := api.Group("/orders")
		orderCreate.Use(middleware.JWTAuthMiddleware(jwtUtil), middleware.OrderRateLimit(cfg))
		orderCreate.POST("", orderHandler.PlaceOrder)

		// 订单管理路由（管理员）
		ordersAdmin := api.Group("/orders")
		ordersAdmin.Use(middleware.JWTAuthMiddleware(jwtUtil), middleware.AdminRequired())
		orderHandler.RegisterAdminRoutes(ordersAdmin)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("API Server starting on " + serverAddr)
	if err := r.Run(serverAddr); err != nil {
		logger.Fatal("API Server启动失败", "err", err)
	}
}
