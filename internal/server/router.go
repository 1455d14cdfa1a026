package server

import (
	"github.com/Gpcode233/Ajently/internal/handler"
	"github.com/Gpcode233/Ajently/internal/service"

	"github.com/Gpcode233/Ajently/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(svc *service.Services, webhookSecret string) *gin.Engine {
	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware()) // 监控埋点

	agentHandler := handler.NewAgentHandler(svc)
	creditHandler := handler.NewCreditHandler(svc)
	webhookHandler := handler.NewWebhookHandler(svc, webhookSecret)

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // 暴露给 Prometheus
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. 支付回调 (不进 api 组，对外路径固定)
	r.POST("/webhooks/payments", webhookHandler.PaymentWebhook)

	// 5. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/profile", creditHandler.Profile)
		api.GET("/runs", creditHandler.ListRuns)
		api.POST("/wallet/connect", creditHandler.ConnectWallet)

		agents := api.Group("/agents")
		{
			agents.GET("", agentHandler.List)
			agents.POST("", agentHandler.Create)
			agents.GET("/:id", agentHandler.Get)
			agents.POST("/:id/publish", agentHandler.Publish)
			agents.POST("/:id/knowledge", agentHandler.AttachKnowledge)
			agents.POST("/:id/run", agentHandler.Run)
			agents.GET("/:id/runs", agentHandler.ListRuns)
		}

		credits := api.Group("/credits")
		{
			credits.GET("", creditHandler.Summary)
			credits.POST("/topup", creditHandler.CreateTopup)
			credits.POST("/onchain", creditHandler.Onchain)
			credits.POST("/:id/simulate", creditHandler.Simulate)
			credits.POST("/adjust", creditHandler.ManualAdjust)
		}
	}

	return r
}
