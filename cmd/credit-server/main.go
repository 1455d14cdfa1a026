package main

import (
	"context"
	"strconv"
	"time"

	"github.com/Gpcode233/Ajently/internal/event"
	"github.com/Gpcode233/Ajently/internal/server"
	"github.com/Gpcode233/Ajently/internal/service"
	"github.com/Gpcode233/Ajently/internal/service/chain"
	"github.com/Gpcode233/Ajently/internal/service/compute"
	"github.com/Gpcode233/Ajently/internal/service/mq"
	"github.com/Gpcode233/Ajently/internal/service/storage"
	"github.com/Gpcode233/Ajently/internal/store"

	"github.com/Gpcode233/Ajently/pkg/cache"
	"github.com/Gpcode233/Ajently/pkg/config"
	"github.com/Gpcode233/Ajently/pkg/database"
	"github.com/Gpcode233/Ajently/pkg/logger"
	"github.com/Gpcode233/Ajently/pkg/monitor"
	"github.com/Gpcode233/Ajently/pkg/validator"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// @title Ajently Credit API
// @version 1.0
// @description Credit ledger and settlement engine for the Ajently agent marketplace

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger / Validator / Metrics
	logger.Init(config.Global.App.Env)
	defer logger.Sync()
	validator.Init()
	monitor.Init()

	// 2. 打开快照库 (内存库 + 磁盘快照 + FIFO writer)
	st, err := store.Open(config.Global.Store.Path)
	if err != nil {
		logger.Fatal("打开快照库失败", zap.Error(err))
	}

	// 3. 链上核验器 (金库地址未配置时禁用链上充值入口)
	var verifier *chain.Verifier
	if config.Global.Topup.TreasuryAddress != "" {
		rpcByChain := make(map[int64]string, len(config.Global.Topup.ChainRPC))
		for id, url := range config.Global.Topup.ChainRPC {
			chainID, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				logger.Fatal("非法的 chain id", zap.String("chain_id", id))
			}
			rpcByChain[chainID] = url
		}
		verifier, err = chain.NewVerifier(chain.NewEthClient(rpcByChain), config.Global.Topup.TreasuryAddress)
		if err != nil {
			logger.Fatal("初始化链上核验器失败", zap.Error(err))
		}
		logger.Info("链上充值已启用", zap.Int("chains", len(rpcByChain)))
	} else {
		logger.Warn("未配置金库地址，链上充值入口不可用")
	}

	// 4. 推理协作方
	var computeProvider compute.Provider
	if config.Global.Compute.Mode == compute.ModeOpenRouter && config.Global.Compute.APIKey != "" {
		computeProvider = compute.NewOpenRouterProvider(
			config.Global.Compute.APIKey,
			config.Global.Compute.BaseURL,
			config.Global.Compute.DefaultModel,
			config.Global.Compute.AppURL,
		)
		logger.Info("推理模式: openrouter")
	} else {
		computeProvider = compute.NewMockProvider()
		logger.Info("推理模式: mock")
	}

	// 5. 存储协作方
	var storageProvider storage.Provider
	if config.Global.Storage.Mode == storage.ModeGateway && config.Global.Storage.GatewayURL != "" {
		storageProvider = storage.NewGatewayProvider(config.Global.Storage.GatewayURL)
		logger.Info("存储模式: gateway")
	} else {
		storageProvider, err = storage.NewLocalProvider(config.Global.Storage.Dir)
		if err != nil {
			logger.Fatal("初始化本地存储失败", zap.Error(err))
		}
		logger.Info("存储模式: local", zap.String("dir", config.Global.Storage.Dir))
	}

	// 6. 消息队列 + 目录缓存
	// mq_type = none 时不投递事件 (outbox 照常落表)，缓存退化为纯内存
	var producer mq.Producer
	catalogCache := cache.Cache(cache.NewMemoryCache(time.Minute, 5*time.Minute))

	switch config.Global.Redis.MQType {
	case "kafka":
		logger.Info("使用 Kafka 作为消息队列...")
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers, event.TopicCreditEvents)
	case "redis":
		logger.Info("使用 Redis Streams 作为消息队列...")
		rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		producer = mq.NewRedisProducer(rdb)
		// Redis 在场时目录缓存升级为两级
		catalogCache = cache.NewMultiLevelCache(catalogCache, cache.NewRedisCache(rdb))
	default:
		logger.Info("未配置消息队列，结算事件只落 outbox 表")
	}

	// 7. 组装服务层 + 灌演示数据
	svc := service.New(st, verifier, computeProvider, storageProvider, catalogCache)

	initialCredits, err := decimal.NewFromString(config.Global.Demo.InitialCredits)
	if err != nil {
		logger.Fatal("非法的演示初始余额", zap.String("value", config.Global.Demo.InitialCredits))
	}
	if err := svc.Agent.EnsureSeedData(config.Global.Demo.WalletAddress, initialCredits); err != nil {
		logger.Fatal("灌入演示数据失败", zap.Error(err))
	}

	// 8. 启动消息中继服务
	relayCtx, stopRelay := context.WithCancel(context.Background())
	if producer != nil {
		relayService := service.NewRelayService(st, producer)
		go relayService.Start(relayCtx)
	}

	// 9. HTTP Router + 启动应用 (阻塞到收到关闭信号)
	r := server.NewHTTPRouter(svc, config.Global.Topup.WebhookSecret)
	app := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)
	app.Run()

	// 10. 退出后资源清理: 先停中继，再排空写队列
	stopRelay()
	if producer != nil {
		producer.Close()
	}
	logger.Info("正在排空写队列并关闭快照库...")
	if err := st.Close(); err != nil {
		logger.Error("关闭快照库失败", zap.Error(err))
	}
	logger.Info("系统已退出")
}
