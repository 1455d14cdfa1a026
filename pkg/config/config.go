package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Topup   TopupConfig   `mapstructure:"topup"`
	Compute ComputeConfig `mapstructure:"compute"`
	Storage StorageConfig `mapstructure:"storage"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

// StoreConfig 嵌入式快照库配置
type StoreConfig struct {
	Path string `mapstructure:"path"` // 磁盘快照文件路径
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "none", "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// TopupConfig 充值与链上核验配置
type TopupConfig struct {
	TreasuryAddress string            `mapstructure:"treasury_address"` // 收款金库地址
	WebhookSecret   string            `mapstructure:"webhook_secret"`   // 支付回调共享密钥 (通常通过环境变量 TOPUP_WEBHOOK_SECRET 传入)
	ChainRPC        map[string]string `mapstructure:"chain_rpc"`        // chainID -> RPC URL
}

type ComputeConfig struct {
	Mode         string `mapstructure:"mode"` // "openrouter" or "mock"
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`
	AppURL       string `mapstructure:"app_url"`
}

type StorageConfig struct {
	Mode       string `mapstructure:"mode"` // "local" or "gateway"
	Dir        string `mapstructure:"dir"`
	GatewayURL string `mapstructure:"gateway_url"`
}

// DemoConfig 首次启动的演示数据
type DemoConfig struct {
	WalletAddress  string `mapstructure:"wallet_address"`
	InitialCredits string `mapstructure:"initial_credits"`
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath(".")      // optionally look for config in the working directory
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error if desired
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			// Config file was found but another error was produced
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("store.path", "data/ajently.db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "none")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("topup.chain_rpc", map[string]string{
		"1":     "https://ethereum-rpc.publicnode.com",
		"10":    "https://mainnet.optimism.io",
		"137":   "https://polygon-rpc.com",
		"8453":  "https://mainnet.base.org",
		"16601": "https://evmrpc-testnet.0g.ai",
		"16661": "https://evmrpc.0g.ai",
		"42161": "https://arb1.arbitrum.io/rpc",
	})

	viper.SetDefault("compute.mode", "mock")
	viper.SetDefault("compute.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("compute.default_model", "meta-llama/llama-3.2-3b-instruct:free")
	viper.SetDefault("compute.app_url", "http://localhost:8080")

	viper.SetDefault("storage.mode", "local")
	viper.SetDefault("storage.dir", "data/storage")

	viper.SetDefault("demo.wallet_address", "0xDEMO_WALLET_ADDRESS")
	viper.SetDefault("demo.initial_credits", "100")
}
