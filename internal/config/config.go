package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host string
	Port int
}

func (s ServerConfig) Addr() string {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MongoConfig 文档数据库配置
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr string
}

// RabbitMQConfig MQ 配置。URL 为空时通知事件走进程内通道
type RabbitMQConfig struct {
	URL string
}

// TelegramConfig Telegram 通知配置
type TelegramConfig struct {
	// BotToken 为空时通知只写日志，不外发
	BotToken string
	// ChatID 可以预先配置；为空时首次发送前通过 getUpdates 解析一次
	ChatID string
}

// PaymentConfig 收款配置
type PaymentConfig struct {
	PayPalEmail string
}

// AdminConfig 后台管理员账号配置
type AdminConfig struct {
	Username string
	Password string
	// TokenCacheTTLSeconds JWT 解析结果缓存时间（秒）
	TokenCacheTTLSeconds int
}

// JWTConfig JWT 配置
type JWTConfig struct {
	Secret string
}

// Config 应用总配置
type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Telegram TelegramConfig
	Payment  PaymentConfig
	Admin    AdminConfig
	JWT      JWTConfig
}

// Load 从环境变量加载配置，未设置的项使用默认值。
// 数据库地址、Telegram Token、收款地址都由部署环境注入。
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8001)
	v.SetDefault("MONGO_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "mchess_db")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("TELEGRAM_CHAT_ID", "")
	v.SetDefault("PAYPAL_EMAIL", "zebdalerat@protonmail.com")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("ADMIN_TOKEN_CACHE_TTL", 600)
	v.SetDefault("JWT_SECRET", "mchess-secret")

	return &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URL"),
			Database: v.GetString("MONGO_DB"),
		},
		Redis: RedisConfig{
			Addr: v.GetString("REDIS_ADDR"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: v.GetString("RABBITMQ_URL"),
		},
		Telegram: TelegramConfig{
			BotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
			ChatID:   v.GetString("TELEGRAM_CHAT_ID"),
		},
		Payment: PaymentConfig{
			PayPalEmail: v.GetString("PAYPAL_EMAIL"),
		},
		Admin: AdminConfig{
			Username:             v.GetString("ADMIN_USERNAME"),
			Password:             v.GetString("ADMIN_PASSWORD"),
			TokenCacheTTLSeconds: v.GetInt("ADMIN_TOKEN_CACHE_TTL"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
	}
}
