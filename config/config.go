package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         int    `yaml:"port"`
	Host         string `yaml:"host"`
	Mode         string `yaml:"mode"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"`
}

type Logger struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
}

// MySQLConfig 数据库配置
type MySQLConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

// JWTConfig JWT认证配置
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours" mapstructure:"expire_hours"`
}

type Database struct {
	Mysql MySQLConfig `yaml:"mysql"`
	Redis RedisConfig `yaml:"redis"`
}

// MQConfig RabbitMQ配置
type MQConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	ChannelPoolSize int    `yaml:"channel_pool_size" mapstructure:"channel_pool_size"`
	// Consumer prefetch for RabbitMQ
	ConsumerPrefetch int `yaml:"consumer_prefetch" mapstructure:"consumer_prefetch"`
}

// PaymentConfig 支付网关(PortOne)配置
type PaymentConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	APISecret string `yaml:"api_secret" mapstructure:"api_secret"`
	TimeoutMs int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	// 测试/沙箱结算：网关查不到交易时放行订单而不报错
	SandboxLeniency bool `yaml:"sandbox_leniency" mapstructure:"sandbox_leniency"`
}

// Timeout 网关单次调用的超时时间
func (p *PaymentConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// RateLimitRule 单个限流规则
type RateLimitRule struct {
	RPS   int `yaml:"rps" mapstructure:"rps"`     // 每秒请求数
	Burst int `yaml:"burst" mapstructure:"burst"` // 令牌桶容量
}

// RateLimitsConfig 多路由限流配置
type RateLimitsConfig struct {
	Global RateLimitRule `yaml:"global" mapstructure:"global"`
	Order  RateLimitRule `yaml:"order" mapstructure:"order"`
}

// Config 总配置结构体，嵌套所有子配置
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   Database         `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Logger     Logger           `yaml:"log" mapstructure:"log"`
	MQ         MQConfig         `yaml:"mq"`
	Payment    PaymentConfig    `yaml:"payment"`
	RateLimits RateLimitsConfig `yaml:"rate_limits" mapstructure:"rate_limits"`
}

func InitConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败:%v", err)
	}

	var globalConfig Config
	if err := viper.Unmarshal(&globalConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件失败:%v", err)
	}

	applyDefaults(&globalConfig)

	return &globalConfig, nil
}

// LoadConfig 加载配置文件并返回配置对象
// 默认加载config/config.yaml
func LoadConfig() (*Config, error) {
	cfg, err := InitConfig("config/config.yaml")
	if err != nil {
		// 尝试相对上级目录（cmd下启动的场景）
		cfg, err = InitConfig("../../config/config.yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %v", err)
		}
	}

	return cfg, nil
}

// applyDefaults 补充默认配置避免零值导致意外无限制或过度阻塞
func applyDefaults(cfg *Config) {
	if cfg.RateLimits.Global.RPS == 0 {
		cfg.RateLimits.Global.RPS = 1000
	}
	if cfg.RateLimits.Global.Burst == 0 {
		cfg.RateLimits.Global.Burst = 2000
	}
	if cfg.RateLimits.Order.RPS == 0 {
		cfg.RateLimits.Order.RPS = 200
	}
	if cfg.RateLimits.Order.Burst == 0 {
		cfg.RateLimits.Order.Burst = 400
	}
	if cfg.MQ.ChannelPoolSize <= 0 {
		cfg.MQ.ChannelPoolSize = 8
	}
	if cfg.MQ.ConsumerPrefetch <= 0 {
		cfg.MQ.ConsumerPrefetch = 100
	}
	if cfg.Payment.BaseURL == "" {
		cfg.Payment.BaseURL = "https://api.iamport.kr"
	}
	if cfg.Payment.TimeoutMs <= 0 {
		cfg.Payment.TimeoutMs = 3000
	}
}
