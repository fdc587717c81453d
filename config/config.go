package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 会话存储配置
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	PoolSize  int           `mapstructure:"pool_size"`  // 最大连接数
	OpTimeout time.Duration `mapstructure:"op_timeout"` // 单次往返超时
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// SessionConfig 会话生命周期配置
type SessionConfig struct {
	TTL               time.Duration `mapstructure:"ttl"`
	IPPinning         bool          `mapstructure:"ip_pinning"` // 移动网络/代理下会误伤正常用户，默认关闭
	CreateMaxAttempts int           `mapstructure:"create_max_attempts"`
	CreateBackoff     time.Duration `mapstructure:"create_backoff"` // 指数退避初始间隔
	Cookie            CookieConfig  `mapstructure:"cookie"`
}

// CookieConfig Cookie 安全配置
type CookieConfig struct {
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
	Domain   string `mapstructure:"domain"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	BcryptCost int             `mapstructure:"bcrypt_cost"`
	Password   PasswordPolicy  `mapstructure:"password"`
	Federated  FederatedConfig `mapstructure:"federated"`
}

// PasswordPolicy 密码复杂度开关
type PasswordPolicy struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireLetter  bool `mapstructure:"require_letter"`
	RequireDigit   bool `mapstructure:"require_digit"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// FederatedConfig 第三方身份提供方 ID Token 校验配置
// HMACSecret 与 PublicKeyPEM 二选一；均为空时联合登录关闭
type FederatedConfig struct {
	Issuer       string `mapstructure:"issuer"`
	Audience     string `mapstructure:"audience"`
	HMACSecret   string `mapstructure:"hmac_secret"`
	PublicKeyPEM string `mapstructure:"public_key_pem"`
}

// Enabled 是否配置了联合登录
func (c *FederatedConfig) Enabled() bool {
	return c.HMACSecret != "" || c.PublicKeyPEM != ""
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
	Output string `mapstructure:"output"` // stdout | stderr | 文件路径
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "easyshifts")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.op_timeout", "3s")
	v.SetDefault("redis.key_prefix", "easyshifts:")

	v.SetDefault("session.ttl", "8h")
	v.SetDefault("session.ip_pinning", false)
	v.SetDefault("session.create_max_attempts", 3)
	v.SetDefault("session.create_backoff", "100ms")
	v.SetDefault("session.cookie.secure", false)
	v.SetDefault("session.cookie.same_site", "Lax")

	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.password.min_length", 8)
	v.SetDefault("auth.password.require_letter", true)
	v.SetDefault("auth.password.require_digit", true)
	v.SetDefault("auth.password.require_upper", false)
	v.SetDefault("auth.password.require_special", false)

	v.SetDefault("rate_limit.login_per_minute", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("EASYSHIFTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("配置校验失败: session.ttl 必须大于 0")
	}
	if c.Session.CreateMaxAttempts < 1 {
		return fmt.Errorf("配置校验失败: session.create_max_attempts 不能小于 1")
	}
	if c.Redis.OpTimeout <= 0 {
		return fmt.Errorf("配置校验失败: redis.op_timeout 必须大于 0")
	}
	if c.Auth.Password.MinLength < 1 {
		return fmt.Errorf("配置校验失败: auth.password.min_length 不能小于 1")
	}
	return nil
}
