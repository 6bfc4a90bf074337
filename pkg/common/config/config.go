package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverMySQL  = "mysql"
	DriverMemory = "memory"

	defaultSecret = "dev-secret-change-me-in-production"
)

type ServerConfig struct {
	Address string `json:"address" yaml:"address"`
}

type SecurityConfig struct {
	MaxBodySize    int64    `json:"maxBodySize" yaml:"maxBodySize"` // 单位：字节
	AllowedMethods []string `json:"allowedMethods" yaml:"allowedMethods"`
}

type TimeoutConfig struct {
	RequestTimeout int `json:"requestTimeout" yaml:"requestTimeout"` // 单位：秒
}

type CORSConfig struct {
	AllowOrigins     []string      `json:"allowOrigins" yaml:"allowOrigins"`
	AllowMethods     []string      `json:"allowMethods" yaml:"allowMethods"`
	AllowHeaders     []string      `json:"allowHeaders" yaml:"allowHeaders"`
	ExposeHeaders    []string      `json:"exposeHeaders" yaml:"exposeHeaders"`
	AllowCredentials bool          `json:"allowCredentials" yaml:"allowCredentials"`
	MaxAge           time.Duration `json:"maxAge" yaml:"maxAge"`
}

type JWTAuthConfig struct {
	Secret         string        `json:"secret" yaml:"secret"`
	ExpireDuration time.Duration `json:"expireDuration" yaml:"expireDuration"`
	CookieExpires  time.Duration `json:"cookieExpires" yaml:"cookieExpires"`
	Issuer         string        `json:"issuer" yaml:"issuer"`
	SigningMethod  string        `json:"signingMethod" yaml:"signingMethod"`
	Realm          string        `json:"realm" yaml:"realm"` // JWT领域标识
}

type RateLimitConfig struct {
	Rate     int           `json:"rate" yaml:"rate"` // 每个窗口内允许的请求数
	Interval time.Duration `json:"interval" yaml:"interval"`
}

type MiddlewareConfig struct {
	Security  SecurityConfig  `json:"security" yaml:"security"`
	JWT       JWTAuthConfig   `json:"jwt" yaml:"jwt"`
	Timeout   TimeoutConfig   `json:"timeout" yaml:"timeout"`
	CORS      CORSConfig      `json:"cors" yaml:"cors"`
	RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
}

type DatabaseConfig struct {
	Driver      string `json:"driver" yaml:"driver"` // mysql | memory
	URL         string `json:"url" yaml:"url"`       // 完整 DSN，可包含 <PASSWORD> 占位符
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	DBName      string `json:"dbname" yaml:"dbname"`
	UseUnixSock bool   `json:"useUnixSock" yaml:"useUnixSock"`
	MinPoolSize int    `json:"minPoolSize" yaml:"minPoolSize"`
	MaxPoolSize int    `json:"maxPoolSize" yaml:"maxPoolSize"`
	LogLevel    string `json:"logLevel" yaml:"logLevel"` // GORM日志级别
}

type EmailConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
}

type AuthConfig struct {
	BcryptCost       int           `json:"bcryptCost" yaml:"bcryptCost"`
	ResetTokenExpiry time.Duration `json:"resetTokenExpiry" yaml:"resetTokenExpiry"`
}

type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Database   DatabaseConfig   `json:"database" yaml:"database"`
	Middleware MiddlewareConfig `json:"middleware" yaml:"middleware"`
	Email      EmailConfig      `json:"email" yaml:"email"`
	Auth       AuthConfig       `json:"auth" yaml:"auth"`
	Env        string           `json:"env" yaml:"env"` // 环境标识
}

// Default 返回默认配置的副本
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address: ":3000",
		},
		Database: DatabaseConfig{
			Driver:      DriverMySQL,
			Host:        "localhost",
			Port:        3306,
			Username:    "root",
			Password:    "root",
			DBName:      "natours",
			MinPoolSize: 5,
			MaxPoolSize: 50,
			LogLevel:    "warn",
		},
		Middleware: MiddlewareConfig{
			Security: SecurityConfig{
				MaxBodySize:    10 << 10, // 请求体最大 10kb
				AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			},
			JWT: JWTAuthConfig{
				Secret:         defaultSecret, // 开发环境默认密钥
				ExpireDuration: 90 * 24 * time.Hour,
				CookieExpires:  90 * 24 * time.Hour,
				Issuer:         "tour-booking",
				SigningMethod:  "HS256",
				Realm:          "tour-booking",
			},
			Timeout: TimeoutConfig{
				RequestTimeout: 15,
			},
			CORS: CORSConfig{
				AllowOrigins:     []string{"*"},
				AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With"},
				ExposeHeaders:    []string{"Content-Length"},
				AllowCredentials: false,
				MaxAge:           12 * time.Hour,
			},
			RateLimit: RateLimitConfig{
				Rate:     100,
				Interval: time.Hour,
			},
		},
		Email: EmailConfig{
			Host: "localhost",
			Port: 2525,
			From: "Tour Booking <hello@tour-booking.io>",
		},
		Auth: AuthConfig{
			BcryptCost:       12,
			ResetTokenExpiry: 10 * time.Minute,
		},
		Env: EnvDevelopment,
	}
}

// IsProd 判断当前是否生产环境
func (c *Config) IsProd() bool {
	return c.Env == EnvProduction
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）
func Load() *Config {
	config := Default()

	// 0. config.env 中的变量并入进程环境（不覆盖已存在的变量）
	if err := godotenv.Load(envFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		hlog.Warnf("Failed to load env file: %v", err)
	}

	// 1. 尝试从配置文件加载
	if configPath := getConfigPath(); configPath != "" {
		if err := loadFromFile(&config, configPath); err != nil {
			hlog.Warnf("Failed to load config file: %v", err)
		}
	}

	// 2. 从环境变量覆盖
	loadFromEnv(&config)

	return &config
}

func envFile() string {
	if path := os.Getenv("APP_ENV_FILE"); path != "" {
		return path
	}
	return "config.env"
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 优先使用环境变量指定的配置文件路径
	if path := os.Getenv("APP_CONFIG"); path != "" {
		return path
	}

	// 依次查找可能的配置文件位置
	searchPaths := []string{
		"./config.yaml",
		"./config.json",
		"../config.json",
		"/etc/tour-booking/config.yaml",
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadFromFile 从文件加载配置，按扩展名选择 YAML 或 JSON
func loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

// loadFromEnv 从环境变量加载配置
func loadFromEnv(config *Config) {
	// 服务器配置
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		config.Server.Address = v
	} else if v := os.Getenv("PORT"); v != "" {
		config.Server.Address = ":" + v
	}

	// 环境配置
	if v := os.Getenv("APP_ENV"); v != "" {
		config.Env = strings.ToLower(v)
	} else if v := os.Getenv("NODE_ENV"); v != "" {
		config.Env = strings.ToLower(v)
	}

	// 中间件配置
	if v := os.Getenv("MAX_BODY_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Middleware.Security.MaxBodySize = size
		}
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			config.Middleware.Timeout.RequestTimeout = timeout
		}
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			config.Middleware.RateLimit.Rate = rate
		}
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if window, err := ParseExpiry(v); err == nil {
			config.Middleware.RateLimit.Interval = window
		} else {
			hlog.Warnf("Invalid RATE_LIMIT_WINDOW format: %v", err)
		}
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		config.Middleware.CORS.AllowOrigins = splitEnvList(v)
	}

	/****** JWT 配置 ******/
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Middleware.JWT.Secret = v
	}

	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		if duration, err := ParseExpiry(v); err == nil {
			config.Middleware.JWT.ExpireDuration = duration
		} else {
			hlog.Warnf("Invalid JWT_EXPIRES_IN format: %v", err)
		}
	}

	// 单位：天
	if v := os.Getenv("JWT_COOKIE_EXPIRES_IN"); v != "" {
		if days, err := strconv.ParseFloat(v, 64); err == nil {
			config.Middleware.JWT.CookieExpires = time.Duration(days * float64(24*time.Hour))
		} else {
			hlog.Warnf("Invalid JWT_COOKIE_EXPIRES_IN format: %v", err)
		}
	}

	if v := os.Getenv("JWT_ISSUER"); v != "" {
		config.Middleware.JWT.Issuer = v
	}

	if v := os.Getenv("JWT_ALGORITHM"); v != "" {
		// 清理输入算法字符串中的空格
		algorithm := strings.ToLower(strings.ReplaceAll(v, " ", ""))

		validAlgorithms := map[string]bool{
			"hs256": true,
			"hs384": true,
			"hs512": true,
		}

		if validAlgorithms[algorithm] {
			config.Middleware.JWT.SigningMethod = strings.ToUpper(algorithm)
		} else {
			hlog.Warnf("Unsupported JWT algorithm: %s", v)
		}
	}

	// 数据库配置
	if v := os.Getenv("DB_DRIVER"); v != "" {
		config.Database.Driver = strings.ToLower(v)
	}

	if v := os.Getenv("DATABASE"); v != "" {
		config.Database.URL = v
	}

	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		config.Database.Password = v
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		config.Database.Host = v
	}

	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Database.Port = port
		}
	}

	if v := os.Getenv("DB_USER"); v != "" {
		config.Database.Username = v
	}

	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}

	if v := os.Getenv("DB_NAME"); v != "" {
		config.Database.DBName = v
	}

	if v := os.Getenv("DB_SOCKET"); v != "" {
		config.Database.UseUnixSock = parseBool(v)
	}

	if v := os.Getenv("DB_MIN_POOL"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			config.Database.MinPoolSize = size
		}
	}

	if v := os.Getenv("DB_MAX_POOL"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			config.Database.MaxPoolSize = size
		}
	}

	if v := os.Getenv("DB_LOG_LEVEL"); v != "" {
		config.Database.LogLevel = strings.ToLower(v)
	}

	// 邮件配置
	if v := os.Getenv("EMAIL_HOST"); v != "" {
		config.Email.Host = v
	}

	if v := os.Getenv("EMAIL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Email.Port = port
		}
	}

	if v := os.Getenv("EMAIL_USERNAME"); v != "" {
		config.Email.Username = v
	}

	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		config.Email.Password = v
	}

	if v := os.Getenv("EMAIL_FROM"); v != "" {
		config.Email.From = v
	}

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if cost, err := strconv.Atoi(v); err == nil {
			config.Auth.BcryptCost = cost
		}
	}
}

// ParseExpiry 解析时长：支持 90d 形式的天数、Go duration（24h）和纯秒数
func ParseExpiry(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(v, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", v, err)
		}
		return time.Duration(days * float64(24*time.Hour)), nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// 分割环境变量列表（支持逗号分隔的字符串）
func splitEnvList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// 转换字符串为布尔值
func parseBool(value string) bool {
	value = strings.ToLower(value)
	return value == "true" || value == "1" || value == "yes"
}

// Validate 启动前检查配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Middleware.JWT.Secret == "" {
		return errors.New("jwt secret must not be empty")
	}
	if c.IsProd() && c.Middleware.JWT.Secret == defaultSecret {
		return errors.New("jwt secret must be set in production")
	}
	if c.Middleware.JWT.ExpireDuration <= 0 {
		return errors.New("jwt expiry must be positive")
	}
	return nil
}

// DSN 生成数据库连接串；DATABASE 中的 <PASSWORD> 会被替换为真实密码
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return strings.ReplaceAll(c.Database.URL, "<PASSWORD>", c.Database.Password)
	}

	charsetParam := "charset=utf8mb4&parseTime=True&loc=Local"

	// 自动切换连接方式
	if c.Database.UseUnixSock {
		return fmt.Sprintf("%s:%s@unix(%s)/%s?%s",
			c.Database.Username,
			c.Database.Password,
			c.Database.Host, // 这里host存储的是socket路径
			c.Database.DBName,
			charsetParam)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		charsetParam)
}

// GormLogger 按配置的级别构造 GORM 日志器
func (c *Config) GormLogger() logger.Interface {
	switch c.Database.LogLevel {
	case "silent":
		return logger.Default.LogMode(logger.Silent)
	case "error":
		return logger.Default.LogMode(logger.Error)
	case "info":
		return logger.Default.LogMode(logger.Info)
	default:
		return logger.Default.LogMode(logger.Warn)
	}
}

func (c *Config) InitDB() (*gorm.DB, error) {
	// 保留驱动原始错误，唯一键冲突需要从 MySQLError 中提取冲突值
	db, err := gorm.Open(mysql.Open(c.DSN()), &gorm.Config{
		Logger: c.GormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(c.Database.MinPoolSize)
	sqlDB.SetMaxOpenConns(c.Database.MaxPoolSize)

	return db, nil
}
