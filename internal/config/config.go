package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	ticketstore "github.com/zhouzirui/z-support/backend/internal/store/ticket"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Admin  AdminConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Store: store, Admin: loadAdminConfig()}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	IdempotencyTTL time.Duration
}

// loadServerConfig 解析服务器监听地址与跨域、幂等设置。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	ttl, err := parseDurationEnv("IDEMPOTENCY_TTL", 10*time.Minute)
	if err != nil {
		return ServerConfig{}, err
	}
	// ttlcache 把 0 当作永不过期
	if ttl == 0 {
		return ServerConfig{}, fmt.Errorf("invalid IDEMPOTENCY_TTL value %q: must be positive", os.Getenv("IDEMPOTENCY_TTL"))
	}

	cfg := ServerConfig{
		AllowedOrigins: parseListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		IdempotencyTTL: ttl,
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// StoreDriver 选择工单文档的持久化后端。
type StoreDriver string

const (
	DriverFile     StoreDriver = "file"
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig 描述工单存储配置。
type StoreConfig struct {
	Driver   StoreDriver
	Path     string
	DSN      string
	Document string
	Strict   bool
}

func loadStoreConfig() (StoreConfig, error) {
	driver := StoreDriver(strings.ToLower(getEnvOrDefault("TICKET_STORE_DRIVER", string(DriverFile))))
	switch driver {
	case DriverFile, DriverSQLite, DriverPostgres:
	default:
		return StoreConfig{}, fmt.Errorf("invalid TICKET_STORE_DRIVER value %q", driver)
	}

	strict, err := parseBoolEnv("TICKET_STORE_STRICT", false)
	if err != nil {
		return StoreConfig{}, err
	}

	cfg := StoreConfig{
		Driver:   driver,
		Path:     getEnvOrDefault("TICKET_STORE_PATH", "support_chat.json"),
		DSN:      strings.TrimSpace(os.Getenv("TICKET_STORE_DSN")),
		Document: getEnvOrDefault("TICKET_STORE_DOCUMENT", "support_chat"),
		Strict:   strict,
	}

	// sqlite 未指定 DSN 时沿用文件路径旁的数据库文件
	if cfg.Driver == DriverSQLite && cfg.DSN == "" {
		cfg.DSN = strings.TrimSuffix(cfg.Path, ".json") + ".db"
	}
	if cfg.Driver == DriverPostgres && cfg.DSN == "" {
		return StoreConfig{}, fmt.Errorf("TICKET_STORE_DSN is required for the postgres driver")
	}
	return cfg, nil
}

// OpenStore 根据配置创建工单存储，返回的 Closer 用于释放数据库连接。
func (c StoreConfig) OpenStore(ctx context.Context, opts ...ticketstore.Option) (*ticketstore.Store, io.Closer, error) {
	if c.Strict {
		opts = append(opts, ticketstore.WithStrictLoad())
	}

	switch c.Driver {
	case DriverSQLite, DriverPostgres:
		backend, err := ticketstore.OpenSQLBackend(ctx, ticketstore.Dialect(c.Driver), c.DSN, c.Document)
		if err != nil {
			return nil, nil, err
		}
		return ticketstore.New(backend, opts...), backend, nil
	default:
		return ticketstore.New(ticketstore.NewFileBackend(c.Path), opts...), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// AdminConfig 描述管理员共享口令。
type AdminConfig struct {
	Secret string
}

// Enabled 表示是否配置了管理员口令。
func (c AdminConfig) Enabled() bool {
	return c.Secret != ""
}

func loadAdminConfig() AdminConfig {
	return AdminConfig{Secret: strings.TrimSpace(os.Getenv("ADMIN_SECRET"))}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
