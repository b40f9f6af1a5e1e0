package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	StoreDriver string // postgres / memory

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	LogLevel string // debug/info/warn/error

	LowStockThreshold int64 // これ未満で在庫少フラグ（5）
	StockRetryLimit   int   // 在庫の条件付き更新のリトライ上限
	OrderRetryLimit   int   // 注文の条件付き更新のリトライ上限

	KafkaBrokers           []string // 空ならKafkaに流さない
	KafkaNotificationTopic string
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	threshold, err := atoiDefault("LOW_STOCK_THRESHOLD", 5)
	if err != nil {
		return Config{}, err
	}
	stockRetry, err := atoiDefault("STOCK_RETRY_LIMIT", 5)
	if err != nil {
		return Config{}, err
	}
	orderRetry, err := atoiDefault("ORDER_RETRY_LIMIT", 5)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres)),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "fulfillment"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		LogLevel: getenv("LOG_LEVEL", "info"),

		LowStockThreshold: int64(threshold),
		StockRetryLimit:   stockRetry,
		OrderRetryLimit:   orderRetry,

		KafkaBrokers:           splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaNotificationTopic: getenv("KAFKA_NOTIFICATION_TOPIC", "fulfillment.notifications"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		return Config{}, fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if cfg.LowStockThreshold < 0 {
		return Config{}, fmt.Errorf("LOW_STOCK_THRESHOLD must be >= 0")
	}
	if cfg.StockRetryLimit < 1 {
		return Config{}, fmt.Errorf("STOCK_RETRY_LIMIT must be >= 1")
	}
	if cfg.OrderRetryLimit < 1 {
		return Config{}, fmt.Errorf("ORDER_RETRY_LIMIT must be >= 1")
	}

	return cfg, nil
}

// Addr は ":8080" 形式のlisten先
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func splitCSV(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
