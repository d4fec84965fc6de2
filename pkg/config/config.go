package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	S3         S3Config
	Dynamo     DynamoConfig
	CloudWatch CloudWatchConfig
	Grid       GridConfig
	Snapshot   SnapshotConfig
	Refresher  RefresherConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string // postgres | sqlite
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NATSConfig struct {
	Enabled         bool
	URL             string
	IngestSubject   string
	UpdatesSubject  string
	SubscribeIngest bool
	JetStream       bool
	QueueGroup      string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type DynamoConfig struct {
	Enabled               bool
	TableSnapshotMetadata string
	Region                string
	Endpoint              string
	AccessKeyID           string
	SecretAccessKey       string
	StrongReads           bool
}

type CloudWatchConfig struct {
	MetricsEnabled           bool
	LogsEnabled              bool
	Region                   string
	Endpoint                 string
	AccessKeyID              string
	SecretAccessKey          string
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32
	LogGroupName             string
	LogStreamName            string
	LogsBufferSize           int
	LogsFlushInterval        time.Duration
}

type GridConfig struct {
	CanonicalRows []string
	HistoryLimit  int
	MaxLimit      int
	TimeLayout    string
}

type SnapshotConfig struct {
	MetadataTTLDays      int
	MetadataWriteStrict  bool
	MetadataFallbackToS3 bool
	RateLimitPerMinute   int
	MaxIngestBytes       int64
}

type RefresherConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
	Scopes   []string // project/stage/service
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	IngestToken    string // пустой - запись разрешена AuthToken
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	historyLimit, err := strconv.Atoi(getEnv("GRID_HISTORY_LIMIT", "50"))
	if err != nil || historyLimit <= 0 {
		return nil, fmt.Errorf("invalid GRID_HISTORY_LIMIT: %w", errOrPositive(err))
	}

	maxLimit, err := strconv.Atoi(getEnv("GRID_MAX_LIMIT", "500"))
	if err != nil || maxLimit < historyLimit {
		return nil, fmt.Errorf("invalid GRID_MAX_LIMIT: %w", errOrPositive(err))
	}

	metadataTTLDays, err := strconv.Atoi(getEnv("SNAPSHOT_METADATA_TTL_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_METADATA_TTL_DAYS: %w", err)
	}

	rateLimitPerMinute, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	maxIngestKB, err := strconv.Atoi(getEnv("INGEST_MAX_PAYLOAD_KB", "512"))
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_MAX_PAYLOAD_KB: %w", err)
	}

	refreshInterval, err := parseDuration(getEnv("REFRESHER_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESHER_INTERVAL: %w", err)
	}

	refreshTimeout, err := parseDuration(getEnv("REFRESHER_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESHER_TIMEOUT: %w", err)
	}

	metricsFlush, err := parseDuration(getEnv("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_FLUSH_INTERVAL: %w", err)
	}

	logsFlush, err := parseDuration(getEnv("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_FLUSH_INTERVAL: %w", err)
	}

	resolution, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_STORAGE_RESOLUTION: %w", err)
	}

	awsRegion := getEnv("AWS_REGION", "us-east-1")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "evaluations"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "evaluations.db"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			TTL:          redisTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			Enabled:         getEnvBool("NATS_ENABLED", false),
			URL:             getEnv("NATS_URL", "nats://localhost:4222"),
			IngestSubject:   getEnv("NATS_INGEST_SUBJECT", "sh.keptn.event.evaluation.finished"),
			UpdatesSubject:  getEnv("NATS_UPDATES_SUBJECT", "evaluations.grid.updated"),
			SubscribeIngest: getEnvBool("NATS_SUBSCRIBE_INGEST", true),
			JetStream:       getEnvBool("NATS_JETSTREAM", false),
			QueueGroup:      getEnv("NATS_QUEUE_GROUP", "evaluation-dashboard"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", awsRegion),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "heatmaps"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    presignedTTL,
		},
		Dynamo: DynamoConfig{
			Enabled:               getEnvBool("DYNAMO_ENABLED", false),
			TableSnapshotMetadata: getEnv("DYNAMO_TABLE_SNAPSHOT_METADATA", "heatmap_snapshots"),
			Region:                getEnv("DYNAMO_REGION", awsRegion),
			Endpoint:              getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:           getEnv("DYNAMO_ACCESS_KEY_ID", ""),
			SecretAccessKey:       getEnv("DYNAMO_SECRET_ACCESS_KEY", ""),
			StrongReads:           getEnvBool("DYNAMO_STRONG_READS", false),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:              getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:                   getEnv("CLOUDWATCH_REGION", awsRegion),
			Endpoint:                 getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:              getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "EvaluationDashboard/Evaluations"),
			MetricsDimensions:        parseKeyValues(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "")),
			MetricsBufferSize:        100,
			MetricsFlushInterval:     metricsFlush,
			MetricsStorageResolution: int32(resolution),
			LogGroupName:             getEnv("CLOUDWATCH_LOG_GROUP", "/evaluation-dashboard/app"),
			LogStreamName:            getEnv("CLOUDWATCH_LOG_STREAM", hostnameOr("evaluation-dashboard")),
			LogsBufferSize:           100,
			LogsFlushInterval:        logsFlush,
		},
		Grid: GridConfig{
			CanonicalRows: splitCSVKeepSpaces(getEnv("GRID_CANONICAL_ROWS", "score,response time p95")),
			HistoryLimit:  historyLimit,
			MaxLimit:      maxLimit,
			TimeLayout:    getEnv("GRID_TIME_LAYOUT", time.RFC3339),
		},
		Snapshot: SnapshotConfig{
			MetadataTTLDays:      metadataTTLDays,
			MetadataWriteStrict:  getEnvBool("SNAPSHOT_METADATA_WRITE_STRICT", false),
			MetadataFallbackToS3: getEnvBool("SNAPSHOT_METADATA_FALLBACK_TO_S3", true),
			RateLimitPerMinute:   rateLimitPerMinute,
			MaxIngestBytes:       int64(maxIngestKB) * 1024,
		},
		Refresher: RefresherConfig{
			Enabled:  getEnvBool("REFRESHER_ENABLED", true),
			Interval: refreshInterval,
			Timeout:  refreshTimeout,
			Scopes:   splitCSV(getEnv("REFRESHER_SCOPES", "")),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			IngestToken:    getEnv("AUTH_INGEST_TOKEN", ""),
		},
	}

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("invalid DB_DRIVER: %q", cfg.Database.Driver)
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	if cfg.Security.IngestToken != "" && cfg.Security.IngestToken == cfg.Security.AuthToken {
		return nil, fmt.Errorf("AUTH_INGEST_TOKEN must differ from AUTH_BEARER_TOKEN")
	}

	if cfg.Refresher.Enabled && cfg.Refresher.Interval <= 0 {
		return nil, fmt.Errorf("invalid REFRESHER_INTERVAL: must be positive")
	}

	return cfg, nil
}

// DSN возвращает строку подключения для выбранного драйвера
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

// splitCSVKeepSpaces разбивает список, сохраняя пробелы внутри элементов ("response time p95")
func splitCSVKeepSpaces(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// parseKeyValues разбирает "k1=v1,k2=v2"
func parseKeyValues(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range splitCSVKeepSpaces(raw) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

func hostnameOr(fallback string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fallback
}

func errOrPositive(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("must be positive")
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
