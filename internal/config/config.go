package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PlaceholderAPIKey is the value shipped in the sample .env file; it never counts as configured
const PlaceholderAPIKey = "your_openai_api_key_here"

// Config holds all configuration for the fraud analysis service
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Data      DataConfig
	Database  DatabaseConfig
	S3        S3Config
	OpenAI    OpenAIConfig
	Questions QuestionsConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Logging   LoggingConfig
	Security  SecurityConfig
}

// AppConfig holds service identity
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Debug           bool          `mapstructure:"debug"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Data source kinds
const (
	SourceFile     = "file"
	SourceS3       = "s3"
	SourcePostgres = "postgres"
)

// DataConfig selects where the customer risk table is read from
type DataConfig struct {
	Source   string `mapstructure:"source"`    // file, s3, postgres
	FilePath string `mapstructure:"file_path"` // local path or s3://bucket/key
	Sheet    string `mapstructure:"sheet"`     // empty = first sheet
	Table    string `mapstructure:"table"`     // postgres table name
}

// DatabaseConfig holds PostgreSQL configuration for the table source
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// S3Config holds AWS S3 configuration for spreadsheet retrieval
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	Endpoint  string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// OpenAIConfig holds text-generation client settings
type OpenAIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffMin     time.Duration `mapstructure:"backoff_min"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	SummaryTemp    float32       `mapstructure:"summary_temperature"`
	FollowupTemp   float32       `mapstructure:"followup_temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	NarrativeTTL   time.Duration `mapstructure:"narrative_ttl"`
}

// Configured reports whether a usable credential is present
func (c OpenAIConfig) Configured() bool {
	return c.APIKey != "" && c.APIKey != PlaceholderAPIKey
}

// QuestionsConfig controls question selection
type QuestionsConfig struct {
	Seed int64 `mapstructure:"seed"` // 0 = seed from clock
}

// RedisConfig holds Redis configuration for the narrative cache
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig holds Kafka configuration for data refresh notifications
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	RefreshTopic  string   `mapstructure:"refresh_topic"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	OutputPath string `mapstructure:"output_path"`
}

// SecurityConfig holds report signing settings
type SecurityConfig struct {
	ReportHMACSecret string `mapstructure:"report_hmac_secret"` // base64; empty disables signing
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FRAUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if strings.HasPrefix(cfg.Data.FilePath, "s3://") && cfg.Data.Source == SourceFile {
		cfg.Data.Source = SourceS3
	}

	return &cfg, nil
}

// bindLegacyEnv keeps the plain variable names used by existing deployments working
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"openai.api_key": {"FRAUD_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"openai.model":   {"FRAUD_OPENAI_MODEL", "OPENAI_MODEL"},
		"data.file_path": {"FRAUD_DATA_FILE_PATH", "DATA_FILE_PATH"},
		"server.host":    {"FRAUD_SERVER_HOST", "HOST"},
		"server.port":    {"FRAUD_SERVER_PORT", "PORT"},
		"server.debug":   {"FRAUD_SERVER_DEBUG", "DEBUG"},
		"app.name":       {"FRAUD_APP_NAME", "APP_NAME"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "Fraud Banker Chatbot")
	v.SetDefault("app.version", "1.0.0")

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allow_origins", []string{"*"})

	// Data
	v.SetDefault("data.source", SourceFile)
	v.SetDefault("data.file_path", "data/fraud_data.xlsx")
	v.SetDefault("data.sheet", "")
	v.SetDefault("data.table", "customer_risk")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "fraud_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// S3
	v.SetDefault("s3.region", "ap-southeast-2")
	v.SetDefault("s3.bucket", "fraud-risk-extracts")
	v.SetDefault("s3.key", "fraud_data.xlsx")

	// OpenAI
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.request_timeout", "60s")
	v.SetDefault("openai.min_interval", "1s")
	v.SetDefault("openai.max_attempts", 3)
	v.SetDefault("openai.backoff_base", "1s")
	v.SetDefault("openai.backoff_min", "4s")
	v.SetDefault("openai.backoff_max", "10s")
	v.SetDefault("openai.summary_temperature", 0.3)
	v.SetDefault("openai.followup_temperature", 0.4)
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.narrative_ttl", "15m")

	// Questions
	v.SetDefault("questions.seed", 0)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	// Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "fraud-analysis-service")
	v.SetDefault("kafka.refresh_topic", "banking.fraud.risk-extract.updated")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}
