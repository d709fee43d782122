package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPPort string `envconfig:"APP_PORT" default:"8080"`
	LogFile  string `envconfig:"LOG_FILE" default:"fraud-detector.log"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Store    StoreConfig
	DB       DBConfig
	Rules    RulesConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	NSQ      NSQConfig
	Mongo    MongoConfig
	Observer ObserverConfig
	Pipeline PipelineConfig
}

type StoreConfig struct {
	Driver     string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"fraud_detection.db"`
}

type DBConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"     default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT"     default:"5432"`
	User     string `envconfig:"POSTGRES_USER"     default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DB"       default:"fraud_detection"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE"  default:"disable"`
}

// RulesConfig holds every tunable of the rule evaluators and the scorer.
// It is built once at startup and shared read-only by pointer.
type RulesConfig struct {
	RiskScoreThreshold       int             `envconfig:"RISK_SCORE_THRESHOLD" default:"20"`
	VelocityWindowMinutes    int             `envconfig:"VELOCITY_WINDOW_MINUTES" default:"10"`
	VelocityMaxTransactions  int             `envconfig:"VELOCITY_MAX_TRANSACTIONS" default:"3"`
	DeclineWindowHours       int             `envconfig:"DECLINE_WINDOW_HOURS" default:"1"`
	DeclineMinCount          int             `envconfig:"DECLINE_MIN_COUNT" default:"3"`
	HighValueThreshold       decimal.Decimal `envconfig:"HIGH_VALUE_THRESHOLD" default:"1000.0"`
	UnusualQuantityThreshold int             `envconfig:"UNUSUAL_QUANTITY_THRESHOLD" default:"5"`
}

// KafkaConfig covers both directions: alerts are produced to Topic and, when
// IngestEnabled, raw transactions are consumed from IngestTopic.
type KafkaConfig struct {
	Brokers       []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic         string   `envconfig:"KAFKA_TOPIC" default:"fraud-alerts"`
	Enabled       bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	IngestTopic   string   `envconfig:"KAFKA_INGEST_TOPIC" default:"transactions"`
	GroupID       string   `envconfig:"KAFKA_GROUP_ID" default:"fraud-detector"`
	IngestEnabled bool     `envconfig:"KAFKA_INGEST_ENABLED" default:"false"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Channel  string `envconfig:"REDIS_CHANNEL" default:"fraud-alerts"`
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
}

type NSQConfig struct {
	Addr    string `envconfig:"NSQ_ADDR" default:"localhost:4150"`
	Topic   string `envconfig:"NSQ_TOPIC" default:"fraud-alerts"`
	Enabled bool   `envconfig:"NSQ_ENABLED" default:"false"`
}

// MongoConfig points the alert archive at a MongoDB collection.
type MongoConfig struct {
	URI        string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database   string        `envconfig:"MONGO_DATABASE" default:"fraud_detection"`
	Collection string        `envconfig:"MONGO_COLLECTION" default:"fraud_alerts"`
	Timeout    time.Duration `envconfig:"MONGO_TIMEOUT" default:"5s"`
	Enabled    bool          `envconfig:"MONGO_ENABLED" default:"false"`
}

type ObserverConfig struct {
	JWTSecret   string        `envconfig:"OBSERVER_JWT_SECRET"`
	SendTimeout time.Duration `envconfig:"OBSERVER_SEND_TIMEOUT" default:"5s"`
	QueueSize   int           `envconfig:"OBSERVER_QUEUE_SIZE" default:"256"`
}

type PipelineConfig struct {
	DataFile string        `envconfig:"PIPELINE_DATA_FILE" default:"data/transactions.json"`
	Delay    time.Duration `envconfig:"PIPELINE_DELAY" default:"0s"`
}

func NewConfig() (*Config, error) {
	envFile := "config.env"

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: could not load %s, falling back to process environment: %v", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Observer.QueueSize <= 0 {
		return errors.New("OBSERVER_QUEUE_SIZE must be positive")
	}
	return c.Rules.Validate()
}

func (r *RulesConfig) Validate() error {
	switch {
	case r.RiskScoreThreshold < 0 || r.RiskScoreThreshold > 100:
		return errors.New("RISK_SCORE_THRESHOLD must be within [0, 100]")
	case r.VelocityWindowMinutes < 0:
		return errors.New("VELOCITY_WINDOW_MINUTES must not be negative")
	case r.VelocityMaxTransactions < 0:
		return errors.New("VELOCITY_MAX_TRANSACTIONS must not be negative")
	case r.DeclineWindowHours < 0:
		return errors.New("DECLINE_WINDOW_HOURS must not be negative")
	case r.DeclineMinCount < 0:
		return errors.New("DECLINE_MIN_COUNT must not be negative")
	case r.HighValueThreshold.IsNegative():
		return errors.New("HIGH_VALUE_THRESHOLD must not be negative")
	case r.UnusualQuantityThreshold < 0:
		return errors.New("UNUSUAL_QUANTITY_THRESHOLD must not be negative")
	}
	return nil
}

func (r *RulesConfig) VelocityWindow() time.Duration {
	return time.Duration(r.VelocityWindowMinutes) * time.Minute
}

func (r *RulesConfig) DeclineWindow() time.Duration {
	return time.Duration(r.DeclineWindowHours) * time.Hour
}

// DefaultRulesConfig mirrors the envconfig defaults for callers that do not
// load the environment, such as tests and library users.
func DefaultRulesConfig() *RulesConfig {
	return &RulesConfig{
		RiskScoreThreshold:       20,
		VelocityWindowMinutes:    10,
		VelocityMaxTransactions:  3,
		DeclineWindowHours:       1,
		DeclineMinCount:          3,
		HighValueThreshold:       decimal.NewFromInt(1000),
		UnusualQuantityThreshold: 5,
	}
}

func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func (d *DBConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// SQLiteDSN enables WAL so readers never block on the pipeline writer.
func (s *StoreConfig) SQLiteDSN() string {
	return SQLiteDSN(s.SQLitePath)
}

func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", path)
}

func (s *StoreConfig) SQLiteMigrationURL() string {
	return SQLiteMigrationURL(s.SQLitePath)
}

func SQLiteMigrationURL(path string) string {
	return "sqlite3://" + path + "?_journal_mode=WAL&_foreign_keys=on"
}
