package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"

	AuthModeJWT    = "jwt"
	AuthModeStatic = "static"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Websocket WebsocketConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig
	MinIO     MinIOConfig
	LogLevel  string
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver string
	// URL takes precedence over the discrete fields
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
	}
}

type RedisConfig struct {
	// URL empty disables rate limiting and the presence mirror
	URL          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PresenceTTL  time.Duration
}

type AuthConfig struct {
	Mode           string
	JWTSecret      string
	JWTExpiration  time.Duration
	WebsocketToken string
}

type WebsocketConfig struct {
	Path             string
	AdviceInterval   int
	AdviceTimeout    int
	SendBuffer       int
	MaxMessageSize   int64
	PingPeriod       time.Duration
	AllowedOrigins   []string
	HandshakeTimeout time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type KafkaConfig struct {
	// Brokers empty disables the event stream
	Brokers  []string
	Topic    string
	ClientID string
}

type MinIOConfig struct {
	// Endpoint empty disables image uploads
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

func LoadConfig() (*Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetString("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("POSTGRES_HOST"),
			Port:            v.GetString("POSTGRES_PORT"),
			User:            v.GetString("POSTGRES_USER"),
			Password:        v.GetString("POSTGRES_PASSWORD"),
			DBName:          v.GetString("POSTGRES_DB"),
			SSLMode:         v.GetString("POSTGRES_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			PresenceTTL:  v.GetDuration("REDIS_PRESENCE_TTL"),
		},
		Auth: AuthConfig{
			Mode:           strings.ToLower(v.GetString("AUTH_MODE")),
			JWTSecret:      v.GetString("JWT_SECRET"),
			JWTExpiration:  v.GetDuration("JWT_EXPIRATION"),
			WebsocketToken: v.GetString("WEBSOCKET_TOKEN"),
		},
		Websocket: WebsocketConfig{
			Path:             v.GetString("WS_PATH"),
			AdviceInterval:   v.GetInt("WS_ADVICE_INTERVAL"),
			AdviceTimeout:    v.GetInt("WS_ADVICE_TIMEOUT"),
			SendBuffer:       v.GetInt("WS_SEND_BUFFER"),
			MaxMessageSize:   v.GetInt64("WS_MAX_MESSAGE_SIZE"),
			PingPeriod:       v.GetDuration("WS_PING_PERIOD"),
			AllowedOrigins:   splitList(v.GetString("ALLOWED_ORIGINS")),
			HandshakeTimeout: v.GetDuration("WS_HANDSHAKE_TIMEOUT"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(v.GetString("KAFKA_BROKERS")),
			Topic:    v.GetString("KAFKA_TOPIC"),
			ClientID: v.GetString("KAFKA_CLIENT_ID"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			PublicURL: v.GetString("MINIO_PUBLIC_URL"),
		},
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DB", "linkinbio")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_PRESENCE_TTL", 90*time.Second)

	v.SetDefault("AUTH_MODE", AuthModeJWT)
	v.SetDefault("JWT_SECRET", "secret")
	v.SetDefault("JWT_EXPIRATION", 24*time.Hour)
	v.SetDefault("WEBSOCKET_TOKEN", "websocketToken")

	v.SetDefault("WS_PATH", "/updates")
	v.SetDefault("WS_ADVICE_INTERVAL", 0)
	v.SetDefault("WS_ADVICE_TIMEOUT", 45000)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 8192)
	v.SetDefault("WS_PING_PERIOD", 54*time.Second)
	v.SetDefault("WS_HANDSHAKE_TIMEOUT", 10*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "linkinbio.posts")
	v.SetDefault("KAFKA_CLIENT_ID", "linkinbio-service")

	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_BUCKET", "linkinbio-images")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("LOG_LEVEL", "info")
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in jwt auth mode"))
		}
	case AuthModeStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode))
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if c.Websocket.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("WS_HANDSHAKE_TIMEOUT must be positive"))
	}
	if !strings.HasPrefix(c.Websocket.Path, "/") {
		errs = append(errs, fmt.Errorf("WS_PATH %q must start with /", c.Websocket.Path))
	}
	if c.Redis.URL != "" {
		if _, err := url.Parse(c.Redis.URL); err != nil {
			errs = append(errs, fmt.Errorf("invalid REDIS_URL: %w", err))
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.MinIO.Endpoint != "" && c.MinIO.Bucket == "" {
		errs = append(errs, errors.New("MINIO_BUCKET is required when MINIO_ENDPOINT is set"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
