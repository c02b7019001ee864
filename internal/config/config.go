package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Mpesa    MpesaConfig
	SMS      SMSConfig
	Mail     MailConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	MockMode bool
}

type RedisConfig struct {
	Addr     string
	Password string
}

// MpesaConfig carries the gateway credentials and endpoints. BaseURL points at
// the provider environment (sandbox or production); the client derives the
// oauth, stkpush and reversal paths from it.
type MpesaConfig struct {
	ConsumerKey        string
	ConsumerSecret     string
	Shortcode          string
	Passkey            string
	CallbackURL        string
	SecurityCredential string
	InitiatorName      string
	BaseURL            string
	Timeout            time.Duration
}

type SMSConfig struct {
	AccountID string
	Token     string
	Sender    string
	BaseURL   string
	// ForwardTo receives a copy of every confirmation SMS when set.
	ForwardTo string
}

type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", ":8085"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USER", "root"),
			Password:     getEnv("DB_PASS", "password"),
			Database:     getEnv("DB_NAME", "bahari_bites"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID:  getEnv("KAFKA_GROUP_ID", "bahari-bites"),
			MockMode: getBool("KAFKA_MOCK_MODE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Mpesa: MpesaConfig{
			ConsumerKey:        getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret:     getEnv("MPESA_CONSUMER_SECRET", ""),
			Shortcode:          getEnv("MPESA_SHORTCODE", ""),
			Passkey:            getEnv("MPESA_PASSKEY", ""),
			CallbackURL:        getEnv("MPESA_CALLBACK_URL", ""),
			SecurityCredential: getEnv("MPESA_SECURITY_CREDENTIAL", ""),
			InitiatorName:      getEnv("MPESA_INITIATOR_NAME", "testapi"),
			BaseURL:            getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			Timeout:            getDuration("MPESA_TIMEOUT", 30*time.Second),
		},
		SMS: SMSConfig{
			AccountID: getEnv("SMS_ACCOUNT_ID", ""),
			Token:     getEnv("SMS_TOKEN", ""),
			Sender:    getEnv("SMS_SENDER", ""),
			BaseURL:   getEnv("SMS_BASE_URL", "https://api.twilio.com"),
			ForwardTo: getEnv("SMS_FORWARD_TO", ""),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_HOST", "smtp.gmail.com"),
			Port:     getEnv("MAIL_PORT", "587"),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getDuration("JWT_TTL", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
