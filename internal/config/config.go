package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv     string
	ServerPort string
	LogLevel   string

	DBDriver string
	DBDSN    string
	ResetDB  bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret        string
	JWTRefreshSecret string
	JWTIssuer        string
	JWTAudience      string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	UploadsDir     string
	MaxUploadBytes int64

	CORSOrigins []string

	MailTransport string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFromName  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	SwaggerHost string
}

// Load builds Config from environment with sensible defaults. A .env file in the
// working directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		ServerPort: getEnv("SERVER_PORT", "5000"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DBDriver: getEnv("DB_DRIVER", "mysql"),
		DBDSN:    getEnv("DB_DSN", "user:password@tcp(localhost:3306)/spendwise?charset=utf8mb4&parseTime=True&loc=UTC"),
		ResetDB:  getEnvBool("RESET_DB", false),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:        getEnv("JWT_SECRET", "change-me"),
		JWTRefreshSecret: getEnv("REFRESH_TOKEN_SECRET", "change-me-too"),
		JWTIssuer:        getEnv("JWT_ISSUER", "spendwise"),
		JWTAudience:      getEnv("JWT_AUDIENCE", "spendwise-clients"),
		AccessTokenTTL:   getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL:  getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		UploadsDir:     getEnv("UPLOADS_DIR", "./uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:4200"}),

		MailTransport: getEnv("MAIL_TRANSPORT", "log"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		MailFromName:  getEnv("MAIL_FROM_NAME", "SpendWise"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendwise"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate validates the configuration and returns an error listing every problem found.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.ServerPort); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port '%s'", c.ServerPort))
	}

	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("invalid DB_DRIVER '%s': must be one of mysql, postgres, sqlite", c.DBDriver))
	}
	if c.DBDSN == "" {
		problems = append(problems, "DB_DSN cannot be empty")
	}

	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		problems = append(problems, "JWT_SECRET and REFRESH_TOKEN_SECRET must be set")
	} else if c.JWTSecret == c.JWTRefreshSecret {
		problems = append(problems, "JWT_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.IsProduction() && (c.JWTSecret == "change-me" || c.JWTRefreshSecret == "change-me-too") {
		problems = append(problems, "default JWT secrets are not allowed in production")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		problems = append(problems, "token TTLs must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}

	switch c.MailTransport {
	case "log":
	case "smtp":
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			problems = append(problems, "SMTP_USERNAME and SMTP_PASSWORD are required for the smtp mail transport")
		}
	case "queue":
		if c.AMQPURL == "" {
			problems = append(problems, "AMQP_URL is required for the queue mail transport")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid MAIL_TRANSPORT '%s': must be one of log, smtp, queue", c.MailTransport))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			problems = append(problems, "AMQP exchange and queue names cannot be empty")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
