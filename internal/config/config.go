package config

import (
	"fmt"     // DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // CSV splitting
	"time"    // Durations

	"github.com/joho/godotenv" // For loading .env files
	"gopkg.in/yaml.v3"         // Optional YAML config file
)

// Config holds the application configuration
type Config struct {
	AppPort      string        `yaml:"app_port"`      // Application port
	DBDriver     string        `yaml:"db_driver"`     // mysql, postgres or memory
	DBUser       string        `yaml:"db_user"`       // Database user
	DBPassword   string        `yaml:"db_password"`   // Database password
	DBHost       string        `yaml:"db_host"`       // Database host
	DBPort       string        `yaml:"db_port"`       // Database port
	DBName       string        `yaml:"db_name"`       // Database name
	JWTSecret    string        `yaml:"jwt_secret"`    // JWT secret key
	JWTTTL       time.Duration `yaml:"jwt_ttl"`       // Token lifetime
	RedisAddr    string        `yaml:"redis_addr"`    // Redis server address, empty disables caching
	RedisPass    string        `yaml:"redis_pass"`    // Redis password
	RedisDB      int           `yaml:"redis_db"`      // Redis database number
	CacheTTL     time.Duration `yaml:"cache_ttl"`     // Catalog cache lifetime
	KafkaBrokers []string      `yaml:"kafka_brokers"` // Kafka brokers, empty disables order events
	KafkaTopic   string        `yaml:"kafka_topic"`   // Topic for order events
	CORSOrigins  []string      `yaml:"cors_origins"`  // Allowed browser origins
	LogLevel     string        `yaml:"log_level"`     // logrus level name
	IsProd       bool          `yaml:"is_prod"`       // Is production environment
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		AppPort:     "8080",
		DBDriver:    "mysql",
		DBHost:      "localhost",
		DBPort:      "3306",
		DBName:      "petshop",
		JWTTTL:      24 * time.Hour,
		CacheTTL:    60 * time.Second,
		KafkaTopic:  "petshop.orders",
		CORSOrigins: []string{"*"},
		LogLevel:    "info",
	}
}

// LoadConfig loads configuration from defaults, then the YAML file named by CONFIG_FILE
// (if any), then environment variables (a .env file is loaded first if present).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.AppPort, "APP_PORT")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBName, "DB_NAME")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPass, "REDIS_PASS")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")
	setString(&c.LogLevel, "LOG_LEVEL")
	setCSV(&c.KafkaBrokers, "KAFKA_BROKERS")
	setCSV(&c.CORSOrigins, "CORS_ORIGINS")

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.RedisDB = n
	}
	if err := setDuration(&c.JWTTTL, "JWT_TTL"); err != nil {
		return err
	}
	if err := setDuration(&c.CacheTTL, "CACHE_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("IS_PROD"); v != "" {
		c.IsProd = v == "true"
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return nil
}

// DSN builds the driver-specific data source name
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	}
	// clientFoundRows: RowsAffected counts matched rows, so an unchanged save still reports its row
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=true&clientFoundRows=true"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setCSV(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
