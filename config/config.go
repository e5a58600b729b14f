package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	CORSOrigins       string `mapstructure:"CORS_ORIGINS"` // comma separated

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Platform adapters.
	AdapterTimeout         time.Duration `mapstructure:"ADAPTER_TIMEOUT"`
	DispatchTimeout        time.Duration `mapstructure:"DISPATCH_TIMEOUT"`
	PlatformRequestsPerMin int           `mapstructure:"PLATFORM_REQUESTS_PER_MIN"`
	FrancisByrneUsername   string        `mapstructure:"FRANCIS_BYRNE_USERNAME"`
	FrancisByrnePassword   string        `mapstructure:"FRANCIS_BYRNE_PASSWORD"`

	// Polling.
	FallbackPolicy    string        `mapstructure:"FALLBACK_POLICY"` // synthetic | none
	RecheckBeforeBook bool          `mapstructure:"RECHECK_BEFORE_BOOK"`
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	CheckLeaseTTL     time.Duration `mapstructure:"CHECK_LEASE_TTL"`
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "teemarker")
	v.SetDefault("ADAPTER_TIMEOUT", "15s")
	v.SetDefault("DISPATCH_TIMEOUT", "30s")
	v.SetDefault("PLATFORM_REQUESTS_PER_MIN", 60)
	v.SetDefault("FRANCIS_BYRNE_USERNAME", "")
	v.SetDefault("FRANCIS_BYRNE_PASSWORD", "")
	v.SetDefault("FALLBACK_POLICY", "synthetic")
	v.SetDefault("RECHECK_BEFORE_BOOK", true)
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("CHECK_LEASE_TTL", "5m")
	v.SetDefault("WORKER_CONCURRENCY", 10)
}

// Load reads config.yaml (if any) and the environment into a Config.
func Load(v *viper.Viper) (Config, error) {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig() {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// AllowedOrigins splits CORS_ORIGINS.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
