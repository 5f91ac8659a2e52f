package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/jengzang/resilient-routing/internal/risk"
)

var validate = validator.New()

// Config holds the runtime settings of the routing pipeline
type Config struct {
	Environment string `validate:"oneof=development production test"`

	DataDir string `validate:"required"`
	DBPath  string // empty disables persistence

	RiskProfilePath    string // optional YAML overlay of the hazard profiles
	PropagationWorkers int    `validate:"gte=1"`

	RiskPenalty        float64 `validate:"gte=0"`
	RecommendThreshold float64 `validate:"gte=0"`

	MetricsPath string // Prometheus textfile, empty disables export
}

// Load loads environment variables (and a .env file when present) into a Config
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		DataDir:            getEnv("DATA_DIR", "./web/data"),
		DBPath:             getEnv("DB_PATH", "./data/routing.db"),
		RiskProfilePath:    os.Getenv("RISK_PROFILE_PATH"),
		PropagationWorkers: getEnvAsInt("PROPAGATION_WORKERS", runtime.GOMAXPROCS(0)),
		RiskPenalty:        getEnvAsFloat("RISK_PENALTY", 5),
		RecommendThreshold: getEnvAsFloat("RECOMMEND_THRESHOLD", 5),
		MetricsPath:        os.Getenv("METRICS_PATH"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed on '%s' (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Profiles returns the hazard profiles, overlaid with RiskProfilePath when set
func (c *Config) Profiles() (risk.Profiles, error) {
	if c.RiskProfilePath == "" {
		return risk.DefaultProfiles(), nil
	}
	return risk.LoadProfiles(c.RiskProfilePath)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("invalid int for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("invalid float for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}
