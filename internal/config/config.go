package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Detection model
	ModelPath      string
	ModelInputSize int
	PersonClassID  int
	ConfThreshold  float32
	NMSThreshold   float32

	// Image preprocessing
	MaxInputBytes     int
	MaxImageDimension int

	// Counting
	CountTimeout time.Duration

	// Heatmap
	RegionsPath       string
	BaseMapPath       string
	HeatmapOutputPath string
	ImageDir          string
	TierLowMax        int
	TierMediumMax     int

	// NATS (for crowd alerts)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running worker in Docker
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// Alerting via NATS
	AlertsEnabled bool
	AlertsSubject string

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "worker-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Detection model
		ModelPath:      getEnv("MODEL_PATH", "models/yolov8n.onnx"),
		ModelInputSize: getEnvInt("MODEL_INPUT_SIZE", 640),
		PersonClassID:  getEnvInt("PERSON_CLASS_ID", 0), // COCO class 0 is "person"
		ConfThreshold:  getEnvFloat32("CONF_THRESHOLD", 0.25),
		NMSThreshold:   getEnvFloat32("NMS_THRESHOLD", 0.45),

		// Image preprocessing
		MaxInputBytes:     getEnvInt("MAX_INPUT_BYTES", 10*1024*1024), // 10MiB
		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 1280),

		// Counting
		CountTimeout: getEnvDuration("COUNT_TIMEOUT", 30*time.Second),

		// Heatmap
		RegionsPath:       getEnv("REGIONS_PATH", "config/regions.json"),
		BaseMapPath:       getEnv("BASE_MAP_PATH", "map.svg"),
		HeatmapOutputPath: getEnv("HEATMAP_OUTPUT_PATH", "heatmap.svg"),
		ImageDir:          getEnv("IMAGE_DIR", "images"),
		TierLowMax:        getEnvInt("TIER_LOW_MAX", 7),
		TierMediumMax:     getEnvInt("TIER_MEDIUM_MAX", 10),

		// NATS (configured for Docker Compose setup)
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		// Alerting via NATS
		AlertsEnabled: getEnvBool("ALERTS_ENABLED", true),
		AlertsSubject: getEnv("ALERTS_SUBJECT", "alerts.crowd"),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	// Check for Docker-specific environment indicators
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
