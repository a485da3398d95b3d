package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	AppEnv   string
	LogDir   string
	LogLevel string

	StoreDriver string // memory, sqlite or postgres
	DBPath      string
	PostgresDSN string

	ZonesFile string

	CaptureSource string // udp or device
	CamerasPort   int
	CameraDevice  string
	CameraNames   map[string]string // camera IP -> display name

	Detector      string // gocv or http
	ModelPath     string
	ConfigPath    string
	InferenceURL  string
	MinConfidence float64

	ProcessingInterval int     // Process every Nth frame (1 = every frame)
	MaxFPS             float64 // 0 disables pacing
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	return &Config{
		Port:     getEnvAsInt("PORT", 5000),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogDir:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", filepath.Join(".", "data", "detections.db")),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		ZonesFile: getEnv("ZONES_FILE", filepath.Join(".", "data", "zones.json")),

		CaptureSource: strings.ToLower(getEnv("CAPTURE_SOURCE", "udp")),
		CamerasPort:   getEnvAsInt("CAMERAS_PORT", 5005),
		CameraDevice:  getEnv("CAMERA_DEVICE", "0"),
		CameraNames:   getEnvAsMap("CAMERA_NAMES"),

		Detector:      strings.ToLower(getEnv("DETECTOR", "gocv")),
		ModelPath:     getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:    getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		InferenceURL:  getEnv("INFERENCE_URL", "http://localhost:8000/predict"),
		MinConfidence: getEnvAsFloat("MIN_CONFIDENCE", 0),

		ProcessingInterval: getEnvAsInt("PROCESSING_INTERVAL", 1),
		MaxFPS:             getEnvAsFloat("MAX_FPS", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsMap parses "k1=v1,k2=v2".
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
