package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/rainwatch/rain-monitor/internal/notify"
	"github.com/rainwatch/rain-monitor/internal/rain"
)

// AppConfig is the full environment-driven configuration surface.
type AppConfig struct {
	Port        string
	MongoURI    string
	MongoDB     string
	CORSOrigin  string
	FrontendURL string

	// Web-push credentials.
	VAPID notify.VAPIDConfig

	// Rain detection tuning.
	Thresholds        rain.Thresholds
	Cooldown          time.Duration
	PerDeviceSessions bool

	// In-memory store retention when no database is configured.
	StoreMaxHistory int

	// Store health watchdog probe interval.
	WatchdogInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "4000")
	cfg.MongoURI = os.Getenv("MONGO_URI")
	cfg.MongoDB = getenvDefault("MONGO_DB", "rainwatch")
	cfg.CORSOrigin = getenvDefault("CORS_ORIGIN", "*")
	cfg.FrontendURL = getenvDefault("FRONTEND_URL", "https://rain-frontend.onrender.com")

	cfg.VAPID = notify.VAPIDConfig{
		PublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		PrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		Subject:    getenvDefault("VAPID_SUBJECT", "mailto:admin@rainwatch.local"),
	}

	defaults := rain.DefaultThresholds()
	cfg.Thresholds = rain.Thresholds{
		TempMin:     getenvFloat("RAIN_TEMP_MIN", defaults.TempMin),
		TempMax:     getenvFloat("RAIN_TEMP_MAX", defaults.TempMax),
		HumidityMin: getenvFloat("RAIN_HUMIDITY_MIN", defaults.HumidityMin),
		HumidityMax: getenvFloat("RAIN_HUMIDITY_MAX", defaults.HumidityMax),
	}

	cooldownStr := getenvDefault("RAIN_COOLDOWN", "30m")
	cooldown, err := time.ParseDuration(cooldownStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RAIN_COOLDOWN: %w", err)
	}
	cfg.Cooldown = cooldown

	cfg.PerDeviceSessions = getenvBool("RAIN_PER_DEVICE_SESSIONS", false)
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 10000)

	watchdogStr := getenvDefault("STORE_WATCHDOG_INTERVAL", "30s")
	watchdog, err := time.ParseDuration(watchdogStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_WATCHDOG_INTERVAL: %w", err)
	}
	cfg.WatchdogInterval = watchdog

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
