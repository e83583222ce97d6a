package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Engine      EngineConfig
	Sources     SourcesConfig
	Cache       CacheConfig
	Geolocation GeolocationConfig
	Kafka       KafkaConfig
	Watch       WatchConfig
	DB          DatabaseConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	RateLimitRPS    float64
	ShutdownTimeout time.Duration
}

type EngineConfig struct {
	Buffer              float64 // degrees
	QuakeRadius         float64 // degrees
	CircleSegments      int
	CoverageThreshold   float64
	SimplifyTolerance   float64
	MatchWorkers        int
	FallbackEnabled     bool
	FallbackConcurrency int
	FallbackInterval    time.Duration
	MinSeverity         string
	ExcludeLowPriority  bool
	RunTimeout          time.Duration
}

type SourcesConfig struct {
	UserAgent string

	IEMEnabled bool
	IEMURL     string
	IEMTimeout time.Duration

	NWSEnabled bool
	NWSURL     string
	NWSTimeout time.Duration

	NWSPointURL     string
	NWSPointTimeout time.Duration

	OutageEnabled bool
	OutageURL     string
	OutageTimeout time.Duration

	// optional second outage feed, merged with the first
	SecondaryOutageURL string

	USGSEnabled bool
	USGSURL     string
	USGSTimeout time.Duration

	WildfireEnabled bool
	WildfireURL     string
	WildfireTimeout time.Duration
}

type CacheConfig struct {
	WeatherTTL    time.Duration
	OutageTTL     time.Duration
	EarthquakeTTL time.Duration
	WildfireTTL   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type GeolocationConfig struct {
	IPAPIURL    string
	BatchSize   int
	BatchPacing time.Duration
	Timeout     time.Duration
	MaxMindPath string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// WatchConfig drives periodic re-assessment of a fixed point list.
type WatchConfig struct {
	IDs      []string
	Interval time.Duration
}

type DatabaseConfig struct {
	Path      string
	Retention time.Duration // zero keeps every run
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 5),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			Buffer:              getEnvFloat("ENGINE_BUFFER_DEGREES", 0.001),
			QuakeRadius:         getEnvFloat("ENGINE_QUAKE_RADIUS_DEGREES", 0.5),
			CircleSegments:      getEnvInt("ENGINE_CIRCLE_SEGMENTS", 64),
			CoverageThreshold:   getEnvFloat("ENGINE_COVERAGE_THRESHOLD", 0.10),
			SimplifyTolerance:   getEnvFloat("ENGINE_SIMPLIFY_TOLERANCE", 0),
			MatchWorkers:        getEnvInt("ENGINE_MATCH_WORKERS", 4),
			FallbackEnabled:     getEnvBool("ENGINE_FALLBACK_ENABLED", true),
			FallbackConcurrency: getEnvInt("ENGINE_FALLBACK_CONCURRENCY", 2),
			FallbackInterval:    getEnvDuration("ENGINE_FALLBACK_INTERVAL", 200*time.Millisecond),
			MinSeverity:         getEnv("ENGINE_MIN_SEVERITY", "all"),
			ExcludeLowPriority:  getEnvBool("ENGINE_EXCLUDE_LOW_PRIORITY", false),
			RunTimeout:          getEnvDuration("ENGINE_RUN_TIMEOUT", 2*time.Minute),
		},
		Sources: SourcesConfig{
			UserAgent:          getEnv("SOURCES_USER_AGENT", "(geospatial-impact-monitor, contact@example.com)"),
			IEMEnabled:         getEnvBool("IEM_ENABLED", true),
			IEMURL:             getEnv("IEM_URL", "https://mesonet.agron.iastate.edu/geojson/current_ww.geojson"),
			IEMTimeout:         getEnvDuration("IEM_TIMEOUT", 8*time.Second),
			NWSEnabled:         getEnvBool("NWS_ENABLED", true),
			NWSURL:             getEnv("NWS_URL", "https://api.weather.gov/alerts/active?status=actual&message_type=alert"),
			NWSTimeout:         getEnvDuration("NWS_TIMEOUT", 15*time.Second),
			NWSPointURL:        getEnv("NWS_POINT_URL", "https://api.weather.gov/alerts/active"),
			NWSPointTimeout:    getEnvDuration("NWS_POINT_TIMEOUT", 8*time.Second),
			OutageEnabled:      getEnvBool("OUTAGE_ENABLED", true),
			OutageURL:          getEnv("OUTAGE_URL", "https://services1.arcgis.com/0MSEUqKaxRlEPj5g/arcgis/rest/services/Power_Outages_County_Level/FeatureServer/0/query"),
			OutageTimeout:      getEnvDuration("OUTAGE_TIMEOUT", 8*time.Second),
			SecondaryOutageURL: getEnv("SECONDARY_OUTAGE_URL", ""),
			USGSEnabled:        getEnvBool("USGS_ENABLED", true),
			USGSURL:            getEnv("USGS_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/4.5_day.geojson"),
			USGSTimeout:        getEnvDuration("USGS_TIMEOUT", 15*time.Second),
			WildfireEnabled:    getEnvBool("WILDFIRE_ENABLED", false),
			WildfireURL:        getEnv("WILDFIRE_URL", "https://services3.arcgis.com/T4QMspbfLg3qTGWY/arcgis/rest/services/WFIGS_Interagency_Perimeters_Current/FeatureServer/0/query"),
			WildfireTimeout:    getEnvDuration("WILDFIRE_TIMEOUT", 15*time.Second),
		},
		Cache: CacheConfig{
			WeatherTTL:    getEnvDuration("CACHE_WEATHER_TTL", 2*time.Minute),
			OutageTTL:     getEnvDuration("CACHE_OUTAGE_TTL", 10*time.Minute),
			EarthquakeTTL: getEnvDuration("CACHE_EARTHQUAKE_TTL", 5*time.Minute),
			WildfireTTL:   getEnvDuration("CACHE_WILDFIRE_TTL", 15*time.Minute),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Geolocation: GeolocationConfig{
			IPAPIURL:    getEnv("IPAPI_URL", "http://ip-api.com/batch"),
			BatchSize:   getEnvInt("IPAPI_BATCH_SIZE", 100),
			BatchPacing: getEnvDuration("IPAPI_BATCH_PACING", 500*time.Millisecond),
			Timeout:     getEnvDuration("IPAPI_TIMEOUT", 10*time.Second),
			MaxMindPath: getEnv("MAXMIND_DB_PATH", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "impact-records"),
		},
		Watch: WatchConfig{
			IDs:      getEnvList("WATCH_IDS", nil),
			Interval: getEnvDuration("WATCH_INTERVAL", 10*time.Minute),
		},
		DB: DatabaseConfig{
			Path:      getEnv("DB_PATH", "./data/impact-monitor.db"),
			Retention: getEnvDuration("RUN_RETENTION", 30*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("invalid rate limit: %v", c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Engine.Buffer < 0 {
		return fmt.Errorf("invalid buffer: %v", c.Engine.Buffer)
	}
	if c.Engine.QuakeRadius <= 0 {
		return fmt.Errorf("invalid quake radius: %v", c.Engine.QuakeRadius)
	}
	if c.Engine.CircleSegments < 8 {
		return fmt.Errorf("circle segments must be at least 8")
	}
	if c.Engine.CoverageThreshold <= 0 || c.Engine.CoverageThreshold > 1 {
		return fmt.Errorf("invalid coverage threshold: %v", c.Engine.CoverageThreshold)
	}
	if c.Engine.SimplifyTolerance < 0 || (c.Engine.SimplifyTolerance > 0 && c.Engine.SimplifyTolerance >= c.Engine.Buffer) {
		return fmt.Errorf("simplify tolerance must be below the buffer")
	}
	if c.Engine.MatchWorkers < 1 || c.Engine.FallbackConcurrency < 1 {
		return fmt.Errorf("worker counts must be positive")
	}

	if c.Geolocation.BatchSize < 1 || c.Geolocation.BatchSize > 100 {
		return fmt.Errorf("invalid geolocation batch size: %d", c.Geolocation.BatchSize)
	}

	if c.DB.Retention < 0 {
		return fmt.Errorf("invalid run retention: %v", c.DB.Retention)
	}

	if len(c.Watch.IDs) > 0 && c.Watch.Interval < time.Minute {
		return fmt.Errorf("watch interval must be at least 1 minute")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
