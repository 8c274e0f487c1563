package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenCage forward/reverse geocoding.
	OpenCageKey     string
	OpenCageTimeout time.Duration

	// Mapbox forward geocoding.
	MapboxToken   string
	MapboxTimeout time.Duration

	// Provider arbitration.
	HighConfidence   float64
	DegradationRatio float64

	// Result cache.
	CacheSize int
	CacheTTL  time.Duration

	// Service area.
	Bounds         domain.BoundingBox
	Municipalities []string
	ServiceZones   []domain.ServiceZone

	// Fare schedule (amounts in whole pesos, thresholds in km).
	FareBase       int
	FareThreshold1 float64
	FareThreshold2 float64
	FareThreshold3 float64
	FareRate2      float64
	FareRate3      float64
	FareRate4      float64

	// Dispatch event stream.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	openCageTimeout, err := parseDuration("OPENCAGE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	highConfidence, err := parseFloat("HIGH_CONFIDENCE", 8)
	if err != nil {
		return nil, err
	}
	degradationRatio, err := parseFloat("PROVIDER_DEGRADATION_RATIO", 0.85)
	if err != nil {
		return nil, err
	}

	bounds, err := parseBounds()
	if err != nil {
		return nil, err
	}
	zones, err := parseServiceZones()
	if err != nil {
		return nil, err
	}

	fareBase, err := parseInt("FARE_BASE", 50)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OpenCageKey:     os.Getenv("OPENCAGE_KEY"),
		OpenCageTimeout: openCageTimeout,
		MapboxToken:     os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:   mapboxTimeout,

		HighConfidence:   highConfidence,
		DegradationRatio: degradationRatio,

		CacheSize: parseCacheSize(),
		CacheTTL:  cacheTTL,

		Bounds:         bounds,
		Municipalities: splitList(envOrDefault("SERVICE_MUNICIPALITIES", "tepic,xalisco")),
		ServiceZones:   zones,

		FareBase: fareBase,

		KafkaBrokers: splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "dispatch-events"),
	}

	if cfg.FareThreshold1, err = parseFloat("FARE_THRESHOLD_1", 5); err != nil {
		return nil, err
	}
	if cfg.FareThreshold2, err = parseFloat("FARE_THRESHOLD_2", 10); err != nil {
		return nil, err
	}
	if cfg.FareThreshold3, err = parseFloat("FARE_THRESHOLD_3", 15); err != nil {
		return nil, err
	}
	if cfg.FareRate2, err = parseFloat("FARE_RATE_2", 10); err != nil {
		return nil, err
	}
	if cfg.FareRate3, err = parseFloat("FARE_RATE_3", 9); err != nil {
		return nil, err
	}
	if cfg.FareRate4, err = parseFloat("FARE_RATE_4", 8); err != nil {
		return nil, err
	}

	cfg.KafkaEnabled = false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.KafkaEnabled = v == "true"
	}

	if cfg.OpenCageKey == "" {
		return nil, errors.New("OPENCAGE_KEY is required")
	}
	if cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_TOKEN is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.DegradationRatio <= 0 || cfg.DegradationRatio > 1 {
		return nil, errors.New("PROVIDER_DEGRADATION_RATIO must be in (0, 1]")
	}
	if len(cfg.Municipalities) == 0 {
		return nil, errors.New("SERVICE_MUNICIPALITIES is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty elements.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseCacheSize() int {
	if s := os.Getenv("CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// parseBounds reads SERVICE_BOUNDS as "minLat,minLon,maxLat,maxLon",
// defaulting to the greater Tepic extent.
func parseBounds() (domain.BoundingBox, error) {
	parts := splitList(envOrDefault("SERVICE_BOUNDS", "21.35,-105.05,21.65,-104.75"))
	if len(parts) != 4 {
		return domain.BoundingBox{}, errors.New("SERVICE_BOUNDS must be minLat,minLon,maxLat,maxLon")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return domain.BoundingBox{}, errors.New("SERVICE_BOUNDS must be minLat,minLon,maxLat,maxLon")
		}
		vals[i] = f
	}
	b := domain.BoundingBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return domain.BoundingBox{}, errors.New("SERVICE_BOUNDS min must be below max")
	}
	return b, nil
}

// parseServiceZones reads SERVICE_ZONES as a semicolon-separated list of
// "name|lat|lon|radiusKm" entries. The default covers the airport and the
// San Cayetano corridor, both regularly served despite sitting outside the
// allow-listed municipalities.
func parseServiceZones() ([]domain.ServiceZone, error) {
	raw := envOrDefault("SERVICE_ZONES",
		"Aeropuerto Amado Nervo|21.4195|-104.8427|2;San Cayetano|21.4297|-104.8700|1.5")

	var zones []domain.ServiceZone
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) != 4 {
			return nil, fmt.Errorf("invalid SERVICE_ZONES entry %q", entry)
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		radius, err3 := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err1 != nil || err2 != nil || err3 != nil || radius <= 0 {
			return nil, fmt.Errorf("invalid SERVICE_ZONES entry %q", entry)
		}
		zones = append(zones, domain.ServiceZone{
			Name:     strings.TrimSpace(fields[0]),
			Center:   domain.Coordinate{Lat: lat, Lon: lon},
			RadiusKm: radius,
		})
	}
	return zones, nil
}
