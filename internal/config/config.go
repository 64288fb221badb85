package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Hospital finder backends.
const (
	FinderPlaces    = "places"
	FinderGemini    = "gemini"
	FinderDirectory = "directory"
)

// Location sources for the server.
const (
	LocationReported = "reported"
	LocationIPAPI    = "ipapi"
	LocationStatic   = "static"
)

type Config struct {
	Port     string         `yaml:"port"`
	Database DatabaseConfig `yaml:"database"`
	Finder   FinderConfig   `yaml:"finder"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Location LocationConfig `yaml:"location"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	SeedPath string `yaml:"seed_path"`
}

type FinderConfig struct {
	Backend          string        `yaml:"backend"`
	ResultLimit      int           `yaml:"result_limit"`
	RadiusInitialM   float64       `yaml:"radius_initial_m"`
	RadiusStepM      float64       `yaml:"radius_step_m"`
	RadiusMaxM       float64       `yaml:"radius_max_m"`
	GoogleMapsAPIKey string        `yaml:"google_maps_api_key"`
	GeminiAPIKey     string        `yaml:"gemini_api_key"`
	GeminiModel      string        `yaml:"gemini_model"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	ContactSeconds int           `yaml:"contact_seconds"`
	TickInterval   time.Duration `yaml:"tick_interval"`
}

type LocationConfig struct {
	Source       string        `yaml:"source"`
	Timeout      time.Duration `yaml:"timeout"`
	IPAPIBaseURL string        `yaml:"ipapi_base_url"`
	Latitude     float64       `yaml:"latitude"`
	Longitude    float64       `yaml:"longitude"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func Default() Config {
	return Config{
		Port: "8080",
		Database: DatabaseConfig{
			Driver:   "sqlite",
			URL:      "data/app.db",
			SeedPath: "data/seeds/hospitals.json",
		},
		Finder: FinderConfig{
			Backend:        FinderDirectory,
			ResultLimit:    3,
			RadiusInitialM: 2000,
			RadiusStepM:    3000,
			RadiusMaxM:     10000,
			GeminiModel:    "gemini-2.5-flash",
			CacheTTL:       10 * time.Minute,
		},
		Session: SessionConfig{
			ContactSeconds: 30,
			TickInterval:   time.Second,
		},
		Location: LocationConfig{
			Source:  LocationReported,
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $SOS_CONFIG), then environment variables. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("SOS_CONFIG")
	}
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

type envReader struct {
	errs []error
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (r *envReader) integer(key string, dst *int) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (r *envReader) number(key string, dst *float64) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func (r *envReader) duration(key string, dst *time.Duration) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (r *envReader) boolean(key string, dst *bool) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func applyEnv(cfg *Config) error {
	r := &envReader{}

	r.str("PORT", &cfg.Port)

	r.str("DB_DRIVER", &cfg.Database.Driver)
	r.str("DATABASE_URL", &cfg.Database.URL)
	r.str("SEED_PATH", &cfg.Database.SeedPath)

	r.str("HOSPITAL_FINDER", &cfg.Finder.Backend)
	r.integer("FINDER_RESULT_LIMIT", &cfg.Finder.ResultLimit)
	r.number("SEARCH_RADIUS_INITIAL_M", &cfg.Finder.RadiusInitialM)
	r.number("SEARCH_RADIUS_STEP_M", &cfg.Finder.RadiusStepM)
	r.number("SEARCH_RADIUS_MAX_M", &cfg.Finder.RadiusMaxM)
	r.str("GOOGLE_MAPS_API_KEY", &cfg.Finder.GoogleMapsAPIKey)
	r.str("GEMINI_API_KEY", &cfg.Finder.GeminiAPIKey)
	r.str("GEMINI_MODEL", &cfg.Finder.GeminiModel)
	r.duration("FINDER_CACHE_TTL", &cfg.Finder.CacheTTL)

	r.str("REDIS_ADDR", &cfg.Redis.Addr)
	r.str("REDIS_PASSWORD", &cfg.Redis.Password)
	r.integer("REDIS_DB", &cfg.Redis.DB)

	r.integer("CONTACT_SECONDS", &cfg.Session.ContactSeconds)
	r.duration("TICK_INTERVAL", &cfg.Session.TickInterval)

	r.str("LOCATION_SOURCE", &cfg.Location.Source)
	r.duration("LOCATION_TIMEOUT", &cfg.Location.Timeout)
	r.str("IPAPI_BASE_URL", &cfg.Location.IPAPIBaseURL)
	r.number("STATIC_LATITUDE", &cfg.Location.Latitude)
	r.number("STATIC_LONGITUDE", &cfg.Location.Longitude)

	r.str("LOG_LEVEL", &cfg.Log.Level)
	r.str("LOG_FORMAT", &cfg.Log.Format)

	r.boolean("TRACING_ENABLED", &cfg.Tracing.Enabled)
	r.str("TRACING_EXPORTER", &cfg.Tracing.Exporter)
	r.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	r.number("TRACING_SAMPLE_RATIO", &cfg.Tracing.SampleRatio)

	if len(r.errs) > 0 {
		return fmt.Errorf("config env: %w", errors.Join(r.errs...))
	}
	return nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}

	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unsupported db driver %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database url is required"))
	}

	switch c.Finder.Backend {
	case FinderPlaces:
		if c.Finder.GoogleMapsAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY is required for the places finder"))
		}
	case FinderGemini:
		if c.Finder.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini finder"))
		}
	case FinderDirectory:
	default:
		errs = append(errs, fmt.Errorf("unknown hospital finder %q", c.Finder.Backend))
	}
	if c.Finder.ResultLimit <= 0 {
		errs = append(errs, fmt.Errorf("finder result limit must be positive, got %d", c.Finder.ResultLimit))
	}
	if c.Finder.RadiusInitialM <= 0 {
		errs = append(errs, fmt.Errorf("initial search radius must be positive, got %v", c.Finder.RadiusInitialM))
	}
	if c.Finder.RadiusStepM < 0 || c.Finder.RadiusMaxM < 0 {
		errs = append(errs, errors.New("search radius step and max must not be negative"))
	}
	if c.Finder.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("finder cache ttl must be positive, got %s", c.Finder.CacheTTL))
	}

	if c.Session.ContactSeconds <= 0 {
		errs = append(errs, fmt.Errorf("contact seconds must be positive, got %d", c.Session.ContactSeconds))
	}
	if c.Session.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.Session.TickInterval))
	}

	switch c.Location.Source {
	case LocationReported, LocationIPAPI, LocationStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown location source %q", c.Location.Source))
	}
	if c.Location.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("location timeout must be positive, got %s", c.Location.Timeout))
	}

	switch c.Tracing.Exporter {
	case "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
