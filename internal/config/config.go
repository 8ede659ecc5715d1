package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "FAREJA"

// Image storage backends.
const (
	StorageLocal = "local"
	StorageCDN   = "cdn"
	StorageNone  = "none"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DBPath      string
	APISecret   string
	BaseURL     string
	AnalyticsID string
	Location    *time.Location

	ImageStorage       string
	ImageDir           string
	CloudinaryName     string
	CloudinaryKey      string
	CloudinarySecret   string
	CloudinaryFolder   string
	FetchTimeout       time.Duration
	PreviewPreferCard  bool
	IPBlocklistSources []string
	IPBlocklistCIDRs   []string

	GeoIPPath     string
	FlushInterval time.Duration
	BufferSize    int
	CacheSize     int
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "./fareja.db")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("image_storage", StorageLocal)
	v.SetDefault("image_dir", "./public/images/products")
	v.SetDefault("cloudinary_folder", "fareja")
	v.SetDefault("fetch_timeout", 8*time.Second)
	v.SetDefault("flush_interval", 10*time.Second)
	v.SetDefault("buffer_size", 10000)
	v.SetDefault("cache_size", 1000)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	secret := v.GetString("api_secret_key")
	if secret == "" {
		return nil, fmt.Errorf("FAREJA_API_SECRET_KEY is required")
	}

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("FAREJA_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		Env:         strings.ToLower(v.GetString("env")),
		LogLevel:    v.GetString("log_level"),
		DBPath:      v.GetString("db_path"),
		APISecret:   secret,
		BaseURL:     strings.TrimRight(v.GetString("base_url"), "/"),
		AnalyticsID: v.GetString("analytics_id"),
		Location:    loc,

		ImageStorage:       strings.ToLower(v.GetString("image_storage")),
		ImageDir:           v.GetString("image_dir"),
		CloudinaryName:     v.GetString("cloudinary_cloud_name"),
		CloudinaryKey:      v.GetString("cloudinary_api_key"),
		CloudinarySecret:   v.GetString("cloudinary_api_secret"),
		CloudinaryFolder:   v.GetString("cloudinary_folder"),
		FetchTimeout:       v.GetDuration("fetch_timeout"),
		PreviewPreferCard:  v.GetBool("preview_prefer_card"),
		IPBlocklistSources: splitList(v.GetString("ip_blocklist_urls")),
		IPBlocklistCIDRs:   splitList(v.GetString("ip_blocklist_cidrs")),

		GeoIPPath:     v.GetString("geoip_path"),
		FlushInterval: v.GetDuration("flush_interval"),
		BufferSize:    v.GetInt("buffer_size"),
		CacheSize:     v.GetInt("cache_size"),
	}

	switch cfg.ImageStorage {
	case StorageLocal, StorageNone:
	case StorageCDN:
		if cfg.CloudinaryName == "" || cfg.CloudinaryKey == "" || cfg.CloudinarySecret == "" {
			return nil, fmt.Errorf("cloudinary credentials are required when FAREJA_IMAGE_STORAGE=cdn")
		}
	default:
		return nil, fmt.Errorf("FAREJA_IMAGE_STORAGE must be one of local, cdn, none (got %q)", cfg.ImageStorage)
	}

	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FAREJA_FETCH_TIMEOUT must be positive")
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("FAREJA_FLUSH_INTERVAL must be positive")
	}
	if cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("FAREJA_BUFFER_SIZE must be positive")
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("FAREJA_CACHE_SIZE must be positive")
	}

	return cfg, nil
}

// IsProduction hides internal error details from API responses.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
