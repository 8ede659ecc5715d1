package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FAREJA_CONFIG", "FAREJA_API_SECRET_KEY", "FAREJA_PORT", "FAREJA_ENV", "FAREJA_LOG_LEVEL",
		"FAREJA_DB_PATH", "FAREJA_BASE_URL", "FAREJA_ANALYTICS_ID", "FAREJA_TIMEZONE",
		"FAREJA_IMAGE_STORAGE", "FAREJA_IMAGE_DIR", "FAREJA_CLOUDINARY_CLOUD_NAME",
		"FAREJA_CLOUDINARY_API_KEY", "FAREJA_CLOUDINARY_API_SECRET", "FAREJA_CLOUDINARY_FOLDER",
		"FAREJA_FETCH_TIMEOUT", "FAREJA_PREVIEW_PREFER_CARD", "FAREJA_IP_BLOCKLIST_URLS", "FAREJA_IP_BLOCKLIST_CIDRS",
		"FAREJA_GEOIP_PATH", "FAREJA_FLUSH_INTERVAL", "FAREJA_BUFFER_SIZE", "FAREJA_CACHE_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MinimalValid(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAREJA_API_SECRET_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "./fareja.db" {
		t.Errorf("dbpath = %q, want %q", cfg.DBPath, "./fareja.db")
	}
	if cfg.Env != "development" || cfg.IsProduction() {
		t.Errorf("env = %q, want development", cfg.Env)
	}
	if cfg.ImageStorage != StorageLocal {
		t.Errorf("storage = %q, want %q", cfg.ImageStorage, StorageLocal)
	}
	if cfg.FetchTimeout != 8*time.Second {
		t.Errorf("fetch timeout = %v, want %v", cfg.FetchTimeout, 8*time.Second)
	}
	if cfg.FlushInterval != 10*time.Second {
		t.Errorf("flush interval = %v, want %v", cfg.FlushInterval, 10*time.Second)
	}
	if cfg.BufferSize != 10000 {
		t.Errorf("buffer size = %d, want %d", cfg.BufferSize, 10000)
	}
	if cfg.CacheSize != 1000 {
		t.Errorf("cache size = %d, want %d", cfg.CacheSize, 1000)
	}
	if cfg.Location != time.UTC {
		t.Errorf("location = %v, want UTC", cfg.Location)
	}
}

func TestLoad_AllFieldsOverridden(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAREJA_API_SECRET_KEY", "s3cret")
	t.Setenv("FAREJA_PORT", "9090")
	t.Setenv("FAREJA_ENV", "Production")
	t.Setenv("FAREJA_DB_PATH", "/tmp/test.db")
	t.Setenv("FAREJA_BASE_URL", "https://fareja.example/")
	t.Setenv("FAREJA_ANALYTICS_ID", "G-TEST")
	t.Setenv("FAREJA_IMAGE_STORAGE", "none")
	t.Setenv("FAREJA_GEOIP_PATH", "/data/geo.mmdb")
	t.Setenv("FAREJA_FETCH_TIMEOUT", "3s")
	t.Setenv("FAREJA_PREVIEW_PREFER_CARD", "true")
	t.Setenv("FAREJA_IP_BLOCKLIST_URLS", " https://a.test/list.txt , https://b.test/list.txt ,")
	t.Setenv("FAREJA_FLUSH_INTERVAL", "1m")
	t.Setenv("FAREJA_BUFFER_SIZE", "500")
	t.Setenv("FAREJA_CACHE_SIZE", "200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want %q", cfg.Port, "9090")
	}
	if !cfg.IsProduction() {
		t.Errorf("env = %q, want production", cfg.Env)
	}
	if cfg.APISecret != "s3cret" {
		t.Errorf("secret = %q, want %q", cfg.APISecret, "s3cret")
	}
	if cfg.BaseURL != "https://fareja.example" {
		t.Errorf("base url = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.AnalyticsID != "G-TEST" {
		t.Errorf("analytics id = %q, want %q", cfg.AnalyticsID, "G-TEST")
	}
	if cfg.ImageStorage != StorageNone {
		t.Errorf("storage = %q, want %q", cfg.ImageStorage, StorageNone)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("fetch timeout = %v, want 3s", cfg.FetchTimeout)
	}
	if !cfg.PreviewPreferCard {
		t.Error("PreviewPreferCard = false, want true")
	}
	if len(cfg.IPBlocklistSources) != 2 || cfg.IPBlocklistSources[1] != "https://b.test/list.txt" {
		t.Errorf("blocklist sources = %v", cfg.IPBlocklistSources)
	}
	if cfg.GeoIPPath != "/data/geo.mmdb" {
		t.Errorf("geoip = %q, want %q", cfg.GeoIPPath, "/data/geo.mmdb")
	}
	if cfg.FlushInterval != time.Minute {
		t.Errorf("flush = %v, want %v", cfg.FlushInterval, time.Minute)
	}
	if cfg.BufferSize != 500 {
		t.Errorf("buffer = %d, want %d", cfg.BufferSize, 500)
	}
	if cfg.CacheSize != 200 {
		t.Errorf("cache = %d, want %d", cfg.CacheSize, 200)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
	if err.Error() != "FAREJA_API_SECRET_KEY is required" {
		t.Errorf("error = %q, want %q", err.Error(), "FAREJA_API_SECRET_KEY is required")
	}
}

func TestLoad_CDNRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAREJA_API_SECRET_KEY", "secret")
	t.Setenv("FAREJA_IMAGE_STORAGE", "cdn")
	t.Setenv("FAREJA_CLOUDINARY_CLOUD_NAME", "demo")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for incomplete cloudinary credentials")
	}

	t.Setenv("FAREJA_CLOUDINARY_API_KEY", "key")
	t.Setenv("FAREJA_CLOUDINARY_API_SECRET", "shh")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CloudinaryFolder != "fareja" {
		t.Errorf("folder = %q, want fareja", cfg.CloudinaryFolder)
	}
}

func TestLoad_UnknownStorage(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAREJA_API_SECRET_KEY", "secret")
	t.Setenv("FAREJA_IMAGE_STORAGE", "s3")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAREJA_API_SECRET_KEY", "secret")
	t.Setenv("FAREJA_TIMEZONE", "Mars/Olympus")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestLoad_ZeroBufferSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAREJA_API_SECRET_KEY", "secret")
	t.Setenv("FAREJA_BUFFER_SIZE", "0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for zero buffer size")
	}
	if err.Error() != "FAREJA_BUFFER_SIZE must be positive" {
		t.Errorf("error = %q, want %q", err.Error(), "FAREJA_BUFFER_SIZE must be positive")
	}
}

func TestLoad_NegativeFlushInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAREJA_API_SECRET_KEY", "secret")
	t.Setenv("FAREJA_FLUSH_INTERVAL", "-1s")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for negative flush interval")
	}
	if err.Error() != "FAREJA_FLUSH_INTERVAL must be positive" {
		t.Errorf("error = %q, want %q", err.Error(), "FAREJA_FLUSH_INTERVAL must be positive")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "fareja.yaml")
	content := "api_secret_key: from-file\nport: \"7070\"\ncache_size: 42\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FAREJA_CONFIG", path)
	t.Setenv("FAREJA_PORT", "7171")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APISecret != "from-file" {
		t.Errorf("secret = %q, want from-file", cfg.APISecret)
	}
	// Environment wins over the file.
	if cfg.Port != "7171" {
		t.Errorf("port = %q, want 7171", cfg.Port)
	}
	if cfg.CacheSize != 42 {
		t.Errorf("cache = %d, want 42", cfg.CacheSize)
	}
}
