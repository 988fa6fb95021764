// Package config provides unified configuration for the Firn catalog
// and its storage backends.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/firndb/firn/internal/storage"
)

// Backend names accepted by StorageConfig.Backend.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config holds the complete Firn configuration.
type Config struct {
	// Catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Maintenance configuration
	Maintenance MaintenanceConfig `json:"maintenance" yaml:"maintenance"`
}

// CatalogConfig holds catalog configuration.
type CatalogConfig struct {
	// Name is the catalog name recorded on every entity row
	Name string `json:"name" yaml:"name"`

	// Path is the SQLite database file backing the catalog
	Path string `json:"path" yaml:"path"`
}

// StorageConfig holds object-store configuration.
type StorageConfig struct {
	// Backend is the object-store backend: local, s3
	Backend string `json:"backend" yaml:"backend"`

	// BaseDir is the base directory (for local backend)
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// Bucket is the S3 bucket name (for s3 backend)
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// MaintenanceConfig holds maintenance configuration.
type MaintenanceConfig struct {
	// OrphanGraceAge is how long orphaned metadata objects are retained
	// before a sweep may delete them
	OrphanGraceAge time.Duration `json:"orphan_grace_age" yaml:"orphan_grace_age"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Name: "main",
			Path: "./data/firn/catalog.db",
		},
		Storage: StorageConfig{
			Backend: BackendLocal,
			BaseDir: "./data/firn/storage",
			Region:  "us-east-1",
		},
		Maintenance: MaintenanceConfig{
			OrphanGraceAge: 7 * 24 * time.Hour,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Catalog.Name == "" {
		return fmt.Errorf("catalog.name is required")
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required when backend is local")
		}
	case BackendS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when backend is s3")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be local or s3)", c.Storage.Backend)
	}

	if c.Maintenance.OrphanGraceAge < 0 {
		return fmt.Errorf("maintenance.orphan_grace_age must not be negative, got %s", c.Maintenance.OrphanGraceAge)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file. Values not
// present in the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv applies environment overrides to the configuration.
// Environment variables use the FIRN_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("FIRN_CATALOG_NAME"); v != "" {
		cfg.Catalog.Name = v
	}
	if v := os.Getenv("FIRN_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// Storage configuration
	if v := os.Getenv("FIRN_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("FIRN_STORAGE_BASE_DIR"); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := os.Getenv("FIRN_S3_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("FIRN_S3_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv("FIRN_S3_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("FIRN_S3_USE_PATH_STYLE"); v != "" {
		cfg.Storage.UsePathStyle = v == "true" || v == "1"
	}

	// Map credentials for the AWS SDK
	if v := os.Getenv("FIRN_AWS_ACCESS_KEY_ID"); v != "" {
		os.Setenv("AWS_ACCESS_KEY_ID", v)
	}
	if v := os.Getenv("FIRN_AWS_SECRET_ACCESS_KEY"); v != "" {
		os.Setenv("AWS_SECRET_ACCESS_KEY", v)
	}

	// Maintenance configuration
	if v := os.Getenv("FIRN_MAINTENANCE_ORPHAN_GRACE_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Maintenance.OrphanGraceAge = d
		}
	}
}

// Load builds the effective configuration: a best-effort .env overlay,
// then the config file at path (defaults when path is empty), then
// FIRN_* environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// EnsureDirectories creates the directories the configuration refers to:
// the catalog database's parent and, for the local backend, the storage
// base directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Catalog.Path)}
	if c.Storage.Backend == BackendLocal {
		dirs = append(dirs, c.Storage.BaseDir)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// OpenObjectStore constructs the configured object-store backend.
func OpenObjectStore(ctx context.Context, cfg *Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case BackendLocal:
		return storage.NewLocalStore(cfg.Storage.BaseDir)
	case BackendS3:
		s3Cfg := storage.DefaultS3Config()
		if cfg.Storage.Region != "" {
			s3Cfg.Region = cfg.Storage.Region
		}
		if cfg.Storage.Endpoint != "" {
			s3Cfg.Endpoint = cfg.Storage.Endpoint
		}
		s3Cfg.UsePathStyle = cfg.Storage.UsePathStyle
		return storage.NewS3Store(ctx, cfg.Storage.Bucket, s3Cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
