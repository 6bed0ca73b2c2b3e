package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingServerURL = errors.New("GALLERY_SERVER_URL is not set")

type Config struct {
	Server  ServerConfig
	API     APIConfig
	Gallery GalleryConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port string
}

// Addr is the listen address of the gallery view
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type APIConfig struct {
	BaseURL string
}

type GalleryConfig struct {
	PlaceholderURL string
	MaxUploadSize  int64
}

type LogConfig struct {
	Level string
}

// Load reads the configuration from the environment. Variables found in the
// given .env files (default ".env") are applied first; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PLACEHOLDER_URL", "https://placehold.co/384?text=Click+here")
	v.SetDefault("MAX_UPLOAD_SIZE", 10*1024*1024) // 10MB
	if err := v.BindEnv("GALLERY_SERVER_URL", "GALLERY_SERVER_URL", "VITE_SERVER_URL"); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetString("SERVER_PORT"),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("GALLERY_SERVER_URL"), "/"),
		},
		Gallery: GalleryConfig{
			PlaceholderURL: v.GetString("PLACEHOLDER_URL"),
			MaxUploadSize:  v.GetInt64("MAX_UPLOAD_SIZE"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingServerURL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid GALLERY_SERVER_URL %q", c.API.BaseURL)
	}
	if c.Gallery.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_SIZE %d", c.Gallery.MaxUploadSize)
	}
	return nil
}
