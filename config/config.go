// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"strokerisk/logging"
	"strokerisk/stroke"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log       logging.Config `yaml:"log"`
	Artifacts struct {
		Dir                string        `yaml:"dir"`
		LabelEncoders      string        `yaml:"label_encoders"`
		CategoricalScalers string        `yaml:"cat_scalers"`
		AgeScaler          string        `yaml:"scaler_age"`
		GlucoseScaler      string        `yaml:"scaler_glucose"`
		Model              string        `yaml:"model"`
		ModelType          string        `yaml:"model_type"`
		Watch              bool          `yaml:"watch"`
		WatchDebounce      time.Duration `yaml:"watch_debounce"`
	} `yaml:"artifacts"`
	Predictor struct {
		CacheSize int `yaml:"cache_size"`
	} `yaml:"predictor"`
}

func Default() *Config {
	var c Config
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Http.MaxBodyBytes = 1 << 20
	c.Log = logging.DefaultConfig()
	c.Artifacts.Dir = "artifacts"
	c.Artifacts.WatchDebounce = 500 * time.Millisecond
	c.Predictor.CacheSize = 1024
	return &c
}

// Load reads path over the defaults. A missing file yields the defaults.
// PORT in the environment overrides http.port.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("PORT %q: %w", port, err)
		}
		config.Http.Port = p
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Http.MaxBodyBytes <= 0 {
		return errors.New("http.max_body_bytes must be positive")
	}
	if c.Predictor.CacheSize < 0 {
		return errors.New("predictor.cache_size must not be negative")
	}
	return nil
}

// ArtifactPaths resolves configured file names against artifacts.dir.
// Absolute file names are used as given.
func (c *Config) ArtifactPaths() stroke.ArtifactPaths {
	paths := stroke.DefaultArtifactPaths(c.Artifacts.Dir)
	override := func(dst *string, name string) {
		if name == "" {
			return
		}
		if filepath.IsAbs(name) {
			*dst = name
			return
		}
		*dst = filepath.Join(c.Artifacts.Dir, name)
	}
	override(&paths.LabelEncoders, c.Artifacts.LabelEncoders)
	override(&paths.CategoricalScalers, c.Artifacts.CategoricalScalers)
	override(&paths.AgeScaler, c.Artifacts.AgeScaler)
	override(&paths.GlucoseScaler, c.Artifacts.GlucoseScaler)
	override(&paths.Model, c.Artifacts.Model)
	if c.Artifacts.ModelType != "" {
		paths.ModelType = c.Artifacts.ModelType
	}
	return paths
}
