package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Content  ContentConfig  `mapstructure:"content"`
	Reciters RecitersConfig `mapstructure:"reciters"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ContentConfig points at the upstream content API
type ContentConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	FallbackURL string `mapstructure:"fallback_url"`
	Token       string `mapstructure:"token"` // Optional API token
	TafsirID    int    `mapstructure:"tafsir_id"`
}

// RecitersConfig points at the reciter directory
type RecitersConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// AudioConfig holds playback defaults
type AudioConfig struct {
	Reciter string  `mapstructure:"reciter"` // Default reciter identifier
	Edition string  `mapstructure:"edition"` // Per-ayah recitation edition
	Volume  float64 `mapstructure:"volume"`  // 0..1
}

// CacheConfig holds local storage configuration
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Empty disables persistence
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Content: ContentConfig{
			BaseURL:     "https://api.quran.com/api/v4",
			FallbackURL: "https://api.alquran.cloud/v1",
			TafsirID:    169,
		},
		Reciters: RecitersConfig{
			BaseURL: "https://www.mp3quran.net/api/v3",
		},
		Audio: AudioConfig{
			Reciter: "ar.alafasy",
			Edition: "ar.alafasy",
			Volume:  1.0,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tarteel", "tarteel.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tarteel", "tarteel.log")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "tarteel", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tarteel", "cache")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tarteel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tarteel")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("TARTEEL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("content.base_url", cfg.Content.BaseURL)
	viper.Set("content.fallback_url", cfg.Content.FallbackURL)
	viper.Set("content.token", cfg.Content.Token)
	viper.Set("content.tafsir_id", cfg.Content.TafsirID)

	viper.Set("reciters.base_url", cfg.Reciters.BaseURL)

	viper.Set("audio.reciter", cfg.Audio.Reciter)
	viper.Set("audio.edition", cfg.Audio.Edition)
	viper.Set("audio.volume", cfg.Audio.Volume)

	viper.Set("cache.dir", cfg.Cache.Dir)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
