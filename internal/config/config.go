package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config конфигурация MediaWiper
type Config struct {
	Security  SecurityConfig  `yaml:"security"`
	Wipe      WipeConfig      `yaml:"wipe"`
	Media     MediaConfig     `yaml:"media"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Logging   LoggingConfig   `yaml:"logging"`
	Reporting ReportingConfig `yaml:"reporting"`
}

type SecurityConfig struct {
	RequireConfirmation bool     `yaml:"require_confirmation"`
	ProtectedPaths      []string `yaml:"protected_paths"`
}

type WipeConfig struct {
	DefaultMethod string  `yaml:"default_method"`
	ChunkSize     int64   `yaml:"chunk_size"`
	MaxSpeedMBps  float64 `yaml:"max_speed_mbps"`
}

type MediaConfig struct {
	DefaultCategories []string `yaml:"default_categories"`
}

type ScheduleConfig struct {
	StorePath string `yaml:"store_path"`
	Poll      string `yaml:"poll"`
	Watch     bool   `yaml:"watch"`
	QueueSize int    `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ReportingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	LocalPath string `yaml:"local_path"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Security: SecurityConfig{
			RequireConfirmation: false,
			ProtectedPaths:      defaultProtectedPaths(),
		},
		Wipe: WipeConfig{
			DefaultMethod: "none",
			ChunkSize:     1024 * 1024, // 1MB
			MaxSpeedMBps:  0,           // без ограничения
		},
		Media: MediaConfig{
			DefaultCategories: []string{"video", "audio"},
		},
		Schedule: ScheduleConfig{
			StorePath: defaultStorePath(),
			Poll:      "@every 30s",
			Watch:     true,
			QueueSize: 16,
		},
		Logging: LoggingConfig{
			Level: "INFO",
			File:  "",
		},
		Reporting: ReportingConfig{
			Enabled:   false,
			LocalPath: "./reports",
		},
	}
}

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Незаданные поля остаются со значениями по умолчанию
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию на валидность
func Validate(config *Config) error {
	validMethods := map[string]bool{
		"none":          true,
		"random":        true,
		"dod":           true,
		"random_35pass": true,
	}
	if !validMethods[config.Wipe.DefaultMethod] {
		return fmt.Errorf("invalid default method: %s", config.Wipe.DefaultMethod)
	}

	if config.Wipe.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.Wipe.ChunkSize)
	}
	if config.Wipe.ChunkSize > 64*1024*1024 { // 64MB max
		return fmt.Errorf("chunk size too large (max 64MB), got %d", config.Wipe.ChunkSize)
	}

	if config.Wipe.MaxSpeedMBps < 0 {
		return fmt.Errorf("max speed cannot be negative, got %f", config.Wipe.MaxSpeedMBps)
	}
	if config.Wipe.MaxSpeedMBps > 1000 { // 1GB/s max
		return fmt.Errorf("max speed too high (max 1000MB/s), got %f", config.Wipe.MaxSpeedMBps)
	}

	validCategories := map[string]bool{"video": true, "audio": true, "images": true, "documents": true}
	for _, c := range config.Media.DefaultCategories {
		if !validCategories[strings.ToLower(c)] {
			return fmt.Errorf("invalid media category: %s", c)
		}
	}

	if config.Schedule.StorePath == "" {
		return fmt.Errorf("schedule store path is empty")
	}
	if _, err := cron.ParseStandard(config.Schedule.Poll); err != nil {
		return fmt.Errorf("invalid schedule poll spec %q: %w", config.Schedule.Poll, err)
	}
	if config.Schedule.QueueSize <= 0 || config.Schedule.QueueSize > 1024 {
		return fmt.Errorf("schedule queue size must be between 1 and 1024, got %d", config.Schedule.QueueSize)
	}

	validLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
	}
	if !validLevels[config.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	for _, path := range config.Security.ProtectedPaths {
		if path == "" {
			return fmt.Errorf("empty protected path")
		}
		if filepath.Clean(path) == "." {
			return fmt.Errorf("invalid protected path: %s", path)
		}
	}

	if config.Reporting.Enabled && config.Reporting.LocalPath == "" {
		return fmt.Errorf("reporting enabled but local path is empty")
	}

	return nil
}

// Save сохраняет конфигурацию в файл
func Save(config *Config, path string) error {
	if err := Validate(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// defaultStorePath возвращает путь к файлу расписаний в каталоге пользователя
func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", "mediawiper_schedules.yaml")
	}
	return filepath.Join(dir, "mediawiper", "schedules.yaml")
}

// defaultProtectedPaths системные каталоги, которые нельзя выбирать целью
func defaultProtectedPaths() []string {
	if drive := os.Getenv("SystemDrive"); drive != "" {
		return []string{
			filepath.Join(drive+`\`, "Windows"),
			filepath.Join(drive+`\`, "Program Files"),
			filepath.Join(drive+`\`, "Program Files (x86)"),
		}
	}
	return []string{"/bin", "/boot", "/dev", "/etc", "/lib", "/proc", "/sbin", "/sys", "/usr", "/var"}
}
