package config

import (
	"fmt"
)

// ApplyProfile применяет профиль производительности к конфигурации
func ApplyProfile(cfg *Config, profile string) error {
	switch profile {
	case "safe":
		cfg.Wipe.MaxSpeedMBps = 10
		cfg.Wipe.ChunkSize = 256 * 1024 // 256KB
	case "balanced":
		cfg.Wipe.MaxSpeedMBps = 50
		cfg.Wipe.ChunkSize = 1024 * 1024 // 1MB
	case "fast":
		cfg.Wipe.MaxSpeedMBps = 0              // unlimited
		cfg.Wipe.ChunkSize = 16 * 1024 * 1024 // 16MB
	default:
		return fmt.Errorf("неизвестный профиль: %s", profile)
	}
	return nil
}

// ProfileNames возвращает имена доступных профилей
func ProfileNames() []string {
	return []string{"safe", "balanced", "fast"}
}
