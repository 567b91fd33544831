package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mediawiper/internal/config"
	"mediawiper/internal/wipe"
)

// Version версия формата отчёта
const Version = "1.0.0"

// Report представляет JSON отчёт о запуске
type Report struct {
	RunID       string                 `json:"run_id"`
	Version     string                 `json:"version"`
	Timestamp   time.Time              `json:"timestamp"`
	Source      string                 `json:"source"`
	EntryID     string                 `json:"entry_id,omitempty"`
	Config      map[string]interface{} `json:"config"`
	Request     wipe.Request           `json:"request"`
	DryRun      bool                   `json:"dry_run"`
	Files       []FileReport           `json:"files"`
	SkippedDirs []string               `json:"skipped_dirs,omitempty"`
	Summary     SummaryReport          `json:"summary"`
	Error       string                 `json:"error,omitempty"`
	ExitCode    int                    `json:"exit_code"`
	Duration    string                 `json:"duration"`
}

// FileReport представляет отчёт об одном файле
type FileReport struct {
	Path             string `json:"path"`
	Status           string `json:"status"`
	PassesCompleted  int    `json:"passes_completed"`
	BytesOverwritten int64  `json:"bytes_overwritten"`
	Error            string `json:"error,omitempty"`
	ErrorKind        string `json:"error_kind,omitempty"`
}

// SummaryReport представляет сводную информацию
type SummaryReport struct {
	FilesScanned          int     `json:"files_scanned"`
	FilesMatched          int     `json:"files_matched"`
	FilesDeleted          int     `json:"files_deleted"`
	FilesFailed           int     `json:"files_failed"`
	TotalBytesOverwritten int64   `json:"total_bytes_overwritten"`
	Cancelled             bool    `json:"cancelled"`
	SuccessRate           float64 `json:"success_rate"`
}

// GenerateReport строит отчёт о запуске. result может быть nil при ошибке уровня задания.
func GenerateReport(result *wipe.Result, runErr error, req wipe.Request, cfg *config.Config, source string, startTime, endTime time.Time, exitCode int) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		Version:   Version,
		Timestamp: startTime,
		Source:    source,
		Config:    configToMap(cfg),
		Request:   req,
		DryRun:    req.DryRun,
		Files:     []FileReport{},
		ExitCode:  exitCode,
		Duration:  endTime.Sub(startTime).String(),
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if result == nil {
		return report
	}

	for _, o := range result.Outcomes {
		fr := FileReport{
			Path:             o.Path,
			PassesCompleted:  o.PassesCompleted,
			BytesOverwritten: o.BytesOverwritten,
		}
		switch {
		case o.Err != nil:
			fr.Status = "failed"
			fr.Error = o.Err.Error()
			fr.ErrorKind = string(o.ErrorKind)
		case o.Deleted:
			fr.Status = "deleted"
		default:
			fr.Status = "matched"
		}
		report.Files = append(report.Files, fr)
	}
	report.SkippedDirs = result.SkippedDirs

	report.Summary = SummaryReport{
		FilesScanned:          result.FilesScanned,
		FilesMatched:          result.FilesMatched,
		FilesDeleted:          result.FilesDeleted,
		FilesFailed:           result.FilesFailed,
		TotalBytesOverwritten: result.TotalBytesOverwritten,
		Cancelled:             result.Cancelled,
	}
	if result.FilesMatched > 0 {
		report.Summary.SuccessRate = float64(result.FilesDeleted) / float64(result.FilesMatched) * 100
	}

	return report
}

// SaveReport сохраняет отчёт в JSON файл и возвращает путь к нему.
// Если отчёты выключены, ничего не делает и возвращает пустую строку.
func SaveReport(report *Report, cfg *config.Config) (string, error) {
	if !cfg.Reporting.Enabled {
		return "", nil
	}

	// Создаем директорию для отчётов
	if err := os.MkdirAll(cfg.Reporting.LocalPath, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории для отчётов: %w", err)
	}

	// Имя файла отчёта; run_id различает запуски в одну секунду
	filename := fmt.Sprintf("mediawiper_report_%s_%s.json", report.Timestamp.Format("20060102_150405"), report.RunID[:8])
	path := filepath.Join(cfg.Reporting.LocalPath, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации отчёта: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи отчёта: %w", err)
	}

	return path, nil
}

// configToMap преобразует Config в map для JSON сериализации
func configToMap(cfg *config.Config) map[string]interface{} {
	if cfg == nil {
		return nil
	}
	return map[string]interface{}{
		"security": map[string]interface{}{
			"require_confirmation": cfg.Security.RequireConfirmation,
			"protected_paths":      cfg.Security.ProtectedPaths,
		},
		"wipe": map[string]interface{}{
			"default_method": cfg.Wipe.DefaultMethod,
			"chunk_size":     cfg.Wipe.ChunkSize,
			"max_speed_mbps": cfg.Wipe.MaxSpeedMBps,
		},
		"media": map[string]interface{}{
			"default_categories": cfg.Media.DefaultCategories,
		},
		"schedule": map[string]interface{}{
			"store_path": cfg.Schedule.StorePath,
			"poll":       cfg.Schedule.Poll,
			"watch":      cfg.Schedule.Watch,
			"queue_size": cfg.Schedule.QueueSize,
		},
		"logging": map[string]interface{}{
			"level": cfg.Logging.Level,
			"file":  cfg.Logging.File,
		},
		"reporting": map[string]interface{}{
			"enabled":    cfg.Reporting.Enabled,
			"local_path": cfg.Reporting.LocalPath,
		},
	}
}
