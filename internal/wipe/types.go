package wipe

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"mediawiper/internal/apperr"
	"mediawiper/internal/media"
)

// Request параметры одного задания удаления. После NewRequest не изменяется.
type Request struct {
	TargetDir  string    `yaml:"target_dir" json:"target_dir"`
	Method     Method    `yaml:"secure_method" json:"secure_method"`
	Extensions media.Set `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	Verbose    bool      `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	DryRun     bool      `yaml:"dry_run,omitempty" json:"dry_run,omitempty"`
}

// NewRequest проверяет и копирует параметры задания.
// Пустой набор расширений означает набор по умолчанию.
func NewRequest(targetDir string, method Method, exts media.Set, verbose, dryRun bool) (Request, error) {
	if strings.TrimSpace(targetDir) == "" {
		return Request{}, apperr.Configf("не указана целевая директория")
	}
	if !method.Valid() {
		return Request{}, apperr.Configf("неподдерживаемый метод затирания: %s", method)
	}
	abs, err := filepath.Abs(targetDir)
	if err != nil {
		return Request{}, apperr.Configf("некорректный путь %s: %v", targetDir, err)
	}
	return Request{
		TargetDir:  abs,
		Method:     method,
		Extensions: exts.Clone(),
		Verbose:    verbose,
		DryRun:     dryRun,
	}, nil
}

// EffectiveExtensions возвращает набор, по которому реально идёт отбор
func (r Request) EffectiveExtensions() media.Set {
	if len(r.Extensions) == 0 {
		return media.DefaultSet()
	}
	return r.Extensions
}

// FileOutcome результат обработки одного файла
type FileOutcome struct {
	Path             string      `json:"path"`
	BytesOverwritten int64       `json:"bytes_overwritten"`
	PassesCompleted  int         `json:"passes_completed"`
	Deleted          bool        `json:"deleted"`
	ErrorKind        apperr.Kind `json:"error,omitempty"`
	Err              error       `json:"-"`
}

// Failed true, если файл не удалось обработать
func (o FileOutcome) Failed() bool {
	return o.Err != nil
}

// Line строка подробного вывода: <path> | <method> | <deleted|failed:<reason>>
func (o FileOutcome) Line(method Method) string {
	status := "deleted"
	switch {
	case o.Err != nil:
		status = "failed:" + string(o.ErrorKind)
	case !o.Deleted:
		status = "matched"
	}
	return fmt.Sprintf("%s | %s | %s", o.Path, method, status)
}

// Result итог задания. Принадлежит вызывающему, после Run не изменяется.
type Result struct {
	FilesScanned          int           `json:"files_scanned"`
	FilesMatched          int           `json:"files_matched"`
	FilesDeleted          int           `json:"files_deleted"`
	FilesFailed           int           `json:"files_failed"`
	TotalBytesOverwritten int64         `json:"total_bytes_overwritten"`
	Outcomes              []FileOutcome `json:"outcomes"`
	SkippedDirs           []string      `json:"skipped_dirs,omitempty"`
	Cancelled             bool          `json:"cancelled,omitempty"`
	DryRun                bool          `json:"dry_run,omitempty"`
	StartTime             time.Time     `json:"start_time"`
	EndTime               time.Time     `json:"end_time"`
}

// Duration длительность задания
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Err объединяет ошибки отдельных файлов; nil, если ошибок не было
func (r *Result) Err() error {
	var result *multierror.Error
	for _, o := range r.Outcomes {
		if o.Failed() {
			result = multierror.Append(result, o.Err)
		}
	}
	return result.ErrorOrNil()
}

// Summary строка итога для консоли и журнала
func (r *Result) Summary() string {
	s := fmt.Sprintf("просмотрено: %d, подходящих: %d, удалено: %d, ошибок: %d, затёрто байт: %d",
		r.FilesScanned, r.FilesMatched, r.FilesDeleted, r.FilesFailed, r.TotalBytesOverwritten)
	if r.DryRun {
		s += " (пробный запуск)"
	}
	if r.Cancelled {
		s += " (прервано)"
	}
	return s
}

func (r *Result) record(o FileOutcome) {
	r.FilesMatched++
	if o.Failed() {
		r.FilesFailed++
	} else if o.Deleted {
		r.FilesDeleted++
		r.TotalBytesOverwritten += o.BytesOverwritten
	}
	r.Outcomes = append(r.Outcomes, o)
}
