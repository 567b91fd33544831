package wipe

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"time"

	"mediawiper/internal/apperr"
	"mediawiper/internal/logging"
	"mediawiper/internal/media"
)

// Orchestrator обходит директорию, затирает и удаляет подходящие файлы
type Orchestrator struct {
	overwriter *Overwriter
	logger     *logging.Logger
	remove     func(path string) error
	now        func() time.Time
}

// NewOrchestrator создает Orchestrator
func NewOrchestrator(config OverwriterConfig, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		overwriter: NewOverwriter(config),
		logger:     logger,
		remove:     os.Remove,
		now:        time.Now,
	}
}

type entryKind int

const (
	entryFile       entryKind = iota // обычный файл
	entryOther                       // ссылка, устройство, сокет и т.п.
	entrySkippedDir                  // каталог, который не удалось прочитать
)

type scanEntry struct {
	path string
	kind entryKind
	err  error
}

// Run выполняет задание. Ошибки отдельных файлов попадают в Result;
// ошибка возвращается только если целевая директория недоступна.
// Отмена ctx учитывается между файлами.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if !req.Method.Valid() {
		return nil, apperr.Configf("неподдерживаемый метод затирания: %s", req.Method)
	}
	root, err := checkTargetDir(req.TargetDir)
	if err != nil {
		return nil, err
	}

	exts := req.EffectiveExtensions()
	result := &Result{
		DryRun:    req.DryRun,
		StartTime: o.now(),
		Outcomes:  []FileOutcome{},
	}

	o.logger.Log("INFO", "начало удаления",
		"dir", root, "method", req.Method.String(), "extensions", exts.String(), "dry_run", req.DryRun)

	for entry := range walkTree(root) {
		switch entry.kind {
		case entrySkippedDir:
			result.SkippedDirs = append(result.SkippedDirs, entry.path)
			o.logger.Log("WARN", "директория пропущена", "dir", entry.path, "error", entry.err)
			continue
		case entryOther:
			result.FilesScanned++
			continue
		}

		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			o.logger.Log("WARN", "удаление прервано", "dir", root)
			break
		}

		result.FilesScanned++
		if !media.Matches(entry.path, exts) {
			continue
		}

		outcome := o.processFile(entry.path, req)
		result.record(outcome)

		if req.Verbose {
			o.logger.Log("INFO", outcome.Line(req.Method))
		} else if outcome.Err != nil {
			o.logger.Log("ERROR", "ошибка обработки файла", "path", outcome.Path, "error", outcome.Err)
		}
	}

	result.EndTime = o.now()
	o.logger.Log("INFO", "удаление завершено",
		"dir", root,
		"scanned", result.FilesScanned,
		"matched", result.FilesMatched,
		"deleted", result.FilesDeleted,
		"failed", result.FilesFailed,
		"bytes", result.TotalBytesOverwritten,
		"duration", result.Duration().String())

	return result, nil
}

// processFile затирает (если нужно) и удаляет один файл
func (o *Orchestrator) processFile(path string, req Request) FileOutcome {
	outcome := FileOutcome{Path: path}
	if req.DryRun {
		return outcome
	}

	if req.Method != MethodNone {
		bytes, passes, err := o.overwriter.Overwrite(path, req.Method)
		outcome.BytesOverwritten = bytes
		outcome.PassesCompleted = passes
		if err != nil {
			outcome.Err = err
			outcome.ErrorKind = apperr.KindOf(err)
			if outcome.ErrorKind == "" {
				outcome.ErrorKind = apperr.IO
			}
			return outcome
		}
	}

	if err := o.remove(path); err != nil {
		outcome.Err = apperr.New(apperr.Deletion, "remove", path, err)
		outcome.ErrorKind = apperr.Deletion
		return outcome
	}
	outcome.Deleted = true
	return outcome
}

// checkTargetDir проверяет, что цель существует, является каталогом и читается
func checkTargetDir(dir string) (string, error) {
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", apperr.New(apperr.DirectoryAccess, "stat", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", apperr.New(apperr.DirectoryAccess, "stat", dir, err)
	}
	if !info.IsDir() {
		return "", apperr.New(apperr.DirectoryAccess, "stat", dir, errors.New("не является директорией"))
	}

	f, err := os.Open(root)
	if err != nil {
		return "", apperr.New(apperr.DirectoryAccess, "open", dir, err)
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", apperr.New(apperr.DirectoryAccess, "readdir", dir, err)
	}
	return root, nil
}

// walkTree лениво перечисляет содержимое дерева. Ссылки не разыменовываются,
// каталоги наружу не отдаются, нечитаемые подкаталоги отдаются как entrySkippedDir.
func walkTree(root string) iter.Seq[scanEntry] {
	return func(yield func(scanEntry) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					if !yield(scanEntry{path: path, kind: entrySkippedDir, err: err}) {
						return filepath.SkipAll
					}
					return filepath.SkipDir
				}
				// файл исчез между чтением каталога и обходом
				return nil
			}
			if d.IsDir() {
				return nil
			}

			kind := entryOther
			if d.Type().IsRegular() {
				kind = entryFile
			}
			if !yield(scanEntry{path: path, kind: kind}) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
