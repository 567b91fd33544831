package wipe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"mediawiper/internal/apperr"
)

// DefaultChunkSize размер чанка записи по умолчанию
const DefaultChunkSize = 1024 * 1024 // 1MB

// fileHandle то, что нужно от открытого файла для затирания
type fileHandle interface {
	io.Writer
	io.Seeker
	Sync() error
	Close() error
}

// PassReport сообщает о завершённом (записанном и синхронизированном) проходе
type PassReport struct {
	Path   string
	Pass   int // с 1
	Total  int
	Kind   PatternKind
	Value  byte
	Length int64
}

// OverwriterConfig параметры затирания
type OverwriterConfig struct {
	ChunkSize    int
	MaxSpeedMBps float64
	OnPass       func(PassReport)
}

// Overwriter перезаписывает содержимое файла проходами метода
type Overwriter struct {
	config OverwriterConfig
	open   func(path string) (fileHandle, error)
}

// NewOverwriter создает Overwriter
func NewOverwriter(config OverwriterConfig) *Overwriter {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	return &Overwriter{config: config, open: openForOverwrite}
}

// Overwrite выполняет все проходы метода для файла.
// Длина фиксируется один раз до первого прохода; каждый проход пишет её целиком и завершается Sync.
// Любая ошибка прерывает оставшиеся проходы и возвращается как IOFailure.
func (o *Overwriter) Overwrite(path string, method Method) (bytesOverwritten int64, passesCompleted int, err error) {
	if !method.Valid() {
		return 0, 0, apperr.Configf("неподдерживаемый метод затирания: %s", method)
	}
	passes := resolvePasses(method.Passes())
	if len(passes) == 0 {
		return 0, 0, nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		return 0, 0, apperr.New(apperr.IO, "stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, 0, apperr.New(apperr.IO, "stat", path, errors.New("не обычный файл"))
	}
	length := info.Size()

	file, err := o.open(path)
	if err != nil {
		return 0, 0, apperr.New(apperr.IO, "open", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = apperr.New(apperr.IO, "close", path, cerr)
		}
	}()

	chunk := o.config.ChunkSize
	if int64(chunk) > length && length > 0 {
		chunk = int(length)
	}
	buf := GetBuffer(chunk)
	defer PutBuffer(buf)

	writer := NewThrottledWriter(file, o.config.MaxSpeedMBps, chunk)

	for i, pass := range passes {
		written, perr := o.writePass(file, writer, buf, pass, length)
		bytesOverwritten += written
		if perr != nil {
			return bytesOverwritten, passesCompleted, apperr.New(apperr.IO, fmt.Sprintf("pass %d/%d", i+1, len(passes)), path, perr)
		}
		passesCompleted++

		if o.config.OnPass != nil {
			o.config.OnPass(PassReport{
				Path:   path,
				Pass:   i + 1,
				Total:  len(passes),
				Kind:   pass.Kind,
				Value:  pass.Value,
				Length: length,
			})
		}
	}

	return bytesOverwritten, passesCompleted, nil
}

// writePass записывает один проход с начала файла и синхронизирует его с диском
func (o *Overwriter) writePass(file fileHandle, w io.Writer, buf []byte, pass Pass, length int64) (int64, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("ошибка позиционирования: %w", err)
	}

	var rnd *randomSource
	if pass.Kind == PatternRandom {
		var err error
		if rnd, err = newRandomSource(); err != nil {
			return 0, err
		}
	} else {
		FillBufferPattern(buf, pass.Value)
	}

	var written int64
	for written < length {
		toWrite := int64(len(buf))
		if remaining := length - written; remaining < toWrite {
			toWrite = remaining
		}
		chunk := buf[:toWrite]
		if rnd != nil {
			rnd.Fill(chunk)
		}

		off := 0
		for off < len(chunk) {
			n, err := w.Write(chunk[off:])
			if n > 0 {
				off += n
				written += int64(n)
			}
			if err != nil {
				return written, fmt.Errorf("ошибка записи: %w", err)
			}
			if n == 0 {
				return written, fmt.Errorf("запись вернула 0 байт без ошибки")
			}
		}
	}

	if err := file.Sync(); err != nil {
		return written, fmt.Errorf("ошибка синхронизации: %w", err)
	}

	return written, nil
}
