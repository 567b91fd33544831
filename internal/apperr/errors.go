// Package apperr содержит таксономию ошибок MediaWiper.
package apperr

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку
type Kind string

const (
	// DirectoryAccess - целевая директория недоступна, задание целиком не выполнено
	DirectoryAccess Kind = "DirectoryAccessFailure"
	// IO - ошибка записи или синхронизации во время затирания файла
	IO Kind = "IOFailure"
	// Deletion - файл затёрт (или затирание не требовалось), но удалить его не удалось
	Deletion Kind = "DeletionFailure"
	// Configuration - некорректный запрос, обнаруживается до начала работы
	Configuration Kind = "ConfigurationError"
)

// Сентинелы для errors.Is
var (
	ErrDirectoryAccess = &Error{Kind: DirectoryAccess}
	ErrIO              = &Error{Kind: IO}
	ErrDeletion        = &Error{Kind: Deletion}
	ErrConfiguration   = &Error{Kind: Configuration}
)

// Error ошибка с категорией, операцией и путём
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// New создаёт ошибку указанной категории
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Configf создаёт ConfigurationError с форматированным сообщением
func Configf(format string, args ...interface{}) *Error {
	return &Error{Kind: Configuration, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает только категорию, если target - сентинел без деталей
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Path == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// KindOf возвращает категорию ошибки или пустую строку
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
