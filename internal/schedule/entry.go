package schedule

import (
	"time"

	"mediawiper/internal/wipe"
)

// Entry задание по расписанию
type Entry struct {
	ID         string       `yaml:"id"`
	Request    wipe.Request `yaml:"request"`
	Interval   Interval     `yaml:"interval"`
	Anchor     time.Time    `yaml:"anchor"`
	Timezone   string       `yaml:"timezone,omitempty"`
	NextFire   time.Time    `yaml:"next_fire"`
	LastFire   *time.Time   `yaml:"last_fire,omitempty"`
	LastResult *RunSummary  `yaml:"last_result,omitempty"`
	Enabled    bool         `yaml:"enabled"`
	CreatedAt  time.Time    `yaml:"created_at"`
}

// RunSummary краткий итог одного срабатывания
type RunSummary struct {
	FiredAt               time.Time `yaml:"fired_at" json:"fired_at"`
	FilesScanned          int       `yaml:"files_scanned" json:"files_scanned"`
	FilesMatched          int       `yaml:"files_matched" json:"files_matched"`
	FilesDeleted          int       `yaml:"files_deleted" json:"files_deleted"`
	FilesFailed           int       `yaml:"files_failed" json:"files_failed"`
	TotalBytesOverwritten int64     `yaml:"total_bytes_overwritten" json:"total_bytes_overwritten"`
	Cancelled             bool      `yaml:"cancelled,omitempty" json:"cancelled,omitempty"`
	Error                 string    `yaml:"error,omitempty" json:"error,omitempty"`
}

// Summarize сворачивает результат задания; при ошибке уровня задания result равен nil
func Summarize(firedAt time.Time, result *wipe.Result, err error) RunSummary {
	s := RunSummary{FiredAt: firedAt}
	if err != nil {
		s.Error = err.Error()
	}
	if result != nil {
		s.FilesScanned = result.FilesScanned
		s.FilesMatched = result.FilesMatched
		s.FilesDeleted = result.FilesDeleted
		s.FilesFailed = result.FilesFailed
		s.TotalBytesOverwritten = result.TotalBytesOverwritten
		s.Cancelled = result.Cancelled
	}
	return s
}

// OK true, если срабатывание прошло без ошибок
func (s RunSummary) OK() bool {
	return s.Error == "" && s.FilesFailed == 0
}

// Status текстовое состояние записи для списка заданий
func (e Entry) Status() string {
	switch {
	case e.Enabled:
		return "enabled"
	case e.Interval == Once && e.LastFire != nil:
		return "done"
	default:
		return "disabled"
	}
}

func (e Entry) clone() Entry {
	c := e
	if e.Request.Extensions != nil {
		c.Request.Extensions = e.Request.Extensions.Clone()
	}
	if e.LastFire != nil {
		t := *e.LastFire
		c.LastFire = &t
	}
	if e.LastResult != nil {
		r := *e.LastResult
		c.LastResult = &r
	}
	return c
}

// restoreLocation возвращает anchor в его исходную зону после чтения из файла
func (e *Entry) restoreLocation() {
	if e.Timezone == "" {
		return
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return
	}
	e.Anchor = e.Anchor.In(loc)
	e.NextFire = e.NextFire.In(loc)
}
