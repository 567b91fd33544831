package schedule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"mediawiper/internal/apperr"
	"mediawiper/internal/wipe"
)

// ErrNotFound задание с таким id отсутствует
var ErrNotFound = errors.New("задание не найдено")

const storeVersion = 1

type storeFile struct {
	Version int     `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// Store хранилище заданий. Все изменения идут под одним мьютексом и сразу
// сохраняются в файл (если путь задан) через временный файл и rename.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]*Entry
	now     func() time.Time

	// состояние файла на момент последнего чтения или записи
	modTime time.Time
	size    int64
}

// NewMemoryStore создаёт хранилище без файла
func NewMemoryStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{entries: make(map[string]*Entry), now: now}
}

// OpenStore загружает хранилище из файла; отсутствующий файл означает пустое хранилище
func OpenStore(path string, now func() time.Time) (*Store, error) {
	s := NewMemoryStore(now)
	s.path = path
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path путь к файлу хранилища
func (s *Store) Path() string {
	return s.path
}

// Add создаёт задание и вычисляет первое время срабатывания
func (s *Store) Add(req wipe.Request, interval Interval, anchor time.Time) (Entry, error) {
	if !interval.Valid() {
		return Entry{}, apperr.Configf("неподдерживаемый период: %s", interval)
	}
	if !req.Method.Valid() {
		return Entry{}, apperr.Configf("неподдерживаемый метод затирания: %s", req.Method)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return Entry{}, err
	}

	now := s.now()
	next, err := NextFire(interval, anchor, now)
	if err != nil {
		return Entry{}, err
	}

	e := &Entry{
		ID:        uuid.NewString(),
		Request:   req,
		Interval:  interval,
		Anchor:    anchor,
		Timezone:  anchor.Location().String(),
		NextFire:  next,
		Enabled:   true,
		CreatedAt: now,
	}
	s.entries[e.ID] = e
	if err := s.saveLocked(); err != nil {
		delete(s.entries, e.ID)
		return Entry{}, err
	}
	return e.clone(), nil
}

// Get возвращает копию задания
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.clone(), nil
}

// List возвращает копии всех заданий по возрастанию next_fire
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(*Entry) bool { return true })
}

// Due возвращает включённые задания с next_fire <= now
func (s *Store) Due(now time.Time) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(e *Entry) bool {
		return e.Enabled && !e.NextFire.After(now)
	})
}

// Remove удаляет задание
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.entries, id)
	if err := s.saveLocked(); err != nil {
		s.entries[id] = e
		return err
	}
	return nil
}

// SetEnabled включает или выключает задание. При включении next_fire
// пересчитывается от текущего времени; прошедший once включить нельзя.
func (s *Store) SetEnabled(id string, enabled bool) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return Entry{}, err
	}
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	prev := e.clone()
	if enabled {
		next, err := NextFire(e.Interval, e.Anchor, s.now())
		if err != nil {
			return Entry{}, err
		}
		e.NextFire = next
	}
	e.Enabled = enabled

	if err := s.saveLocked(); err != nil {
		*e = prev
		return Entry{}, err
	}
	return e.clone(), nil
}

// RecordFire фиксирует срабатывание: last_fire, last_result и новое next_fire.
// next_fire считается от момента записи, а не от прежнего next_fire; once выключается.
func (s *Store) RecordFire(id string, firedAt time.Time, summary RunSummary) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return Entry{}, err
	}
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	prev := e.clone()
	fired := firedAt
	e.LastFire = &fired
	e.LastResult = &summary

	if e.Interval.Recurring() {
		from := firedAt
		if now := s.now(); now.After(from) {
			from = now
		}
		next, err := NextFire(e.Interval, e.Anchor, from)
		if err != nil {
			*e = prev
			return Entry{}, err
		}
		e.NextFire = next
	} else {
		e.Enabled = false
	}

	if err := s.saveLocked(); err != nil {
		*e = prev
		return Entry{}, err
	}
	return e.clone(), nil
}

// Refresh перечитывает файл, если его изменил другой процесс.
// Возвращает true, если содержимое было перечитано.
func (s *Store) Refresh() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return false, nil
	}
	changed, err := s.changedLocked()
	if err != nil || !changed {
		return false, err
	}
	return true, s.loadLocked()
}

func (s *Store) sortedLocked(keep func(*Entry) bool) []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextFire.Equal(out[j].NextFire) {
			return out[i].NextFire.Before(out[j].NextFire)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) refreshLocked() error {
	if s.path == "" {
		return nil
	}
	changed, err := s.changedLocked()
	if err != nil || !changed {
		return err
	}
	return s.loadLocked()
}

func (s *Store) changedLocked() (bool, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения хранилища заданий: %w", err)
	}
	return !info.ModTime().Equal(s.modTime) || info.Size() != s.size, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.entries = make(map[string]*Entry)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения хранилища заданий: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperr.Configf("ошибка разбора хранилища заданий %s: %v", s.path, err)
	}
	if file.Version > storeVersion {
		return apperr.Configf("неподдерживаемая версия хранилища заданий: %d", file.Version)
	}

	entries := make(map[string]*Entry, len(file.Entries))
	for i := range file.Entries {
		e := file.Entries[i]
		if e.ID == "" || !e.Interval.Valid() {
			return apperr.Configf("повреждённое задание в %s: id=%q interval=%q", s.path, e.ID, e.Interval)
		}
		e.restoreLocation()
		entries[e.ID] = &e
	}
	s.entries = entries
	return s.statLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}

	file := storeFile{Version: storeVersion, Entries: make([]Entry, 0, len(s.entries))}
	for _, e := range s.sortedLocked(func(*Entry) bool { return true }) {
		file.Entries = append(file.Entries, e)
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("ошибка сериализации заданий: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".schedules-*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи заданий: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи заданий: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка записи заданий: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("ошибка сохранения заданий: %w", err)
	}
	return s.statLocked()
}

func (s *Store) statLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("ошибка чтения хранилища заданий: %w", err)
	}
	s.modTime = info.ModTime()
	s.size = info.Size()
	return nil
}
