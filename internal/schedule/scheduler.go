package schedule

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"mediawiper/internal/logging"
	"mediawiper/internal/wipe"
)

// Runner выполняет задание удаления; entryID указывает, какое задание сработало
type Runner interface {
	Run(ctx context.Context, entryID string, req wipe.Request) (*wipe.Result, error)
}

// FireReport сообщение о завершённом срабатывании
type FireReport struct {
	Entry   Entry
	FiredAt time.Time
	Result  *wipe.Result
	Err     error
}

// Config параметры цикла планировщика
type Config struct {
	Poll      string // расписание опроса в формате cron, например "@every 30s"
	Watch     bool   // следить за файлом хранилища
	QueueSize int
}

// Scheduler опрашивает хранилище и передаёт наступившие задания
// единственному исполнителю, так что два удаления никогда не идут одновременно.
type Scheduler struct {
	store   *Store
	runner  Runner
	logger  *logging.Logger
	poll    cron.Schedule
	watch   bool
	now     func() time.Time
	queue   chan Entry
	results chan FireReport

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// New создает Scheduler
func New(store *Store, runner Runner, cfg Config, logger *logging.Logger) (*Scheduler, error) {
	if store == nil || runner == nil {
		return nil, errors.New("планировщику нужны хранилище и исполнитель")
	}
	if cfg.Poll == "" {
		cfg.Poll = "@every 30s"
	}
	poll, err := cron.ParseStandard(cfg.Poll)
	if err != nil {
		return nil, fmt.Errorf("некорректное расписание опроса '%s': %w", cfg.Poll, err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Scheduler{
		store:    store,
		runner:   runner,
		logger:   logger,
		poll:     poll,
		watch:    cfg.Watch && store.Path() != "",
		now:      store.now,
		queue:    make(chan Entry, cfg.QueueSize),
		results:  make(chan FireReport, cfg.QueueSize),
		inFlight: make(map[string]struct{}),
	}, nil
}

// Results канал отчётов о срабатываниях. Если его никто не читает,
// лишние отчёты отбрасываются.
func (s *Scheduler) Results() <-chan FireReport {
	return s.results
}

// Run запускает исполнителя и цикл опроса до отмены ctx.
// Просроченные задания срабатывают один раз на первом же опросе.
func (s *Scheduler) Run(ctx context.Context) error {
	s.wg.Add(1)
	go s.worker(ctx)
	defer s.wg.Wait()

	var events <-chan fsnotify.Event
	if s.watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			s.logger.Log("WARN", "наблюдение за хранилищем недоступно", "error", err)
		} else {
			defer watcher.Close()
			// следим за каталогом: файл заменяется через rename
			if err := watcher.Add(filepath.Dir(s.store.Path())); err != nil {
				s.logger.Log("WARN", "наблюдение за хранилищем недоступно", "error", err)
			} else {
				events = watcher.Events
				go s.drainWatchErrors(ctx, watcher)
			}
		}
	}

	s.logger.Log("INFO", "планировщик запущен", "store", s.store.Path())
	s.Tick()

	timer := time.NewTimer(s.untilNextPoll())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Log("INFO", "планировщик остановлен")
			return nil
		case <-timer.C:
			s.Tick()
			timer.Reset(s.untilNextPoll())
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(s.store.Path()) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.logger.Log("DEBUG", "хранилище изменено", "event", ev.Op.String())
				s.Tick()
			}
		}
	}
}

// Tick перечитывает хранилище при внешних изменениях и ставит в очередь
// наступившие задания. Возвращает число поставленных в очередь.
func (s *Scheduler) Tick() int {
	if reloaded, err := s.store.Refresh(); err != nil {
		s.logger.Log("ERROR", "ошибка обновления хранилища заданий", "error", err)
	} else if reloaded {
		s.logger.Log("DEBUG", "хранилище заданий перечитано")
	}

	dispatched := 0
	for _, e := range s.store.Due(s.now()) {
		if !s.markInFlight(e.ID) {
			continue
		}
		select {
		case s.queue <- e:
			dispatched++
			s.logger.Log("DEBUG", "задание поставлено в очередь", "id", e.ID, "dir", e.Request.TargetDir)
		default:
			s.clearInFlight(e.ID)
			s.logger.Log("WARN", "очередь заданий заполнена, запуск отложен", "id", e.ID)
		}
	}
	return dispatched
}

func (s *Scheduler) untilNextPoll() time.Duration {
	now := time.Now()
	d := s.poll.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.queue:
			s.fire(ctx, e)
		}
	}
}

// fire выполняет одно задание и записывает результат в хранилище
func (s *Scheduler) fire(ctx context.Context, e Entry) {
	defer s.clearInFlight(e.ID)

	// пока задание ждало в очереди, его могли удалить или выключить
	if _, err := s.store.Refresh(); err != nil {
		s.logger.Log("ERROR", "ошибка обновления хранилища заданий", "error", err)
	}
	current, err := s.store.Get(e.ID)
	if err != nil {
		s.logger.Log("INFO", "задание удалено до запуска", "id", e.ID)
		return
	}
	firedAt := s.now()
	if !current.Enabled || current.NextFire.After(firedAt) {
		s.logger.Log("INFO", "задание больше не ожидает запуска", "id", e.ID, "status", current.Status())
		return
	}
	e = current

	s.logger.Log("INFO", "запуск задания по расписанию",
		"id", e.ID, "dir", e.Request.TargetDir, "interval", e.Interval.String())

	result, err := s.runner.Run(ctx, e.ID, e.Request)
	if err != nil {
		s.logger.Log("ERROR", "задание по расписанию не выполнено", "id", e.ID, "error", err)
	}

	updated, rerr := s.store.RecordFire(e.ID, firedAt, Summarize(firedAt, result, err))
	if rerr != nil {
		// задание могли удалить, пока оно выполнялось
		s.logger.Log("WARN", "не удалось записать результат задания", "id", e.ID, "error", rerr)
		updated = e
	} else {
		s.logger.Log("INFO", "задание по расписанию завершено",
			"id", e.ID, "next_fire", updated.NextFire.Format(time.RFC3339), "enabled", updated.Enabled)
	}

	report := FireReport{Entry: updated, FiredAt: firedAt, Result: result, Err: err}
	select {
	case s.results <- report:
	default:
	}
}

func (s *Scheduler) markInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) clearInFlight(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Scheduler) drainWatchErrors(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Log("WARN", "ошибка наблюдения за хранилищем", "error", err)
		}
	}
}
