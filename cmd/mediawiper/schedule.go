package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mediawiper/internal/apperr"
	"mediawiper/internal/media"
	"mediawiper/internal/schedule"
	"mediawiper/internal/security"
	"mediawiper/internal/wipe"
)

const anchorLayout = "2006-01-02 15:04"

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Управление заданиями по расписанию",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <target_dir>",
	Short: "Добавить задание",
	Example: `  mediawiper schedule add ~/Videos --interval daily --at "2026-10-15 03:00" --secure-method dod
  mediawiper schedule add ./tmp --interval once --at "2026-10-14 23:30"`,
	Args: cobra.ExactArgs(1),
	RunE: runScheduleAdd,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать задания",
	Args:  cobra.NoArgs,
	RunE:  runScheduleList,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Удалить задание",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRemove,
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Включить задание",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduleSetEnabled(args[0], true)
	},
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Выключить задание",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduleSetEnabled(args[0], false)
	},
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Фоновый планировщик",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить планировщик до остановки по сигналу",
	Args:  cobra.NoArgs,
	RunE:  runScheduler,
}

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Показать категории расширений",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range media.Categories() {
			exts, _ := media.CategoryExtensions(c)
			fmt.Printf("%-10s %s\n", c, strings.Join(exts, " "))
		}
		fmt.Printf("\nПо умолчанию: %s\n", media.DefaultSet())
	},
}

func init() {
	addWipeFlags(scheduleAddCmd)
	scheduleAddCmd.Flags().String("interval", "daily", "Период ("+joinNames(schedule.Intervals())+")")
	scheduleAddCmd.Flags().String("at", "", "Дата и время первого запуска, \"ГГГГ-ММ-ДД ЧЧ:ММ\"")
	_ = scheduleAddCmd.MarkFlagRequired("at")

	scheduleCmd.AddCommand(scheduleAddCmd, scheduleListCmd, scheduleRemoveCmd, scheduleEnableCmd, scheduleDisableCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	rootCmd.AddCommand(scheduleCmd, schedulerCmd, extensionsCmd)
}

func openStore() (*schedule.Store, error) {
	store, err := schedule.OpenStore(cfg.Schedule.StorePath, time.Now)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища заданий: %w", err)
	}
	return store, nil
}

// parseAnchor разбирает время в локальной зоне
func parseAnchor(value string) (time.Time, error) {
	t, err := time.ParseInLocation(anchorLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, apperr.Configf("некорректное время %q, ожидается %s", value, anchorLayout)
	}
	return t, nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	req, err := buildRequest(cmd, args[0])
	if err != nil {
		return err
	}
	if err := security.CheckTarget(cfg, req.TargetDir); err != nil {
		return err
	}

	intervalName, _ := cmd.Flags().GetString("interval")
	interval, err := schedule.ParseInterval(intervalName)
	if err != nil {
		return err
	}
	atValue, _ := cmd.Flags().GetString("at")
	anchor, err := parseAnchor(atValue)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	entry, err := store.Add(req, interval, anchor)
	if err != nil {
		return err
	}

	logger.Log("INFO", "Задание добавлено", "id", entry.ID, "dir", req.TargetDir, "interval", interval.String())
	fmt.Printf("Задание %s добавлено, следующий запуск: %s\n", entry.ID, entry.NextFire.Format(anchorLayout))
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	store, err := openStore()
	if err != nil {
		return err
	}
	entries := store.List()
	if len(entries) == 0 {
		fmt.Println("Заданий нет")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tКАТАЛОГ\tМЕТОД\tПЕРИОД\tСЛЕДУЮЩИЙ\tПОСЛЕДНИЙ\tСОСТОЯНИЕ")
	for _, e := range entries {
		last := "-"
		if e.LastFire != nil {
			last = e.LastFire.Local().Format(anchorLayout)
			if e.LastResult != nil && !e.LastResult.OK() {
				last += " (ошибки)"
			}
		}
		next := "-"
		if e.Enabled {
			next = e.NextFire.Local().Format(anchorLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Request.TargetDir, e.Request.Method, e.Interval, next, last, e.Status())
	}
	return w.Flush()
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Remove(args[0]); err != nil {
		return err
	}
	logger.Log("INFO", "Задание удалено", "id", args[0])
	fmt.Printf("Задание %s удалено\n", args[0])
	return nil
}

func runScheduleSetEnabled(id string, enabled bool) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	store, err := openStore()
	if err != nil {
		return err
	}
	entry, err := store.SetEnabled(id, enabled)
	if err != nil {
		return err
	}
	logger.Log("INFO", "Состояние задания изменено", "id", id, "enabled", enabled)
	if enabled {
		fmt.Printf("Задание %s включено, следующий запуск: %s\n", id, entry.NextFire.Format(anchorLayout))
	} else {
		fmt.Printf("Задание %s выключено\n", id)
	}
	return nil
}

// scheduledRunner выполняет задание планировщика с проверкой цели и отчётом
type scheduledRunner struct {
	orchestrator *wipe.Orchestrator
}

func (r *scheduledRunner) Run(ctx context.Context, entryID string, req wipe.Request) (*wipe.Result, error) {
	startTime := time.Now()
	if err := security.CheckTarget(cfg, req.TargetDir); err != nil {
		generateAndSaveReport(nil, err, req, "scheduler", entryID, startTime, time.Now(), EXIT_ERROR)
		return nil, err
	}
	result, err := r.orchestrator.Run(ctx, req)
	generateAndSaveReport(result, err, req, "scheduler", entryID, startTime, time.Now(), resultExitCode(result, err))
	return result, err
}

func runScheduler(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	store, err := openStore()
	if err != nil {
		return err
	}

	runner := &scheduledRunner{orchestrator: wipe.NewOrchestrator(overwriterConfig(cfg), logger)}
	scheduler, err := schedule.New(store, runner, schedule.Config{
		Poll:      cfg.Schedule.Poll,
		Watch:     cfg.Schedule.Watch,
		QueueSize: cfg.Schedule.QueueSize,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case report := <-scheduler.Results():
				if report.Err != nil {
					fmt.Printf("[%s] %s: ошибка: %v\n", report.FiredAt.Format(anchorLayout), report.Entry.ID, report.Err)
					continue
				}
				fmt.Printf("[%s] %s: %s\n", report.FiredAt.Format(anchorLayout), report.Entry.ID, report.Result.Summary())
			}
		}
	}()

	fmt.Printf("%s %s: планировщик запущен (%s), Ctrl+C для остановки\n", AppName, Version, store.Path())
	return scheduler.Run(ctx)
}
