package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediawiper/internal/apperr"
	"mediawiper/internal/config"
	"mediawiper/internal/logging"
	"mediawiper/internal/media"
	"mediawiper/internal/reporting"
	"mediawiper/internal/security"
	"mediawiper/internal/wipe"
)

const (
	Version = "1.0.0"
	AppName = "MediaWiper"

	// Exit codes
	EXIT_SUCCESS = 0
	EXIT_WARNING = 2
	EXIT_ERROR   = 1
)

var (
	cfg        *config.Config
	logger     *logging.Logger
	dryRun     bool
	verbose    bool
	configPath string
	profile    string
)

// exitCodeError завершает процесс с заданным кодом
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string {
	return e.msg
}

// CLI команды
var rootCmd = &cobra.Command{
	Use:   "mediawiper [target_dir]",
	Short: "MediaWiper - удаление медиафайлов с затиранием",
	Long: `Удаляет медиафайлы в каталоге и его подкаталогах.
Перед удалением содержимое файла может быть затёрто (random, dod, random_35pass).`,
	Example: `  mediawiper ~/Videos
  mediawiper ~/Videos --secure-method dod -v
  mediawiper ./data -e mp4,mkv --include-images --dry-run`,
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWipe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Работа с файлом конфигурации",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Записать конфигурацию по умолчанию",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		return writeDefaultConfig(path)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Тестовый режим: только показать подходящие файлы")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Подробный вывод")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Путь к конфигурации")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Профиль производительности ("+strings.Join(config.ProfileNames(), "/")+")")

	addWipeFlags(rootCmd)
	rootCmd.Flags().BoolP("force", "f", false, "Пропустить подтверждение")
}

// addWipeFlags флаги параметров удаления, общие для запуска и расписания
func addWipeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("secure-method", "m", "", "Метод затирания ("+joinNames(wipe.Methods())+")")
	cmd.Flags().StringP("extensions", "e", "", "Расширения через запятую (например: mp4,mkv)")
	for _, c := range media.Categories() {
		cmd.Flags().Bool("include-"+string(c), false, fmt.Sprintf("Добавить категорию %s", c))
	}
}

// writeDefaultConfig создаёт файл конфигурации, не перезаписывая существующий
func writeDefaultConfig(path string) error {
	if path == "" {
		return apperr.Configf("не указан путь к конфигурации (аргумент или --config)")
	}
	if _, err := os.Stat(path); err == nil {
		return apperr.Configf("файл конфигурации уже существует: %s", path)
	}
	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("ошибка сохранения конфигурации: %w", err)
	}
	fmt.Printf("Конфигурация записана: %s\n", path)
	return nil
}

func joinNames[T ~string](items []T) string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = string(item)
	}
	return strings.Join(names, "/")
}

// setup загружает конфигурацию, применяет профиль и создаёт логгер
func setup() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if profile != "" {
		if err := config.ApplyProfile(cfg, profile); err != nil {
			return fmt.Errorf("ошибка применения профиля %s: %w", profile, err)
		}
	}

	logger, err = logging.NewLogger(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("ошибка инициализации логгера: %w", err)
	}

	if profile != "" {
		logger.Log("INFO", "Применён профиль", "profile", profile)
	}
	return nil
}

func runWipe(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	startTime := time.Now()

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

	force, _ := cmd.Flags().GetBool("force")
	if !force && !req.DryRun && cfg.Security.RequireConfirmation {
		if !confirm(req) {
			logger.Log("INFO", "Операция отменена пользователем")
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Установка обработчиков сигналов
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Log("WARN", "Получен сигнал, остановка после текущего файла", "signal", sig.String())
			fmt.Printf("\n[INFO] Получен сигнал %s, завершаем работу после текущего файла...\n", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Log("INFO", "Запуск MediaWiper", "version", Version, "dry_run", req.DryRun)

	orchestrator := wipe.NewOrchestrator(overwriterConfig(cfg), logger)
	result, runErr := orchestrator.Run(ctx, req)
	endTime := time.Now()

	code := resultExitCode(result, runErr)
	generateAndSaveReport(result, runErr, req, "cli", "", startTime, endTime, code)

	if runErr != nil {
		return runErr
	}

	printResult(result, req)

	if code == EXIT_WARNING {
		return &exitCodeError{code: EXIT_WARNING, msg: fmt.Sprintf("не удалось обработать файлов: %d", result.FilesFailed)}
	}
	return nil
}

// buildRequest собирает параметры удаления из флагов и конфигурации
func buildRequest(cmd *cobra.Command, targetDir string) (wipe.Request, error) {
	methodName, _ := cmd.Flags().GetString("secure-method")
	if methodName == "" {
		methodName = cfg.Wipe.DefaultMethod
	}
	method, err := wipe.ParseMethod(methodName)
	if err != nil {
		return wipe.Request{}, err
	}

	exts, err := extensionsFromFlags(cmd)
	if err != nil {
		return wipe.Request{}, err
	}

	return wipe.NewRequest(targetDir, method, exts, verbose, dryRun)
}

// extensionsFromFlags объединяет -e и --include-*; без флагов берутся категории из конфигурации
func extensionsFromFlags(cmd *cobra.Command) (media.Set, error) {
	list, _ := cmd.Flags().GetString("extensions")
	exts, err := media.ParseList(list)
	if err != nil {
		return nil, err
	}

	var included []media.Category
	for _, c := range media.Categories() {
		if on, _ := cmd.Flags().GetBool("include-" + string(c)); on {
			included = append(included, c)
		}
	}
	if len(exts) == 0 && len(included) == 0 {
		return categoriesFromConfig(cfg)
	}

	fromCategories, err := media.FromCategories(included...)
	if err != nil {
		return nil, err
	}
	return exts.Union(fromCategories), nil
}

func categoriesFromConfig(cfg *config.Config) (media.Set, error) {
	cs := make([]media.Category, 0, len(cfg.Media.DefaultCategories))
	for _, name := range cfg.Media.DefaultCategories {
		c, err := media.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return media.FromCategories(cs...)
}

func overwriterConfig(cfg *config.Config) wipe.OverwriterConfig {
	oc := wipe.OverwriterConfig{
		ChunkSize:    int(cfg.Wipe.ChunkSize),
		MaxSpeedMBps: cfg.Wipe.MaxSpeedMBps,
	}
	if verbose {
		oc.OnPass = func(p wipe.PassReport) {
			logger.Log("DEBUG", "Проход завершён", "path", p.Path, "pass", p.Pass, "total", p.Total, "kind", string(p.Kind))
		}
	}
	return oc
}

func confirm(req wipe.Request) bool {
	fmt.Printf("ВНИМАНИЕ: Будут удалены файлы (%s) в %s\n", req.EffectiveExtensions(), req.TargetDir)
	fmt.Printf("Метод затирания: %s\n", req.Method)
	fmt.Print("Продолжить? (y/N): ")
	response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}

func printResult(result *wipe.Result, req wipe.Request) {
	fmt.Println("\nРезультаты удаления:")
	fmt.Println("==================")
	if verbose {
		for _, o := range result.Outcomes {
			fmt.Println(o.Line(req.Method))
		}
		for _, o := range result.Outcomes {
			if o.Failed() {
				fmt.Printf("  Ошибка: %v\n", o.Err)
			}
		}
		for _, dir := range result.SkippedDirs {
			fmt.Printf("  Пропущен каталог: %s\n", dir)
		}
	}
	fmt.Println(result.Summary())
}

func resultExitCode(result *wipe.Result, err error) int {
	switch {
	case err != nil:
		return EXIT_ERROR
	case result.FilesFailed > 0:
		return EXIT_WARNING
	default:
		return EXIT_SUCCESS
	}
}

func generateAndSaveReport(result *wipe.Result, runErr error, req wipe.Request, source, entryID string, startTime, endTime time.Time, exitCode int) {
	if cfg == nil || !cfg.Reporting.Enabled {
		return
	}
	report := reporting.GenerateReport(result, runErr, req, cfg, source, startTime, endTime, exitCode)
	report.EntryID = entryID
	path, err := reporting.SaveReport(report, cfg)
	if err != nil {
		logger.Log("WARN", "Ошибка сохранения отчёта", "error", err.Error())
		return
	}
	logger.Log("INFO", "Отчёт сохранён", "run_id", report.RunID, "file", path)
}

// exitCode сопоставляет ошибку команды коду завершения
func exitCode(err error) int {
	var coded *exitCodeError
	switch {
	case err == nil:
		return EXIT_SUCCESS
	case errors.As(err, &coded):
		return coded.code
	default:
		return EXIT_ERROR
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
	}
	os.Exit(exitCode(err))
}
