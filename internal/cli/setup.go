package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/maynagashev/bookswap/internal/config"
	"github.com/maynagashev/bookswap/internal/kdbx"
	"github.com/maynagashev/bookswap/internal/storage"
)

const (
	logDirPermissions  = 0o755
	logFilePermissions = 0o600
)

// setupLogging направляет slog в файл path. Вывод в терминал занят интерфейсом.
func setupLogging(path string, debug bool) (io.Closer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
		}
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть лог-файл: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	// Используем NewTextHandler для читаемости логов
	logHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(logHandler))
	slog.Info("Логгер инициализирован", "path", path, "level", level.String())
	return logFile, nil
}

// openStorage открывает хранилище сессии, выбранное в конфигурации.
// Если файл занят другим процессом, сессия работает только в памяти (readOnly).
func openStorage(cfg config.Config) (storage.Storage, *storage.FileLock, bool, error) {
	if cfg.StoreBackend == config.StoreMemory {
		slog.Info("Сессия хранится только в памяти")
		return storage.NewMemory(), nil, false, nil
	}

	lock := storage.NewFileLock(cfg.StorePath)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, nil, false, err
	}
	if !acquired {
		slog.Warn("Хранилище используется другим процессом, сессия не будет сохранена",
			"path", cfg.StorePath)
		return storage.NewMemory(), nil, true, nil
	}
	slog.Debug("Эксклюзивная блокировка файла получена", "lockPath", lock.Path())

	var st storage.Storage
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		st, err = storage.OpenSQLite(cfg.StorePath)
	case config.StoreKDBX:
		st, err = kdbx.Open(cfg.StorePath, cfg.StorePassword)
	default:
		err = fmt.Errorf("неизвестное хранилище сессии: %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, nil, false, errors.Join(err, lock.Unlock())
	}
	slog.Info("Хранилище сессии открыто", "store", cfg.StoreBackend, "path", cfg.StorePath)
	return st, lock, false, nil
}

// prompt выводит подсказку и читает строку ввода.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("ошибка чтения ввода: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword читает пароль без эха, если ввод идет с терминала.
func (a *app) promptPassword(label string) (string, error) {
	f, ok := a.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.prompt(label)
	}

	fmt.Fprintf(a.out, "%s: ", label)
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return string(password), nil
}

// valueOrPrompt возвращает значение флага или спрашивает его у пользователя.
func (a *app) valueOrPrompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return a.prompt(label)
}
