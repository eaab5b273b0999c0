// Package config собирает настройки клиента из флагов, переменных окружения
// и файла .env. Приоритет: флаг > переменная окружения > .env > значение по умолчанию.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Типы хранилища сессии.
const (
	StoreSQLite = "sqlite"
	StoreKDBX   = "kdbx"
	StoreMemory = "memory"
)

// Значения по умолчанию.
const (
	DefaultAPIURL     = "https://localhost:7004/api"
	DefaultLogFile    = "logs/client.log"
	DefaultSQLitePath = "bookswap.db"
	DefaultKDBXPath   = "bookswap.kdbx"
	DefaultTimeout    = 30 * time.Second
	DefaultEnvFile    = ".env"
)

// Переменные окружения.
const (
	EnvAPIURL        = "BOOKSWAP_API_URL"
	EnvStore         = "BOOKSWAP_STORE"
	EnvStorePath     = "BOOKSWAP_STORE_PATH"
	EnvStorePassword = "BOOKSWAP_STORE_PASSWORD" //nolint:gosec // Это имя переменной, а не пароль
	EnvLogFile       = "BOOKSWAP_LOG_FILE"
	EnvInsecure      = "BOOKSWAP_INSECURE"
	EnvTimeout       = "BOOKSWAP_TIMEOUT"
	EnvDebug         = "BOOKSWAP_DEBUG"
)

// Имена флагов.
const (
	FlagAPIURL    = "api-url"
	FlagStore     = "store"
	FlagStorePath = "store-path"
	FlagLogFile   = "log-file"
	FlagInsecure  = "insecure"
	FlagTimeout   = "timeout"
	FlagDebug     = "debug"
)

// Config хранит настройки клиента.
type Config struct {
	APIURL        string        // Базовый URL API
	StoreBackend  string        // sqlite, kdbx или memory
	StorePath     string        // Путь к файлу хранилища сессии
	StorePassword string        // Мастер-пароль для kdbx, задается только через окружение
	LogFile       string        // Путь к файлу логов
	Insecure      bool          // Не проверять TLS-сертификат сервера
	Timeout       time.Duration // Таймаут HTTP-запросов
	Debug         bool          // Подробное логирование
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		APIURL:       DefaultAPIURL,
		StoreBackend: StoreSQLite,
		LogFile:      DefaultLogFile,
		Timeout:      DefaultTimeout,
	}
}

// RegisterFlags регистрирует флаги, привязанные к полям cfg.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.APIURL, FlagAPIURL, c.APIURL,
		fmt.Sprintf("Базовый URL API (env: %s)", EnvAPIURL))
	flags.StringVar(&c.StoreBackend, FlagStore, c.StoreBackend,
		fmt.Sprintf("Хранилище сессии: sqlite, kdbx или memory (env: %s)", EnvStore))
	flags.StringVar(&c.StorePath, FlagStorePath, c.StorePath,
		fmt.Sprintf("Путь к файлу хранилища сессии (env: %s)", EnvStorePath))
	flags.StringVar(&c.LogFile, FlagLogFile, c.LogFile,
		fmt.Sprintf("Путь к файлу логов (env: %s)", EnvLogFile))
	flags.BoolVar(&c.Insecure, FlagInsecure, c.Insecure,
		fmt.Sprintf("Не проверять TLS-сертификат сервера (env: %s)", EnvInsecure))
	flags.DurationVar(&c.Timeout, FlagTimeout, c.Timeout,
		fmt.Sprintf("Таймаут HTTP-запросов (env: %s)", EnvTimeout))
	flags.BoolVar(&c.Debug, FlagDebug, c.Debug,
		fmt.Sprintf("Подробное логирование (env: %s)", EnvDebug))
}

// Load дополняет cfg значениями из окружения для флагов, которые не были заданы явно.
// Файл envFile (если есть) загружается в окружение без перезаписи существующих переменных.
func (c *Config) Load(flags *pflag.FlagSet, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("ошибка чтения файла %s: %w", envFile, err)
		}
	}

	changed := func(name string) bool {
		return flags != nil && flags.Changed(name)
	}

	if !changed(FlagAPIURL) {
		lookupString(EnvAPIURL, &c.APIURL)
	}
	if !changed(FlagStore) {
		lookupString(EnvStore, &c.StoreBackend)
	}
	if !changed(FlagStorePath) {
		lookupString(EnvStorePath, &c.StorePath)
	}
	if !changed(FlagLogFile) {
		lookupString(EnvLogFile, &c.LogFile)
	}
	lookupString(EnvStorePassword, &c.StorePassword)

	if !changed(FlagInsecure) {
		if err := lookupBool(EnvInsecure, &c.Insecure); err != nil {
			return err
		}
	}
	if !changed(FlagDebug) {
		if err := lookupBool(EnvDebug, &c.Debug); err != nil {
			return err
		}
	}
	if !changed(FlagTimeout) {
		if value, ok := os.LookupEnv(EnvTimeout); ok {
			timeout, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("некорректное значение %s=%q: %w", EnvTimeout, value, err)
			}
			c.Timeout = timeout
		}
	}

	if c.StorePath == "" {
		c.StorePath = defaultStorePath(c.StoreBackend)
	}
	return nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("некорректный URL API: %q", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("неподдерживаемая схема URL API: %q", u.Scheme)
	}

	switch c.StoreBackend {
	case StoreSQLite, StoreMemory:
	case StoreKDBX:
		if c.StorePassword == "" {
			return fmt.Errorf("для хранилища kdbx нужен мастер-пароль (%s)", EnvStorePassword)
		}
	default:
		return fmt.Errorf("неизвестное хранилище сессии: %q", c.StoreBackend)
	}

	if c.StoreBackend != StoreMemory && c.StorePath == "" {
		return errors.New("не указан путь к файлу хранилища сессии")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("таймаут должен быть положительным: %s", c.Timeout)
	}
	return nil
}

func defaultStorePath(backend string) string {
	switch backend {
	case StoreSQLite:
		return DefaultSQLitePath
	case StoreKDBX:
		return DefaultKDBXPath
	default:
		return ""
	}
}

func lookupString(env string, target *string) {
	if value, ok := os.LookupEnv(env); ok {
		*target = value
	}
}

func lookupBool(env string, target *bool) error {
	value, ok := os.LookupEnv(env)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("некорректное значение %s=%q: %w", env, value, err)
	}
	*target = parsed
	return nil
}
