package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/bookswap/internal/config"
)

// clearEnv убирает переменные клиента на время теста.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		config.EnvAPIURL, config.EnvStore, config.EnvStorePath, config.EnvStorePassword,
		config.EnvLogFile, config.EnvInsecure, config.EnvTimeout, config.EnvDebug,
	} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func parse(t *testing.T, args ...string) (*config.Config, *pflag.FlagSet) {
	t.Helper()
	cfg := config.Default()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return &cfg, flags
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, flags := parse(t)

	require.NoError(t, cfg.Load(flags, ""))
	assert.Equal(t, config.DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, config.StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, config.DefaultSQLitePath, cfg.StorePath)
	assert.Equal(t, config.DefaultLogFile, cfg.LogFile)
	assert.Equal(t, config.DefaultTimeout, cfg.Timeout)
	assert.False(t, cfg.Insecure)
	assert.False(t, cfg.Debug)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		env         map[string]string
		dotenv      string
		expectedURL string
	}{
		{
			name:        "Значение по умолчанию",
			expectedURL: config.DefaultAPIURL,
		},
		{
			name:        "Файл .env",
			dotenv:      config.EnvAPIURL + "=https://dotenv.example.com/api\n",
			expectedURL: "https://dotenv.example.com/api",
		},
		{
			name:        "Окружение важнее .env",
			env:         map[string]string{config.EnvAPIURL: "https://env.example.com/api"},
			dotenv:      config.EnvAPIURL + "=https://dotenv.example.com/api\n",
			expectedURL: "https://env.example.com/api",
		},
		{
			name:        "Флаг важнее окружения",
			args:        []string{"--api-url", "https://flag.example.com/api"},
			env:         map[string]string{config.EnvAPIURL: "https://env.example.com/api"},
			expectedURL: "https://flag.example.com/api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			envFile := ""
			if tt.dotenv != "" {
				envFile = filepath.Join(t.TempDir(), ".env")
				// godotenv пишет в окружение процесса, clearEnv вернет его после теста
				require.NoError(t, os.WriteFile(envFile, []byte(tt.dotenv), 0o600))
			}

			cfg, flags := parse(t, tt.args...)
			require.NoError(t, cfg.Load(flags, envFile))
			assert.Equal(t, tt.expectedURL, cfg.APIURL)
		})
	}
}

func TestLoad_EnvValues(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvStore, config.StoreKDBX)
	t.Setenv(config.EnvStorePassword, "master")
	t.Setenv(config.EnvInsecure, "true")
	t.Setenv(config.EnvTimeout, "5s")
	t.Setenv(config.EnvDebug, "1")
	t.Setenv(config.EnvLogFile, "/tmp/bookswap.log")

	cfg, flags := parse(t)
	require.NoError(t, cfg.Load(flags, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, config.StoreKDBX, cfg.StoreBackend)
	assert.Equal(t, config.DefaultKDBXPath, cfg.StorePath, "путь по умолчанию зависит от хранилища")
	assert.Equal(t, "master", cfg.StorePassword)
	assert.True(t, cfg.Insecure)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "/tmp/bookswap.log", cfg.LogFile)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{name: "Некорректный таймаут", env: config.EnvTimeout, val: "soon"},
		{name: "Некорректный insecure", env: config.EnvInsecure, val: "maybe"},
		{name: "Некорректный debug", env: config.EnvDebug, val: "yes please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.val)

			cfg, flags := parse(t)
			err := cfg.Load(flags, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *config.Config)
		expectedErr string
	}{
		{name: "Корректная конфигурация", mutate: func(_ *config.Config) {}},
		{
			name:        "Пустой URL",
			mutate:      func(c *config.Config) { c.APIURL = "" },
			expectedErr: "некорректный URL API",
		},
		{
			name:        "URL без схемы",
			mutate:      func(c *config.Config) { c.APIURL = "localhost:7004/api" },
			expectedErr: "URL API",
		},
		{
			name:        "Неподдерживаемая схема",
			mutate:      func(c *config.Config) { c.APIURL = "ftp://example.com" },
			expectedErr: "неподдерживаемая схема",
		},
		{
			name:        "Неизвестное хранилище",
			mutate:      func(c *config.Config) { c.StoreBackend = "redis" },
			expectedErr: "неизвестное хранилище",
		},
		{
			name:        "kdbx без пароля",
			mutate:      func(c *config.Config) { c.StoreBackend = config.StoreKDBX },
			expectedErr: "мастер-пароль",
		},
		{
			name:        "Нулевой таймаут",
			mutate:      func(c *config.Config) { c.Timeout = 0 },
			expectedErr: "таймаут",
		},
		{
			name:        "Пустой путь к хранилищу",
			mutate:      func(c *config.Config) { c.StorePath = "" },
			expectedErr: "путь к файлу хранилища",
		},
		{
			name: "Память без пути",
			mutate: func(c *config.Config) {
				c.StoreBackend = config.StoreMemory
				c.StorePath = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.StorePath = config.DefaultSQLitePath
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectedErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}
