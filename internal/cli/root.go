// Package cli содержит команды клиента BookSwap на cobra.
// Без подкоманды запускается терминальный интерфейс.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maynagashev/bookswap/internal/api"
	"github.com/maynagashev/bookswap/internal/config"
	"github.com/maynagashev/bookswap/internal/session"
	"github.com/maynagashev/bookswap/internal/storage"
	"github.com/maynagashev/bookswap/internal/tui"
)

// annotationSkipSetup помечает команды, которым не нужны сессия и логирование.
const annotationSkipSetup = "bookswap/skip-setup"

// ErrNotLoggedIn возвращается командами, требующими входа.
var ErrNotLoggedIn = errors.New("вход не выполнен, используйте команду login")

// BuildInfo - сведения о сборке, задаются через ldflags.
type BuildInfo struct {
	Version    string
	BuildDate  string
	CommitHash string
}

// Option настраивает корневую команду.
type Option func(a *app)

// WithIO подменяет ввод и вывод команд.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *app) {
		a.in = in
		a.out = out
	}
}

// WithEnvFile задает путь к файлу .env. Пустая строка отключает его загрузку.
func WithEnvFile(path string) Option {
	return func(a *app) {
		a.envFile = path
	}
}

// app хранит конфигурацию и ресурсы, открытые на время выполнения команды.
type app struct {
	cfg     config.Config
	build   BuildInfo
	envFile string
	in      io.Reader
	out     io.Writer
	reader  *bufio.Reader

	store     storage.Storage
	lock      *storage.FileLock
	readOnly  bool
	session   *session.Store
	client    api.Client
	logCloser io.Closer
}

// NewRootCommand собирает дерево команд.
func NewRootCommand(build BuildInfo, opts ...Option) *cobra.Command {
	a := &app{
		cfg:     config.Default(),
		build:   build,
		envFile: config.DefaultEnvFile,
		in:      os.Stdin,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.reader = bufio.NewReader(a.in)

	root := &cobra.Command{
		Use:   "bookswap",
		Short: "Клиент сервиса обмена книгами BookSwap",
		Long: `bookswap - клиент сервиса обмена книгами.

Без подкоманды запускает терминальный интерфейс. Настройки читаются из флагов,
переменных окружения BOOKSWAP_* и файла .env.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.run(a.runTUI),
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	a.cfg.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		a.newLoginCommand(),
		a.newLogoutCommand(),
		a.newWhoamiCommand(),
		a.newRegisterCommand(),
		a.newPasswordCommand(),
		a.newBooksCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Execute выполняет команду с аргументами процесса и возвращает код выхода.
func Execute(build BuildInfo) int {
	root := NewRootCommand(build)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		return 1
	}
	return 0
}

// run оборачивает команду так, что ресурсы освобождаются и при ошибке.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, a.teardown())
		}()
		return fn(cmd, args)
	}
}

// setup загружает конфигурацию, настраивает логирование и открывает сессию.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationSkipSetup] == "true" {
		return nil
	}
	if err := a.open(cmd); err != nil {
		return errors.Join(err, a.teardown())
	}
	return nil
}

func (a *app) open(cmd *cobra.Command) error {
	if err := a.cfg.Load(cmd.Flags(), a.envFile); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logCloser, err := setupLogging(a.cfg.LogFile, a.cfg.Debug)
	if err != nil {
		return err
	}
	a.logCloser = logCloser

	slog.Info("Запуск BookSwap",
		"version", a.build.Version,
		"command", cmd.CommandPath(),
		"apiURL", a.cfg.APIURL,
		"store", a.cfg.StoreBackend,
		"storePath", a.cfg.StorePath,
	)

	a.store, a.lock, a.readOnly, err = openStorage(a.cfg)
	if err != nil {
		return err
	}

	a.session = session.New(a.store)
	if err = a.session.Initialize(); err != nil {
		return fmt.Errorf("ошибка инициализации сессии: %w", err)
	}

	clientOpts := []api.Option{api.WithTimeout(a.cfg.Timeout)}
	if a.cfg.Insecure {
		slog.Warn("Проверка TLS-сертификата сервера отключена")
		clientOpts = append(clientOpts, api.WithInsecureSkipVerify())
	}
	a.client = api.NewHTTPClient(a.cfg.APIURL, clientOpts...)
	return nil
}

// teardown закрывает хранилище и снимает блокировку.
func (a *app) teardown() error {
	var errs []error
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ошибка закрытия хранилища: %w", err))
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			errs = append(errs, err)
		} else {
			slog.Debug("Блокировка файла снята", "lockPath", a.lock.Path())
		}
	}
	if a.logCloser != nil {
		slog.Debug("Завершение работы")
		// Файл логов закрывается, дальнейшие записи отбрасываются
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.store, a.lock, a.logCloser = nil, nil, nil
	return errors.Join(errs...)
}

// runTUI запускает терминальный интерфейс.
func (a *app) runTUI(_ *cobra.Command, _ []string) error {
	return tui.Start(tui.Options{
		API:      a.client,
		Session:  a.session,
		ReadOnly: a.readOnly,
		Debug:    a.cfg.Debug,
	})
}

// requireIdentity возвращает личность вошедшего пользователя.
func (a *app) requireIdentity() (session.Identity, error) {
	id, err := a.session.Identity()
	if err != nil {
		return session.Identity{}, err
	}
	if !id.Authenticated() {
		return session.Identity{}, ErrNotLoggedIn
	}
	return id, nil
}
