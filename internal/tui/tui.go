// Package tui реализует терминальный интерфейс клиента BookSwap на bubbletea.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/bookswap/internal/api"
	"github.com/maynagashev/bookswap/internal/session"
)

const (
	statusMessageTimeout     = 2 * time.Second // Время отображения статусных сообщений
	helpStatusHeightOffset   = 2               // Высота строки помощи и статуса
	docStyleMarginVertical   = 1
	docStyleMarginHorizontal = 2
)

// ErrNoAPIClient возвращается, если Start вызван без клиента API.
var ErrNoAPIClient = errors.New("клиент API не задан")

// Options - зависимости, с которыми запускается интерфейс.
type Options struct {
	API     api.Client
	Session *session.Store
	// ReadOnly означает, что хранилище сессии занято другим процессом.
	ReadOnly bool
	Debug    bool
}

// Init - команда, выполняемая при запуске приложения.
func (m *model) Init() tea.Cmd {
	if m.state == dashboardScreen {
		m.loading = true
		return tea.Batch(textinput.Blink, m.refreshBooksCmd())
	}
	return textinput.Blink
}

// setStatusMessage устанавливает статусное сообщение и запускает таймер для его очистки.
func (m *model) setStatusMessage(status string) (tea.Model, tea.Cmd) {
	m.status = status
	return m, clearStatusCmd(statusMessageTimeout)
}

// showLoginScreen переводит интерфейс на экран входа.
// Используется как навигатор сессии после выхода.
func (m *model) showLoginScreen() {
	m.state = loginScreen
	m.searchFocused = false
	m.searchInput.Blur()
	m.searchInput.Reset()
	m.books.Reset()
	m.syncBookViews()
	m.loginForm.reset()
}

// getMainContentView возвращает основное содержимое для текущего состояния.
func (m *model) getMainContentView() string {
	switch m.state {
	case loginScreen:
		return m.viewLoginScreen()
	case registerScreen:
		return m.viewRegisterScreen()
	case dashboardScreen:
		return m.viewDashboardScreen()
	case myBooksScreen:
		return m.viewMyBooksScreen()
	case bookEditScreen:
		return m.viewBookEditScreen()
	case bookAddScreen:
		return m.viewBookAddScreen()
	case requestResetScreen:
		return m.viewRequestResetScreen()
	case resetPasswordScreen:
		return m.viewResetPasswordScreen()
	case updatePasswordScreen:
		return m.viewUpdatePasswordScreen()
	default:
		return "Неизвестное состояние!"
	}
}

// getContentAndHelp возвращает основное содержимое и подсказку для текущего экрана.
func (m *model) getContentAndHelp() (string, string) {
	mainContent := m.getMainContentView()
	help, ok := m.helpTextMap[m.state]
	if !ok {
		help = fmt.Sprintf("State: %s", m.state.String())
	}
	return mainContent, help
}

// getDebugInfoString возвращает отладочную информацию о состоянии клиента.
// Токен не выводится.
func (m *model) getDebugInfoString() string {
	var debugInfo strings.Builder
	debugInfo.WriteString(fmt.Sprintf(" [State: %s]\n", m.state.String()))
	if id, err := m.session.Identity(); err == nil {
		debugInfo.WriteString(fmt.Sprintf(" [User: %d %s]\n", id.UserID, id.Name))
		debugInfo.WriteString(fmt.Sprintf(" [Authenticated: %t]\n", id.Authenticated()))
	}
	debugInfo.WriteString(fmt.Sprintf(" [Session degraded: %t]\n", m.session.Degraded()))
	debugInfo.WriteString(fmt.Sprintf(" [Query: %q]\n", m.books.SearchQuery()))
	return debugInfo.String()
}

// View отрисовывает пользовательский интерфейс.
func (m *model) View() string {
	mainContent, help := m.getContentAndHelp()

	var footer strings.Builder
	readOnlyIndicator := ""
	if m.readOnlyMode {
		readOnlyIndicator = " [Сессия не сохраняется]"
	}
	if m.status != "" || m.readOnlyMode {
		footer.WriteString("\n")
		footer.WriteString(m.status)
		footer.WriteString(readOnlyIndicator)
	}

	if m.debugMode {
		footer.WriteString("\n\n---\nОтладка:\n")
		footer.WriteString(m.getDebugInfoString())
	}

	styledContent := m.docStyle.Render(mainContent)
	return fmt.Sprintf("%s\n%s%s", styledContent, help, footer.String())
}

// newModel собирает модель и подключает ее к сессии.
// Если личность уже восстановлена, интерфейс открывается на главном экране.
func newModel(opts Options) *model {
	m := initModel(opts.API, opts.Session)
	m.readOnlyMode = opts.ReadOnly
	m.debugMode = opts.Debug
	opts.Session.SetNavigator(m.showLoginScreen)

	if id, err := opts.Session.Identity(); err == nil && id.Authenticated() {
		m.state = dashboardScreen
		m.loginForm.blur()
	}
	return &m
}

// Start запускает TUI приложение. Сессия должна быть инициализирована.
func Start(opts Options) error {
	if opts.API == nil {
		return ErrNoAPIClient
	}
	if opts.Session == nil {
		return session.ErrNotInitialized
	}
	if _, err := opts.Session.Identity(); err != nil {
		return err
	}

	m := newModel(opts)
	slog.Info("Запуск TUI", "state", m.state.String(), "readOnly", opts.ReadOnly)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("Ошибка при запуске TUI", "error", err)
		return fmt.Errorf("ошибка TUI: %w", err)
	}
	return nil
}
