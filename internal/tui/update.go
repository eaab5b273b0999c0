package tui

import (
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/bookswap/internal/api"
)

// Update обрабатывает входящие сообщения.
//
//nolint:gocyclo // Роутинг по экранам
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	// == Глобальные сообщения (не зависят от экрана) ==
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case redirectMsg:
		return m.handleRedirect(msg)

	case loginSuccessMsg:
		return m.handleLoginSuccess(msg)

	case LoginError:
		slog.Warn("Ошибка входа", "error", msg.err)
		return m.setStatusMessage("Ошибка входа: " + errorText(msg.err))

	case registerSuccessMsg:
		m.registerForm.reset()
		m.state = loginScreen
		m.loginForm.focus(0)
		return m.setStatusMessage(msg.message)

	case RegisterError:
		slog.Warn("Ошибка регистрации", "error", msg.err)
		return m.setStatusMessage("Ошибка регистрации: " + errorText(msg.err))

	case passwordSuccessMsg:
		return m.handlePasswordSuccess(msg)

	case PasswordError:
		slog.Warn("Ошибка операции с паролем", "error", msg.err)
		return m.setStatusMessage("Ошибка: " + errorText(msg.err))

	case booksLoadedMsg:
		return m.handleBooksLoaded(msg)

	case bookMutatedMsg:
		return m.handleBookMutated(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	// == Обновление компонентов в зависимости от состояния ==
	switch m.state {
	case loginScreen:
		return m.updateLoginScreen(msg)
	case registerScreen:
		return m.updateRegisterScreen(msg)
	case dashboardScreen:
		return m.updateDashboardScreen(msg)
	case myBooksScreen:
		return m.updateMyBooksScreen(msg)
	case bookEditScreen:
		return m.updateBookEditScreen(msg)
	case bookAddScreen:
		return m.updateBookAddScreen(msg)
	case requestResetScreen:
		return m.updateRequestResetScreen(msg)
	case resetPasswordScreen:
		return m.updateResetPasswordScreen(msg)
	case updatePasswordScreen:
		return m.updateUpdatePasswordScreen(msg)
	default:
		return m, nil
	}
}

// handleWindowSize обновляет размеры компонентов.
func (m *model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	h, v := m.docStyle.GetFrameSize()
	listWidth := msg.Width - h
	listHeight := msg.Height - v - helpStatusHeightOffset

	m.myBooksList.SetSize(listWidth, listHeight)
	// Под таблицей остаются приветствие и строка поиска
	m.booksTable.SetHeight(max(listHeight-inputWidthOffset, 1))
	m.booksTable.SetWidth(listWidth)

	inputWidth := listWidth - inputWidthOffset
	m.searchInput.Width = inputWidth
	for _, f := range []*form{
		&m.loginForm, &m.registerForm, &m.requestResetForm, &m.resetPasswordForm,
		&m.updatePasswordForm, &m.addForm, &m.editForm,
	} {
		f.setWidth(inputWidth)
	}
	return m, nil
}

// handleRedirect переключает экран по истечении задержки.
// Переход отменяется, если пользователь уже ушел с исходного экрана.
func (m *model) handleRedirect(msg redirectMsg) (tea.Model, tea.Cmd) {
	switch msg.to {
	case dashboardScreen:
		if m.state != bookAddScreen {
			return m, nil
		}
		return m.openDashboard()
	case loginScreen:
		if m.state != resetPasswordScreen && m.state != updatePasswordScreen {
			return m, nil
		}
		m.state = loginScreen
		return m, m.loginForm.focus(0)
	default:
		return m, nil
	}
}

// handleLoginSuccess сохраняет личность и открывает главный экран.
func (m *model) handleLoginSuccess(msg loginSuccessMsg) (tea.Model, tea.Cmd) {
	resp := msg.resp
	if err := m.session.SetAuthData(resp.Token, resp.UserID, resp.Name); err != nil {
		slog.Error("Не удалось сохранить данные входа", "error", err)
		return m.setStatusMessage("Ошибка входа: " + err.Error())
	}
	slog.Info("Вход выполнен", "userID", resp.UserID)
	m.loginForm.reset()
	m.loginForm.blur()

	_, dashCmd := m.openDashboard()
	_, statusCmd := m.setStatusMessage("Добро пожаловать, " + resp.Name + "!")
	return m, tea.Batch(dashCmd, statusCmd)
}

// handlePasswordSuccess показывает ответ сервера и решает, куда перейти дальше.
func (m *model) handlePasswordSuccess(msg passwordSuccessMsg) (tea.Model, tea.Cmd) {
	_, statusCmd := m.setStatusMessage(msg.message)
	switch msg.from {
	case requestResetScreen:
		m.requestResetForm.reset()
		m.state = resetPasswordScreen
		return m, tea.Batch(statusCmd, m.resetPasswordForm.focus(0))
	case resetPasswordScreen, updatePasswordScreen:
		m.resetPasswordForm.reset()
		m.updatePasswordForm.reset()
		if m.authenticated() {
			return m, statusCmd
		}
		return m, tea.Batch(statusCmd, m.delay(resetRedirectDelay, redirectMsg{to: loginScreen}))
	default:
		return m, statusCmd
	}
}

// handleBooksLoaded обновляет таблицу и список после загрузки.
func (m *model) handleBooksLoaded(msg booksLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	m.syncBookViews()
	if msg.err == nil {
		return m, nil
	}
	return m.handleBooksError(msg.err)
}

// handleBooksError показывает ошибку загрузки.
// Просроченный токен завершает сессию.
func (m *model) handleBooksError(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, api.ErrAuthorization) {
		slog.Warn("Сервер отклонил токен, выполняется выход", "error", err)
		m.session.ClearAuthData()
		return m.setStatusMessage("Сессия истекла. Войдите снова.")
	}
	slog.Error("Ошибка загрузки книг", "error", err)
	return m.setStatusMessage("Не удалось загрузить книги: " + errorText(err))
}

// handleBookMutated показывает итог изменения книги.
func (m *model) handleBookMutated(msg bookMutatedMsg) (tea.Model, tea.Cmd) {
	m.syncBookViews()
	res := msg.result
	if !res.OK() {
		slog.Warn("Изменение книги не выполнено", "op", msg.op, "error", res.Err)
		if errors.Is(res.Err, api.ErrAuthorization) {
			m.session.ClearAuthData()
			return m.setStatusMessage("Сессия истекла. Войдите снова.")
		}
		if msg.op == bookOpAdd && m.state == bookAddScreen {
			// Введенные значения остаются для повторной попытки
			m.addForm.focus(m.addForm.focused)
		}
		return m.setStatusMessage(res.Message)
	}

	_, statusCmd := m.setStatusMessage(res.Message)
	switch msg.op {
	case bookOpAdd:
		m.addForm.reset()
		if m.state == bookAddScreen {
			return m, tea.Batch(statusCmd, m.delay(addRedirectDelay, redirectMsg{to: dashboardScreen}))
		}
	case bookOpUpdate:
		if _, editing := m.books.Editing(); !editing && m.state == bookEditScreen {
			m.state = myBooksScreen
		}
	}
	return m, statusCmd
}

// authenticated сообщает, выполнен ли вход.
func (m *model) authenticated() bool {
	id, err := m.session.Identity()
	return err == nil && id.Authenticated()
}
