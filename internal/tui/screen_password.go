package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// updateRequestResetScreen обрабатывает запрос ссылки для сброса пароля.
func (m *model) updateRequestResetScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == keyHaveCode {
		m.requestResetForm.blur()
		m.state = resetPasswordScreen
		return m, m.resetPasswordForm.focus(0)
	}

	requestAction := func() (tea.Model, tea.Cmd) {
		email := strings.TrimSpace(m.requestResetForm.value(0))
		if email == "" {
			return m.setStatusMessage("Введите email")
		}
		cmd := makePasswordCmd(requestResetScreen, func(ctx context.Context) (string, error) {
			return m.apiClient.RequestPasswordReset(ctx, email)
		})
		_, statusCmd := m.setStatusMessage("Отправка ссылки...")
		return m, tea.Batch(cmd, statusCmd)
	}

	return m.handleFormInput(msg, &m.requestResetForm, requestAction, m.backToLogin, nil)
}

// viewRequestResetScreen отображает экран запроса сброса пароля.
func (m *model) viewRequestResetScreen() string {
	return fmt.Sprintf("Сброс пароля\n\nМы отправим ссылку для сброса на вашу почту.\n\n%s",
		m.requestResetForm.view())
}

// updateResetPasswordScreen обрабатывает ввод токена и нового пароля.
func (m *model) updateResetPasswordScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	resetAction := m.tokenPasswordAction(&m.resetPasswordForm, resetPasswordScreen,
		func(ctx context.Context, token, password string) (string, error) {
			return m.apiClient.ResetPassword(ctx, token, password)
		})
	return m.handleFormInput(msg, &m.resetPasswordForm, resetAction, m.backToLogin, nil)
}

// viewResetPasswordScreen отображает экран сброса пароля.
func (m *model) viewResetPasswordScreen() string {
	return fmt.Sprintf("Новый пароль\n\n%s", m.resetPasswordForm.view())
}

// updateUpdatePasswordScreen обрабатывает смену пароля.
func (m *model) updateUpdatePasswordScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	updateAction := m.tokenPasswordAction(&m.updatePasswordForm, updatePasswordScreen,
		func(ctx context.Context, token, password string) (string, error) {
			return m.apiClient.UpdatePassword(ctx, token, password)
		})
	onEsc := func() (tea.Model, tea.Cmd) {
		if m.previousState == dashboardScreen && m.authenticated() {
			m.state = dashboardScreen
			return m, tea.ClearScreen
		}
		return m.backToLogin()
	}
	return m.handleFormInput(msg, &m.updatePasswordForm, updateAction, onEsc, nil)
}

// viewUpdatePasswordScreen отображает экран смены пароля.
func (m *model) viewUpdatePasswordScreen() string {
	return fmt.Sprintf("Смена пароля\n\n%s", m.updatePasswordForm.view())
}

// tokenPasswordAction возвращает действие отправки формы "токен + новый пароль".
func (m *model) tokenPasswordAction(
	f *form,
	from screenState,
	call func(ctx context.Context, token, password string) (string, error),
) func() (tea.Model, tea.Cmd) {
	return func() (tea.Model, tea.Cmd) {
		token := strings.TrimSpace(f.value(0))
		password := f.value(1)
		if token == "" || password == "" {
			return m.setStatusMessage("Введите токен и новый пароль")
		}
		cmd := makePasswordCmd(from, func(ctx context.Context) (string, error) {
			return call(ctx, token, password)
		})
		_, statusCmd := m.setStatusMessage("Смена пароля...")
		return m, tea.Batch(cmd, statusCmd)
	}
}
