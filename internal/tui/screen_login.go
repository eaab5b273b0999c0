package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/bookswap/models"
)

// updateLoginScreen обрабатывает ввод данных для входа.
func (m *model) updateLoginScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyRegister:
			m.loginForm.blur()
			m.state = registerScreen
			return m, m.registerForm.focus(0)
		case keyForgot:
			m.loginForm.blur()
			m.state = requestResetScreen
			m.requestResetForm.setValue(0, m.loginForm.value(0))
			return m, m.requestResetForm.focus(0)
		}
	}

	loginAction := func() (tea.Model, tea.Cmd) {
		email := strings.TrimSpace(m.loginForm.value(0))
		password := m.loginForm.value(1)
		if email == "" || password == "" {
			return m.setStatusMessage("Введите email и пароль")
		}
		cmd := m.makeLoginCmd(email, password)
		_, statusCmd := m.setStatusMessage("Выполняется вход...")
		return m, tea.Batch(cmd, statusCmd)
	}

	return m.handleFormInput(msg, &m.loginForm, loginAction, func() (tea.Model, tea.Cmd) {
		return m, tea.Quit
	}, nil)
}

// viewLoginScreen отображает экран ввода данных для входа.
func (m *model) viewLoginScreen() string {
	return fmt.Sprintf("BookSwap: вход\n\n%s", m.loginForm.view())
}

// updateRegisterScreen обрабатывает ввод данных для регистрации.
func (m *model) updateRegisterScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	registerAction := func() (tea.Model, tea.Cmd) {
		req := models.RegisterRequest{
			Name:              strings.TrimSpace(m.registerForm.value(registerFieldName)),
			Email:             strings.TrimSpace(m.registerForm.value(registerFieldEmail)),
			Password:          m.registerForm.value(registerFieldPassword),
			FavouriteGenre:    strings.TrimSpace(m.registerForm.value(registerFieldGenre)),
			ReadingPreference: strings.TrimSpace(m.registerForm.value(registerFieldPreference)),
		}
		if req.Name == "" || req.Email == "" || req.Password == "" {
			return m.setStatusMessage("Имя, email и пароль обязательны")
		}
		cmd := m.makeRegisterCmd(req)
		_, statusCmd := m.setStatusMessage("Выполняется регистрация...")
		return m, tea.Batch(cmd, statusCmd)
	}

	return m.handleFormInput(msg, &m.registerForm, registerAction, m.backToLogin, nil)
}

// viewRegisterScreen отображает экран регистрации.
func (m *model) viewRegisterScreen() string {
	return fmt.Sprintf("BookSwap: регистрация\n\n%s", m.registerForm.view())
}

// backToLogin возвращает на экран входа.
func (m *model) backToLogin() (tea.Model, tea.Cmd) {
	m.state = loginScreen
	return m, tea.Batch(tea.ClearScreen, m.loginForm.focus(0))
}
