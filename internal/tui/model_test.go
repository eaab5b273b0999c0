//nolint:testpackage // Это тесты в том же пакете для доступа к приватным компонентам
package tui

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/bookswap/internal/api"
	"github.com/maynagashev/bookswap/internal/session"
	"github.com/maynagashev/bookswap/internal/storage"
)

func TestScreenState_String(t *testing.T) {
	tests := []struct {
		state    screenState
		expected string
	}{
		{loginScreen, "loginScreen"},
		{registerScreen, "registerScreen"},
		{dashboardScreen, "dashboardScreen"},
		{myBooksScreen, "myBooksScreen"},
		{bookEditScreen, "bookEditScreen"},
		{bookAddScreen, "bookAddScreen"},
		{requestResetScreen, "requestResetScreen"},
		{resetPasswordScreen, "resetPasswordScreen"},
		{updatePasswordScreen, "updatePasswordScreen"},
		{screenState(99), "screenState(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestHelpTextMap_CoversAllScreens(t *testing.T) {
	helpMap := initHelpTextMap()
	for s := loginScreen; s <= updatePasswordScreen; s++ {
		assert.NotEmpty(t, helpMap[s], "нет подсказки для %s", s)
	}
}

func TestView_Footer(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(m *model)
		contains   []string
		notContain []string
	}{
		{
			name:       "БезСтатуса",
			prepare:    func(_ *model) {},
			contains:   []string{"BookSwap: вход", "Ctrl+R - регистрация"},
			notContain: []string{"Отладка", "Сессия не сохраняется"},
		},
		{
			name:     "СтатусИТолькоЧтение",
			prepare:  func(m *model) { m.status = "Готово"; m.readOnlyMode = true },
			contains: []string{"Готово [Сессия не сохраняется]"},
		},
		{
			name:       "РежимОтладки",
			prepare:    func(m *model) { m.debugMode = true },
			contains:   []string{"Отладка:", "[State: loginScreen]", "[Authenticated: false]"},
			notContain: []string{"Token"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.prepare(env.m)

			view := env.m.View()

			for _, s := range tt.contains {
				assert.Contains(t, view, s)
			}
			for _, s := range tt.notContain {
				assert.NotContains(t, view, s)
			}
		})
	}
}

func TestUpdate_ClearStatus(t *testing.T) {
	env := newTestEnv(t)
	_, cmd := env.m.setStatusMessage("Привет")
	require.NotNil(t, cmd)
	assert.Equal(t, "Привет", env.m.status)

	env.m.Update(clearStatusMsg{})

	assert.Empty(t, env.m.status)
}

func TestUpdate_CtrlCQuitsEverywhere(t *testing.T) {
	env := newLoggedInEnv(t)
	env.m.searchFocused = true

	_, cmd := env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestUpdate_WindowSize(t *testing.T) {
	env := newTestEnv(t)
	m := env.m

	_, cmd := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Nil(t, cmd)
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
	h, _ := m.docStyle.GetFrameSize()
	assert.Equal(t, 120-h-inputWidthOffset, m.loginForm.inputs[0].Width)
	assert.Equal(t, 120-h-inputWidthOffset, m.searchInput.Width)
	assert.Equal(t, 120-h, m.myBooksList.Width())
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "СообщениеСервера",
			err:      &api.StatusError{StatusCode: 400, Message: "Bad input"},
			expected: "Bad input",
		},
		{
			name:     "ОбернутаяОшибкаСервера",
			err:      fmt.Errorf("контекст: %w", &api.StatusError{StatusCode: 500, Message: "boom"}),
			expected: "boom",
		},
		{
			name:     "ОшибкаСервераБезСообщения",
			err:      &api.StatusError{StatusCode: 502},
			expected: (&api.StatusError{StatusCode: 502}).Error(),
		},
		{
			name:     "ОшибкаСети",
			err:      errors.New("не удалось подключиться к серверу"),
			expected: "не удалось подключиться к серверу",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errorText(tt.err))
		})
	}
}

func TestStart_Validation(t *testing.T) {
	client := api.NewHTTPClient("http://localhost:1/api")

	require.ErrorIs(t, Start(Options{Session: session.New(storage.NewMemory())}), ErrNoAPIClient)
	require.ErrorIs(t, Start(Options{API: client}), session.ErrNotInitialized)
	require.ErrorIs(t, Start(Options{API: client, Session: session.New(storage.NewMemory())}),
		session.ErrNotInitialized, "сессия должна быть инициализирована до запуска")
}

func TestNewModel_StartScreen(t *testing.T) {
	t.Run("БезСессииЭкранВхода", func(t *testing.T) {
		env := newTestEnv(t)
		assert.Equal(t, loginScreen, env.m.state)
		assert.True(t, env.m.loginForm.inputs[0].Focused())
	})

	t.Run("ВосстановленнаяСессияГлавныйЭкран", func(t *testing.T) {
		env := newLoggedInEnv(t)
		assert.Equal(t, dashboardScreen, env.m.state)
		assert.False(t, env.m.loginForm.inputs[0].Focused())
	})
}
