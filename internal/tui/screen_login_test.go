//nolint:testpackage // Это тесты в том же пакете для доступа к приватным компонентам
package tui

import (
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/bookswap/internal/apitest"
)

// TestUpdateLoginScreen проверяет навигацию по форме входа.
func TestUpdateLoginScreen(t *testing.T) {
	tests := []struct {
		name          string
		inputMsg      tea.Msg
		initialField  int
		expectedField int
		expectedState screenState
	}{
		{
			name:          "ПереключениеПоляВперед",
			inputMsg:      keyMsgTab,
			initialField:  0,
			expectedField: 1,
			expectedState: loginScreen,
		},
		{
			name:          "ПереключениеПоляНазад",
			inputMsg:      keyMsgShiftTab,
			initialField:  1,
			expectedField: 0,
			expectedState: loginScreen,
		},
		{
			name:          "ПереключениеПоляНазадСПервого",
			inputMsg:      keyMsgShiftTab,
			initialField:  0,
			expectedField: 1,
			expectedState: loginScreen,
		},
		{
			name:          "НажатиеEnter_ПервоеПоле",
			inputMsg:      keyMsgEnter,
			initialField:  0,
			expectedField: 1,
			expectedState: loginScreen,
		},
		{
			name:          "ПереходКРегистрации",
			inputMsg:      tea.KeyMsg{Type: tea.KeyCtrlR},
			initialField:  0,
			expectedField: 0,
			expectedState: registerScreen,
		},
		{
			name:          "ПереходКСбросуПароля",
			inputMsg:      tea.KeyMsg{Type: tea.KeyCtrlF},
			initialField:  1,
			expectedField: 1,
			expectedState: requestResetScreen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			m := env.m
			m.loginForm.focus(tt.initialField)

			_, cmd := m.Update(tt.inputMsg)

			assert.NotNil(t, cmd)
			assert.Equal(t, tt.expectedState, m.state)
			assert.Equal(t, tt.expectedField, m.loginForm.focused)
		})
	}
}

func TestLoginScreen_Success(t *testing.T) {
	env := newTestEnv(t)
	other := env.srv.AddUser("Bob", "bob@example.com", "pw")
	seedBook(env.srv, other, "Dune")
	seedBook(env.srv, env.userID, "Emma")
	m := env.m

	fillForm(m, testEmail, testPassword)
	press(t, m, keyMsgEnter)

	require.Equal(t, dashboardScreen, m.state)
	id, err := env.sess.Identity()
	require.NoError(t, err)
	assert.Equal(t, env.userID, id.UserID)
	assert.Equal(t, testName, id.Name)
	assert.Empty(t, m.loginForm.value(1), "пароль не остается в форме")

	require.Len(t, m.booksTable.Rows(), 1)
	assert.Equal(t, "Dune", m.booksTable.Rows()[0][0])
	assert.Len(t, m.myBooksList.Items(), 1)
	assert.Contains(t, m.View(), "Привет, Ann!")
}

func TestLoginScreen_Errors(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		prepare       func(srv *apitest.Server)
		expectedCalls int
		expected      string
	}{
		{
			name:          "ПустыеПоля",
			email:         "",
			password:      "",
			expectedCalls: 0,
			expected:      "Введите email и пароль",
		},
		{
			name:          "НеверныйПароль",
			email:         testEmail,
			password:      "wrong",
			expectedCalls: 1,
			expected:      "Ошибка входа: Invalid email or password.",
		},
		{
			name:     "ОшибкаСервера",
			email:    testEmail,
			password: testPassword,
			prepare: func(srv *apitest.Server) {
				srv.FailNext(apitest.RouteLogin, http.StatusInternalServerError, "Internal server error")
			},
			expectedCalls: 1,
			expected:      "Ошибка входа: Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.prepare != nil {
				tt.prepare(env.srv)
			}
			m := env.m

			fillForm(m, tt.email, tt.password)
			press(t, m, keyMsgEnter)

			assert.Equal(t, loginScreen, m.state)
			assert.Equal(t, tt.expected, m.status)
			assert.Equal(t, tt.expectedCalls, env.srv.CallCount(apitest.RouteLogin))
			id, err := env.sess.Identity()
			require.NoError(t, err)
			assert.False(t, id.Authenticated())
		})
	}
}

func TestLoginScreen_EscQuits(t *testing.T) {
	env := newTestEnv(t)

	_, cmd := env.m.Update(keyMsgEsc)

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRegisterScreen(t *testing.T) {
	t.Run("УспешнаяРегистрация", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.m
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		require.Equal(t, registerScreen, m.state)

		fillForm(m, "Carl", "carl@example.com", "pw123", "Sci-Fi", "Paperback")
		press(t, m, keyMsgEnter)

		assert.Equal(t, loginScreen, m.state)
		assert.Equal(t, "Registration successful! Please log in.", m.status)
		assert.True(t, env.srv.CheckPassword("carl@example.com", "pw123"))
		assert.Empty(t, m.registerForm.value(registerFieldName), "форма очищена")
	})

	t.Run("ПовторныйEmail", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.m
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

		fillForm(m, "Ann2", testEmail, "pw", "", "")
		press(t, m, keyMsgEnter)

		assert.Equal(t, registerScreen, m.state)
		assert.Equal(t, "Ошибка регистрации: User with this email already exists.", m.status)
	})

	t.Run("НеЗаполненыОбязательныеПоля", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.m
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

		fillForm(m, "Carl", "", "", "", "")
		press(t, m, keyMsgEnter)

		assert.Equal(t, "Имя, email и пароль обязательны", m.status)
		assert.Zero(t, env.srv.CallCount(apitest.RouteRegister))
	})

	t.Run("EscВозвращаетКоВходу", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.m
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

		press(t, m, keyMsgEsc)

		assert.Equal(t, loginScreen, m.state)
	})
}
