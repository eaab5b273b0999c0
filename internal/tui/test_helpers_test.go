//nolint:testpackage // Это файл с вспомогательными функциями для тестов в том же пакете
package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/bookswap/internal/api"
	"github.com/maynagashev/bookswap/internal/apitest"
	"github.com/maynagashev/bookswap/internal/session"
	"github.com/maynagashev/bookswap/internal/storage"
	"github.com/maynagashev/bookswap/models"
)

const (
	// Команды, не ответившие за это время (таймеры, мигание курсора), пропускаются.
	cmdTimeout  = 150 * time.Millisecond
	maxCmdSteps = 50

	testEmail    = "ann@example.com"
	testPassword = "secret"
	testName     = "Ann"
)

// testEnv объединяет модель, сессию и поддельный сервер.
type testEnv struct {
	m      *model
	srv    *apitest.Server
	sess   *session.Store
	userID int64
}

// newTestEnv создает модель без входа. Пользователь Ann уже зарегистрирован на сервере.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := apitest.NewServer(t)
	userID := srv.AddUser(testName, testEmail, testPassword)

	sess := session.New(storage.NewMemory())
	require.NoError(t, sess.Initialize())

	return &testEnv{m: newTestModel(srv, sess), srv: srv, sess: sess, userID: userID}
}

// newLoggedInEnv создает модель с восстановленной сессией и загруженными списками.
func newLoggedInEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	require.NoError(t, env.sess.SetAuthData(env.srv.Token(env.userID), env.userID, testName))

	env.m = newTestModel(env.srv, env.sess)
	require.Equal(t, dashboardScreen, env.m.state)
	return env
}

// start выполняет стартовую команду модели.
func (e *testEnv) start(t *testing.T) {
	t.Helper()
	runCmd(t, e.m, e.m.Init())
}

func newTestModel(srv *apitest.Server, sess *session.Store) *model {
	m := newModel(Options{API: api.NewHTTPClient(srv.URL()), Session: sess})
	// Отложенные переходы выполняются сразу
	m.delay = func(_ time.Duration, msg tea.Msg) tea.Cmd {
		return func() tea.Msg { return msg }
	}
	return m
}

// seedBook добавляет книгу на сервер.
func seedBook(srv *apitest.Server, owner int64, title string) models.Book {
	return srv.AddBook(models.Book{
		Title:              title,
		Author:             "Author of " + title,
		Genre:              "Fiction",
		Condition:          "Good",
		AvailabilityStatus: "Available",
		Location:           "NYC",
		OwnerUserID:        owner,
	})
}

// runCmd выполняет команду и передает полученные сообщения в модель,
// пока новые команды не перестанут появляться.
func runCmd(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for step := 0; len(queue) > 0; step++ {
		require.Less(t, step, maxCmdSteps, "слишком длинная цепочка команд")
		msgs := execCmds(queue)
		queue = nil
		for _, msg := range msgs {
			switch msg := msg.(type) {
			case nil, tea.QuitMsg:
			case tea.BatchMsg:
				queue = append(queue, msg...)
			default:
				_, next := m.Update(msg)
				queue = append(queue, next)
			}
		}
	}
}

// execCmds параллельно выполняет команды и возвращает сообщения в исходном порядке.
func execCmds(cmds []tea.Cmd) []tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	results := make([]chan tea.Msg, len(cmds))
	for i, cmd := range cmds {
		results[i] = make(chan tea.Msg, 1)
		if cmd == nil {
			results[i] <- nil
			continue
		}
		go func(ch chan<- tea.Msg) { ch <- cmd() }(results[i])
	}

	msgs := make([]tea.Msg, 0, len(cmds))
	for _, ch := range results {
		select {
		case msg := <-ch:
			msgs = append(msgs, msg)
		case <-ctx.Done():
		}
	}
	return msgs
}

// press отправляет модели нажатие клавиши и выполняет полученную команду.
func press(t *testing.T, m *model, key tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(key)
	runCmd(t, m, cmd)
}

// typeText вводит текст посимвольно.
func typeText(m *model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var (
	keyMsgEnter    = tea.KeyMsg{Type: tea.KeyEnter}
	keyMsgTab      = tea.KeyMsg{Type: tea.KeyTab}
	keyMsgShiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	keyMsgEsc      = tea.KeyMsg{Type: tea.KeyEsc}
)

// fillForm заполняет поля формы по порядку, начиная с активного.
func fillForm(m *model, values ...string) {
	for i, v := range values {
		typeText(m, v)
		if i < len(values)-1 {
			m.Update(keyMsgTab)
		}
	}
}
