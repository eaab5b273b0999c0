package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/bookswap/internal/api"
	"github.com/maynagashev/bookswap/internal/listing"
	"github.com/maynagashev/bookswap/models"
)

// clearStatusCmd возвращает команду, которая отправит clearStatusMsg через delay.
func clearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// errorText возвращает текст ошибки для статусной строки.
// Для ответов сервера показывается его сообщение.
func errorText(err error) string {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return err.Error()
}

// --- Сообщения и команды для аутентификации --- //

type loginSuccessMsg struct {
	resp *models.LoginResponse
}

type LoginError struct {
	err error
}

func (e LoginError) Error() string {
	return e.err.Error()
}

// makeLoginCmd выполняет вход через API.
func (m *model) makeLoginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		resp, err := m.apiClient.Login(ctx, email, password)
		if err != nil {
			return LoginError{err: err}
		}
		return loginSuccessMsg{resp: resp}
	}
}

// Сообщения для регистрации.
type registerSuccessMsg struct {
	message string
}

type RegisterError struct {
	err error
}

func (e RegisterError) Error() string {
	return e.err.Error()
}

// makeRegisterCmd выполняет регистрацию через API.
func (m *model) makeRegisterCmd(req models.RegisterRequest) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		message, err := m.apiClient.Register(ctx, req)
		if err != nil {
			return RegisterError{err: err}
		}
		return registerSuccessMsg{message: message}
	}
}

// Сообщения для операций с паролем.
type passwordSuccessMsg struct {
	message string
	from    screenState // Экран, с которого отправлен запрос
}

type PasswordError struct {
	err error
}

func (e PasswordError) Error() string {
	return e.err.Error()
}

// makePasswordCmd выполняет одну из операций с паролем и сообщает результат.
func makePasswordCmd(from screenState, call func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		message, err := call(context.Background())
		if err != nil {
			return PasswordError{err: err}
		}
		return passwordSuccessMsg{message: message, from: from}
	}
}

// --- Сообщения и команды для списков книг --- //

// booksLoadedMsg сообщает о завершении загрузки списков.
// Сами списки хранятся в listing.ViewModel.
type booksLoadedMsg struct {
	err error
}

// refreshBooksCmd перечитывает оба списка.
func (m *model) refreshBooksCmd() tea.Cmd {
	books := m.books
	return func() tea.Msg {
		return booksLoadedMsg{err: books.Refresh(context.Background())}
	}
}

// Операции над своими книгами.
type bookOp int

const (
	bookOpAdd bookOp = iota
	bookOpUpdate
	bookOpDelete
)

// bookMutatedMsg сообщает итог изменения книги.
type bookMutatedMsg struct {
	op     bookOp
	result listing.Result
}

// addBookCmd добавляет книгу. Временная запись появляется в списке сразу.
func (m *model) addBookCmd(fields models.BookFields) tea.Cmd {
	books := m.books
	return func() tea.Msg {
		return bookMutatedMsg{op: bookOpAdd, result: books.AddBook(context.Background(), fields)}
	}
}

// saveEditCmd отправляет черновик редактирования.
func (m *model) saveEditCmd() tea.Cmd {
	books := m.books
	return func() tea.Msg {
		return bookMutatedMsg{op: bookOpUpdate, result: books.SaveEdit(context.Background())}
	}
}

// deleteBookCmd удаляет книгу.
func (m *model) deleteBookCmd(bookID int64) tea.Cmd {
	books := m.books
	return func() tea.Msg {
		return bookMutatedMsg{op: bookOpDelete, result: books.DeleteBook(context.Background(), bookID)}
	}
}
