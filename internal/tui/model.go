package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maynagashev/bookswap/internal/api"
	"github.com/maynagashev/bookswap/internal/listing"
	"github.com/maynagashev/bookswap/internal/session"
)

// Состояния (экраны) приложения.
type screenState int

const (
	loginScreen          screenState = iota // Экран входа
	registerScreen                          // Экран регистрации
	dashboardScreen                         // Главный экран с чужими книгами
	myBooksScreen                           // Экран своих книг
	bookEditScreen                          // Экран редактирования книги
	bookAddScreen                           // Экран добавления книги
	requestResetScreen                      // Экран запроса ссылки для сброса пароля
	resetPasswordScreen                     // Экран ввода нового пароля по токену
	updatePasswordScreen                    // Экран смены пароля по токену
)

func (s screenState) String() string {
	switch s {
	case loginScreen:
		return "loginScreen"
	case registerScreen:
		return "registerScreen"
	case dashboardScreen:
		return "dashboardScreen"
	case myBooksScreen:
		return "myBooksScreen"
	case bookEditScreen:
		return "bookEditScreen"
	case bookAddScreen:
		return "bookAddScreen"
	case requestResetScreen:
		return "requestResetScreen"
	case resetPasswordScreen:
		return "resetPasswordScreen"
	case updatePasswordScreen:
		return "updatePasswordScreen"
	default:
		return fmt.Sprintf("screenState(%d)", int(s))
	}
}

// Константы для TUI.
const (
	defaultListWidth  = 80 // Стандартная ширина терминала для списка
	defaultListHeight = 20 // Стандартная высота терминала для списка
	inputWidthOffset  = 4  // Отступ для полей ввода

	addRedirectDelay   = 2 * time.Second // Возврат на главный экран после добавления книги
	resetRedirectDelay = 3 * time.Second // Возврат ко входу после сброса пароля

	keyEnter    = "enter"
	keyEsc      = "esc"
	keyTab      = "tab"
	keyShiftTab = "shift+tab"
	keyQuit     = "q"
	keyBack     = "b"
	keyAdd      = "a"
	keyEdit     = "e"
	keyDelete   = "d"
	keyRefresh  = "r"
	keyMyBooks  = "m"
	keyLogout   = "l"
	keyPassword = "p"
	keySearch   = "/"
	keyRegister = "ctrl+r"
	keyForgot   = "ctrl+f"
	keyHaveCode = "ctrl+t"
)

// Поля формы регистрации.
const (
	registerFieldName = iota
	registerFieldEmail
	registerFieldPassword
	registerFieldGenre
	registerFieldPreference
)

// bookItem - элемент списка своих книг.
// Реализует интерфейс list.Item.
type bookItem struct {
	entry listing.Entry
}

func (i bookItem) Title() string {
	title := i.entry.Book.Title
	if marker := syncMarker(i.entry.State); marker != "" {
		title += " " + marker
	}
	return title
}

func (i bookItem) Description() string {
	b := i.entry.Book
	return fmt.Sprintf("%s | %s | %s | %s | %s", b.Author, b.Genre, b.Condition, b.AvailabilityStatus, b.Location)
}

func (i bookItem) FilterValue() string { return i.entry.Book.Title }

// syncMarker возвращает пометку состояния синхронизации для списка.
func syncMarker(state listing.SyncState) string {
	switch state {
	case listing.StatePendingCreate:
		return "[добавляется...]"
	case listing.StatePendingUpdate:
		return "[сохраняется...]"
	case listing.StateUnconfirmed:
		return "[не подтверждено]"
	default:
		return ""
	}
}

// model представляет состояние TUI приложения.
type model struct {
	state         screenState
	previousState screenState // Экран, на который возвращает Esc с экрана смены пароля

	apiClient api.Client
	session   *session.Store
	books     *listing.ViewModel

	status       string // Статусное сообщение (отображается внизу)
	loading      bool   // Идет загрузка списков
	readOnlyMode bool   // Хранилище занято другим процессом, сессия не сохраняется
	debugMode    bool
	width        int
	height       int

	loginForm          form
	registerForm       form
	requestResetForm   form
	resetPasswordForm  form
	updatePasswordForm form
	addForm            form
	editForm           form

	searchInput   textinput.Model // Строка поиска на главном экране
	searchFocused bool
	booksTable    table.Model // Чужие книги
	myBooksList   list.Model  // Свои книги

	docStyle    lipgloss.Style
	helpTextMap map[screenState]string

	// delay откладывает сообщение; подменяется в тестах.
	delay func(d time.Duration, msg tea.Msg) tea.Cmd
}

// Сообщение для очистки статуса.
type clearStatusMsg struct{}

// redirectMsg переключает экран после задержки.
type redirectMsg struct {
	to screenState
}
