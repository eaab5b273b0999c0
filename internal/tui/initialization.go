package tui

import (
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

// Константы, используемые при инициализации.
const (
	initPasswordCharLimit = 156
	initTextCharLimit     = 256
	initTokenCharLimit    = 1024
	initInputWidth        = 40
	initSearchWidth       = 40

	columnWidthTitle        = 24
	columnWidthAuthor       = 18
	columnWidthGenre        = 12
	columnWidthLocation     = 14
	columnWidthAvailability = 12
	columnWidthCondition    = 10
)

// initTextInput создает поле ввода с плейсхолдером.
func initTextInput(placeholder string, charLimit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = charLimit
	ti.Width = initInputWidth
	return ti
}

// initPasswordInput создает поле ввода пароля со скрытием символов.
func initPasswordInput(placeholder string) textinput.Model {
	ti := initTextInput(placeholder, initPasswordCharLimit)
	ti.EchoMode = textinput.EchoPassword
	return ti
}

// initLoginForm инициализирует поля для экрана входа.
func initLoginForm() form {
	return newForm(
		[]string{"Email", "Пароль"},
		initTextInput("you@example.com", initTextCharLimit),
		initPasswordInput("Пароль"),
	)
}

// initRegisterForm инициализирует поля для экрана регистрации.
func initRegisterForm() form {
	return newForm(
		[]string{"Имя", "Email", "Пароль", "Любимый жанр", "Предпочтения в чтении"},
		initTextInput("Имя", initTextCharLimit),
		initTextInput("you@example.com", initTextCharLimit),
		initPasswordInput("Пароль"),
		initTextInput("Фантастика", initTextCharLimit),
		initTextInput("Бумажные книги", initTextCharLimit),
	)
}

// initRequestResetForm инициализирует поле email для запроса сброса пароля.
func initRequestResetForm() form {
	return newForm([]string{"Email"}, initTextInput("you@example.com", initTextCharLimit))
}

// initTokenPasswordForm инициализирует поля токена и нового пароля.
func initTokenPasswordForm() form {
	return newForm(
		[]string{"Токен сброса", "Новый пароль"},
		initTextInput("Токен из письма", initTokenCharLimit),
		initPasswordInput("Новый пароль"),
	)
}

// initBookForm инициализирует шесть полей книги в порядке listing.EditableFields.
func initBookForm() form {
	labels := make([]string, 0, len(listing.EditableFields))
	inputs := make([]textinput.Model, 0, len(listing.EditableFields))
	for _, f := range listing.EditableFields {
		labels = append(labels, bookFieldLabel(f))
		inputs = append(inputs, initTextInput(bookFieldLabel(f), initTextCharLimit))
	}
	return newForm(labels, inputs...)
}

// bookFieldLabel возвращает подпись поля книги в интерфейсе.
func bookFieldLabel(f listing.Field) string {
	switch f {
	case listing.FieldTitle:
		return "Название"
	case listing.FieldAuthor:
		return "Автор"
	case listing.FieldGenre:
		return "Жанр"
	case listing.FieldCondition:
		return "Состояние"
	case listing.FieldAvailabilityStatus:
		return "Доступность"
	case listing.FieldLocation:
		return "Город"
	default:
		return f.String()
	}
}

// initSearchInput инициализирует строку поиска главного экрана.
func initSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Поиск по названию, автору, жанру или городу"
	ti.Prompt = "/ "
	ti.CharLimit = initTextCharLimit
	ti.Width = initSearchWidth
	return ti
}

// initBooksTable инициализирует таблицу чужих книг.
func initBooksTable() table.Model {
	columns := []table.Column{
		{Title: "Название", Width: columnWidthTitle},
		{Title: "Автор", Width: columnWidthAuthor},
		{Title: "Жанр", Width: columnWidthGenre},
		{Title: "Город", Width: columnWidthLocation},
		{Title: "Доступность", Width: columnWidthAvailability},
		{Title: "Состояние", Width: columnWidthCondition},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(defaultListHeight-inputWidthOffset),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("212")).
		Background(lipgloss.Color("237")).
		Bold(false)
	t.SetStyles(s)
	return t
}

// initMyBooksList инициализирует список своих книг.
func initMyBooksList() list.Model {
	delegate := list.NewDefaultDelegate()
	// Настраиваем цвета для лучшей видимости
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("235"))
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(lipgloss.Color("245")).
		Background(lipgloss.Color("235"))
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("212")).
		Background(lipgloss.Color("237")).
		BorderLeftForeground(lipgloss.Color("212"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("240")).
		Background(lipgloss.Color("237")).
		BorderLeftForeground(lipgloss.Color("212"))

	l := list.New([]list.Item{}, delegate, defaultListWidth, defaultListHeight)
	l.Title = "Мои книги"
	l.SetShowHelp(false) // Мы переопределяем справку
	l.SetShowStatusBar(true)
	// Буквенные клавиши заняты действиями экрана
	l.SetFilteringEnabled(false)
	l.Styles.Title = list.DefaultStyles().Title.Bold(true)
	return l
}

// initDocStyle инициализирует основной стиль документа.
func initDocStyle() lipgloss.Style {
	return lipgloss.NewStyle().Margin(docStyleMarginVertical, docStyleMarginHorizontal)
}

// initHelpTextMap возвращает подсказки по клавишам для каждого экрана.
func initHelpTextMap() map[screenState]string {
	return map[screenState]string{
		loginScreen: "(Enter - войти, Tab - следующее поле, Ctrl+R - регистрация, " +
			"Ctrl+F - забыли пароль, Esc - выход)",
		registerScreen: "(Enter - далее/зарегистрироваться, Tab - следующее поле, Esc - назад)",
		dashboardScreen: "(/ - поиск, a - добавить книгу, m - мои книги, r - обновить, " +
			"p - сменить пароль, l - выйти из аккаунта, q - выход)",
		myBooksScreen:        "(e - редактировать, d - удалить, a - добавить, r - обновить, b/Esc - назад)",
		bookEditScreen:       "(Enter - далее/сохранить, Tab - следующее поле, Esc - отмена)",
		bookAddScreen:        "(Enter - далее/добавить, Tab - следующее поле, Esc - отмена)",
		requestResetScreen:   "(Enter - отправить ссылку, Ctrl+T - у меня есть токен, Esc - назад)",
		resetPasswordScreen:  "(Enter - далее/сменить пароль, Tab - следующее поле, Esc - назад)",
		updatePasswordScreen: "(Enter - далее/сменить пароль, Tab - следующее поле, Esc - назад)",
	}
}

// initModel создает начальное состояние модели.
func initModel(apiClient api.Client, sess *session.Store, opts ...listing.Option) model {
	return model{
		state:              loginScreen,
		apiClient:          apiClient,
		session:            sess,
		books:              listing.New(apiClient, sess, opts...),
		loginForm:          initLoginForm(),
		registerForm:       initRegisterForm(),
		requestResetForm:   initRequestResetForm(),
		resetPasswordForm:  initTokenPasswordForm(),
		updatePasswordForm: initTokenPasswordForm(),
		addForm:            initBookForm(),
		editForm:           initBookForm(),
		searchInput:        initSearchInput(),
		booksTable:         initBooksTable(),
		myBooksList:        initMyBooksList(),
		docStyle:           initDocStyle(),
		helpTextMap:        initHelpTextMap(),
		delay: func(d time.Duration, msg tea.Msg) tea.Cmd {
			return tea.Tick(d, func(_ time.Time) tea.Msg { return msg })
		},
	}
}
