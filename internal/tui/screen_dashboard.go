package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maynagashev/bookswap/models"
)

const noBooksMessage = "Нет книг, доступных для обмена."

var greetingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

// openDashboard переводит на главный экран и перечитывает списки.
func (m *model) openDashboard() (tea.Model, tea.Cmd) {
	m.state = dashboardScreen
	m.searchFocused = false
	m.searchInput.Blur()
	m.booksTable.Focus()
	m.loading = true
	return m, tea.Batch(tea.ClearScreen, m.refreshBooksCmd())
}

// updateDashboardScreen обрабатывает главный экран.
func (m *model) updateDashboardScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, isKey := msg.(tea.KeyMsg)
	if m.searchFocused {
		return m.updateSearchInput(msg)
	}
	if !isKey {
		var cmd tea.Cmd
		m.booksTable, cmd = m.booksTable.Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case keyQuit:
		return m, tea.Quit
	case keySearch, keyTab:
		m.searchFocused = true
		m.booksTable.Blur()
		return m, m.searchInput.Focus()
	case keyAdd:
		m.state = bookAddScreen
		m.addForm.reset()
		return m, m.addForm.focus(0)
	case keyMyBooks:
		m.state = myBooksScreen
		m.syncBookViews()
		return m, tea.ClearScreen
	case keyRefresh:
		m.loading = true
		return m, m.refreshBooksCmd()
	case keyPassword:
		m.previousState = dashboardScreen
		m.state = updatePasswordScreen
		m.updatePasswordForm.reset()
		return m, m.updatePasswordForm.focus(0)
	case keyLogout:
		// Навигатор сессии переключит экран на вход
		m.session.ClearAuthData()
		return m.setStatusMessage("Вы вышли из аккаунта")
	}

	var cmd tea.Cmd
	m.booksTable, cmd = m.booksTable.Update(msg)
	return m, cmd
}

// updateSearchInput передает ввод в строку поиска и сразу фильтрует таблицу.
func (m *model) updateSearchInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyEsc, keyTab, keyEnter:
			m.searchFocused = false
			m.searchInput.Blur()
			m.booksTable.Focus()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() != m.books.SearchQuery() {
		m.books.SetSearchQuery(m.searchInput.Value())
		m.syncBooksTable()
	}
	return m, cmd
}

// viewDashboardScreen отображает приветствие, поиск и таблицу чужих книг.
func (m *model) viewDashboardScreen() string {
	var b strings.Builder
	name := ""
	if id, err := m.session.Identity(); err == nil {
		name = id.Name
	}
	b.WriteString(greetingStyle.Render(fmt.Sprintf("Привет, %s!", name)))
	b.WriteString("\n\n")
	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.booksTable.Rows()) == 0:
		b.WriteString("Загрузка...")
	case len(m.booksTable.Rows()) == 0:
		b.WriteString(noBooksMessage)
	default:
		b.WriteString(m.booksTable.View())
	}
	return b.String()
}

// syncBookViews переносит списки из модели книг в таблицу и список.
func (m *model) syncBookViews() {
	m.syncBooksTable()
	m.syncMyBooksList()
}

// syncBooksTable заполняет таблицу отфильтрованными чужими книгами.
func (m *model) syncBooksTable() {
	books := m.books.FilteredBooks()
	rows := make([]table.Row, 0, len(books))
	for _, book := range books {
		rows = append(rows, bookRow(book))
	}
	m.booksTable.SetRows(rows)
	if m.booksTable.Cursor() >= len(rows) {
		m.booksTable.SetCursor(max(len(rows)-1, 0))
	}
}

func bookRow(b models.Book) table.Row {
	return table.Row{b.Title, b.Author, b.Genre, b.Location, b.AvailabilityStatus, b.Condition}
}
