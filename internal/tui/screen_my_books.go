package tui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/bookswap/internal/listing"
)

// updateMyBooksScreen обрабатывает экран своих книг.
func (m *model) updateMyBooksScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit:
			return m, tea.Quit
		case keyBack, keyEsc:
			return m.openDashboard()
		case keyAdd:
			m.state = bookAddScreen
			m.addForm.reset()
			return m, m.addForm.focus(0)
		case keyRefresh:
			m.loading = true
			return m, m.refreshBooksCmd()
		case keyEdit:
			return m.startEdit()
		case keyDelete:
			return m.deleteSelected()
		}
	}

	var cmd tea.Cmd
	m.myBooksList, cmd = m.myBooksList.Update(msg)
	return m, cmd
}

// selectedEntry возвращает выбранную в списке запись.
func (m *model) selectedEntry() (listing.Entry, bool) {
	item, ok := m.myBooksList.SelectedItem().(bookItem)
	if !ok {
		return listing.Entry{}, false
	}
	return item.entry, true
}

// startEdit открывает выбранную книгу на редактирование.
func (m *model) startEdit() (tea.Model, tea.Cmd) {
	entry, ok := m.selectedEntry()
	if !ok {
		return m, nil
	}
	if entry.State == listing.StatePendingCreate || entry.Book.ID == 0 {
		return m.setStatusMessage("Книга еще не сохранена на сервере")
	}

	replaced, err := m.books.BeginEdit(entry.Book.ID)
	if err != nil {
		slog.Warn("Не удалось начать редактирование", "bookID", entry.Book.ID, "error", err)
		return m.setStatusMessage("Книга не найдена")
	}
	if replaced {
		slog.Info("Несохраненные изменения предыдущей книги отброшены")
	}

	draft, _ := m.books.Editing()
	for i, f := range listing.EditableFields {
		m.editForm.setValue(i, f.Value(draft))
	}
	m.state = bookEditScreen
	return m, m.editForm.focus(0)
}

// deleteSelected удаляет выбранную книгу.
func (m *model) deleteSelected() (tea.Model, tea.Cmd) {
	entry, ok := m.selectedEntry()
	if !ok {
		return m, nil
	}
	if entry.Book.ID == 0 {
		return m.setStatusMessage("Книга еще не сохранена на сервере")
	}
	// Запись исчезает сразу, при ошибке модель вернет ее на место
	m.myBooksList.RemoveItem(m.myBooksList.Index())
	_, statusCmd := m.setStatusMessage("Удаление...")
	return m, tea.Batch(m.deleteBookCmd(entry.Book.ID), statusCmd)
}

// viewMyBooksScreen отображает список своих книг.
func (m *model) viewMyBooksScreen() string {
	if len(m.myBooksList.Items()) == 0 {
		if m.loading {
			return "Мои книги\n\nЗагрузка..."
		}
		return "Мои книги\n\nВы еще не добавили ни одной книги. Нажмите a, чтобы добавить."
	}
	return m.myBooksList.View()
}

// syncMyBooksList заполняет список своими книгами с пометками синхронизации.
func (m *model) syncMyBooksList() {
	entries := m.books.OwnEntries()
	items := make([]list.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, bookItem{entry: entry})
	}
	m.myBooksList.SetItems(items)
}
