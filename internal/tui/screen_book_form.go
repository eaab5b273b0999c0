package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/bookswap/internal/listing"
	"github.com/maynagashev/bookswap/models"
)

// bookFieldsFromForm собирает поля книги из формы.
// Порядок полей формы совпадает с listing.EditableFields.
func bookFieldsFromForm(f *form) models.BookFields {
	value := func(field listing.Field) string {
		return strings.TrimSpace(f.value(int(field)))
	}
	return models.BookFields{
		Title:              value(listing.FieldTitle),
		Author:             value(listing.FieldAuthor),
		Genre:              value(listing.FieldGenre),
		Condition:          value(listing.FieldCondition),
		AvailabilityStatus: value(listing.FieldAvailabilityStatus),
		Location:           value(listing.FieldLocation),
	}
}

// updateBookAddScreen обрабатывает форму добавления книги.
func (m *model) updateBookAddScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	addAction := func() (tea.Model, tea.Cmd) {
		fields := bookFieldsFromForm(&m.addForm)
		if missing := fields.Missing(); len(missing) > 0 {
			return m.setStatusMessage("Заполните все поля")
		}
		m.addForm.blur()
		_, statusCmd := m.setStatusMessage("Добавление книги...")
		return m, tea.Batch(m.addBookCmd(fields), statusCmd)
	}
	onEsc := func() (tea.Model, tea.Cmd) {
		m.addForm.reset()
		return m.openDashboard()
	}
	return m.handleFormInput(msg, &m.addForm, addAction, onEsc, nil)
}

// viewBookAddScreen отображает форму добавления книги.
func (m *model) viewBookAddScreen() string {
	return fmt.Sprintf("Добавить книгу\n\n%s", m.addForm.view())
}

// updateBookEditScreen обрабатывает форму редактирования.
// Каждое изменение поля сразу попадает в черновик модели книг.
func (m *model) updateBookEditScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	saveAction := func() (tea.Model, tea.Cmd) {
		draft, editing := m.books.Editing()
		if !editing {
			m.state = myBooksScreen
			return m, nil
		}
		if missing := draft.Fields().Missing(); len(missing) > 0 {
			return m.setStatusMessage("Заполните все поля")
		}
		_, statusCmd := m.setStatusMessage("Сохранение...")
		return m, tea.Batch(m.saveEditCmd(), statusCmd)
	}
	onEsc := func() (tea.Model, tea.Cmd) {
		m.books.CancelEdit()
		m.state = myBooksScreen
		return m, tea.ClearScreen
	}
	onChange := func(idx int, value string) {
		if err := m.books.SetEditField(listing.EditableFields[idx], value); err != nil {
			slog.Warn("Не удалось изменить поле книги", "field", listing.EditableFields[idx].String(), "error", err)
		}
	}
	return m.handleFormInput(msg, &m.editForm, saveAction, onEsc, onChange)
}

// viewBookEditScreen отображает форму редактирования.
func (m *model) viewBookEditScreen() string {
	draft, _ := m.books.Editing()
	return fmt.Sprintf("Редактирование: %s\n\n%s", draft.Title, m.editForm.view())
}
