package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// form - набор полей ввода с одним активным полем.
type form struct {
	inputs  []textinput.Model
	labels  []string
	focused int
}

func newForm(labels []string, inputs ...textinput.Model) form {
	f := form{inputs: inputs, labels: labels}
	f.focus(0)
	return f
}

// focus делает активным поле idx.
func (f *form) focus(idx int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.focused = (idx + len(f.inputs)) % len(f.inputs)
	for i := range f.inputs {
		if i == f.focused {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return textinput.Blink
}

func (f *form) blur() {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

func (f *form) onLast() bool {
	return f.focused == len(f.inputs)-1
}

func (f *form) value(idx int) string {
	return f.inputs[idx].Value()
}

func (f *form) setValue(idx int, value string) {
	f.inputs[idx].SetValue(value)
}

// reset очищает все поля и возвращает фокус на первое.
func (f *form) reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.focus(0)
}

func (f *form) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = width
	}
}

// view отрисовывает поля с подписями.
func (f *form) view() string {
	var b strings.Builder
	for i, input := range f.inputs {
		if i < len(f.labels) {
			b.WriteString(f.labels[i])
			b.WriteString(":\n")
		}
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	return b.String()
}

// handleFormKeys обрабатывает нажатия Tab, Shift+Tab и Enter в форме.
// Возвращает модель, команду и флаг, указывающий, была ли клавиша обработана.
func (m *model) handleFormKeys(
	keyMsg tea.KeyMsg,
	f *form,
	onSubmit func() (tea.Model, tea.Cmd),
) (tea.Model, tea.Cmd, bool) {
	switch keyMsg.String() {
	case keyTab:
		return m, f.focus(f.focused + 1), true
	case keyShiftTab:
		return m, f.focus(f.focused - 1), true
	case keyEnter:
		if !f.onLast() {
			return m, f.focus(f.focused + 1), true
		}
		model, cmd := onSubmit()
		return model, cmd, true
	default:
		return m, nil, false
	}
}

// handleFormInput обрабатывает ввод в форме, переключение фокуса между полями
// и действия по Enter/Esc. onChange вызывается после изменения активного поля.
func (m *model) handleFormInput(
	msg tea.Msg,
	f *form,
	onSubmit func() (tea.Model, tea.Cmd),
	onEsc func() (tea.Model, tea.Cmd),
	onChange func(idx int, value string),
) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == keyEsc {
			f.blur()
			return onEsc()
		}
		newModel, keyCmd, handled := m.handleFormKeys(keyMsg, f, onSubmit)
		if handled {
			return newModel, keyCmd
		}
	}

	if len(f.inputs) == 0 {
		return m, nil
	}
	before := f.inputs[f.focused].Value()
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	if after := f.inputs[f.focused].Value(); onChange != nil && after != before {
		onChange(f.focused, after)
	}
	return m, cmd
}
