package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maynagashev/bookswap/models"
)

var (
	// ErrNotEditing возвращается, если ни одна книга не редактируется.
	ErrNotEditing = errors.New("нет редактируемой книги")
	// ErrUnknownField возвращается для поля, которого нет в форме.
	ErrUnknownField = errors.New("неизвестное поле книги")
)

// Field - редактируемое поле книги.
type Field int

const (
	FieldTitle Field = iota
	FieldAuthor
	FieldGenre
	FieldCondition
	FieldAvailabilityStatus
	FieldLocation
)

// EditableFields перечисляет поля формы в порядке отображения.
var EditableFields = []Field{
	FieldTitle, FieldAuthor, FieldGenre, FieldCondition, FieldAvailabilityStatus, FieldLocation,
}

// String возвращает подпись поля для формы.
func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "Title"
	case FieldAuthor:
		return "Author"
	case FieldGenre:
		return "Genre"
	case FieldCondition:
		return "Condition"
	case FieldAvailabilityStatus:
		return "Availability"
	case FieldLocation:
		return "Location"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Value возвращает значение поля f книги b.
func (f Field) Value(b models.Book) string {
	switch f {
	case FieldTitle:
		return b.Title
	case FieldAuthor:
		return b.Author
	case FieldGenre:
		return b.Genre
	case FieldCondition:
		return b.Condition
	case FieldAvailabilityStatus:
		return b.AvailabilityStatus
	case FieldLocation:
		return b.Location
	default:
		return ""
	}
}

func (f Field) set(b *models.Book, value string) error {
	switch f {
	case FieldTitle:
		b.Title = value
	case FieldAuthor:
		b.Author = value
	case FieldGenre:
		b.Genre = value
	case FieldCondition:
		b.Condition = value
	case FieldAvailabilityStatus:
		b.AvailabilityStatus = value
	case FieldLocation:
		b.Location = value
	default:
		return fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	return nil
}

// editState - состояние формы редактирования: Idle (active=false) или Editing.
type editState struct {
	active   bool
	original models.Book
	draft    models.Book
}

func (e editState) dirty() bool {
	return e.active && e.draft.Fields() != e.original.Fields()
}

// BeginEdit переводит книгу bookID в режим редактирования.
// Если до этого другая правка была изменена и не сохранена, она отбрасывается
// и replaced равно true, чтобы интерфейс мог предупредить пользователя.
func (vm *ViewModel) BeginEdit(bookID int64) (bool, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	idx := vm.indexByIDLocked(bookID)
	if idx < 0 {
		return false, fmt.Errorf("%w: %d", ErrBookNotFound, bookID)
	}

	replaced := vm.edit.dirty()
	if replaced {
		slog.Info("Несохраненная правка отброшена", "bookId", vm.edit.original.ID, "newBookId", bookID)
	}
	book := vm.own[idx].Book
	vm.edit = editState{active: true, original: book, draft: book}
	return replaced, nil
}

// SetEditField меняет поле редактируемой книги. Сетевых запросов нет.
func (vm *ViewModel) SetEditField(f Field, value string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !vm.edit.active {
		return ErrNotEditing
	}
	return f.set(&vm.edit.draft, value)
}

// Editing возвращает черновик редактируемой книги.
func (vm *ViewModel) Editing() (models.Book, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.edit.draft, vm.edit.active
}

// CancelEdit выходит из режима редактирования без сохранения.
func (vm *ViewModel) CancelEdit() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.edit = editState{}
}

// SaveEdit отправляет черновик на сервер. При успехе редактирование завершается,
// при ошибке черновик остается, чтобы пользователь мог повторить.
func (vm *ViewModel) SaveEdit(ctx context.Context) Result {
	vm.mu.Lock()
	if !vm.edit.active {
		vm.mu.Unlock()
		return Result{Message: MsgUpdateFailed, Err: ErrNotEditing}
	}
	draft := vm.edit.draft
	vm.mu.Unlock()

	res := vm.UpdateBook(ctx, draft)
	if !res.OK() {
		return res
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	// Пока шел запрос, пользователь мог начать другую правку
	if vm.edit.active && vm.edit.draft.ID == draft.ID {
		vm.edit = editState{}
	}
	return res
}
