// Package listing управляет списками книг: своими и чужими.
// Изменения применяются оптимистично и откатываются при ошибке сервера.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maynagashev/bookswap/internal/session"
	"github.com/maynagashev/bookswap/models"
)

// Сообщения, которые видит пользователь.
const (
	MsgAddFailed    = "Не удалось добавить книгу. Попробуйте еще раз."
	MsgAddSucceeded = "Книга добавлена."
	MsgUpdated      = "Книга обновлена."
	MsgUpdateFailed = "Не удалось обновить книгу. Попробуйте еще раз."
	MsgDeleted      = "Книга удалена."
	MsgDeleteFailed = "Не удалось удалить книгу. Попробуйте еще раз."
)

var (
	// ErrNotAuthenticated возвращается, если в сессии нет токена.
	ErrNotAuthenticated = errors.New("пользователь не аутентифицирован")
	// ErrBookNotFound возвращается, если книги нет в локальном списке.
	ErrBookNotFound = errors.New("книга не найдена в списке")
)

// BooksAPI - часть API клиента, нужная списку книг.
type BooksAPI interface {
	ListUserBooks(ctx context.Context, token string, userID int64) ([]models.Book, error)
	ListOtherUsersBooks(ctx context.Context, token string, userID int64) ([]models.Book, error)
	CreateBook(ctx context.Context, token string, book models.Book) (string, error)
	UpdateBook(ctx context.Context, token string, book models.Book) (string, error)
	DeleteBook(ctx context.Context, token string, id int64) error
}

// IdentitySource отдает текущую личность пользователя.
type IdentitySource interface {
	Identity() (session.Identity, error)
}

// SyncState - состояние синхронизации записи в своем списке.
type SyncState int

const (
	// StateSynced - запись совпадает с последним ответом сервера.
	StateSynced SyncState = iota
	// StatePendingCreate - книга добавлена локально, сервер еще не ответил.
	StatePendingCreate
	// StatePendingUpdate - книга изменена локально, сервер еще не ответил.
	StatePendingUpdate
	// StateUnconfirmed - сервер принял книгу, но список не удалось перечитать.
	StateUnconfirmed
)

func (s SyncState) String() string {
	switch s {
	case StateSynced:
		return "synced"
	case StatePendingCreate:
		return "pending-create"
	case StatePendingUpdate:
		return "pending-update"
	case StateUnconfirmed:
		return "unconfirmed"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// Entry - запись своего списка вместе с состоянием синхронизации.
type Entry struct {
	Book  models.Book
	State SyncState

	localID uint64 // Локальный идентификатор, стабилен для временных записей с ID 0
	created bool   // Сервер подтвердил создание, запись ждет перечитывания списка
}

// Result - итог изменения, который показывается пользователю.
type Result struct {
	Message string
	Err     error
}

// OK сообщает об успехе операции.
func (r Result) OK() bool {
	return r.Err == nil
}

// Option настраивает ViewModel.
type Option func(vm *ViewModel)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) {
		vm.now = now
	}
}

// ViewModel хранит свой и чужой списки книг, строку поиска и состояние редактирования.
// Безопасен для конкурентного использования; сетевые вызовы идут без удержания блокировки.
type ViewModel struct {
	api     BooksAPI
	session IdentitySource
	now     func() time.Time

	mu        sync.Mutex
	own       []Entry
	others    []models.Book
	filtered  []models.Book
	query     string
	ownGen    uint64 // Растет при каждом чтении и изменении своего списка
	othersGen uint64
	nextLocal uint64
	edit      editState
}

// New создает модель списка книг.
func New(api BooksAPI, sess IdentitySource, opts ...Option) *ViewModel {
	vm := &ViewModel{
		api:      api,
		session:  sess,
		now:      time.Now,
		own:      []Entry{},
		others:   []models.Book{},
		filtered: []models.Book{},
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// identity возвращает личность, если с ней можно делать запросы.
func (vm *ViewModel) identity() (session.Identity, error) {
	id, err := vm.session.Identity()
	if err != nil {
		return session.Identity{}, err
	}
	if !id.Authenticated() {
		return session.Identity{}, ErrNotAuthenticated
	}
	return id, nil
}

// FetchOwnBooks перечитывает свой список с сервера.
// При ошибке список остается прежним.
func (vm *ViewModel) FetchOwnBooks(ctx context.Context) error {
	id, err := vm.identity()
	if err != nil {
		return err
	}
	_, err = vm.fetchOwn(ctx, id, 0)
	return err
}

// fetchOwn читает свой список и заменяет им локальный, если ответ не устарел.
// Временная запись reconciling (если задана) в новый список не переносится.
func (vm *ViewModel) fetchOwn(ctx context.Context, id session.Identity, reconciling uint64) (bool, error) {
	vm.mu.Lock()
	vm.ownGen++
	gen := vm.ownGen
	vm.mu.Unlock()

	books, err := vm.api.ListUserBooks(ctx, id.Token, id.UserID)
	if err != nil {
		slog.Error("Ошибка загрузки своих книг", "userId", id.UserID, "error", err)
		return false, fmt.Errorf("не удалось загрузить ваши книги: %w", err)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if gen != vm.ownGen {
		slog.Debug("Отброшен устаревший ответ со своими книгами", "gen", gen, "current", vm.ownGen)
		return false, nil
	}
	vm.own = vm.mergeOwnLocked(books, reconciling)
	slog.Debug("Загружены свои книги", "count", len(books))
	return true, nil
}

// mergeOwnLocked строит новый свой список из ответа сервера.
// Незавершенные изменения, начатые после запроса, накладываются поверх.
func (vm *ViewModel) mergeOwnLocked(books []models.Book, skipLocal uint64) []Entry {
	pendingUpdates := make(map[int64]Entry)
	known := make(map[int64]bool, len(vm.own))
	var pendingCreates []Entry
	for _, e := range vm.own {
		if e.Book.ID != 0 {
			known[e.Book.ID] = true
		}
		switch {
		case e.localID == skipLocal:
			// Сервер уже вернул эту книгу в ответе
		case e.State == StatePendingUpdate:
			pendingUpdates[e.Book.ID] = e
		case e.State == StatePendingCreate:
			pendingCreates = append(pendingCreates, e)
		}
	}

	// Новые книги сервера, которых еще не было в списке, могут оказаться
	// уже созданными временными записями
	fresh := make(map[models.BookFields]int)
	entries := make([]Entry, 0, len(books)+len(pendingCreates))
	for _, b := range books {
		if !known[b.ID] {
			fresh[b.Fields()]++
		}
		if pending, ok := pendingUpdates[b.ID]; ok {
			entries = append(entries, pending)
			continue
		}
		entries = append(entries, vm.newEntryLocked(b, StateSynced))
	}
	for _, e := range pendingCreates {
		if e.created && fresh[e.Book.Fields()] > 0 {
			fresh[e.Book.Fields()]--
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (vm *ViewModel) newEntryLocked(b models.Book, state SyncState) Entry {
	vm.nextLocal++
	return Entry{Book: b, State: state, localID: vm.nextLocal}
}

// FetchOthersBooks перечитывает список чужих книг и сразу применяет поиск.
func (vm *ViewModel) FetchOthersBooks(ctx context.Context) error {
	id, err := vm.identity()
	if err != nil {
		return err
	}

	vm.mu.Lock()
	vm.othersGen++
	gen := vm.othersGen
	vm.mu.Unlock()

	books, err := vm.api.ListOtherUsersBooks(ctx, id.Token, id.UserID)
	if err != nil {
		slog.Error("Ошибка загрузки чужих книг", "userId", id.UserID, "error", err)
		return fmt.Errorf("не удалось загрузить книги для обмена: %w", err)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if gen != vm.othersGen {
		slog.Debug("Отброшен устаревший ответ с чужими книгами", "gen", gen, "current", vm.othersGen)
		return nil
	}
	vm.others = slices.Clone(books)
	if vm.others == nil {
		vm.others = []models.Book{}
	}
	vm.filtered = Filter(vm.others, vm.query)
	slog.Debug("Загружены чужие книги", "count", len(books))
	return nil
}

// Refresh параллельно перечитывает оба списка. Ошибка одного запроса
// не прерывает другой, ошибки обоих объединяются.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	var (
		g                 errgroup.Group
		ownErr, othersErr error
	)
	g.Go(func() error {
		ownErr = vm.FetchOwnBooks(ctx)
		return ownErr
	})
	g.Go(func() error {
		othersErr = vm.FetchOthersBooks(ctx)
		return othersErr
	})
	_ = g.Wait()
	return errors.Join(ownErr, othersErr)
}

// SetSearchQuery задает строку поиска и пересчитывает отфильтрованный список.
func (vm *ViewModel) SetSearchQuery(query string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.query = query
	vm.filtered = Filter(vm.others, query)
}

// Reset забывает оба списка, строку поиска и правку.
// Вызывается при выходе пользователя; ответы запросов, начатых до сброса, отбрасываются.
func (vm *ViewModel) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.own = []Entry{}
	vm.others = []models.Book{}
	vm.filtered = []models.Book{}
	vm.query = ""
	vm.ownGen++
	vm.othersGen++
	vm.edit = editState{}
}

// SearchQuery возвращает текущую строку поиска.
func (vm *ViewModel) SearchQuery() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.query
}

// AddBook создает книгу. Временная запись появляется в конце своего списка сразу,
// после ответа сервера список перечитывается.
func (vm *ViewModel) AddBook(ctx context.Context, fields models.BookFields) Result {
	id, err := vm.identity()
	if err != nil {
		return Result{Message: MsgAddFailed, Err: err}
	}

	now := vm.now()
	book := models.Book{CreatedAt: now, UpdatedAt: now, OwnerUserID: id.UserID}.WithFields(fields)

	vm.mu.Lock()
	vm.ownGen++
	provisional := vm.newEntryLocked(book, StatePendingCreate)
	vm.own = append(vm.own, provisional)
	vm.mu.Unlock()

	message, err := vm.api.CreateBook(ctx, id.Token, book)
	if err != nil {
		slog.Error("Ошибка добавления книги", "title", book.Title, "error", err)
		vm.mu.Lock()
		vm.removeLocalLocked(provisional.localID)
		vm.mu.Unlock()
		return Result{Message: MsgAddFailed, Err: err}
	}
	if message == "" {
		message = MsgAddSucceeded
	}
	vm.mu.Lock()
	if i := vm.indexByLocalLocked(provisional.localID); i >= 0 {
		vm.own[i].created = true
	}
	vm.mu.Unlock()

	applied, fetchErr := vm.fetchOwn(ctx, id, provisional.localID)
	if fetchErr != nil || !applied {
		slog.Warn("Книга добавлена, но список не удалось обновить", "title", book.Title, "error", fetchErr)
		vm.mu.Lock()
		vm.setStateLocked(provisional.localID, StateUnconfirmed)
		vm.mu.Unlock()
	}
	return Result{Message: message}
}

// UpdateBook отправляет полную запись книги. Локальная запись заменяется сразу
// и возвращается к прежнему виду, если сервер отказал.
func (vm *ViewModel) UpdateBook(ctx context.Context, edited models.Book) Result {
	id, err := vm.identity()
	if err != nil {
		return Result{Message: MsgUpdateFailed, Err: err}
	}

	edited.OwnerUserID = id.UserID
	edited.UpdatedAt = vm.now()

	vm.mu.Lock()
	idx := vm.indexByIDLocked(edited.ID)
	if idx < 0 {
		vm.mu.Unlock()
		return Result{Message: MsgUpdateFailed, Err: fmt.Errorf("%w: %d", ErrBookNotFound, edited.ID)}
	}
	vm.ownGen++
	previous := vm.own[idx]
	vm.own[idx] = Entry{Book: edited, State: StatePendingUpdate, localID: previous.localID}
	vm.mu.Unlock()

	message, err := vm.api.UpdateBook(ctx, id.Token, edited)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil {
		slog.Error("Ошибка обновления книги", "bookId", edited.ID, "error", err)
		if i := vm.indexByLocalLocked(previous.localID); i >= 0 {
			vm.own[i] = previous
		}
		return Result{Message: MsgUpdateFailed, Err: err}
	}
	vm.setStateLocked(previous.localID, StateSynced)
	if message == "" {
		message = MsgUpdated
	}
	return Result{Message: message}
}

// DeleteBook удаляет книгу. Запись убирается из списка сразу; запрос к серверу
// уходит, даже если локально книги нет. При ошибке запись возвращается на место.
func (vm *ViewModel) DeleteBook(ctx context.Context, bookID int64) Result {
	id, err := vm.identity()
	if err != nil {
		return Result{Message: MsgDeleteFailed, Err: err}
	}

	vm.mu.Lock()
	vm.ownGen++
	idx := vm.indexByIDLocked(bookID)
	var removed Entry
	if idx >= 0 {
		removed = vm.own[idx]
		vm.own = slices.Delete(vm.own, idx, idx+1)
	}
	vm.mu.Unlock()

	if err = vm.api.DeleteBook(ctx, id.Token, bookID); err != nil {
		slog.Error("Ошибка удаления книги", "bookId", bookID, "error", err)
		if idx >= 0 {
			vm.mu.Lock()
			if vm.indexByIDLocked(bookID) < 0 {
				vm.own = slices.Insert(vm.own, min(idx, len(vm.own)), removed)
			}
			vm.mu.Unlock()
		}
		return Result{Message: MsgDeleteFailed, Err: err}
	}
	return Result{Message: MsgDeleted}
}

// OwnBooks возвращает копию своего списка.
func (vm *ViewModel) OwnBooks() []models.Book {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	books := make([]models.Book, len(vm.own))
	for i, e := range vm.own {
		books[i] = e.Book
	}
	return books
}

// OwnEntries возвращает копию своего списка вместе с состояниями синхронизации.
func (vm *ViewModel) OwnEntries() []Entry {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return slices.Clone(vm.own)
}

// OthersBooks возвращает копию полного списка чужих книг.
func (vm *ViewModel) OthersBooks() []models.Book {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return slices.Clone(vm.others)
}

// FilteredBooks возвращает копию чужих книг, подходящих под строку поиска.
func (vm *ViewModel) FilteredBooks() []models.Book {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return slices.Clone(vm.filtered)
}

func (vm *ViewModel) indexByIDLocked(bookID int64) int {
	return slices.IndexFunc(vm.own, func(e Entry) bool {
		return e.Book.ID == bookID && e.State != StatePendingCreate
	})
}

func (vm *ViewModel) indexByLocalLocked(localID uint64) int {
	return slices.IndexFunc(vm.own, func(e Entry) bool { return e.localID == localID })
}

func (vm *ViewModel) removeLocalLocked(localID uint64) {
	vm.own = slices.DeleteFunc(vm.own, func(e Entry) bool { return e.localID == localID })
}

func (vm *ViewModel) setStateLocked(localID uint64, state SyncState) {
	if i := vm.indexByLocalLocked(localID); i >= 0 {
		vm.own[i].State = state
	}
}
