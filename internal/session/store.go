// Package session хранит текущую личность пользователя клиента:
// токен, числовой идентификатор и отображаемое имя.
package session

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/maynagashev/bookswap/internal/storage"
)

// Ключи, под которыми личность сохраняется в хранилище.
const (
	KeyToken  = "token"
	KeyUserID = "userId"
	KeyName   = "name"
)

var (
	// ErrNotInitialized возвращается при обращении к сессии до Initialize.
	ErrNotInitialized = errors.New("сессия не инициализирована")
	// ErrInvalidIdentity возвращается при попытке сохранить неполные данные.
	ErrInvalidIdentity = errors.New("некорректные данные аутентификации")
)

// Identity описывает того, кто сейчас работает с клиентом.
// Нулевое значение означает отсутствие входа.
type Identity struct {
	Token  string
	UserID int64
	Name   string
}

// Authenticated сообщает, есть ли у личности токен.
// Без токена нельзя выполнять запросы, требующие аутентификации.
func (i Identity) Authenticated() bool {
	return i.Token != ""
}

// Option настраивает Store.
type Option func(s *Store)

// WithNavigator задает действие, выполняемое после выхода пользователя.
func WithNavigator(navigate func()) Option {
	return func(s *Store) {
		s.navigate = navigate
	}
}

// Store - единственный источник данных о текущей личности.
// Безопасен для конкурентного использования.
type Store struct {
	mu          sync.RWMutex
	storage     storage.Storage
	identity    Identity
	initialized bool
	degraded    bool
	navigate    func()
}

// New создает хранилище сессии поверх долговременного хранилища st.
func New(st storage.Storage, opts ...Option) *Store {
	s := &Store{storage: st}
	if st == nil {
		s.storage = storage.NewMemory()
		s.degraded = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNavigator заменяет действие, выполняемое после выхода.
// Нужен, когда навигатор (например, UI) создается позже сессии.
func (s *Store) SetNavigator(navigate func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigate = navigate
}

// Initialize загружает сохраненную личность.
// Личность восстанавливается только если все три поля на месте и корректны.
// Ошибка чтения хранилища не фатальна: сессия переходит в режим только-в-памяти.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.identity = Identity{}

	values := make(map[string]string, 3)
	for _, key := range []string{KeyToken, KeyUserID, KeyName} {
		value, found, err := s.storage.Get(key)
		if err != nil {
			slog.Error("Ошибка чтения сессии из хранилища, продолжаем без сохранения",
				"key", key, "error", err)
			s.degradeLocked()
			return nil
		}
		if !found {
			slog.Debug("Сохраненная сессия отсутствует или неполна", "missingKey", key)
			return nil
		}
		values[key] = value
	}

	userID, err := strconv.ParseInt(values[KeyUserID], 10, 64)
	if err != nil || userID < 0 {
		slog.Warn("Сохраненный идентификатор пользователя некорректен, сессия сброшена",
			"userId", values[KeyUserID])
		return nil
	}
	if values[KeyToken] == "" || values[KeyName] == "" {
		slog.Warn("Сохраненная сессия содержит пустые поля, сессия сброшена")
		return nil
	}

	s.identity = Identity{Token: values[KeyToken], UserID: userID, Name: values[KeyName]}
	slog.Info("Сессия восстановлена", "userId", userID, "name", values[KeyName])
	return nil
}

// SetAuthData атомарно заменяет личность и сохраняет ее.
// Ошибка записи не фатальна: личность остается в памяти.
func (s *Store) SetAuthData(token string, userID int64, name string) error {
	if token == "" || userID < 0 || name == "" {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.identity = Identity{Token: token, UserID: userID, Name: name}

	pairs := [][2]string{
		{KeyToken, token},
		{KeyUserID, strconv.FormatInt(userID, 10)},
		{KeyName, name},
	}
	for _, kv := range pairs {
		if err := s.storage.Set(kv[0], kv[1]); err != nil {
			slog.Error("Ошибка сохранения сессии, продолжаем без сохранения", "key", kv[0], "error", err)
			// Частично записанная личность не должна восстановиться при следующем запуске
			s.deleteAllLocked()
			s.degradeLocked()
			s.writeAllLocked(pairs)
			break
		}
	}

	slog.Info("Пользователь вошел", "userId", userID, "name", name)
	return nil
}

// ClearAuthData удаляет личность из памяти и хранилища,
// после чего выполняет навигацию на экран входа.
func (s *Store) ClearAuthData() {
	s.mu.Lock()
	s.initialized = true
	s.identity = Identity{}
	if !s.deleteAllLocked() {
		s.degradeLocked()
	}
	navigate := s.navigate
	s.mu.Unlock()

	slog.Info("Пользователь вышел")
	if navigate != nil {
		navigate()
	}
}

// Identity возвращает текущую личность.
func (s *Store) Identity() (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return Identity{}, ErrNotInitialized
	}
	return s.identity, nil
}

// Degraded сообщает, что сессия больше не сохраняется между запусками.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// degradeLocked переключает сессию на хранилище в памяти.
func (s *Store) degradeLocked() {
	if s.degraded {
		return
	}
	s.degraded = true
	s.storage = storage.NewMemory()
}

// deleteAllLocked удаляет все ключи личности из текущего хранилища.
// Каждый ключ удаляется, даже если предыдущий удалить не удалось:
// без любого из них Initialize не восстановит личность.
func (s *Store) deleteAllLocked() bool {
	ok := true
	for _, key := range []string{KeyToken, KeyUserID, KeyName} {
		if err := s.storage.Delete(key); err != nil {
			slog.Error("Ошибка удаления сессии из хранилища", "key", key, "error", err)
			ok = false
		}
	}
	return ok
}

// writeAllLocked записывает пары в текущее хранилище, игнорируя ошибки.
func (s *Store) writeAllLocked(pairs [][2]string) {
	for _, kv := range pairs {
		_ = s.storage.Set(kv[0], kv[1])
	}
}
