package session_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/bookswap/internal/session"
	"github.com/maynagashev/bookswap/internal/storage"
)

// --- Mock Storage --- //

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Get(key string) (string, bool, error) {
	args := m.Called(key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStorage) Set(key, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockStorage) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

// --- Tests --- //

func TestStore_IdentityBeforeInitialize(t *testing.T) {
	s := session.New(storage.NewMemory())

	_, err := s.Identity()
	require.ErrorIs(t, err, session.ErrNotInitialized)
}

func TestStore_Initialize(t *testing.T) {
	tests := []struct {
		name     string
		stored   map[string]string
		expected session.Identity
	}{
		{
			name:     "Пустое хранилище",
			stored:   map[string]string{},
			expected: session.Identity{},
		},
		{
			name:     "Полная сессия",
			stored:   map[string]string{"token": "tok", "userId": "42", "name": "Ann"},
			expected: session.Identity{Token: "tok", UserID: 42, Name: "Ann"},
		},
		{
			name:     "Нулевой идентификатор допустим",
			stored:   map[string]string{"token": "tok", "userId": "0", "name": "Ann"},
			expected: session.Identity{Token: "tok", UserID: 0, Name: "Ann"},
		},
		{
			name:     "Нет имени",
			stored:   map[string]string{"token": "tok", "userId": "42"},
			expected: session.Identity{},
		},
		{
			name:     "Нет токена",
			stored:   map[string]string{"userId": "42", "name": "Ann"},
			expected: session.Identity{},
		},
		{
			name:     "Нет идентификатора",
			stored:   map[string]string{"token": "tok", "name": "Ann"},
			expected: session.Identity{},
		},
		{
			name:     "Идентификатор не число",
			stored:   map[string]string{"token": "tok", "userId": "abc", "name": "Ann"},
			expected: session.Identity{},
		},
		{
			name:     "Отрицательный идентификатор",
			stored:   map[string]string{"token": "tok", "userId": "-1", "name": "Ann"},
			expected: session.Identity{},
		},
		{
			name:     "Пустой токен",
			stored:   map[string]string{"token": "", "userId": "1", "name": "Ann"},
			expected: session.Identity{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storage.NewMemory()
			for k, v := range tt.stored {
				require.NoError(t, st.Set(k, v))
			}

			s := session.New(st)
			require.NoError(t, s.Initialize())

			identity, err := s.Identity()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, identity)
			assert.Equal(t, tt.expected.Token != "", identity.Authenticated())
			assert.False(t, s.Degraded())
		})
	}
}

func TestStore_SetAuthDataRoundTrip(t *testing.T) {
	st := storage.NewMemory()
	s := session.New(st)
	require.NoError(t, s.Initialize())

	require.NoError(t, s.SetAuthData("tok", 7, "Ann"))

	identity, err := s.Identity()
	require.NoError(t, err)
	assert.Equal(t, session.Identity{Token: "tok", UserID: 7, Name: "Ann"}, identity)

	// Новый процесс с тем же хранилищем видит ту же личность
	restarted := session.New(st)
	require.NoError(t, restarted.Initialize())
	restored, err := restarted.Identity()
	require.NoError(t, err)
	assert.Equal(t, identity, restored)

	value, _, err := st.Get(session.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "7", value, "идентификатор хранится десятичной строкой")
}

func TestStore_SetAuthDataValidation(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		userID int64
		dname  string
	}{
		{name: "Пустой токен", token: "", userID: 1, dname: "Ann"},
		{name: "Отрицательный идентификатор", token: "tok", userID: -5, dname: "Ann"},
		{name: "Пустое имя", token: "tok", userID: 1, dname: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storage.NewMemory()
			s := session.New(st)
			require.NoError(t, s.Initialize())
			require.NoError(t, s.SetAuthData("old", 1, "Old"))

			err := s.SetAuthData(tt.token, tt.userID, tt.dname)
			require.ErrorIs(t, err, session.ErrInvalidIdentity)

			identity, err := s.Identity()
			require.NoError(t, err)
			assert.Equal(t, session.Identity{Token: "old", UserID: 1, Name: "Old"}, identity,
				"некорректные данные не меняют текущую личность")
		})
	}
}

func TestStore_ClearAuthData(t *testing.T) {
	st := storage.NewMemory()
	navigated := 0
	s := session.New(st, session.WithNavigator(func() { navigated++ }))
	require.NoError(t, s.Initialize())
	require.NoError(t, s.SetAuthData("tok", 7, "Ann"))

	s.ClearAuthData()

	identity, err := s.Identity()
	require.NoError(t, err)
	assert.False(t, identity.Authenticated())
	assert.Equal(t, session.Identity{}, identity)
	assert.Equal(t, 0, st.Len(), "все ключи удалены из хранилища")
	assert.Equal(t, 1, navigated, "выход ведет на экран входа")

	restarted := session.New(st)
	require.NoError(t, restarted.Initialize())
	restored, err := restarted.Identity()
	require.NoError(t, err)
	assert.False(t, restored.Authenticated())
}

func TestStore_SetNavigator(t *testing.T) {
	s := session.New(storage.NewMemory())
	require.NoError(t, s.Initialize())

	// Без навигатора выход не падает
	s.ClearAuthData()

	called := false
	s.SetNavigator(func() { called = true })
	s.ClearAuthData()
	assert.True(t, called)
}

func TestStore_NoNavigationOnOtherOperations(t *testing.T) {
	called := false
	s := session.New(storage.NewMemory(), session.WithNavigator(func() { called = true }))

	require.NoError(t, s.Initialize())
	require.NoError(t, s.SetAuthData("tok", 1, "Ann"))
	_, _ = s.Identity()

	assert.False(t, called)
}

func TestStore_StorageReadFailureDegrades(t *testing.T) {
	st := new(MockStorage)
	st.On("Get", session.KeyToken).Return("", false, errors.New("disk failure")).Once()

	s := session.New(st)
	require.NoError(t, s.Initialize(), "ошибка хранилища не фатальна")

	identity, err := s.Identity()
	require.NoError(t, err)
	assert.False(t, identity.Authenticated())
	assert.True(t, s.Degraded())

	// Дальше сессия работает в памяти, хранилище больше не трогается
	require.NoError(t, s.SetAuthData("tok", 3, "Bob"))
	identity, err = s.Identity()
	require.NoError(t, err)
	assert.Equal(t, session.Identity{Token: "tok", UserID: 3, Name: "Bob"}, identity)

	st.AssertExpectations(t)
	st.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestStore_StorageWriteFailureDegrades(t *testing.T) {
	st := new(MockStorage)
	st.On("Set", session.KeyToken, "tok").Return(nil).Once()
	st.On("Set", session.KeyUserID, "3").Return(errors.New("read-only file system")).Once()
	st.On("Delete", mock.Anything).Return(nil).Times(3)

	s := session.New(st)
	require.NoError(t, s.SetAuthData("tok", 3, "Bob"))

	identity, err := s.Identity()
	require.NoError(t, err)
	assert.Equal(t, session.Identity{Token: "tok", UserID: 3, Name: "Bob"}, identity)
	assert.True(t, s.Degraded())

	st.AssertExpectations(t)
	st.AssertNotCalled(t, "Set", session.KeyName, mock.Anything)
}

func TestStore_DeleteFailureStillClears(t *testing.T) {
	st := new(MockStorage)
	st.On("Set", mock.Anything, mock.Anything).Return(nil)
	st.On("Delete", session.KeyToken).Return(errors.New("locked")).Once()
	st.On("Delete", session.KeyUserID).Return(nil).Once()
	st.On("Delete", session.KeyName).Return(nil).Once()

	navigated := false
	s := session.New(st, session.WithNavigator(func() { navigated = true }))
	require.NoError(t, s.SetAuthData("tok", 3, "Bob"))

	s.ClearAuthData()

	identity, err := s.Identity()
	require.NoError(t, err)
	assert.False(t, identity.Authenticated())
	assert.True(t, s.Degraded())
	assert.True(t, navigated)
	st.AssertExpectations(t)
}

// failingStorage - хранилище в памяти, которое отказывает на выбранных ключах.
type failingStorage struct {
	*storage.Memory
	failSet    map[string]bool
	failDelete map[string]bool
}

func newFailingStorage() *failingStorage {
	return &failingStorage{
		Memory:     storage.NewMemory(),
		failSet:    map[string]bool{},
		failDelete: map[string]bool{},
	}
}

func (f *failingStorage) Set(key, value string) error {
	if f.failSet[key] {
		return errors.New("disk full")
	}
	return f.Memory.Set(key, value)
}

func (f *failingStorage) Delete(key string) error {
	if f.failDelete[key] {
		return errors.New("locked")
	}
	return f.Memory.Delete(key)
}

func reload(t *testing.T, st storage.Storage) session.Identity {
	t.Helper()
	s := session.New(st)
	require.NoError(t, s.Initialize())
	identity, err := s.Identity()
	require.NoError(t, err)
	return identity
}

func TestStore_PartialWriteNotRestored(t *testing.T) {
	st := newFailingStorage()
	s := session.New(st)
	require.NoError(t, s.SetAuthData("tokA", 1, "Alice"))

	st.failSet[session.KeyUserID] = true
	require.NoError(t, s.SetAuthData("tokB", 2, "Bob"))

	identity, err := s.Identity()
	require.NoError(t, err)
	assert.Equal(t, session.Identity{Token: "tokB", UserID: 2, Name: "Bob"}, identity,
		"в памяти остается новая личность")
	assert.True(t, s.Degraded())

	assert.Equal(t, session.Identity{}, reload(t, st),
		"смесь новой и старой личности не должна восстановиться")
}

func TestStore_LogoutSurvivesReload(t *testing.T) {
	tests := []struct {
		name       string
		failDelete []string
	}{
		{name: "Ошибка удаления токена", failDelete: []string{session.KeyToken}},
		{name: "Ошибка удаления имени", failDelete: []string{session.KeyName}},
		{name: "Удается удалить только идентификатор", failDelete: []string{session.KeyToken, session.KeyName}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFailingStorage()
			s := session.New(st)
			require.NoError(t, s.SetAuthData("tokA", 1, "Alice"))
			for _, key := range tt.failDelete {
				st.failDelete[key] = true
			}

			s.ClearAuthData()

			assert.True(t, s.Degraded())
			assert.Equal(t, session.Identity{}, reload(t, st), "после выхода вход не восстанавливается")
		})
	}
}

func TestStore_NilStorage(t *testing.T) {
	s := session.New(nil)
	assert.True(t, s.Degraded())
	require.NoError(t, s.Initialize())
	require.NoError(t, s.SetAuthData("tok", 1, "Ann"))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := session.New(storage.NewMemory())
	require.NoError(t, s.Initialize())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetAuthData("tok", int64(i), "Ann")
		}()
		go func() {
			defer wg.Done()
			identity, err := s.Identity()
			assert.NoError(t, err)
			// Личность всегда целая: либо пустая, либо все три поля
			if identity.Authenticated() {
				assert.Equal(t, "Ann", identity.Name)
			} else {
				assert.Equal(t, session.Identity{}, identity)
			}
		}()
	}
	wg.Wait()
}
