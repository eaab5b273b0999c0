package listing_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/bookswap/internal/api"
	"github.com/maynagashev/bookswap/internal/apitest"
	"github.com/maynagashev/bookswap/internal/listing"
	"github.com/maynagashev/bookswap/internal/session"
	"github.com/maynagashev/bookswap/internal/storage"
	"github.com/maynagashev/bookswap/models"
)

func TestViewModel_AgainstFakeAPI(t *testing.T) {
	srv := apitest.NewServer(t)
	ann := srv.AddUser("Ann", "ann@example.com", "pw")
	bob := srv.AddUser("Bob", "bob@example.com", "pw")
	srv.AddBook(models.Book{Title: "Dune", Author: "Frank Herbert", Location: "NYC", OwnerUserID: ann})
	srv.AddBook(models.Book{Title: "Emma", Author: "Jane Austen", Location: "LA", OwnerUserID: bob})
	srv.AddBook(models.Book{Title: "Ulysses", Author: "James Joyce", Location: "nyc-annex", OwnerUserID: bob})

	sess := session.New(storage.NewMemory())
	require.NoError(t, sess.Initialize())
	require.NoError(t, sess.SetAuthData(srv.Token(ann), ann, "Ann"))

	client := api.NewHTTPClient(srv.URL())
	vm := listing.New(client, sess)
	ctx := context.Background()

	require.NoError(t, vm.Refresh(ctx))
	assert.Equal(t, []string{"Dune"}, titles(vm.OwnBooks()))
	assert.Equal(t, []string{"Emma", "Ulysses"}, titles(vm.OthersBooks()))

	vm.SetSearchQuery("NYC")
	assert.Equal(t, []string{"Ulysses"}, titles(vm.FilteredBooks()))

	res := vm.AddBook(ctx, models.BookFields{
		Title: "Neuromancer", Author: "William Gibson", Genre: "Cyberpunk",
		Condition: "Good", AvailabilityStatus: "Available", Location: "Chiba",
	})
	require.True(t, res.OK(), "ошибка: %v", res.Err)
	assert.Equal(t, "Book added successfully!", res.Message)
	assert.Equal(t, []string{"Dune", "Neuromancer"}, titles(vm.OwnBooks()))
	for _, e := range vm.OwnEntries() {
		assert.Equal(t, listing.StateSynced, e.State)
		assert.NotZero(t, e.Book.ID)
	}

	neuromancer := vm.OwnBooks()[1]
	_, err := vm.BeginEdit(neuromancer.ID)
	require.NoError(t, err)
	require.NoError(t, vm.SetEditField(listing.FieldTitle, "Count Zero"))
	require.True(t, vm.SaveEdit(ctx).OK())

	srv.FailNext(apitest.RouteDeleteBook, http.StatusInternalServerError, "boom")
	res = vm.DeleteBook(ctx, neuromancer.ID)
	require.False(t, res.OK())
	assert.Equal(t, []string{"Dune", "Count Zero"}, titles(vm.OwnBooks()), "после ошибки книга на месте")

	require.True(t, vm.DeleteBook(ctx, neuromancer.ID).OK())
	require.NoError(t, vm.FetchOwnBooks(ctx))
	assert.Equal(t, []string{"Dune"}, titles(vm.OwnBooks()))

	// Удаление чужой книги отклоняется сервером, но запрос уходит
	before := srv.CallCount(apitest.RouteDeleteBook)
	res = vm.DeleteBook(ctx, 2)
	require.False(t, res.OK())
	assert.Equal(t, before+1, srv.CallCount(apitest.RouteDeleteBook))
}

func titles(books []models.Book) []string {
	result := make([]string, 0, len(books))
	for _, b := range books {
		result = append(result, b.Title)
	}
	return result
}
