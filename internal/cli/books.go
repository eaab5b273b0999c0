package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/maynagashev/bookswap/internal/listing"
	"github.com/maynagashev/bookswap/models"
)

// bookFlagNames сопоставляет флаги команд add и edit полям книги.
var bookFlagNames = map[listing.Field]string{
	listing.FieldTitle:              "title",
	listing.FieldAuthor:             "author",
	listing.FieldGenre:              "genre",
	listing.FieldCondition:          "condition",
	listing.FieldAvailabilityStatus: "availability",
	listing.FieldLocation:           "location",
}

var bookFlagUsage = map[listing.Field]string{
	listing.FieldTitle:              "Название",
	listing.FieldAuthor:             "Автор",
	listing.FieldGenre:              "Жанр",
	listing.FieldCondition:          "Состояние",
	listing.FieldAvailabilityStatus: "Доступность",
	listing.FieldLocation:           "Город",
}

func (a *app) newBooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Работа с книгами",
	}
	cmd.AddCommand(
		a.newBooksMineCommand(),
		a.newBooksOthersCommand(),
		a.newBooksAddCommand(),
		a.newBooksEditCommand(),
		a.newBooksDeleteCommand(),
	)
	return cmd
}

func (a *app) newBooksMineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Показать свои книги",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			books, err := a.books()
			if err != nil {
				return err
			}
			if err = books.FetchOwnBooks(cmd.Context()); err != nil {
				return bookError("не удалось загрузить книги", err)
			}
			a.printBooks(books.OwnBooks(), "Вы еще не добавили ни одной книги.")
			return nil
		}),
	}
}

func (a *app) newBooksOthersCommand() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "others",
		Short: "Показать книги других пользователей",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			books, err := a.books()
			if err != nil {
				return err
			}
			if err = books.FetchOthersBooks(cmd.Context()); err != nil {
				return bookError("не удалось загрузить книги", err)
			}
			books.SetSearchQuery(query)
			a.printBooks(books.FilteredBooks(), "Книги не найдены.")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "Поиск по названию, автору, жанру и городу")
	return cmd
}

func (a *app) newBooksAddCommand() *cobra.Command {
	values := make(map[listing.Field]*string, len(listing.EditableFields))
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Добавить книгу",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			books, err := a.books()
			if err != nil {
				return err
			}
			fields := models.BookFields{
				Title:              strings.TrimSpace(*values[listing.FieldTitle]),
				Author:             strings.TrimSpace(*values[listing.FieldAuthor]),
				Genre:              strings.TrimSpace(*values[listing.FieldGenre]),
				Condition:          strings.TrimSpace(*values[listing.FieldCondition]),
				AvailabilityStatus: strings.TrimSpace(*values[listing.FieldAvailabilityStatus]),
				Location:           strings.TrimSpace(*values[listing.FieldLocation]),
			}
			if missing := fields.Missing(); len(missing) > 0 {
				return fmt.Errorf("заполните все поля, не хватает: %s", strings.Join(missing, ", "))
			}

			res := books.AddBook(cmd.Context(), fields)
			if !res.OK() {
				return bookError(res.Message, res.Err)
			}
			fmt.Fprintln(a.out, res.Message)
			return nil
		}),
	}
	for _, f := range listing.EditableFields {
		values[f] = cmd.Flags().String(bookFlagNames[f], "", bookFlagUsage[f])
	}
	return cmd
}

func (a *app) newBooksEditCommand() *cobra.Command {
	values := make(map[listing.Field]*string, len(listing.EditableFields))
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Изменить свою книгу",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			books, err := a.books()
			if err != nil {
				return err
			}
			if err = books.FetchOwnBooks(cmd.Context()); err != nil {
				return bookError("не удалось загрузить книги", err)
			}
			if _, err = books.BeginEdit(bookID); err != nil {
				return err
			}

			changed := 0
			for _, f := range listing.EditableFields {
				if !cmd.Flags().Changed(bookFlagNames[f]) {
					continue
				}
				if err = books.SetEditField(f, strings.TrimSpace(*values[f])); err != nil {
					return err
				}
				changed++
			}
			if changed == 0 {
				books.CancelEdit()
				return errors.New("не указано ни одного поля для изменения")
			}
			draft, _ := books.Editing()
			if missing := draft.Fields().Missing(); len(missing) > 0 {
				books.CancelEdit()
				return fmt.Errorf("поля не могут быть пустыми: %s", strings.Join(missing, ", "))
			}

			res := books.SaveEdit(cmd.Context())
			if !res.OK() {
				return bookError(res.Message, res.Err)
			}
			fmt.Fprintln(a.out, res.Message)
			return nil
		}),
	}
	for _, f := range listing.EditableFields {
		values[f] = cmd.Flags().String(bookFlagNames[f], "", bookFlagUsage[f])
	}
	return cmd
}

func (a *app) newBooksDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить свою книгу",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			books, err := a.books()
			if err != nil {
				return err
			}
			res := books.DeleteBook(cmd.Context(), bookID)
			if !res.OK() {
				return bookError(res.Message, res.Err)
			}
			fmt.Fprintln(a.out, res.Message)
			return nil
		}),
	}
}

// books создает модель списка для вошедшего пользователя.
func (a *app) books() (*listing.ViewModel, error) {
	if _, err := a.requireIdentity(); err != nil {
		return nil, err
	}
	return listing.New(a.client, a.session), nil
}

func (a *app) printBooks(books []models.Book, empty string) {
	if len(books) == 0 {
		fmt.Fprintln(a.out, empty)
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Название", "Автор", "Жанр", "Город", "Доступность", "Состояние")
	for _, b := range books {
		t.Row(strconv.FormatInt(b.ID, 10), b.Title, b.Author, b.Genre, b.Location, b.AvailabilityStatus, b.Condition)
	}
	fmt.Fprintln(a.out, t.Render())
}

func parseBookID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный идентификатор книги: %q", arg)
	}
	return id, nil
}

// bookError добавляет к сообщению причину. Отсутствие токена превращается в ErrNotLoggedIn.
func bookError(message string, err error) error {
	if errors.Is(err, listing.ErrNotAuthenticated) {
		return ErrNotLoggedIn
	}
	return fmt.Errorf("%s: %w", strings.TrimSuffix(message, "."), err)
}
